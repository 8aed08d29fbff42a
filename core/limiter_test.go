package core

import (
	"errors"
	"testing"
)

func TestLimiter(t *testing.T) {
	l := NewLimiter("tool_rounds", 2)
	if err := l.Increment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := l.Increment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r := l.Remaining(); r != 0 {
		t.Fatalf("expected 0 remaining, got %d", r)
	}

	err := l.Increment()
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	if l.Count() != 3 {
		t.Fatalf("expected count 3, got %d", l.Count())
	}

	unlimited := NewLimiter("x", 0)
	for i := 0; i < 100; i++ {
		if err := unlimited.Increment(); err != nil {
			t.Fatalf("unlimited limiter failed: %v", err)
		}
	}

	if unlimited.Remaining() != -1 {
		t.Fatalf("expected -1 for unlimited")
	}
}
