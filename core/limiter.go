package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrLimitExceeded is returned by Limiter.Increment once the budget is spent.
var ErrLimitExceeded = errors.New("limit exceeded")

// Limiter enforces a maximum number of counted operations (for example tool
// rounds of a single researcher).
type Limiter struct {
	name  string
	max   int
	count int
	mu    sync.Mutex
}

// NewLimiter creates a new limiter with a max number of operations.
// If max == 0, unlimited operations are allowed.
func NewLimiter(name string, max int) *Limiter {
	return &Limiter{name: name, max: max}
}

// Increment increases the counter and returns an error wrapping
// ErrLimitExceeded if the limit is exceeded.
func (l *Limiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("%w: %s (max %d)", ErrLimitExceeded, l.name, l.max)
	}

	return nil
}

// Count returns the current number of counted operations.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many operations are left before hitting the limit.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1 // unlimited
	}

	return l.max - l.count
}
