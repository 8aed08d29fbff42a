package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/researchmesh/internal/testutil"
)

func TestFanOut_BoundAndOrder(t *testing.T) {
	probe := testutil.NewConcurrencyProbe()
	items := []int{5, 4, 3, 2, 1, 0}

	out, err := fanOut(context.Background(), 2, items, func(_ context.Context, n int) (int, error) {
		leave := probe.Enter()
		defer leave()

		time.Sleep(time.Duration(n) * 5 * time.Millisecond)

		return n * 10, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{50, 40, 30, 20, 10, 0}, out)
	assert.LessOrEqual(t, probe.Max(), 2)
	assert.Equal(t, len(items), probe.Entered())
}

func TestFanOut_FirstErrorCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")

	out, err := fanOut(context.Background(), 3, []string{"slow", "fail"}, func(ctx context.Context, s string) (string, error) {
		if s == "fail" {
			return "", boom
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return s, nil
		}
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
}

func TestFanOut_QueuedItemsSkippedAfterError(t *testing.T) {
	boom := errors.New("boom")

	var calls atomic.Int32

	out, err := fanOut(context.Background(), 1, []string{"fail", "a", "b", "c"}, func(_ context.Context, s string) (string, error) {
		calls.Add(1)

		if s == "fail" {
			return "", boom
		}

		return s, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFanOut_Empty(t *testing.T) {
	out, err := fanOut(context.Background(), 0, []string{}, func(context.Context, string) (string, error) {
		t.Fatal("unexpected call")
		return "", nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}
