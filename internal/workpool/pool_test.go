package workpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"zonerama/pkg/logger"
)

func TestRunPreservesOrder(t *testing.T) {
	pool := New(3, func(_ context.Context, n int) int {
		// later items finish first
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n * n
	}, logger.NewNopLogger())

	got := pool.Run(context.Background(), []int{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64, 81}, got)
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	var active, peak int32
	pool := New(2, func(_ context.Context, _ int) struct{} {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return struct{}{}
	}, logger.NewNopLogger())

	pool.Run(context.Background(), make([]int, 10))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestOnResultSeesEveryItem(t *testing.T) {
	var seen []int
	pool := New(4, func(_ context.Context, s string) int { return len(s) }, logger.NewNopLogger()).
		OnResult(func(index int, _ int) { seen = append(seen, index) })

	pool.Run(context.Background(), []string{"a", "bb", "ccc"})
	assert.ElementsMatch(t, []int{0, 1, 2}, seen)
}

func TestRunHandsCancelledContextToHandlers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := New(2, func(ctx context.Context, _ int) error { return ctx.Err() }, logger.NewNopLogger())
	got := pool.Run(ctx, []int{1, 2, 3})

	for _, err := range got {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestRunEmpty(t *testing.T) {
	pool := New(0, func(context.Context, int) int { return 1 }, logger.NewNopLogger())
	assert.Empty(t, pool.Run(context.Background(), nil))
}
