package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	t.Run("results keep input order", func(t *testing.T) {
		pool := NewWorkerPool(3, func(ctx context.Context, n int) (int, error) {
			time.Sleep(time.Duration(10-n) * time.Millisecond)
			return n * n, nil
		})
		results, errs := pool.ProcessItems(context.Background(), []int{1, 2, 3, 4, 5})
		assert.Equal(t, []int{1, 4, 9, 16, 25}, results)
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		var running, peak int32
		pool := NewWorkerPool(2, func(ctx context.Context, n int) (int, error) {
			cur := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return n, nil
		})
		pool.ProcessItems(context.Background(), make([]int, 10))
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	})

	t.Run("errors are indexed", func(t *testing.T) {
		boom := errors.New("boom")
		pool := NewWorkerPool(2, func(ctx context.Context, s string) (string, error) {
			if s == "bad" {
				return "", boom
			}
			return s, nil
		})
		results, errs := pool.ProcessItems(context.Background(), []string{"a", "bad", "c"})
		assert.Equal(t, "c", results[2])
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], boom)
	})

	t.Run("panics become PanicError", func(t *testing.T) {
		pool := NewWorkerPool(1, func(ctx context.Context, n int) (int, error) {
			panic("worker panic")
		})
		_, errs := pool.ProcessItems(context.Background(), []int{1})
		var panicErr *PanicError
		require.True(t, errors.As(errs[0], &panicErr))
		assert.Equal(t, "worker panic", panicErr.Value)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pool := NewWorkerPool(1, func(ctx context.Context, n int) (int, error) {
			return n, nil
		})
		_, errs := pool.ProcessItems(ctx, []int{1, 2, 3})
		var cancelled int
		for _, err := range errs {
			if errors.Is(err, context.Canceled) {
				cancelled++
			}
		}
		assert.Positive(t, cancelled)
	})

	t.Run("empty input", func(t *testing.T) {
		pool := NewWorkerPool(0, func(ctx context.Context, n int) (int, error) { return n, nil })
		results, errs := pool.ProcessItems(context.Background(), nil)
		assert.Nil(t, results)
		assert.Nil(t, errs)
	})
}

func TestWorkerLimit(t *testing.T) {
	t.Setenv("LABELKIT_WORKERS", "3")
	assert.Equal(t, 3, WorkerLimit())

	t.Setenv("LABELKIT_WORKERS", "nope")
	assert.Equal(t, DefaultWorkers, WorkerLimit())
}
