package task_test

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/common/task"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

func TestWaitDeliversResult(t *testing.T) {
	tk := task.Go(func() (int, error) { return 42, nil })
	v, err := tk.Wait()
	require.NoError(t, err)
	require.Equal(t, 42, v)

	v, err = tk.Wait()
	require.NoError(t, err)
	require.Equal(t, 42, v)

	failing := task.Go(func() (string, error) { return "", errors.NewKindError(errors.KindRangeError, "too big") })
	_, err = failing.Wait()
	require.True(t, stderrors.Is(err, errors.ErrRangeError))
}

func TestThenIsCalledExactlyOnce(t *testing.T) {
	release := make(chan struct{})
	tk := task.Go(func() (int, error) {
		<-release
		return 7, nil
	})

	var calls int32
	var wg sync.WaitGroup
	wg.Add(2)
	tk.Then(func(v int, err error) {
		require.Equal(t, 7, v)
		atomic.AddInt32(&calls, 1)
		wg.Done()
	})
	close(release)
	_, _ = tk.Wait()
	tk.Then(func(v int, err error) {
		atomic.AddInt32(&calls, 1)
		wg.Done()
	})
	wg.Wait()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := task.NewPool(2)
	require.Equal(t, 2, pool.Size())

	var running, peak int32
	tasks := make([]*task.Task[struct{}], 0, 8)
	for i := 0; i < 8; i++ {
		tasks = append(tasks, task.Run(pool, func() (struct{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		}))
	}
	for _, tk := range tasks {
		_, err := tk.Wait()
		require.NoError(t, err)
	}
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPanicBecomesError(t *testing.T) {
	tk := task.Go(func() (int, error) { panic("boom") })
	_, err := tk.Wait()
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestWaitContextAndResolved(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	tk := task.Go(func() (int, error) {
		<-block
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := tk.WaitContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	done := task.Resolved("ok", nil)
	select {
	case <-done.Done():
	default:
		t.Fatal("resolved task should be done")
	}
	v, err := done.Wait()
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}
