package task

import (
	"context"
	"runtime"
	"sync"

	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"golang.org/x/sync/semaphore"
)

var logger = mlog.GetLogger("common.task", mlog.DebugLevel)

/* ------------------------------------------------------------------------------------------ */

// Pool 限制同时执行的后台计算的数量。
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool size 小于等于 0 时使用 GOMAXPROCS。
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Size() int {
	return p.size
}

var (
	defaultPool = NewPool(0)
	poolMutex   sync.RWMutex
)

// SetDefaultPool 替换 Go 使用的默认工作池，已经提交的任务不受影响。
func SetDefaultPool(p *Pool) {
	if p == nil {
		return
	}
	poolMutex.Lock()
	defaultPool = p
	poolMutex.Unlock()
}

func DefaultPool() *Pool {
	poolMutex.RLock()
	defer poolMutex.RUnlock()
	return defaultPool
}

/* ------------------------------------------------------------------------------------------ */

// Task 是一次后台计算的结果。结果只产生一次，Wait 可以被多次调用，通过 Then 注册的每个回调恰好被调用一次。
type Task[T any] struct {
	done      chan struct{}
	mutex     sync.Mutex
	result    T
	err       error
	callbacks []func(T, error)
}

// Go 在默认工作池上执行 fn。
func Go[T any](fn func() (T, error)) *Task[T] {
	return Run(DefaultPool(), fn)
}

// Run 在工作池 p 上执行 fn，工作池已满时任务排队等待，fn 中的 panic 被转换为错误。
func Run[T any](p *Pool, fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		// 使用永不取消的上下文，Acquire 不会失败。
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		t.complete(execute(fn))
	}()
	return t
}

// Resolved 返回一个已经完成的任务。
func Resolved[T any](result T, err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	t.complete(result, err)
	return t
}

func execute[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Background task panicked: %v.", r)
			err = errors.NewKindErrorf(errors.KindUnspecified, "background task panicked, the error is \"%v\"", r)
		}
	}()
	return fn()
}

func (t *Task[T]) complete(result T, err error) {
	t.mutex.Lock()
	t.result, t.err = result, err
	close(t.done)
	callbacks := t.callbacks
	t.callbacks = nil
	t.mutex.Unlock()

	for _, cb := range callbacks {
		cb(result, err)
	}
}

/* ------------------------------------------------------------------------------------------ */

// Wait 阻塞直到任务完成并返回其结果。
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.result, t.err
}

// WaitContext 与 Wait 相同，但是 ctx 结束时提前返回 ctx 的错误，任务本身不会被取消。
func (t *Task[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Then 注册完成回调。任务尚未完成时回调在执行任务的 goroutine 中被调用，否则在当前 goroutine 中立即调用。
func (t *Task[T]) Then(cb func(T, error)) {
	if cb == nil {
		return
	}
	t.mutex.Lock()
	select {
	case <-t.done:
		t.mutex.Unlock()
		cb(t.result, t.err)
	default:
		t.callbacks = append(t.callbacks, cb)
		t.mutex.Unlock()
	}
}
