package retry

import (
	"context"
	"sync"
)

// Future 一次 Schedule 的结果，只结束一次
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// settle 设置结果，已结束时返回 false
func (f *Future[T]) settle(val T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done 结束后关闭
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result 返回结果，未结束时阻塞
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Wait 等待结果或 ctx 结束
//
// ctx 结束不影响 Future 本身，条目继续运行。
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
