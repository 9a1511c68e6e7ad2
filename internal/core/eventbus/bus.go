package eventbus

import (
	"context"
	"sync"

	"github.com/dep2p/go-overlay/internal/util/logger"
)

var log = logger.Logger("eventbus")

// Bus 串行事件调度器
type Bus struct {
	name string

	mu     sync.Mutex
	queue  []func()
	closed bool

	signal chan struct{}
	done   chan struct{}
}

// NewBus 创建并启动调度器
func NewBus(name string) *Bus {
	b := &Bus{
		name:   name,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Post 投递一个回调，返回 false 表示 Bus 已关闭
func (b *Bus) Post(fn func()) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.queue = append(b.queue, fn)
	b.mu.Unlock()

	b.wake()
	return true
}

// Flush 等待此前投递的回调全部执行完
//
// 不能在本 Bus 的回调中调用。
func (b *Bus) Flush(ctx context.Context) error {
	reached := make(chan struct{})
	if !b.Post(func() { close(reached) }) {
		select {
		case <-b.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 停止接收新回调，已排队的回调执行完后分发 goroutine 退出
//
// 不阻塞，可在回调中调用；需要等待时使用 Done。
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.wake()
}

// Done 在分发 goroutine 退出后关闭
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

func (b *Bus) wake() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			closed := b.closed
			b.mu.Unlock()
			if closed {
				return
			}
			<-b.signal
			continue
		}
		fn := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		b.mu.Unlock()

		b.invoke(fn)
	}
}

func (b *Bus) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("事件回调 panic", "bus", b.name, "panic", r)
		}
	}()
	fn()
}
