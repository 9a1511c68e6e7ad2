package eventbus

import "sync"

// Topic 类型化事件主题
type Topic[T any] struct {
	bus  *Bus
	name string

	mu   sync.RWMutex
	subs []subscriber[T]
	next uint64
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewTopic 创建绑定到 bus 的主题
func NewTopic[T any](bus *Bus, name string) *Topic[T] {
	return &Topic[T]{bus: bus, name: name}
}

// Subscribe 订阅事件，返回取消函数（可重复调用）
//
// 回调在 Bus 的分发 goroutine 上按订阅顺序执行。
func (t *Topic[T]) Subscribe(fn func(T)) (cancel func()) {
	t.mu.Lock()
	t.next++
	id := t.next
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// Emit 发布事件，返回 false 表示 Bus 已关闭
//
// 事件交给分发时仍在订阅的回调。
func (t *Topic[T]) Emit(ev T) bool {
	return t.bus.Post(func() {
		t.mu.RLock()
		subs := t.subs
		t.mu.RUnlock()
		for _, s := range subs {
			s.fn(ev)
		}
	})
}

// SubscriberCount 当前订阅数
func (t *Topic[T]) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Name 主题名称
func (t *Topic[T]) Name() string {
	return t.name
}
