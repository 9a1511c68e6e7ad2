package retry

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("retry")

// AttemptFunc 执行一次尝试，attempt 从 1 开始
//
// ctx 在条目被撤销或控制器关闭时取消。
type AttemptFunc[T any] func(ctx context.Context, attempt int) (T, error)

// Option 控制器选项
type Option func(*options)

type options struct {
	clock    clock.Clock
	onRevoke func(key string)
}

// WithClock 注入时钟
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithOnRevoke 条目被撤销时回调（在调用 Revoke 或 Schedule 的 goroutine 上执行）
func WithOnRevoke(fn func(key string)) Option {
	return func(o *options) { o.onRevoke = fn }
}

// Controller 重试控制器
type Controller[T any] struct {
	policy Policy
	opts   options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry[T]
	closed  bool
}

type entry[T any] struct {
	key    string
	future *Future[T]
	cancel context.CancelFunc

	// claimed 由 c.mu 保护
	claimed bool
}

type claimKey struct{}

// Claim 锁定本次尝试的结果
//
// 返回 true 后撤销不再结束条目的 Future，尝试的返回值即为最终结果；
// 条目已被撤销时返回 false。ctx 不来自 Controller 时总是返回 true。
func Claim(ctx context.Context) bool {
	claim, ok := ctx.Value(claimKey{}).(func() bool)
	if !ok {
		return true
	}
	return claim()
}

// NewController 创建控制器
func NewController[T any](policy Policy, opts ...Option) *Controller[T] {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		policy:  policy,
		opts:    o,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry[T]),
	}
}

// Schedule 为 key 启动新条目并立即执行第一次尝试
//
// key 已有活跃条目时先撤销它。retrying 为 false 时只尝试一次。
func (c *Controller[T]) Schedule(key string, fn AttemptFunc[T], retrying bool) *Future[T] {
	f := newFuture[T]()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		var zero T
		f.settle(zero, ErrControllerClosed)
		return f
	}
	revoked := false
	if prev, ok := c.entries[key]; ok {
		revoked = c.revokeLocked(prev)
	}
	ctx, cancel := context.WithCancel(c.ctx)
	e := &entry[T]{key: key, future: f, cancel: cancel}
	ctx = context.WithValue(ctx, claimKey{}, func() bool { return c.claim(e) })
	c.entries[key] = e
	c.wg.Add(1)
	c.mu.Unlock()

	if revoked {
		log.Debug("新请求撤销旧重试", "key", key)
		c.notifyRevoke(key)
	}

	go c.run(ctx, e, fn, retrying)
	return f
}

// Revoke 撤销 key 的活跃条目，返回是否存在
//
// 条目的 Future 以 types.ErrRetryRevoked 结束；已 Claim 的条目只移除不撤销，
// 此时返回 false。可重复调用。
func (c *Controller[T]) Revoke(key string) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		ok = c.revokeLocked(e)
	}
	c.mu.Unlock()

	if ok {
		log.Debug("撤销重试", "key", key)
		c.notifyRevoke(key)
	}
	return ok
}

// Pending 活跃条目的键（已排序）
func (c *Controller[T]) Pending() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Close 撤销所有条目并等待尝试 goroutine 退出
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.closed = true
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if c.revokeLocked(e) {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	for _, k := range keys {
		c.notifyRevoke(k)
	}
	c.cancel()
	c.wg.Wait()
}

// revokeLocked 移除条目，未 Claim 时以 ErrRetryRevoked 结束 Future 并取消尝试
func (c *Controller[T]) revokeLocked(e *entry[T]) bool {
	delete(c.entries, e.key)
	if e.claimed {
		return false
	}
	var zero T
	e.future.settle(zero, types.ErrRetryRevoked)
	e.cancel()
	return true
}

func (c *Controller[T]) claim(e *entry[T]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[e.key]; !ok || cur != e {
		return false
	}
	e.claimed = true
	return true
}

func (c *Controller[T]) notifyRevoke(key string) {
	if c.opts.onRevoke != nil {
		c.opts.onRevoke(key)
	}
}

func (c *Controller[T]) run(ctx context.Context, e *entry[T], fn AttemptFunc[T], retrying bool) {
	defer c.wg.Done()
	defer e.cancel()

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx, attempt)
		if err == nil {
			c.finish(e, val, nil)
			return
		}
		if ctx.Err() != nil {
			c.finish(e, zero, types.ErrRetryRevoked)
			return
		}
		if !retrying || !c.policy.Retryable(err) || c.policy.Exhausted(attempt) {
			c.finish(e, zero, err)
			return
		}

		delay := c.policy.Delay(attempt)
		log.Debug("尝试失败，等待重试",
			"key", e.key,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		timer := c.opts.clock.Timer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.finish(e, zero, types.ErrRetryRevoked)
			return
		case <-timer.C:
		}
	}
}

// finish 移除条目并结束 Future，已撤销的条目结果被丢弃
func (c *Controller[T]) finish(e *entry[T], val T, err error) {
	c.mu.Lock()
	if cur, ok := c.entries[e.key]; ok && cur == e {
		delete(c.entries, e.key)
	}
	c.mu.Unlock()

	if !e.future.settle(val, err) {
		log.Debug("丢弃撤销后的尝试结果", "key", e.key, "error", err)
	}
}
