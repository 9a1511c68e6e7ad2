package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/pkg/types"
)

const (
	// DefaultInitialDelay 默认首次退避
	DefaultInitialDelay = 5 * time.Second

	// DefaultMaxDelay 默认最大退避
	DefaultMaxDelay = 5 * time.Minute

	// DefaultMultiplier 默认退避乘数
	DefaultMultiplier = 2.0
)

// Policy 退避策略：带抖动的封顶指数退避
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Jitter 抖动比例，0.1 表示在 ±10% 内随机
	Jitter float64

	// MaxAttempts 最大尝试次数（0 表示无限）
	MaxAttempts int

	// ShouldRetry 判断错误是否值得重试，nil 表示除撤销与取消外都重试
	ShouldRetry func(error) bool
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultRetryConfig())
}

// PolicyFromConfig 从统一配置构建
func PolicyFromConfig(c config.RetryConfig) Policy {
	return Policy{
		InitialDelay: c.InitialDelay.OrDefault(DefaultInitialDelay),
		MaxDelay:     c.MaxDelay.OrDefault(DefaultMaxDelay),
		Multiplier:   c.Multiplier,
		Jitter:       c.Jitter,
		MaxAttempts:  c.MaxAttempts,
	}
}

// Delay 第 attempt 次失败后的等待时间（attempt 从 1 开始）
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = DefaultMultiplier
	}

	backoff := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.Jitter > 0 {
		backoff += backoff * p.Jitter * (2*rand.Float64() - 1)
	}
	if p.MaxDelay > 0 && backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}

// Retryable 错误是否允许重试
func (p Policy) Retryable(err error) bool {
	if errors.Is(err, types.ErrRetryRevoked) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrControllerClosed) {
		return false
	}
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return true
}

// Exhausted 已尝试 attempts 次后是否用尽
func (p Policy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
