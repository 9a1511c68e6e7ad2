package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/pkg/types"
)

// TestPolicy_Delay 测试封顶指数退避
func TestPolicy_Delay(t *testing.T) {
	p := Policy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
	assert.Equal(t, 10*time.Second, p.Delay(5))
	assert.Equal(t, 10*time.Second, p.Delay(50))

	// 非法乘数回退到默认值
	p.Multiplier = 0
	assert.Equal(t, 2*time.Second, p.Delay(2))
}

// TestPolicy_Jitter 测试抖动范围
func TestPolicy_Jitter(t *testing.T) {
	p := Policy{InitialDelay: 10 * time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: 0.1}

	for i := 0; i < 200; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 9*time.Second)
		assert.LessOrEqual(t, d, 11*time.Second)

		// 抖动后仍不超过上限
		assert.LessOrEqual(t, p.Delay(10), time.Minute)
	}
}

// TestPolicy_Retryable 测试可重试判断
func TestPolicy_Retryable(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.Retryable(errors.New("boom")))
	assert.False(t, p.Retryable(types.ErrRetryRevoked))
	assert.False(t, p.Retryable(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.False(t, p.Retryable(ErrControllerClosed))

	p.ShouldRetry = func(err error) bool { return errors.Is(err, types.ErrConnectFailed) }
	assert.True(t, p.Retryable(&types.ConnectFailedError{Err: errors.New("refused")}))
	assert.False(t, p.Retryable(&types.DisconnectedError{Reason: types.AuthFailureInvalidTarget}))
}

// TestPolicy_FromConfig 测试从配置构建
func TestPolicy_FromConfig(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, DefaultInitialDelay, p.InitialDelay)
	assert.Equal(t, DefaultMaxDelay, p.MaxDelay)
	assert.Equal(t, DefaultMultiplier, p.Multiplier)
	assert.Equal(t, 0, p.MaxAttempts)
	assert.False(t, p.Exhausted(1000))

	c := config.DefaultRetryConfig()
	c.MaxAttempts = 3
	c.InitialDelay = 0
	p = PolicyFromConfig(c)
	assert.Equal(t, DefaultInitialDelay, p.InitialDelay)
	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3))
}
