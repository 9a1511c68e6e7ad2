package config

import (
	"errors"
	"time"
)

// RetryConfig 重连退避配置
//
// 第 n 次失败后的等待时间为 InitialDelay * Multiplier^(n-1)，上限 MaxDelay，
// 再叠加 ±Jitter 比例的随机抖动。
type RetryConfig struct {
	// InitialDelay 首次重试前的等待时间
	InitialDelay Duration `json:"initial_delay"`

	// MaxDelay 最大等待时间
	MaxDelay Duration `json:"max_delay"`

	// Multiplier 退避乘数
	Multiplier float64 `json:"multiplier"`

	// Jitter 抖动比例，取值 [0, 1)
	Jitter float64 `json:"jitter"`

	// MaxAttempts 最大尝试次数（含首次），0 表示不限制
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// DefaultRetryConfig 返回默认重连配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: Duration(5 * time.Second),
		MaxDelay:     Duration(5 * time.Minute),
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Validate 验证重连配置
func (c RetryConfig) Validate() error {
	if c.InitialDelay <= 0 {
		return errors.New("retry: initial_delay must be positive")
	}
	if c.MaxDelay < c.InitialDelay {
		return errors.New("retry: max_delay must not be less than initial_delay")
	}
	if c.Multiplier < 1 {
		return errors.New("retry: multiplier must be >= 1")
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		return errors.New("retry: jitter must be in [0, 1)")
	}
	if c.MaxAttempts < 0 {
		return errors.New("retry: max_attempts must not be negative")
	}
	return nil
}
