package config

import "errors"

// ValidateAll 验证整个配置的有效性
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并修复可自动修复的问题
//
// 可修复的问题：
//   - 非正的超时时间 -> 使用默认值
//   - 最大退避小于初始退避 -> 与初始退避对齐
//   - 限速已设置但突发为 0 -> 突发取速率向上取整
//   - 心跳间隔不小于停滞超时 -> 停滞超时取两倍心跳间隔
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	def := NewConfig()

	if c.Transport.DialTimeout <= 0 {
		c.Transport.DialTimeout = def.Transport.DialTimeout
	}
	if c.Pool.ShutdownTimeout <= 0 {
		c.Pool.ShutdownTimeout = def.Pool.ShutdownTimeout
	}
	if c.Peer.HandshakeTimeout <= 0 {
		c.Peer.HandshakeTimeout = def.Peer.HandshakeTimeout
	}
	if c.Peer.MaxMessageSize <= 0 {
		c.Peer.MaxMessageSize = def.Peer.MaxMessageSize
	}
	if c.Peer.MessageRate > 0 && c.Peer.MessageBurst == 0 {
		burst := int(c.Peer.MessageRate)
		if float64(burst) < c.Peer.MessageRate {
			burst++
		}
		c.Peer.MessageBurst = burst
	}
	if c.Peer.PingInterval > 0 && c.Peer.StallTimeout > 0 && c.Peer.StallTimeout <= c.Peer.PingInterval {
		c.Peer.StallTimeout = 2 * c.Peer.PingInterval
	}

	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = def.Retry.InitialDelay
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		c.Retry.MaxDelay = c.Retry.InitialDelay
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = def.Retry.Multiplier
	}
	if c.Storage.CacheSize <= 0 {
		c.Storage.CacheSize = def.Storage.CacheSize
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
