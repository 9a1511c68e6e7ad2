package config

import (
	"errors"
	"time"
)

// PeerConfig 单连接配置
type PeerConfig struct {
	// HandshakeTimeout 握手超时，超时以 ResponseStalling 关闭
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// PingInterval 心跳间隔，0 表示禁用心跳
	PingInterval Duration `json:"ping_interval"`

	// StallTimeout 无入站流量超过该时长时以 ResponseStalling 关闭，0 表示不检测
	StallTimeout Duration `json:"stall_timeout"`

	// MaxMessageSize 单条消息最大字节数
	MaxMessageSize int `json:"max_message_size"`

	// MessageRate 每秒允许的入站消息数，0 表示不限速
	MessageRate float64 `json:"message_rate"`

	// MessageBurst 入站消息突发上限
	MessageBurst int `json:"message_burst"`
}

// DefaultPeerConfig 返回默认单连接配置
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		HandshakeTimeout: Duration(10 * time.Second),
		PingInterval:     Duration(30 * time.Second),
		StallTimeout:     Duration(2 * time.Minute),
		MaxMessageSize:   1 << 20,
		MessageRate:      200,
		MessageBurst:     400,
	}
}

// Validate 验证单连接配置
func (c PeerConfig) Validate() error {
	if c.HandshakeTimeout <= 0 {
		return errors.New("peer: handshake_timeout must be positive")
	}
	if c.PingInterval < 0 || c.StallTimeout < 0 {
		return errors.New("peer: ping_interval and stall_timeout must not be negative")
	}
	if c.StallTimeout > 0 && c.PingInterval > 0 && c.StallTimeout <= c.PingInterval {
		return errors.New("peer: stall_timeout must exceed ping_interval")
	}
	if c.MaxMessageSize <= 0 {
		return errors.New("peer: max_message_size must be positive")
	}
	if c.MessageRate < 0 || c.MessageBurst < 0 {
		return errors.New("peer: message_rate and message_burst must not be negative")
	}
	if c.MessageRate > 0 && c.MessageBurst == 0 {
		return errors.New("peer: message_burst must be positive when message_rate is set")
	}
	return nil
}
