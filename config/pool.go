package config

import (
	"errors"
	"time"
)

// DefaultShutdownTimeout 默认关闭超时
const DefaultShutdownTimeout = 10 * time.Second

// PoolConfig 连接池配置
type PoolConfig struct {
	// AcceptInbound 是否接受入站连接
	// 关闭时入站握手以 NotAcceptingConnections 拒绝
	AcceptInbound bool `json:"accept_inbound"`

	// MaxInbound 最大入站连接数，0 表示不限制
	MaxInbound int `json:"max_inbound,omitempty"`

	// ReconnectKnownPeers 启动时是否重连存储中的已知节点
	ReconnectKnownPeers bool `json:"reconnect_known_peers"`

	// ShutdownTimeout 关闭时等待所有 Peer 断开的最长时间
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// DefaultPoolConfig 返回默认连接池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		AcceptInbound:       true,
		ReconnectKnownPeers: false,
		ShutdownTimeout:     Duration(DefaultShutdownTimeout),
	}
}

// Validate 验证连接池配置
func (c PoolConfig) Validate() error {
	if c.MaxInbound < 0 {
		return errors.New("pool: max_inbound must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("pool: shutdown_timeout must be positive")
	}
	return nil
}
