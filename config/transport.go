package config

import (
	"errors"
	"fmt"
	"time"
)

// 传输协议
const (
	ProtocolTCP  = "tcp"
	ProtocolQUIC = "quic"
)

// TransportConfig 传输层配置
type TransportConfig struct {
	// Protocol 传输协议：tcp 或 quic
	Protocol string `json:"protocol"`

	// ListenHost 监听地址
	ListenHost string `json:"listen_host"`

	// ListenPort 监听端口，0 表示随机端口
	ListenPort int `json:"listen_port"`

	// Listen 是否监听入站连接
	Listen bool `json:"listen"`

	// DialTimeout 单次拨号超时
	DialTimeout Duration `json:"dial_timeout"`
}

// DefaultTransportConfig 返回默认传输层配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Protocol:    ProtocolTCP,
		ListenHost:  "0.0.0.0",
		ListenPort:  8885,
		Listen:      true,
		DialTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证传输层配置
func (c TransportConfig) Validate() error {
	switch c.Protocol {
	case ProtocolTCP, ProtocolQUIC:
	default:
		return fmt.Errorf("transport: unsupported protocol %q", c.Protocol)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("transport: invalid listen_port %d", c.ListenPort)
	}
	if c.DialTimeout <= 0 {
		return errors.New("transport: dial_timeout must be positive")
	}
	return nil
}
