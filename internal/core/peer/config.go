package peer

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/internal/core/wire"
	"github.com/dep2p/go-overlay/pkg/types"
)

// closeWriteTimeout 关闭时发送 Disconnecting 的最长等待时间
const closeWriteTimeout = time.Second

// AdmitFunc 入站准入检查，返回 ReasonNone 表示接受
type AdmitFunc func(remotePubKey string) types.DisconnectReason

// Config Peer 配置，由连接池为所有 Peer 共享
type Config struct {
	// Identity 本节点身份
	Identity *identity.Identity

	// LocalState 返回本节点当前能力状态，握手时放入 Hello
	LocalState func() types.NodeState

	// Admit 入站准入检查（可为 nil）
	Admit AdmitFunc

	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	StallTimeout     time.Duration
	MaxMessageSize   int
	MessageRate      float64
	MessageBurst     int

	// Clock 心跳与停滞检测使用的时钟
	Clock clock.Clock
}

// NewConfig 从统一配置构建
func NewConfig(id *identity.Identity, pc config.PeerConfig) Config {
	return Config{
		Identity:         id,
		HandshakeTimeout: pc.HandshakeTimeout.Duration(),
		PingInterval:     pc.PingInterval.Duration(),
		StallTimeout:     pc.StallTimeout.Duration(),
		MaxMessageSize:   pc.MaxMessageSize,
		MessageRate:      pc.MessageRate,
		MessageBurst:     pc.MessageBurst,
	}
}

func (c *Config) normalize() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if c.LocalState == nil {
		c.LocalState = types.NewNodeState
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}
