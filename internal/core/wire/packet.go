package wire

import (
	"fmt"

	"github.com/dep2p/go-overlay/pkg/types"
)

// ProtocolVersion 当前握手协议版本
const ProtocolVersion uint32 = 1

// DefaultMaxMessageSize 默认最大消息大小 (1MB)
const DefaultMaxMessageSize = 1 << 20

// Type 消息类型
type Type uint8

const (
	// TypeHello 握手身份声明
	TypeHello Type = iota + 1
	// TypeDisconnecting 断开通知
	TypeDisconnecting
	// TypeNodeStateUpdate 能力状态更新
	TypeNodeStateUpdate
	// TypePing 心跳请求
	TypePing
	// TypePong 心跳响应
	TypePong
)

// String 返回类型名称
func (t Type) String() string {
	switch t {
	case TypeHello:
		return "Hello"
	case TypeDisconnecting:
		return "Disconnecting"
	case TypeNodeStateUpdate:
		return "NodeStateUpdate"
	case TypePing:
		return "Ping"
	case TypePong:
		return "Pong"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Packet 连接上传输的消息
type Packet interface {
	Type() Type
}

// Hello 握手身份声明
//
// 发起方填写 ExpectedPubKey（拨号目标），响应方填写 EchoNonce（回显发起方的 Nonce）。
// Signature 覆盖除 Signature 以外的所有字段，由 PubKey 对应的私钥签署。
type Hello struct {
	Version        uint32
	PubKey         string
	ExpectedPubKey string
	Nonce          []byte
	EchoNonce      []byte
	State          types.NodeState
	Signature      []byte
}

// Type 实现 Packet
func (*Hello) Type() Type { return TypeHello }

// SigningBytes 返回签名覆盖的字节
func (h *Hello) SigningBytes() []byte {
	unsigned := *h
	unsigned.Signature = nil
	return appendHello(nil, &unsigned)
}

// Disconnecting 断开通知
type Disconnecting struct {
	Reason types.DisconnectReason
	Detail string
}

// Type 实现 Packet
func (*Disconnecting) Type() Type { return TypeDisconnecting }

// NodeStateUpdate 能力状态更新，只携带变化的币种
type NodeStateUpdate struct {
	State types.NodeState
}

// Type 实现 Packet
func (*NodeStateUpdate) Type() Type { return TypeNodeStateUpdate }

// Ping 心跳请求
type Ping struct {
	Nonce uint64
}

// Type 实现 Packet
func (*Ping) Type() Type { return TypePing }

// Pong 心跳响应，回显 Ping 的 Nonce
type Pong struct {
	Nonce uint64
}

// Type 实现 Packet
func (*Pong) Type() Type { return TypePong }
