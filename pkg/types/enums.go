package types

import "fmt"

// ============================================================================
//                              ConnState - 连接状态
// ============================================================================

// ConnState Peer 连接状态
//
// 状态只能单调前进，Disconnected 为终态。
type ConnState int

const (
	// StateConnecting 正在建立传输
	StateConnecting ConnState = iota
	// StateHandshaking 传输已建立，正在交换身份
	StateHandshaking
	// StateConnected 握手完成
	StateConnected
	// StateDisconnecting 正在断开
	StateDisconnecting
	// StateDisconnected 已断开（终态）
	StateDisconnected
)

// String 返回状态名称
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateHandshaking:
		return "Handshaking"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	case StateDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// ============================================================================
//                              Direction - 连接方向
// ============================================================================

// Direction 连接方向
type Direction int

const (
	// DirOutbound 本节点发起
	DirOutbound Direction = iota
	// DirInbound 对端发起
	DirInbound
)

// String 返回方向名称
func (d Direction) String() string {
	if d == DirInbound {
		return "inbound"
	}
	return "outbound"
}

// ============================================================================
//                              DisconnectReason - 断开原因
// ============================================================================

// DisconnectReason 断开原因，随每次 Peer 关闭一起上报，并通过 Disconnecting 消息告知对端
//
// 数值在线上传输，只能追加。
type DisconnectReason uint16

const (
	// ReasonNone 未设置
	ReasonNone DisconnectReason = iota
	// ResponseStalling 对端长时间无响应
	ResponseStalling
	// IncompatibleProtocolVersion 协议版本不兼容
	IncompatibleProtocolVersion
	// UnexpectedIdentity 握手后身份发生变化
	UnexpectedIdentity
	// ConnectedToSelf 连接到了自己
	ConnectedToSelf
	// NotAcceptingConnections 不接受连接
	NotAcceptingConnections
	// Banned 节点被封禁
	Banned
	// AlreadyConnected 已存在到该身份的连接
	AlreadyConnected
	// Shutdown 本节点关闭
	Shutdown
	// MalformedVersion 版本字段格式错误
	MalformedVersion
	// AuthFailureInvalidTarget 对端身份与请求的目标不符或格式错误
	AuthFailureInvalidTarget
	// AuthFailureInvalidSignature 身份声明签名无效
	AuthFailureInvalidSignature
	// WireProtocolErr 协议违规
	WireProtocolErr
	// TransportError 传输层错误
	TransportError
	// MessageFlood 消息速率超限
	MessageFlood
)

var reasonNames = map[DisconnectReason]string{
	ReasonNone:                  "None",
	ResponseStalling:            "ResponseStalling",
	IncompatibleProtocolVersion: "IncompatibleProtocolVersion",
	UnexpectedIdentity:          "UnexpectedIdentity",
	ConnectedToSelf:             "ConnectedToSelf",
	NotAcceptingConnections:     "NotAcceptingConnections",
	Banned:                      "Banned",
	AlreadyConnected:            "AlreadyConnected",
	Shutdown:                    "Shutdown",
	MalformedVersion:            "MalformedVersion",
	AuthFailureInvalidTarget:    "AuthFailureInvalidTarget",
	AuthFailureInvalidSignature: "AuthFailureInvalidSignature",
	WireProtocolErr:             "WireProtocolErr",
	TransportError:              "TransportError",
	MessageFlood:                "MessageFlood",
}

// String 返回原因名称，用于错误消息
func (r DisconnectReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("DisconnectReason(%d)", uint16(r))
}

// ParseDisconnectReason 按名称解析断开原因
func ParseDisconnectReason(name string) (DisconnectReason, error) {
	for r, n := range reasonNames {
		if n == name {
			return r, nil
		}
	}
	return ReasonNone, fmt.Errorf("unknown disconnect reason %q", name)
}
