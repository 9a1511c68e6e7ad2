package pool

import (
	"github.com/dep2p/go-overlay/pkg/types"
)

// PeerConnected 节点完成握手并登记
type PeerConnected struct {
	Summary types.PeerSummary
}

// PeerDisconnected 已登记节点断开并移除
type PeerDisconnected struct {
	PubKey  string
	Address types.PeerAddress
	Inbound bool
	Reason  types.DisconnectReason
}

// PeerStateUpdated 已连接节点发布了新的能力状态
type PeerStateUpdated struct {
	PubKey  string
	State   types.NodeState
	Changed []string
}

// ConnectAttempt 一次出站尝试的结果，Err 为 nil 表示成功
type ConnectAttempt struct {
	Target  types.PeerURI
	Attempt int
	Err     error
}

// RetryRevoked 重试条目被撤销
type RetryRevoked struct {
	Key string
}

// OnPeerConnected 订阅节点连接事件
func (p *Pool) OnPeerConnected(fn func(PeerConnected)) (cancel func()) {
	return p.connectedTopic.Subscribe(fn)
}

// OnPeerDisconnected 订阅节点断开事件
func (p *Pool) OnPeerDisconnected(fn func(PeerDisconnected)) (cancel func()) {
	return p.disconnectedTopic.Subscribe(fn)
}

// OnPeerStateUpdated 订阅节点状态更新事件
func (p *Pool) OnPeerStateUpdated(fn func(PeerStateUpdated)) (cancel func()) {
	return p.stateTopic.Subscribe(fn)
}

// OnConnectAttempt 订阅出站尝试结果
func (p *Pool) OnConnectAttempt(fn func(ConnectAttempt)) (cancel func()) {
	return p.attemptTopic.Subscribe(fn)
}

// OnRetryRevoked 订阅重试撤销事件
func (p *Pool) OnRetryRevoked(fn func(RetryRevoked)) (cancel func()) {
	return p.revokeTopic.Subscribe(fn)
}
