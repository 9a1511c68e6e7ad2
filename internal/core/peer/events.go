package peer

import "github.com/dep2p/go-overlay/pkg/types"

// HandshakeComplete 握手完成，Peer 进入 Connected
type HandshakeComplete struct {
	PubKey  string
	Address types.PeerAddress
	Inbound bool
}

// NodeStateUpdated 收到对端的能力状态更新
//
// State 为合并后的完整状态快照，Changed 为本次值发生变化的币种。
type NodeStateUpdated struct {
	PubKey  string
	State   types.NodeState
	Changed []string
}

// Disconnected Peer 进入 Disconnected
type Disconnected struct {
	PubKey string
	Reason types.DisconnectReason

	// Remote 是否由对端发起（收到 Disconnecting 消息）
	Remote bool
}

// OnHandshakeComplete 订阅握手完成事件
func (p *Peer) OnHandshakeComplete(fn func(HandshakeComplete)) (cancel func()) {
	return p.handshakeTopic.Subscribe(fn)
}

// OnNodeStateUpdate 订阅状态更新事件
func (p *Peer) OnNodeStateUpdate(fn func(NodeStateUpdated)) (cancel func()) {
	return p.stateTopic.Subscribe(fn)
}

// OnDisconnected 订阅断开事件
func (p *Peer) OnDisconnected(fn func(Disconnected)) (cancel func()) {
	return p.disconnectTopic.Subscribe(fn)
}
