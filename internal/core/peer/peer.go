package peer

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-overlay/internal/core/eventbus"
	"github.com/dep2p/go-overlay/internal/core/wire"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("peer")

// Params 单个 Peer 的构造参数
type Params struct {
	// Direction 连接方向
	Direction types.Direction

	// Target 出站连接的目标（入站为空）
	Target types.PeerURI

	// OnClosed 进入 Disconnected 时同步调用一次，早于 Done 关闭
	OnClosed func(*Peer)
}

// Peer 单条 overlay 连接
type Peer struct {
	cfg      Config
	dir      types.Direction
	target   types.PeerURI
	onClosed func(*Peer)

	bus             *eventbus.Bus
	handshakeTopic  *eventbus.Topic[HandshakeComplete]
	stateTopic      *eventbus.Topic[NodeStateUpdated]
	disconnectTopic *eventbus.Topic[Disconnected]

	limiter *rate.Limiter
	writeMu sync.Mutex

	mu           sync.Mutex
	state        types.ConnState
	ch           interfaces.Channel
	reader       *wire.Reader
	addr         types.PeerAddress
	remotePubKey string
	nodeState    types.NodeState
	advertised   types.NodeState
	connectedAt  time.Time
	lastRecv     time.Time
	reason       types.DisconnectReason
	started      bool

	stop chan struct{}
	done chan struct{}
}

// New 创建处于 Connecting 状态的 Peer
func New(cfg Config, params Params) *Peer {
	cfg.normalize()

	bus := eventbus.NewBus("peer")
	p := &Peer{
		cfg:             cfg,
		dir:             params.Direction,
		target:          params.Target,
		onClosed:        params.OnClosed,
		bus:             bus,
		handshakeTopic:  eventbus.NewTopic[HandshakeComplete](bus, "handshake_complete"),
		stateTopic:      eventbus.NewTopic[NodeStateUpdated](bus, "node_state_update"),
		disconnectTopic: eventbus.NewTopic[Disconnected](bus, "disconnected"),
		state:           types.StateConnecting,
		nodeState:       types.NewNodeState(),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	if params.Direction == types.DirOutbound {
		p.addr = params.Target.Address
	}
	if cfg.MessageRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.MessageRate), cfg.MessageBurst)
	}
	return p
}

// PubKey 对端公钥，握手完成前为空
func (p *Peer) PubKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remotePubKey
}

// State 当前状态
func (p *Peer) State() types.ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reason 关闭原因，未关闭时为 ReasonNone
func (p *Peer) Reason() types.DisconnectReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

// Direction 连接方向
func (p *Peer) Direction() types.Direction {
	return p.dir
}

// Target 出站目标
func (p *Peer) Target() types.PeerURI {
	return p.target
}

// Address 对端地址
func (p *Peer) Address() types.PeerAddress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// NodeState 对端能力状态的快照
func (p *Peer) NodeState() types.NodeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodeState.Clone()
}

// Advertised 握手时发给对端的本节点状态
func (p *Peer) Advertised() types.NodeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advertised.Clone()
}

// Summary 返回摘要
func (p *Peer) Summary() types.PeerSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return types.PeerSummary{
		NodePubKey:  p.remotePubKey,
		Address:     p.addr,
		Inbound:     p.dir == types.DirInbound,
		NodeState:   p.nodeState.Clone(),
		ConnectedAt: p.connectedAt,
	}
}

// Done 进入 Disconnected 后关闭
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Send 发送一条消息，仅在 Connected 状态可用
func (p *Peer) Send(pkt wire.Packet) error {
	p.mu.Lock()
	if p.state != types.StateConnected {
		p.mu.Unlock()
		return types.ErrNotConnected
	}
	ch := p.ch
	p.mu.Unlock()

	return p.write(ch, pkt)
}

func (p *Peer) write(ch interfaces.Channel, pkt wire.Packet) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return wire.WriteFrame(ch, pkt, p.cfg.MaxMessageSize)
}

// Close 以 reason 关闭连接并通知对端
//
// 可重复调用，只有第一次的原因生效。返回时 Peer 已处于 Disconnected。
func (p *Peer) Close(reason types.DisconnectReason) {
	p.close(reason, true, false)
	<-p.done
}

// close 执行 Disconnecting -> Disconnected
//
// notify 为 true 时尽力向对端发送 Disconnecting；remote 表示原因来自对端。
func (p *Peer) close(reason types.DisconnectReason, notify, remote bool) {
	p.mu.Lock()
	if p.state >= types.StateDisconnecting {
		p.mu.Unlock()
		return
	}
	prev := p.state
	p.state = types.StateDisconnecting
	p.reason = reason
	ch := p.ch
	pubKey := p.remotePubKey
	p.mu.Unlock()

	log.Debug("断开节点",
		"peer", shortKey(pubKey),
		"addr", p.Address(),
		"reason", reason,
		"from", prev,
		"remote", remote)

	if ch != nil {
		if notify && prev >= types.StateHandshaking {
			_ = ch.SetDeadline(time.Now().Add(closeWriteTimeout))
			if err := p.write(ch, &wire.Disconnecting{Reason: reason}); err != nil {
				log.Debug("发送断开通知失败", "peer", shortKey(pubKey), "error", err)
			}
		}
		_ = ch.Close()
	}
	close(p.stop)

	p.mu.Lock()
	p.state = types.StateDisconnected
	p.mu.Unlock()

	p.disconnectTopic.Emit(Disconnected{PubKey: pubKey, Reason: reason, Remote: remote})
	p.bus.Close()

	if p.onClosed != nil {
		p.onClosed(p)
	}
	close(p.done)
}

// closedError 返回描述关闭原因的 DisconnectedError
func (p *Peer) closedError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	uri := p.target
	if p.dir == types.DirInbound {
		uri = types.PeerURI{NodePubKey: p.remotePubKey, Address: p.addr}
	}
	return &types.DisconnectedError{URI: uri, Reason: p.reason}
}

func (p *Peer) touch() {
	now := p.cfg.Clock.Now()
	p.mu.Lock()
	p.lastRecv = now
	p.mu.Unlock()
}

func (p *Peer) idle() time.Duration {
	p.mu.Lock()
	last := p.lastRecv
	p.mu.Unlock()
	return p.cfg.Clock.Since(last)
}

// shortKey 截断公钥用于日志
func shortKey(pubKey string) string {
	if len(pubKey) > 12 {
		return pubKey[:12]
	}
	return pubKey
}
