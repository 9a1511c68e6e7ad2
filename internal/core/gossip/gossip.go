package gossip

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-overlay/internal/core/peer"
	"github.com/dep2p/go-overlay/internal/core/wire"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("gossip")

// ErrEmptyCurrency 币种为空
var ErrEmptyCurrency = errors.New("gossip: empty currency")

// PeerSource 提供当前已连接的节点
type PeerSource interface {
	ConnectedPeers() []*peer.Peer
}

// Broadcast 一次广播的结果
type Broadcast struct {
	Currency   string
	Identifier string
	Sent       int
	Failed     int
}

// Gossip 本节点能力状态
type Gossip struct {
	peers PeerSource

	// sendMu 串行化状态修改与发送，补发不会覆盖更新的值
	sendMu sync.Mutex

	mu    sync.RWMutex
	state types.NodeState

	hookMu sync.RWMutex
	onSent []func(Broadcast)
}

// New 创建 Gossip
func New(peers PeerSource) *Gossip {
	return &Gossip{peers: peers, state: types.NewNodeState()}
}

// LocalState 返回本节点状态的快照
func (g *Gossip) LocalState() types.NodeState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Clone()
}

// OnBroadcast 注册广播完成回调
func (g *Gossip) OnBroadcast(fn func(Broadcast)) {
	g.hookMu.Lock()
	g.onSent = append(g.onSent, fn)
	g.hookMu.Unlock()
}

// UpdateLocalState 更新 currency 的标识并广播给所有已连接节点
//
// 单个节点发送失败只记录日志并合并到返回的错误中，不影响其余节点。
func (g *Gossip) UpdateLocalState(currency, identifier string) error {
	if currency == "" {
		return ErrEmptyCurrency
	}

	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	g.mu.Lock()
	g.state.Identifiers[currency] = identifier
	g.mu.Unlock()

	update := types.NewNodeState()
	update.Identifiers[currency] = identifier
	pkt := &wire.NodeStateUpdate{State: update}

	var (
		errs error
		b    = Broadcast{Currency: currency, Identifier: identifier}
	)
	for _, pr := range g.peers.ConnectedPeers() {
		if err := pr.Send(pkt); err != nil {
			log.Debug("状态更新发送失败", "peer", pr.PubKey(), "error", err)
			errs = multierr.Append(errs, fmt.Errorf("send to %s: %w", pr.PubKey(), err))
			b.Failed++
			continue
		}
		b.Sent++
	}
	log.Debug("广播状态更新", "currency", currency, "sent", b.Sent, "failed", b.Failed)

	g.hookMu.RLock()
	hooks := g.onSent
	g.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(b)
	}
	return errs
}

// SyncPeer 补发握手之后本节点状态的变化
//
// 握手取状态快照与登记之间的更新不会被广播到该节点，登记后调用。
func (g *Gossip) SyncPeer(pr *peer.Peer) error {
	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	current := g.LocalState()
	sent := pr.Advertised()
	changed := sent.Merge(current)
	if len(changed) == 0 {
		return nil
	}

	update := types.NewNodeState()
	for _, currency := range changed {
		update.Identifiers[currency] = current.Identifiers[currency]
	}
	if err := pr.Send(&wire.NodeStateUpdate{State: update}); err != nil {
		log.Debug("补发状态失败", "peer", pr.PubKey(), "error", err)
		return fmt.Errorf("sync %s: %w", pr.PubKey(), err)
	}
	log.Debug("补发状态", "peer", pr.PubKey(), "currencies", changed)
	return nil
}
