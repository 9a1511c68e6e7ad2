package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/eventbus"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/internal/core/peer"
	"github.com/dep2p/go-overlay/internal/core/retry"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("pool")

// StateSource 提供本节点当前能力状态，握手时放入 Hello
type StateSource interface {
	LocalState() types.NodeState
}

// Params 连接池依赖
type Params struct {
	Config    *config.Config
	Identity  *identity.Identity
	Transport interfaces.Transport

	// Store 已知节点存储（可选），用于封禁检查与启动时重连
	Store interfaces.NodeStore

	// Bus 事件调度器（可选），为 nil 时连接池自建并在 Close 时关闭
	Bus *eventbus.Bus

	// Clock 重试与心跳时钟（可选）
	Clock clock.Clock
}

// Pool 连接池
type Pool struct {
	cfg       config.PoolConfig
	listenCfg config.TransportConfig
	id        *identity.Identity
	transport interfaces.Transport
	store     interfaces.NodeStore
	peerCfg   peer.Config
	retry     *retry.Controller[types.PeerSummary]
	stateSrc  atomic.Pointer[StateSource]
	ownsBus   bool
	bus       *eventbus.Bus

	connectedTopic    *eventbus.Topic[PeerConnected]
	disconnectedTopic *eventbus.Topic[PeerDisconnected]
	stateTopic        *eventbus.Topic[PeerStateUpdated]
	attemptTopic      *eventbus.Topic[ConnectAttempt]
	revokeTopic       *eventbus.Topic[RetryRevoked]

	// ctx 在 Close 时取消，中断入站握手
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener interfaces.Listener
	pending  map[string]*peer.Peer
	peers    map[string]*peer.Peer
	started  bool
	closed   bool
}

// New 创建连接池，需调用 Start 开始监听
func New(params Params) (*Pool, error) {
	if params.Identity == nil {
		return nil, fmt.Errorf("pool: identity is required")
	}
	if params.Transport == nil {
		return nil, fmt.Errorf("pool: transport is required")
	}
	cfg := params.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}

	bus := params.Bus
	ownsBus := bus == nil
	if ownsBus {
		bus = eventbus.NewBus("pool")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:               cfg.Pool,
		listenCfg:         cfg.Transport,
		id:                params.Identity,
		transport:         params.Transport,
		store:             params.Store,
		ownsBus:           ownsBus,
		bus:               bus,
		connectedTopic:    eventbus.NewTopic[PeerConnected](bus, "peer_connected"),
		disconnectedTopic: eventbus.NewTopic[PeerDisconnected](bus, "peer_disconnected"),
		stateTopic:        eventbus.NewTopic[PeerStateUpdated](bus, "peer_state_updated"),
		attemptTopic:      eventbus.NewTopic[ConnectAttempt](bus, "connect_attempt"),
		revokeTopic:       eventbus.NewTopic[RetryRevoked](bus, "retry_revoked"),
		ctx:               ctx,
		cancel:            cancel,
		pending:           make(map[string]*peer.Peer),
		peers:             make(map[string]*peer.Peer),
	}

	p.peerCfg = peer.NewConfig(params.Identity, cfg.Peer)
	p.peerCfg.Clock = params.Clock
	p.peerCfg.LocalState = p.localState
	p.peerCfg.Admit = p.admit

	policy := retry.PolicyFromConfig(cfg.Retry)
	policy.ShouldRetry = isRetryable
	opts := []retry.Option{
		retry.WithOnRevoke(func(key string) {
			p.revokeTopic.Emit(RetryRevoked{Key: key})
		}),
	}
	if params.Clock != nil {
		opts = append(opts, retry.WithClock(params.Clock))
	}
	p.retry = retry.NewController[types.PeerSummary](policy, opts...)

	return p, nil
}

// SetStateSource 设置本节点能力状态来源
func (p *Pool) SetStateSource(src StateSource) {
	p.stateSrc.Store(&src)
}

func (p *Pool) localState() types.NodeState {
	if src := p.stateSrc.Load(); src != nil && *src != nil {
		return (*src).LocalState()
	}
	return types.NewNodeState()
}

// LocalPubKey 本节点公钥
func (p *Pool) LocalPubKey() string {
	return p.id.PubKey()
}

// ListenAddr 实际监听地址，未监听时为零值
func (p *Pool) ListenAddr() types.PeerAddress {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return types.PeerAddress{}
	}
	return p.listener.Addr()
}

// ListPeers 返回当前 Connected 节点的快照，按公钥排序
func (p *Pool) ListPeers() []types.PeerSummary {
	peers := p.ConnectedPeers()
	out := make([]types.PeerSummary, 0, len(peers))
	for _, pr := range peers {
		out = append(out, pr.Summary())
	}
	return out
}

// ConnectedPeers 返回当前 Connected 的 Peer，按公钥排序
func (p *Pool) ConnectedPeers() []*peer.Peer {
	p.mu.Lock()
	out := make([]*peer.Peer, 0, len(p.peers))
	for _, pr := range p.peers {
		out = append(out, pr)
	}
	p.mu.Unlock()

	connected := out[:0]
	for _, pr := range out {
		if pr.State() == types.StateConnected {
			connected = append(connected, pr)
		}
	}
	sort.Slice(connected, func(i, j int) bool {
		return connected[i].PubKey() < connected[j].PubKey()
	})
	return connected
}

// Peer 按公钥查找已登记的节点
func (p *Pool) Peer(pubKey string) (*peer.Peer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.peers[pubKey]
	return pr, ok
}

// PendingRetries 活跃重试条目的键
func (p *Pool) PendingRetries() []string {
	return p.retry.Pending()
}

// ClosePeer 以 reason 关闭已登记的节点并等待其进入 Disconnected
//
// 没有该公钥的节点时返回 types.ErrNotFound。不会创建重试条目。
func (p *Pool) ClosePeer(ctx context.Context, pubKey string, reason types.DisconnectReason) error {
	pr, ok := p.Peer(pubKey)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, pubKey)
	}

	log.Debug("关闭节点", "peer", shortKey(pubKey), "reason", reason)
	go pr.Close(reason)

	select {
	case <-pr.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 关闭连接池
//
// 撤销所有重试，停止监听，以 Shutdown 关闭全部 Peer 并等待完成。
// 可重复调用。
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	listener := p.listener
	p.mu.Unlock()

	log.Info("正在关闭连接池")

	// 撤销并等待所有出站尝试退出
	p.retry.Close()
	p.cancel()

	var errs error
	if listener != nil {
		if err := listener.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close listener: %w", err))
		}
	}

	p.mu.Lock()
	all := make([]*peer.Peer, 0, len(p.pending)+len(p.peers))
	for _, pr := range p.pending {
		all = append(all, pr)
	}
	for _, pr := range p.peers {
		all = append(all, pr)
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, pr := range all {
		pr := pr
		g.Go(func() error {
			go pr.Close(types.Shutdown)
			select {
			case <-pr.Done():
				return nil
			case <-gctx.Done():
				return fmt.Errorf("close peer %s: %w", shortKey(pr.PubKey()), gctx.Err())
			}
		})
	}
	errs = multierr.Append(errs, g.Wait())

	waited := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		errs = multierr.Append(errs, fmt.Errorf("wait inbound handlers: %w", ctx.Err()))
	}

	if p.ownsBus {
		p.bus.Close()
		select {
		case <-p.bus.Done():
		case <-ctx.Done():
		}
	}

	log.Info("连接池已关闭", "closedPeers", len(all))
	return errs
}

// registerPending 创建 Peer 并以临时 id 登记
func (p *Pool) registerPending(dir types.Direction, target types.PeerURI) (*peer.Peer, error) {
	id := uuid.NewString()
	pr := peer.New(p.peerCfg, peer.Params{
		Direction: dir,
		Target:    target,
		OnClosed:  p.onPeerClosed(id),
	})
	pr.OnNodeStateUpdate(func(ev peer.NodeStateUpdated) {
		p.stateTopic.Emit(PeerStateUpdated{PubKey: ev.PubKey, State: ev.State, Changed: ev.Changed})
	})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		pr.Close(types.Shutdown)
		return nil, types.ErrPoolClosed
	}
	p.pending[id] = pr
	p.mu.Unlock()
	return pr, nil
}

// promote 把握手完成的 Peer 从 pending 移到 peers
func (p *Pool) promote(pr *peer.Peer) error {
	pubKey := pr.PubKey()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		pr.Close(types.Shutdown)
		return types.ErrPoolClosed
	}
	existing, dup := p.peers[pubKey]
	if dup && (existing == pr || !p.prefer(pr, existing)) {
		p.mu.Unlock()
		log.Debug("重复连接，关闭后到者", "peer", shortKey(pubKey), "dir", pr.Direction())
		pr.Close(types.AlreadyConnected)
		return types.ErrAlreadyConnected
	}
	if pr.State() != types.StateConnected {
		// 登记前已开始关闭
		p.mu.Unlock()
		<-pr.Done()
		return &types.DisconnectedError{URI: pr.Summary().URI(), Reason: pr.Reason()}
	}
	for id, cur := range p.pending {
		if cur == pr {
			delete(p.pending, id)
			break
		}
	}
	p.peers[pubKey] = pr
	p.mu.Unlock()

	if dup {
		// 已有连接不再登记，其关闭回调不会发出断开事件
		log.Debug("同时互连，替换已有连接", "peer", shortKey(pubKey), "dir", pr.Direction())
		existing.Close(types.AlreadyConnected)
		p.disconnectedTopic.Emit(PeerDisconnected{
			PubKey:  pubKey,
			Address: existing.Address(),
			Inbound: existing.Direction() == types.DirInbound,
			Reason:  types.AlreadyConnected,
		})
	}

	summary := pr.Summary()
	log.Info("节点已连接",
		"peer", shortKey(pubKey),
		"addr", summary.Address,
		"inbound", summary.Inbound)
	p.connectedTopic.Emit(PeerConnected{Summary: summary})
	return nil
}

// prefer 报告同一公钥的两条连接中 pr 是否应取代 existing
//
// 保留由公钥较小一方发起的连接，两端据此得出相同结论；发起方相同时保留已有连接。
func (p *Pool) prefer(pr, existing *peer.Peer) bool {
	return p.initiator(pr) < p.initiator(existing)
}

func (p *Pool) initiator(pr *peer.Peer) string {
	if pr.Direction() == types.DirOutbound {
		return p.id.PubKey()
	}
	return pr.PubKey()
}

// onPeerClosed 返回 Peer 进入 Disconnected 时的注册表清理回调
func (p *Pool) onPeerClosed(id string) func(*peer.Peer) {
	return func(pr *peer.Peer) {
		pubKey := pr.PubKey()

		p.mu.Lock()
		delete(p.pending, id)
		registered := false
		if cur, ok := p.peers[pubKey]; ok && cur == pr {
			delete(p.peers, pubKey)
			registered = true
		}
		p.mu.Unlock()

		if !registered {
			return
		}
		log.Info("节点已断开", "peer", shortKey(pubKey), "reason", pr.Reason())
		p.disconnectedTopic.Emit(PeerDisconnected{
			PubKey:  pubKey,
			Address: pr.Address(),
			Inbound: pr.Direction() == types.DirInbound,
			Reason:  pr.Reason(),
		})
	}
}

func shortKey(pubKey string) string {
	if len(pubKey) > 12 {
		return pubKey[:12]
	}
	return pubKey
}
