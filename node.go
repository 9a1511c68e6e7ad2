package overlay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-overlay/internal/core/eventbus"
	"github.com/dep2p/go-overlay/internal/core/gossip"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/internal/core/metrics"
	"github.com/dep2p/go-overlay/internal/core/pool"
	"github.com/dep2p/go-overlay/internal/util/addrutil"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("overlay")

// startTimeout 启动 fx 应用的默认超时
const startTimeout = 30 * time.Second

// Node 覆盖网络节点
type Node struct {
	config *nodeConfig
	app    *fx.App

	identity  *identity.Identity
	pool      *pool.Pool
	gossip    *gossip.Gossip
	bus       *eventbus.Bus
	transport interfaces.Transport
	store     interfaces.NodeStore
	metrics   *metrics.Collector

	mu      sync.Mutex
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建节点但不启动
func New(ctx context.Context, opts ...Option) (*Node, error) {
	cfg := newNodeConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node := &Node{config: cfg}
	app, err := buildFxApp(cfg, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 创建并启动节点，等价于 New + Node.Start
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点：开始监听，按配置重连已知节点
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := n.app.Start(startCtx); err != nil {
		log.Error("节点启动失败", "error", err)
		return err
	}
	n.started = true

	log.Info("节点已启动", "pubkey", n.identity.PubKey(), "listen", n.pool.ListenAddr())
	return nil
}

// Close 关闭节点，断开所有连接并释放资源，可重复调用
func (n *Node) Close(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	if !n.started {
		// 未启动的 fx 应用 Stop 不执行任何钩子，构造时打开的资源需直接释放
		return n.release(ctx)
	}

	if err := n.app.Stop(ctx); err != nil {
		log.Warn("节点关闭出错", "error", err)
		return err
	}
	log.Info("节点已关闭")
	return nil
}

// release 释放未启动节点持有的资源，顺序与停止钩子一致
func (n *Node) release(ctx context.Context) error {
	err := n.pool.Close(ctx)
	if n.store != nil {
		if ferr := n.bus.Flush(ctx); ferr != nil {
			log.Warn("排空事件总线超时", "error", ferr)
		}
		err = multierr.Append(err, n.store.Close())
	}
	err = multierr.Append(err, n.transport.Close())
	n.bus.Close()
	select {
	case <-n.bus.Done():
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	if err != nil {
		log.Warn("释放节点资源出错", "error", err)
	}
	return err
}

func (n *Node) running() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch {
	case n.closed:
		return ErrNodeClosed
	case !n.started:
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// PubKey 返回本节点公钥
func (n *Node) PubKey() string {
	return n.identity.PubKey()
}

// ListenURI 返回本节点的监听 URI，未监听时地址为空
func (n *Node) ListenURI() types.PeerURI {
	return types.PeerURI{NodePubKey: n.identity.PubKey(), Address: n.pool.ListenAddr()}
}

// ShareableURIs 返回可分享给其他节点的 URI
//
// 监听在 0.0.0.0 时展开为本机接口地址，公网地址在前。
func (n *Node) ShareableURIs() []types.PeerURI {
	addrs, err := addrutil.InterfaceShareable(n.pool.ListenAddr())
	if err != nil {
		log.Warn("读取网络接口失败", "error", err)
		return nil
	}
	uris := make([]types.PeerURI, 0, len(addrs))
	for _, a := range addrs {
		uris = append(uris, types.PeerURI{NodePubKey: n.identity.PubKey(), Address: a})
	}
	return uris
}

// LocalState 返回本节点当前发布的能力状态
func (n *Node) LocalState() types.NodeState {
	return n.gossip.LocalState()
}

// Store 返回已知节点存储，未启用时为 nil
func (n *Node) Store() interfaces.NodeStore {
	return n.store
}

// MetricsRegistry 返回指标注册表，未启用时为 nil
func (n *Node) MetricsRegistry() *prometheus.Registry {
	if n.metrics == nil {
		return nil
	}
	return n.metrics.Registry()
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接管理
// ════════════════════════════════════════════════════════════════════════════

// Connect 连接 "nodePubKey@host:port"
//
// URI 在任何 I/O 之前解析，格式错误返回 types.ErrMalformedURI。
// retry 为 true 时连接失败按退避策略重试，直到成功、被撤销或 ctx 结束；
// ctx 只限制等待，取消重试用 CancelConnect。
func (n *Node) Connect(ctx context.Context, uri string, retry bool) (types.PeerSummary, error) {
	target, err := types.ParsePeerURI(uri)
	if err != nil {
		return types.PeerSummary{}, err
	}
	if err := n.running(); err != nil {
		return types.PeerSummary{}, err
	}
	return n.pool.Connect(ctx, target, retry)
}

// CancelConnect 撤销对 uri 的进行中连接请求
func (n *Node) CancelConnect(uri string) (bool, error) {
	target, err := types.ParsePeerURI(uri)
	if err != nil {
		return false, err
	}
	return n.pool.CancelConnect(target), nil
}

// ListPeers 返回已连接节点，按公钥排序
func (n *Node) ListPeers() []types.PeerSummary {
	return n.pool.ListPeers()
}

// ClosePeer 以 reason 断开 pubKey 对应的连接
func (n *Node) ClosePeer(ctx context.Context, pubKey string, reason types.DisconnectReason) error {
	if err := n.running(); err != nil {
		return err
	}
	return n.pool.ClosePeer(ctx, pubKey, reason)
}

// UpdateLocalState 更新本节点 currency 的标识并广播给所有已连接节点
func (n *Node) UpdateLocalState(currency, identifier string) error {
	if err := n.running(); err != nil {
		return err
	}
	return n.gossip.UpdateLocalState(currency, identifier)
}

// ════════════════════════════════════════════════════════════════════════════
//                              事件订阅
// ════════════════════════════════════════════════════════════════════════════

// OnPeerConnected 订阅节点连接事件
func (n *Node) OnPeerConnected(fn func(types.PeerSummary)) (cancel func()) {
	return n.pool.OnPeerConnected(func(ev pool.PeerConnected) { fn(ev.Summary) })
}

// OnPeerDisconnected 订阅节点断开事件
func (n *Node) OnPeerDisconnected(fn func(pubKey string, reason types.DisconnectReason)) (cancel func()) {
	return n.pool.OnPeerDisconnected(func(ev pool.PeerDisconnected) { fn(ev.PubKey, ev.Reason) })
}

// OnPeerStateUpdated 订阅节点能力状态更新
func (n *Node) OnPeerStateUpdated(fn func(pubKey string, state types.NodeState)) (cancel func()) {
	return n.pool.OnPeerStateUpdated(func(ev pool.PeerStateUpdated) { fn(ev.PubKey, ev.State) })
}
