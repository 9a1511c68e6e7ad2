package overlay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/pkg/types"
)

func startNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	opts = append(opts, WithListenAddr("127.0.0.1", 0))
	n, err := Start(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, n.Close(ctx))
	})
	return n
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestNode_ConnectAndGossip 测试两节点连接与状态同步
func TestNode_ConnectAndGossip(t *testing.T) {
	a := startNode(t)
	b := startNode(t)
	ctx := testCtx(t)

	var (
		mu      sync.Mutex
		updates []types.NodeState
	)
	cancel := b.OnPeerStateUpdated(func(pubKey string, state types.NodeState) {
		if pubKey != a.PubKey() {
			return
		}
		mu.Lock()
		updates = append(updates, state)
		mu.Unlock()
	})
	defer cancel()

	summary, err := a.Connect(ctx, b.ListenURI().String(), false)
	require.NoError(t, err)
	assert.Equal(t, b.PubKey(), summary.NodePubKey)
	require.Len(t, a.ListPeers(), 1)
	require.Eventually(t, func() bool { return len(b.ListPeers()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, a.UpdateLocalState("BTC", "addr-1"))
	assert.Equal(t, "addr-1", a.LocalState().Identifiers["BTC"])
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		peers := b.ListPeers()
		return len(peers) == 1 && peers[0].NodeState.Identifiers["BTC"] == "addr-1"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, a.ClosePeer(ctx, b.PubKey(), types.NotAcceptingConnections))
	assert.Empty(t, a.ListPeers())
	require.Eventually(t, func() bool { return len(b.ListPeers()) == 0 }, 5*time.Second, 10*time.Millisecond)
	t.Log("✅ 节点连接与状态同步测试通过")
}

// TestNode_MalformedURI 格式错误的 URI 在 I/O 之前被拒绝
func TestNode_MalformedURI(t *testing.T) {
	n, err := New(context.Background())
	require.NoError(t, err)

	for _, uri := range []string{"", "no-at-sign", "key@host", "key@host:notaport", "@127.0.0.1:1"} {
		_, err := n.Connect(context.Background(), uri, false)
		assert.ErrorIs(t, err, types.ErrMalformedURI, "uri %q", uri)
	}
	_, err = n.CancelConnect("bad")
	assert.ErrorIs(t, err, types.ErrMalformedURI)
}

// TestNode_Lifecycle 测试未启动和关闭后的调用
func TestNode_Lifecycle(t *testing.T) {
	n, err := New(context.Background(), WithListenAddr("127.0.0.1", 0))
	require.NoError(t, err)

	assert.ErrorIs(t, n.UpdateLocalState("BTC", "x"), ErrNotStarted)
	assert.ErrorIs(t, n.ClosePeer(context.Background(), "k", types.Shutdown), ErrNotStarted)

	require.NoError(t, n.Start(context.Background()))
	assert.ErrorIs(t, n.Start(context.Background()), ErrAlreadyStarted)
	assert.NotZero(t, n.ListenURI().Address.Port)
	require.Len(t, n.ShareableURIs(), 1)
	assert.Equal(t, n.ListenURI(), n.ShareableURIs()[0])

	require.NoError(t, n.Close(context.Background()))
	require.NoError(t, n.Close(context.Background()))
	assert.ErrorIs(t, n.Start(context.Background()), ErrNodeClosed)
	assert.ErrorIs(t, n.UpdateLocalState("BTC", "x"), ErrNodeClosed)
}

// TestNode_WithIdentity 测试注入身份
func TestNode_WithIdentity(t *testing.T) {
	id, err := identity.Generate(context.Background())
	require.NoError(t, err)

	n := startNode(t, WithIdentity(id.PrivateKeyBytes()))
	assert.Equal(t, id.PubKey(), n.PubKey())
	assert.Equal(t, id.PubKey(), n.ListenURI().NodePubKey)

	_, err = New(context.Background(), WithIdentity([]byte{1, 2, 3}))
	assert.Error(t, err)
}

// TestNode_InvalidOptions 测试非法选项
func TestNode_InvalidOptions(t *testing.T) {
	_, err := New(context.Background(), WithListenAddr("127.0.0.1", 70000))
	assert.Error(t, err)

	_, err = New(context.Background(), WithConfig(nil))
	assert.Error(t, err)

	cfg := config.NewConfig()
	cfg.Transport.Protocol = "carrier-pigeon"
	_, err = New(context.Background(), WithConfig(cfg))
	assert.Error(t, err)
}

// TestNode_StoreAndMetrics 测试可选模块装配
func TestNode_StoreAndMetrics(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storage.InMemory = true
	a := startNode(t, WithConfig(cfg))
	require.NotNil(t, a.Store())
	require.NotNil(t, a.MetricsRegistry())

	b := startNode(t)
	ctx := testCtx(t)
	_, err := a.Connect(ctx, b.ListenURI().String(), false)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		rec, err := a.Store().Get(ctx, b.PubKey())
		return err == nil && len(rec.Addresses) == 1
	}, 5*time.Second, 10*time.Millisecond)

	families, err := a.MetricsRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["overlay_peers_connected"])
	assert.True(t, names["overlay_connect_attempts_total"])

	// 关闭指标
	noMetrics := config.NewConfig()
	noMetrics.Metrics.Enabled = false
	c := startNode(t, WithConfig(noMetrics))
	assert.Nil(t, c.MetricsRegistry())
	assert.Nil(t, c.Store())
}

// TestNode_DataDir 测试磁盘存储跨重启保留已知节点
func TestNode_DataDir(t *testing.T) {
	dir := t.TempDir()
	b := startNode(t)
	ctx := testCtx(t)

	a, err := Start(ctx, WithListenAddr("127.0.0.1", 0), WithDataDir(dir))
	require.NoError(t, err)
	_, err = a.Connect(ctx, b.ListenURI().String(), false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := a.Store().Get(ctx, b.PubKey())
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, a.Close(ctx))

	cfg := config.NewConfig()
	cfg.Pool.ReconnectKnownPeers = true
	a2 := startNode(t, WithConfig(cfg), WithDataDir(dir))
	require.Eventually(t, func() bool {
		peers := a2.ListPeers()
		return len(peers) == 1 && peers[0].NodePubKey == b.PubKey()
	}, 5*time.Second, 10*time.Millisecond)
}

// TestNode_CloseWithoutStart 测试未启动即关闭会释放存储
func TestNode_CloseWithoutStart(t *testing.T) {
	dir := t.TempDir()
	ctx := testCtx(t)

	n, err := New(ctx, WithListenAddr("127.0.0.1", 0), WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, n.Close(ctx))
	assert.ErrorIs(t, n.Start(ctx), ErrNodeClosed)

	// 同一数据目录可再次打开
	n2, err := New(ctx, WithListenAddr("127.0.0.1", 0), WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, n2.Start(ctx))
	require.NoError(t, n2.Close(ctx))

	t.Log("✅ 未启动的节点关闭后释放数据目录")
}
