package nodestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/internal/core/pool"
	"github.com/dep2p/go-overlay/internal/core/transport/tcp"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

func newPool(t *testing.T, store interfaces.NodeStore, reconnect bool) *pool.Pool {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Transport.ListenHost = "127.0.0.1"
	cfg.Transport.ListenPort = 0
	cfg.Peer.PingInterval = 0
	cfg.Peer.StallTimeout = 0
	cfg.Pool.ReconnectKnownPeers = reconnect

	id, err := identity.Generate(context.Background())
	require.NoError(t, err)
	tr := tcp.New(cfg.Transport.DialTimeout.Duration())

	params := pool.Params{Config: cfg, Identity: id, Transport: tr}
	if store != nil {
		params.Store = store
	}
	p, err := pool.New(params)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, p.Close(ctx))
		_ = tr.Close()
	})
	return p
}

func uriOf(p *pool.Pool) types.PeerURI {
	return types.PeerURI{NodePubKey: p.LocalPubKey(), Address: p.ListenAddr()}
}

// TestBind_RecordsConnections 测试连接和断开写入存储
func TestBind_RecordsConnections(t *testing.T) {
	storeA := openMem(t)
	storeB := openMem(t)
	a := newPool(t, storeA, false)
	b := newPool(t, storeB, false)
	defer Bind(a, storeA)()
	defer Bind(b, storeB)()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := a.Connect(ctx, uriOf(b), false)
	require.NoError(t, err)

	// 出站记录拨号地址
	require.Eventually(t, func() bool {
		rec, err := storeA.Get(ctx, b.LocalPubKey())
		return err == nil && len(rec.Addresses) == 1
	}, 5*time.Second, 10*time.Millisecond)
	rec, err := storeA.Get(ctx, b.LocalPubKey())
	require.NoError(t, err)
	assert.Equal(t, b.ListenAddr(), rec.Addresses[0])

	// 入站只记录时间
	require.Eventually(t, func() bool {
		rec, err := storeB.Get(ctx, a.LocalPubKey())
		return err == nil && !rec.LastConnected.IsZero()
	}, 5*time.Second, 10*time.Millisecond)
	rec, err = storeB.Get(ctx, a.LocalPubKey())
	require.NoError(t, err)
	assert.Empty(t, rec.Addresses)

	require.NoError(t, a.ClosePeer(ctx, b.LocalPubKey(), types.NotAcceptingConnections))
	require.Eventually(t, func() bool {
		rec, err := storeA.Get(ctx, b.LocalPubKey())
		return err == nil && rec.LastDisconnectReason == types.NotAcceptingConnections
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		rec, err := storeB.Get(ctx, a.LocalPubKey())
		return err == nil && rec.LastDisconnectReason == types.NotAcceptingConnections
	}, 5*time.Second, 10*time.Millisecond)
}

// TestBind_ReconnectAndBan 重启后重连已知节点，封禁节点被拒绝
func TestBind_ReconnectAndBan(t *testing.T) {
	b := newPool(t, nil, false)
	require.NoError(t, b.Start(context.Background()))

	store := openMem(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, b.LocalPubKey(), b.ListenAddr()))

	a := newPool(t, store, true)
	require.NoError(t, a.Start(ctx))
	require.Eventually(t, func() bool {
		peers := a.ListPeers()
		return len(peers) == 1 && peers[0].NodePubKey == b.LocalPubKey()
	}, 5*time.Second, 10*time.Millisecond)

	// 被封禁的节点不能连入
	c := newPool(t, nil, false)
	require.NoError(t, c.Start(ctx))
	require.NoError(t, store.SetBanned(ctx, c.LocalPubKey(), true))

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.Connect(cctx, uriOf(a), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPeerDisconnected)
	reason, ok := types.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, types.Banned, reason)
}
