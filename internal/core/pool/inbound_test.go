package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/pkg/types"
)

func requireReason(t *testing.T, err error, want types.DisconnectReason) {
	t.Helper()
	reason, ok := types.ReasonOf(err)
	require.True(t, ok, "err = %v", err)
	assert.Equal(t, want, reason)
}

// TestInbound_NotAccepting 关闭入站时拒绝
func TestInbound_NotAccepting(t *testing.T) {
	a := newTestPool(t)
	b := newTestPool(t, withConfig(func(c *config.Config) { c.Pool.AcceptInbound = false }))

	_, err := a.Connect(connectCtx(t), uriOf(b), false)
	requireReason(t, err, types.NotAcceptingConnections)
	assert.Empty(t, a.ListPeers())
	assert.Empty(t, b.ListPeers())
}

// TestInbound_MaxInbound 入站数量上限
func TestInbound_MaxInbound(t *testing.T) {
	b := newTestPool(t, withConfig(func(c *config.Config) { c.Pool.MaxInbound = 1 }))
	a := newTestPool(t)
	c := newTestPool(t)
	ctx := connectCtx(t)

	_, err := a.Connect(ctx, uriOf(b), false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(b.ListPeers()) == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err = c.Connect(ctx, uriOf(b), false)
	requireReason(t, err, types.NotAcceptingConnections)

	// 出站连接不受入站上限约束
	_, err = b.Connect(ctx, uriOf(c), false)
	require.NoError(t, err)
	assert.Len(t, b.ListPeers(), 2)
}

// TestInbound_Banned 封禁节点被拒绝
func TestInbound_Banned(t *testing.T) {
	store := newMemStore()
	b := newTestPool(t, withStore(store))
	a := newTestPool(t)

	require.NoError(t, store.SetBanned(context.Background(), a.LocalPubKey(), true))

	_, err := a.Connect(connectCtx(t), uriOf(b), false)
	requireReason(t, err, types.Banned)
	assert.Empty(t, b.ListPeers())
}

// TestInbound_Duplicate 已连接的身份再次入站被拒绝
func TestInbound_Duplicate(t *testing.T) {
	a := newTestPool(t)
	b := newTestPool(t)
	ctx := connectCtx(t)

	_, err := a.Connect(ctx, uriOf(b), false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(b.ListPeers()) == 1 }, 5*time.Second, 10*time.Millisecond)

	// 同一身份从另一条连接入站
	assert.Equal(t, types.AlreadyConnected, b.admit(a.LocalPubKey()))
	assert.Equal(t, types.ReasonNone, b.admit(newPubKey(t)))

	// B 反向连接 A 在 I/O 之前失败
	_, err = b.Connect(ctx, uriOf(a), false)
	assert.ErrorIs(t, err, types.ErrAlreadyConnected)
}

// TestInbound_ReconnectKnownPeers 启动时重连已知节点
func TestInbound_ReconnectKnownPeers(t *testing.T) {
	b := newTestPool(t)
	banned := newTestPool(t)

	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, b.LocalPubKey(), b.ListenAddr()))
	require.NoError(t, store.Upsert(ctx, banned.LocalPubKey(), banned.ListenAddr()))
	require.NoError(t, store.SetBanned(ctx, banned.LocalPubKey(), true))
	require.NoError(t, store.RecordDisconnect(ctx, "no-address", types.Shutdown))

	a := newTestPool(t, withStore(store), withConfig(func(c *config.Config) {
		c.Pool.ReconnectKnownPeers = true
	}))

	require.Eventually(t, func() bool {
		keys := peerKeys(a)
		return len(keys) == 1 && keys[0] == b.LocalPubKey()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, a.PendingRetries())
}
