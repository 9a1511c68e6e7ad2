package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/eventbus"
	"github.com/dep2p/go-overlay/internal/core/gossip"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/internal/core/pool"
	"github.com/dep2p/go-overlay/internal/core/transport/tcp"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Transport.ListenHost = "127.0.0.1"
	cfg.Transport.ListenPort = 0
	cfg.Peer.PingInterval = 0
	cfg.Peer.StallTimeout = 0
	return cfg
}

func newPool(t *testing.T) *pool.Pool {
	t.Helper()
	cfg := testConfig()
	id, err := identity.Generate(context.Background())
	require.NoError(t, err)
	tr := tcp.New(cfg.Transport.DialTimeout.Duration())
	p, err := pool.New(pool.Params{Config: cfg, Identity: id, Transport: tr})
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

// TestOutcome 测试出站结果分类
func TestOutcome(t *testing.T) {
	addr := types.PeerAddress{Host: "127.0.0.1", Port: 1}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeSuccess},
		{"revoked", fmt.Errorf("wrap: %w", types.ErrRetryRevoked), OutcomeRevoked},
		{"connect failed", &types.ConnectFailedError{Address: addr, Err: errors.New("refused")}, OutcomeConnectFailed},
		{"rejected", &types.DisconnectedError{Reason: types.Banned}, OutcomeRejected},
		{"other", errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

// TestCollector_Bind 测试连接池事件计入指标
func TestCollector_Bind(t *testing.T) {
	a := newPool(t)
	b := newPool(t)
	ca := NewCollector()
	defer ca.Bind(a)()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := a.Connect(ctx, uriOf(b), false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ca.connected.WithLabelValues("outbound")) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(ca.attempts.WithLabelValues(OutcomeSuccess)))

	// 对端拒绝
	wrong := types.PeerURI{NodePubKey: newPubKey(t), Address: b.ListenAddr()}
	_, err = a.Connect(ctx, wrong, false)
	require.Error(t, err)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ca.attempts.WithLabelValues(OutcomeRejected)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// 撤销
	unused := types.PeerURI{NodePubKey: newPubKey(t), Address: types.PeerAddress{Host: "127.0.0.1", Port: 1}}
	_, err = a.ConnectAsync(unused, true)
	require.NoError(t, err)
	assert.True(t, a.CancelConnect(unused))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ca.revocations) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, a.ClosePeer(ctx, b.LocalPubKey(), types.NotAcceptingConnections))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ca.connected.WithLabelValues("outbound")) == 0 &&
			testutil.ToFloat64(ca.disconnects.WithLabelValues("NotAcceptingConnections")) == 1
	}, 5*time.Second, 10*time.Millisecond)

	n, err := testutil.GatherAndCount(ca.Registry(), "overlay_connect_attempts_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
}

// TestCollector_Gossip 测试广播与状态更新计数
func TestCollector_Gossip(t *testing.T) {
	a := newPool(t)
	b := newPool(t)
	ga := gossip.New(a)
	a.SetStateSource(ga)

	ca := NewCollector()
	cb := NewCollector()
	ca.BindGossip(ga)
	defer cb.Bind(b)()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := a.Connect(ctx, uriOf(b), false)
	require.NoError(t, err)

	require.NoError(t, ga.UpdateLocalState("BTC", "addr-1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ca.broadcasts))
	assert.Equal(t, 1.0, testutil.ToFloat64(ca.broadcastSends.WithLabelValues("sent")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ca.broadcastSends.WithLabelValues("failed")))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(cb.stateUpdates) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

// TestModule 测试 fx 装配
func TestModule(t *testing.T) {
	cfg := testConfig()
	id, err := identity.Generate(context.Background())
	require.NoError(t, err)

	var c *Collector
	app := fxtest.New(t,
		fx.Supply(cfg, id),
		fx.Provide(func() interfaces.Transport { return tcp.New(time.Second) }),
		eventbus.Module(),
		pool.Module(),
		gossip.Module(),
		Module(),
		fx.Populate(&c),
	)
	app.RequireStart()
	require.NotNil(t, c)
	assert.NotNil(t, c.Registry())
	app.RequireStop()
	t.Log("✅ metrics 模块装配测试通过")
}

func newPubKey(t *testing.T) string {
	t.Helper()
	id, err := identity.Generate(context.Background())
	require.NoError(t, err)
	return id.PubKey()
}
