package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dep2p/go-overlay/internal/core/gossip"
	"github.com/dep2p/go-overlay/internal/core/pool"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("metrics")

const namespace = "overlay"

// 出站尝试结果标签
const (
	OutcomeSuccess       = "success"
	OutcomeConnectFailed = "connect_failed"
	OutcomeRejected      = "rejected"
	OutcomeRevoked       = "revoked"
	OutcomeError         = "error"
)

// Collector 连接池指标收集器
type Collector struct {
	registry *prometheus.Registry

	connected      *prometheus.GaugeVec
	attempts       *prometheus.CounterVec
	revocations    prometheus.Counter
	disconnects    *prometheus.CounterVec
	stateUpdates   prometheus.Counter
	broadcasts     prometheus.Counter
	broadcastSends *prometheus.CounterVec
}

// NewCollector 创建收集器并注册到私有 Registry
//
// Registry 同时带有 Go 运行时和进程指标。
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_connected",
			Help:      "Number of connected peers.",
		}, []string{"direction"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Outbound connection attempts by outcome.",
		}, []string{"outcome"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_revocations_total",
			Help:      "Retry sequences revoked before completion.",
		}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Disconnections of registered peers by reason.",
		}, []string{"reason"}),
		stateUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_updates_received_total",
			Help:      "Node state updates received from peers.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gossip_broadcasts_total",
			Help:      "Local node state broadcasts.",
		}),
		broadcastSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gossip_sends_total",
			Help:      "Per-peer state update sends by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.connected,
		c.attempts,
		c.revocations,
		c.disconnects,
		c.stateUpdates,
		c.broadcasts,
		c.broadcastSends,
	)
	return c
}

// Registry 返回指标注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Bind 订阅连接池事件，返回取消订阅函数
func (c *Collector) Bind(p *pool.Pool) (unbind func()) {
	cancels := []func(){
		p.OnPeerConnected(func(ev pool.PeerConnected) {
			c.connected.WithLabelValues(direction(ev.Summary.Inbound)).Inc()
		}),
		p.OnPeerDisconnected(func(ev pool.PeerDisconnected) {
			c.connected.WithLabelValues(direction(ev.Inbound)).Dec()
			c.disconnects.WithLabelValues(ev.Reason.String()).Inc()
		}),
		p.OnPeerStateUpdated(func(pool.PeerStateUpdated) {
			c.stateUpdates.Inc()
		}),
		p.OnConnectAttempt(func(ev pool.ConnectAttempt) {
			c.attempts.WithLabelValues(Outcome(ev.Err)).Inc()
		}),
		p.OnRetryRevoked(func(pool.RetryRevoked) {
			c.revocations.Inc()
		}),
	}
	log.Debug("指标已绑定连接池")

	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// BindGossip 统计本地状态广播
func (c *Collector) BindGossip(g *gossip.Gossip) {
	g.OnBroadcast(func(b gossip.Broadcast) {
		c.broadcasts.Inc()
		c.broadcastSends.WithLabelValues("sent").Add(float64(b.Sent))
		c.broadcastSends.WithLabelValues("failed").Add(float64(b.Failed))
	})
}

// Outcome 把一次出站尝试的错误归类为结果标签
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, types.ErrRetryRevoked) {
		return OutcomeRevoked
	}
	if errors.Is(err, types.ErrConnectFailed) {
		return OutcomeConnectFailed
	}
	if _, ok := types.ReasonOf(err); ok {
		return OutcomeRejected
	}
	return OutcomeError
}

func direction(inbound bool) string {
	if inbound {
		return types.DirInbound.String()
	}
	return types.DirOutbound.String()
}
