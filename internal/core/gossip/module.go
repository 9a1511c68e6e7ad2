package gossip

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/internal/core/pool"
)

// ProvideGossip 创建 Gossip，设为连接池的状态来源并在节点登记后补发状态
func ProvideGossip(p *pool.Pool) *Gossip {
	g := New(p)
	p.SetStateSource(g)
	p.OnPeerConnected(func(ev pool.PeerConnected) {
		if pr, ok := p.Peer(ev.Summary.NodePubKey); ok {
			_ = g.SyncPeer(pr)
		}
	})
	return g
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("gossip",
		fx.Provide(ProvideGossip),
	)
}
