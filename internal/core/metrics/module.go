package metrics

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/internal/core/gossip"
	"github.com/dep2p/go-overlay/internal/core/pool"
)

// BindInput 绑定依赖
type BindInput struct {
	fx.In

	Collector *Collector
	Pool      *pool.Pool
	Gossip    *gossip.Gossip `optional:"true"`
}

func bind(in BindInput) {
	in.Collector.Bind(in.Pool)
	if in.Gossip != nil {
		in.Collector.BindGossip(in.Gossip)
	}
}

// Module 返回 fx 模块，仅在 config.Metrics.Enabled 时装配
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewCollector),
		fx.Invoke(bind),
	)
}
