package overlay

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-overlay/internal/core/eventbus"
	"github.com/dep2p/go-overlay/internal/core/gossip"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/internal/core/metrics"
	"github.com/dep2p/go-overlay/internal/core/nodestore"
	"github.com/dep2p/go-overlay/internal/core/pool"
	"github.com/dep2p/go-overlay/internal/core/transport"
	"github.com/dep2p/go-overlay/pkg/interfaces"
)

// nodeComponents 注入到 Node 的组件
type nodeComponents struct {
	fx.In

	Identity  *identity.Identity
	Pool      *pool.Pool
	Gossip    *gossip.Gossip
	Bus       *eventbus.Bus
	Transport interfaces.Transport

	Store   interfaces.NodeStore `optional:"true"`
	Metrics *metrics.Collector   `optional:"true"`
}

// buildFxApp 构建 fx 应用
//
// 加载顺序（按依赖）：
//  1. identity, transport, eventbus
//  2. nodestore（可选）
//  3. pool, gossip
//  4. metrics（可选）
func buildFxApp(cfg *nodeConfig, node *Node) (*fx.App, error) {
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg.config),
		identity.Module(),
		transport.Module(),
		eventbus.Module(),
	}

	// 外部注入的组件
	if cfg.identity != nil {
		id := cfg.identity
		modules = append(modules, fx.Provide(fx.Annotated{
			Name:   "preset_identity",
			Target: func() *identity.Identity { return id },
		}))
	}
	if cfg.transport != nil {
		t := cfg.transport
		modules = append(modules, fx.Provide(fx.Annotated{
			Name:   "preset_transport",
			Target: func() interfaces.Transport { return t },
		}))
	}
	if cfg.clock != nil {
		clk := cfg.clock
		modules = append(modules, fx.Provide(fx.Annotated{
			Name:   "preset_clock",
			Target: func() clock.Clock { return clk },
		}))
	}

	if cfg.config.Storage.Enabled() {
		modules = append(modules, nodestore.Module())
	}
	modules = append(modules,
		pool.Module(),
		gossip.Module(),
	)
	if cfg.config.Metrics.Enabled {
		modules = append(modules, metrics.Module())
	}

	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(func(c nodeComponents) {
			node.identity = c.Identity
			node.pool = c.Pool
			node.gossip = c.Gossip
			node.bus = c.Bus
			node.transport = c.Transport
			node.store = c.Store
			node.metrics = c.Metrics
		}),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}
