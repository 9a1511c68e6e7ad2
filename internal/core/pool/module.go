package pool

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/eventbus"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	LC        fx.Lifecycle
	Config    *config.Config
	Identity  *identity.Identity
	Transport interfaces.Transport
	Bus       *eventbus.Bus

	Store interfaces.NodeStore `optional:"true"`
	Clock clock.Clock          `name:"preset_clock" optional:"true"`
}

// ProvidePool 提供连接池，启动时开始监听，停止时按 ShutdownTimeout 关闭
func ProvidePool(input ModuleInput) (*Pool, error) {
	p, err := New(Params{
		Config:    input.Config,
		Identity:  input.Identity,
		Transport: input.Transport,
		Store:     input.Store,
		Bus:       input.Bus,
		Clock:     input.Clock,
	})
	if err != nil {
		return nil, err
	}

	timeout := input.Config.Pool.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout)
	input.LC.Append(fx.Hook{
		OnStart: p.Start,
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return p.Close(ctx)
		},
	})
	return p, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("pool",
		fx.Provide(ProvidePool),
	)
}
