package eventbus

import (
	"context"

	"go.uber.org/fx"
)

// ProvideBus 提供池级 Bus，应用停止时关闭并等待排空
func ProvideBus(lc fx.Lifecycle) *Bus {
	bus := NewBus("pool")
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			bus.Close()
			select {
			case <-bus.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return bus
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideBus),
	)
}
