package nodestore

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/eventbus"
	"github.com/dep2p/go-overlay/internal/core/pool"
	"github.com/dep2p/go-overlay/pkg/interfaces"
)

// ProvideStore 打开存储
//
// 存储在连接池之后停止：关闭前先排空事件总线，
// 让连接池关闭时产生的断开事件写入存储。
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, bus *eventbus.Bus) (interfaces.NodeStore, error) {
	s, err := Open(cfg.Storage)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := bus.Flush(ctx); err != nil {
				log.Warn("排空事件总线超时", "error", err)
			}
			return s.Close()
		},
	})
	return s, nil
}

// Module 返回 fx 模块，仅在 config.Storage.Enabled() 时装配
func Module() fx.Option {
	return fx.Module("nodestore",
		fx.Provide(ProvideStore),
		fx.Invoke(func(p *pool.Pool, s interfaces.NodeStore) {
			Bind(p, s)
		}),
	)
}
