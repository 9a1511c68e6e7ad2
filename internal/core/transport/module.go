package transport

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/transport/quic"
	"github.com/dep2p/go-overlay/internal/core/transport/tcp"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/interfaces"
)

var log = logger.Logger("transport")

// New 按协议名创建传输
func New(cfg config.TransportConfig) (interfaces.Transport, error) {
	switch cfg.Protocol {
	case config.ProtocolTCP:
		return tcp.New(cfg.DialTimeout.Duration()), nil
	case config.ProtocolQUIC:
		return quic.New(cfg.DialTimeout.Duration())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, cfg.Protocol)
	}
}

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config

	// Preset 外部注入的传输（WithTransport），优先于配置
	Preset interfaces.Transport `name:"preset_transport" optional:"true"`
}

// ProvideTransport 提供传输层，应用停止时关闭
func ProvideTransport(input ModuleInput) (interfaces.Transport, error) {
	t := input.Preset
	if t == nil {
		var err error
		if t, err = New(input.Config.Transport); err != nil {
			return nil, err
		}
	}
	log.Debug("传输层就绪", "protocol", t.Protocol())

	input.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return t.Close()
		},
	})
	return t, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
	)
}
