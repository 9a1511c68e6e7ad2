package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/transport/tcp"
	"github.com/dep2p/go-overlay/pkg/interfaces"
)

// TestNew 测试按协议创建传输
func TestNew(t *testing.T) {
	for _, proto := range []string{config.ProtocolTCP, config.ProtocolQUIC} {
		t.Run(proto, func(t *testing.T) {
			cfg := config.DefaultTransportConfig()
			cfg.Protocol = proto

			tr, err := New(cfg)
			require.NoError(t, err)
			assert.Equal(t, proto, tr.Protocol())
			assert.NoError(t, tr.Close())
		})
	}

	cfg := config.DefaultTransportConfig()
	cfg.Protocol = "ws"
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
}

// TestModule 测试 fx 模块
func TestModule(t *testing.T) {
	t.Run("FromConfig", func(t *testing.T) {
		var tr interfaces.Transport
		app := fxtest.New(t,
			fx.Supply(config.NewConfig()),
			Module(),
			fx.Populate(&tr),
		)
		app.RequireStart().RequireStop()
		assert.Equal(t, config.ProtocolTCP, tr.Protocol())
	})

	t.Run("Preset", func(t *testing.T) {
		preset := tcp.New(0)
		var tr interfaces.Transport
		app := fxtest.New(t,
			fx.Supply(config.NewConfig()),
			fx.Provide(fx.Annotated{
				Name:   "preset_transport",
				Target: func() interfaces.Transport { return preset },
			}),
			Module(),
			fx.Populate(&tr),
		)
		app.RequireStart().RequireStop()
		assert.Same(t, preset, tr)
	})
}
