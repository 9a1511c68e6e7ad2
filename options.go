package overlay

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/pkg/interfaces"
)

// Option 节点配置选项
type Option func(*nodeConfig) error

// nodeConfig 内部选项
type nodeConfig struct {
	config *config.Config

	identity  *identity.Identity
	transport interfaces.Transport
	clock     clock.Clock

	userFxOptions []fx.Option
}

func newNodeConfig() *nodeConfig {
	return &nodeConfig{config: config.NewConfig()}
}

// WithConfig 使用完整配置替换默认配置
//
// 应放在其他选项之前，后续选项在此配置上继续修改。
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) error {
		if cfg == nil {
			return errors.New("nil config")
		}
		c.config = cfg
		return nil
	}
}

// WithIdentity 使用给定的 32 字节 secp256k1 私钥作为节点身份
func WithIdentity(privateKey []byte) Option {
	return func(c *nodeConfig) error {
		id, err := identity.FromPrivateKeyBytes(privateKey)
		if err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		c.identity = id
		return nil
	}
}

// WithIdentityFile 从 PEM 密钥文件加载身份，不存在时生成
func WithIdentityFile(path string) Option {
	return func(c *nodeConfig) error {
		c.config.Identity.KeyFile = path
		c.config.Identity.AutoGenerate = true
		return nil
	}
}

// WithListenAddr 设置监听地址，port 为 0 表示随机端口
func WithListenAddr(host string, port int) Option {
	return func(c *nodeConfig) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid listen port %d", port)
		}
		c.config.Transport.ListenHost = host
		c.config.Transport.ListenPort = port
		c.config.Transport.Listen = true
		return nil
	}
}

// WithTransport 使用自定义传输，忽略 config.Transport.Protocol
func WithTransport(t interfaces.Transport) Option {
	return func(c *nodeConfig) error {
		if t == nil {
			return errors.New("nil transport")
		}
		c.transport = t
		return nil
	}
}

// WithClock 注入时钟（测试用 clock.NewMock()）
func WithClock(clk clock.Clock) Option {
	return func(c *nodeConfig) error {
		c.clock = clk
		return nil
	}
}

// WithDataDir 启用磁盘上的已知节点存储
func WithDataDir(dir string) Option {
	return func(c *nodeConfig) error {
		c.config.Storage.Dir = dir
		return nil
	}
}

// WithFxOptions 追加自定义 fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(c *nodeConfig) error {
		c.userFxOptions = append(c.userFxOptions, opts...)
		return nil
	}
}
