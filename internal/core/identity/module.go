package identity

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/util/logger"
)

var log = logger.Logger("identity")

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config

	// Preset 外部直接注入的身份（WithIdentity），优先于配置
	Preset *Identity `name:"preset_identity" optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Identity *Identity
}

// ProvideIdentity 创建或加载本节点身份
//
// 优先级：Preset > KeyFile > 临时生成。
func ProvideIdentity(input ModuleInput) (ModuleOutput, error) {
	if input.Preset != nil {
		return ModuleOutput{Identity: input.Preset}, nil
	}

	cfg := input.Config.Identity
	if cfg.KeyFile != "" {
		if cfg.AutoGenerate {
			id, created, err := LoadOrCreate(cfg.KeyFile)
			if err != nil {
				return ModuleOutput{}, err
			}
			if created {
				log.Info("已生成节点密钥", "pubkey", id.PubKey(), "file", cfg.KeyFile)
			}
			return ModuleOutput{Identity: id}, nil
		}
		id, err := LoadKeyFile(cfg.KeyFile)
		if err != nil {
			return ModuleOutput{}, fmt.Errorf("load key file %s: %w", cfg.KeyFile, err)
		}
		return ModuleOutput{Identity: id}, nil
	}

	id, err := Generate(context.Background())
	if err != nil {
		return ModuleOutput{}, err
	}
	log.Debug("使用临时身份", "pubkey", id.PubKey())
	return ModuleOutput{Identity: id}, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideIdentity),
	)
}
