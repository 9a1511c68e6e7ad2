// Package config 提供 overlay 的统一配置管理
//
// 主 Config 嵌入各组件的子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载和保存。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Transport.ListenPort = 8885
//	cfg.Retry.InitialDelay = config.Duration(time.Second)
//
//	// 从 JSON 文件加载
//	cfg, err := config.Load("overlay.json")
package config

// Config overlay 的完整配置
//
//   - Identity: 节点密钥
//   - Transport: 传输协议与监听地址
//   - Pool: 连接池准入策略
//   - Peer: 单连接参数（握手超时、心跳、限速）
//   - Retry: 重连退避策略
//   - Storage: 已知节点存储
//   - Metrics: 指标
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Pool 连接池配置
	Pool PoolConfig `json:"pool"`

	// Peer 单连接配置
	Peer PeerConfig `json:"peer"`

	// Retry 重连配置
	Retry RetryConfig `json:"retry"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Transport: DefaultTransportConfig(),
		Pool:      DefaultPoolConfig(),
		Peer:      DefaultPeerConfig(),
		Retry:     DefaultRetryConfig(),
		Storage:   DefaultStorageConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证所有子配置
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Identity,
		&c.Transport,
		&c.Pool,
		&c.Peer,
		&c.Retry,
		&c.Storage,
		&c.Metrics,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
