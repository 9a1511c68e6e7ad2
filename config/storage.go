package config

import "errors"

// StorageConfig 已知节点存储配置
type StorageConfig struct {
	// Dir 数据目录，为空且 InMemory 为 false 时不启用存储
	Dir string `json:"dir,omitempty"`

	// InMemory 使用内存模式（测试用）
	InMemory bool `json:"in_memory,omitempty"`

	// SyncWrites 每次写入是否同步刷盘
	SyncWrites bool `json:"sync_writes,omitempty"`

	// CacheSize 节点记录读缓存条目数
	CacheSize int `json:"cache_size"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		CacheSize: 1024,
	}
}

// Enabled 是否启用存储
func (c StorageConfig) Enabled() bool {
	return c.InMemory || c.Dir != ""
}

// Validate 验证存储配置
func (c StorageConfig) Validate() error {
	if c.CacheSize <= 0 {
		return errors.New("storage: cache_size must be positive")
	}
	return nil
}
