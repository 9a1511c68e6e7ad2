// Package nodestore 已知节点存储
//
// 基于 BadgerDB 持久化 NodeRecord，值使用 JSON 编码，键为 "node/<pubkey>"。
// 读路径带一层 LRU 缓存，写路径先落盘再更新缓存。
//
// 连接池通过 interfaces.NodeStore 读取封禁状态和重连目标；
// Bind 订阅连接池事件，把成功连接的地址和断开原因写回存储。
//
// # 使用示例
//
//	s, err := nodestore.Open(config.StorageConfig{InMemory: true, CacheSize: 128})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	unbind := nodestore.Bind(p, s)
//	defer unbind()
package nodestore
