// Package transport 按配置选择传输层实现
//
//   - tcp:  每条通道一个 TCP 连接
//   - quic: 每条通道一个 QUIC 连接上的单个双向流
//
// 两种实现都只提供字节通道，节点身份由 overlay 握手认证。
package transport
