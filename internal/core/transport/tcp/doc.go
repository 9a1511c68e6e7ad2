// Package tcp 提供基于 TCP 的传输实现
//
// 每条 overlay 通道对应一个 TCP 连接，不做多路复用。
package tcp
