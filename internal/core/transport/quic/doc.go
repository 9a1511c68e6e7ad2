// Package quic 提供基于 QUIC 的传输实现
//
// 每条 overlay 通道对应一个 QUIC 连接上的单个双向流。
// TLS 使用临时自签名证书，只提供加密，节点身份由 overlay 握手认证。
//
// 发起方打开流后必须先写数据，接收方才能 AcceptStream；
// overlay 握手总是由发起方先发送 Hello，满足这一点。
package quic
