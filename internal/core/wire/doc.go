// Package wire 定义 overlay 连接上的消息格式
//
// 每条消息是一个帧：uvarint 长度前缀 + protobuf wire 编码的消息体。
// 消息体第 1 个字段为消息类型，其余字段按类型解释，未知字段被跳过。
//
//	+----------------+---------------------------+
//	| uvarint length | type(1) | fields ...      |
//	+----------------+---------------------------+
//
// 消息类型：
//   - Hello: 握手身份声明（带签名）
//   - Disconnecting: 断开通知，携带原因
//   - NodeStateUpdate: 能力状态增量
//   - Ping / Pong: 心跳
package wire
