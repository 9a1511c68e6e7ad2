// Package peer 实现单条 overlay 连接的状态机与身份握手
//
// # 状态
//
//	Connecting -> Handshaking -> Connected -> Disconnecting -> Disconnected
//
// 状态只前进不回退，Disconnected 为终态。任何状态都可以直接进入
// Disconnecting；关闭时原因被记录并（尽力）通过 Disconnecting 消息告知对端。
//
// # 握手
//
// 双方交换签名的 Hello：
//
//	发起方                                   响应方
//	  | Hello{PubKey, ExpectedPubKey, Nonce}   |
//	  |--------------------------------------->| 校验签名、ExpectedPubKey、自连接、准入
//	  |    Hello{PubKey, EchoNonce} 或          |
//	  |    Disconnecting{Reason}               |
//	  |<---------------------------------------|
//	  | 校验 PubKey == 目标、签名、EchoNonce     |
//
// 发起方公钥不符、格式错误或等于本节点公钥时以 AuthFailureInvalidTarget 关闭。
//
// # 事件
//
// 每个 Peer 有自己的 eventbus.Bus，HandshakeComplete、NodeStateUpdated、
// Disconnected 事件的回调在其上串行执行，同一 Peer 的回调不会并发。
package peer
