// Package overlay 提供基于公钥身份的 P2P 覆盖网络节点
//
// 节点之间通过 nodePubKey@host:port 形式的 URI 建立连接，
// 握手阶段双方签名互证身份，连接后交换并持续同步各自的能力状态
// （currency → identifier 映射）。
//
// # 快速开始
//
//	node, err := overlay.Start(ctx,
//	    overlay.WithListenAddr("0.0.0.0", 8885),
//	)
//	if err != nil {
//	    return err
//	}
//	defer node.Close(context.Background())
//
//	summary, err := node.Connect(ctx, "02ab...@203.0.113.7:8885", true)
//	if err != nil {
//	    return err
//	}
//	_ = node.UpdateLocalState("BTC", "bc1q...")
//
// # 模块组装
//
// 节点由 fx 组装：
//
//	identity → transport → eventbus → [nodestore] → pool → gossip → [metrics]
//
// nodestore 在 config.Storage.Enabled() 时加载，metrics 在 config.Metrics.Enabled 时加载。
package overlay
