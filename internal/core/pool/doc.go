// Package pool 实现连接池：出站连接、入站接受、已验证节点注册表与关闭流程
//
// # 注册表
//
// 握手中的 Peer 以临时 uuid 记录在 pending 中，握手成功后以已验证公钥登记
// 到 peers。同一公钥任何时刻最多有一个已登记的 Peer。两端同时互连时保留
// 公钥较小一方发起的连接，另一条以 AlreadyConnected 关闭；其余竞争中后到者
// 以 AlreadyConnected 关闭。
//
// # 出站连接
//
// Connect 在任何 I/O 之前拒绝自连接与重复连接，随后交给 retry.Controller
// 执行。只有传输层失败（types.ErrConnectFailed）会按策略重试，握手失败
// （包括 AuthFailureInvalidTarget）立即作为最终结果返回。
//
// # 关闭
//
// Close 依次撤销全部重试、停止监听、以 Shutdown 关闭所有 Peer（包括握手中的），
// 并等待全部收尾完成后返回。
package pool
