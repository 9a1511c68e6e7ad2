// Package retry 实现按目标键管理的连接重试控制器
//
// 每个目标键同时最多有一个活跃条目。Schedule 立即执行第一次尝试，失败且
// 调用方要求重试时按 Policy 退避后再次尝试，直到成功、被撤销或控制器关闭。
//
// 同一键再次 Schedule 会先撤销旧条目：旧 Future 以 types.ErrRetryRevoked
// 结束，新条目独立运行。撤销同时取消正在执行的尝试的 context，尝试在撤销后
// 返回的结果被丢弃。
//
// 定时器来自注入的 clock.Clock，测试中使用 clock.NewMock 推进退避。
package retry
