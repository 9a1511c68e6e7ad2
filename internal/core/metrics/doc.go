// Package metrics 提供连接池监控指标
//
// 指标注册在私有的 prometheus.Registry 上，由守护进程通过 promhttp 暴露。
// 数据来源是连接池事件和 gossip 广播回调，不侵入连接池内部。
//
// # 指标
//
//	overlay_peers_connected                  当前已连接节点数（按方向）
//	overlay_connect_attempts_total           出站尝试次数（按结果）
//	overlay_retry_revocations_total          重试撤销次数
//	overlay_disconnects_total                断开次数（按原因）
//	overlay_state_updates_received_total     收到的节点状态更新次数
//	overlay_gossip_broadcasts_total          本地状态广播次数
//	overlay_gossip_sends_total               广播发送次数（按结果）
//
// # 使用示例
//
//	c := metrics.NewCollector()
//	unbind := c.Bind(p)
//	defer unbind()
//	c.BindGossip(g)
//	http.Handle("/metrics", promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
package metrics
