// Package gossip 维护本节点能力状态并向已连接节点广播更新
//
// 接收方向的合并与事件由 peer 包完成，经连接池的 PeerStateUpdated 主题汇总。
package gossip
