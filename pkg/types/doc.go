// Package types 定义 overlay 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包，所有类型都是纯值类型。
//
// # 文件组织
//
//   - address.go - PeerAddress, PeerURI（<nodePubKey>@<host>:<port>）
//   - state.go   - NodeState（按币种发布的外部标识）
//   - enums.go   - ConnState, DisconnectReason, Direction
//   - peer.go    - PeerSummary
//   - node.go    - NodeRecord（已知节点存储记录）
//   - errors.go  - 错误定义与对外错误消息
package types
