// Package interfaces 定义 overlay 核心与外部协作者之间的接口
//
//   - transport.go  - 传输层（拨号、监听、字节通道）
//   - nodestore.go  - 已知节点存储
//
// 实现位于 internal/core 下对应目录，接口只依赖 pkg/types。
package interfaces
