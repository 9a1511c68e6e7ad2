// Package eventbus 实现进程内的串行事件调度
//
// Bus 持有一个分发 goroutine 和一个无界 FIFO 队列，所有投递到同一 Bus 的
// 回调按投递顺序依次执行，同一 Bus 上的回调不会并发执行。
// Topic[T] 是绑定到 Bus 的类型化主题，不使用反射。
//
// # 快速开始
//
//	bus := eventbus.NewBus("peer")
//	defer bus.Close()
//
//	connected := eventbus.NewTopic[PeerConnected](bus, "connected")
//	cancel := connected.Subscribe(func(ev PeerConnected) {
//	    // 在 bus 的分发 goroutine 上执行
//	})
//	defer cancel()
//
//	connected.Emit(PeerConnected{...})
//
// # 使用方式
//
// 每个 Peer 拥有自己的 Bus，作为该 Peer 的单线程事件调度器；
// 连接池拥有一个池级 Bus，承载 PeerConnected 等跨 Peer 事件。
// 不同 Bus 之间的回调可以交错执行。
package eventbus
