package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/dep2p/go-overlay/pkg/types"
)

// Transport 传输层接口
//
// 提供有序、可靠的字节通道，overlay 把通道视为不透明的字节流。
type Transport interface {
	// Dial 拨号到指定地址
	Dial(ctx context.Context, addr types.PeerAddress) (Channel, error)

	// Listen 在指定地址监听，端口为 0 时由系统分配
	Listen(addr types.PeerAddress) (Listener, error)

	// Protocol 返回协议名称（tcp、quic）
	Protocol() string

	// Close 关闭传输及其创建的监听器
	Close() error
}

// Listener 监听器接口
type Listener interface {
	// Accept 阻塞直到有新的入站通道，监听器关闭后返回错误
	Accept() (Channel, error)

	// Addr 返回实际监听地址
	Addr() types.PeerAddress

	// Close 关闭监听器
	Close() error
}

// Channel 双向字节通道
type Channel interface {
	io.ReadWriteCloser

	// LocalAddr 本端地址
	LocalAddr() types.PeerAddress

	// RemoteAddr 对端地址
	RemoteAddr() types.PeerAddress

	// SetDeadline 设置读写截止时间，零值表示不超时
	SetDeadline(t time.Time) error
}
