package tcp

import (
	"net"

	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

var _ interfaces.Listener = (*Listener)(nil)

// Listener TCP 监听器
type Listener struct {
	listener net.Listener
	addr     types.PeerAddress
	onClose  func(*Listener)
}

// Accept 接受入站连接
func (l *Listener) Accept() (interfaces.Channel, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return NewChannel(conn), nil
}

// Addr 实际监听地址（端口为 0 时为系统分配的端口）
func (l *Listener) Addr() types.PeerAddress {
	return l.addr
}

// Close 关闭监听器
func (l *Listener) Close() error {
	if l.onClose != nil {
		l.onClose(l)
	}
	return l.listener.Close()
}
