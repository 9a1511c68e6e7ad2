package tcp

import (
	"net"
	"time"

	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

var _ interfaces.Channel = (*Channel)(nil)

// Channel 基于 net.Conn 的字节通道
type Channel struct {
	conn net.Conn
}

// NewChannel 包装任意 net.Conn（测试中也用于 net.Pipe）
func NewChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// Read 实现 io.Reader
func (c *Channel) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// Write 实现 io.Writer
func (c *Channel) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

// Close 关闭底层连接
func (c *Channel) Close() error {
	return c.conn.Close()
}

// LocalAddr 本端地址
func (c *Channel) LocalAddr() types.PeerAddress {
	return types.AddressFromNetAddr(c.conn.LocalAddr())
}

// RemoteAddr 对端地址
func (c *Channel) RemoteAddr() types.PeerAddress {
	return types.AddressFromNetAddr(c.conn.RemoteAddr())
}

// SetDeadline 设置读写截止时间
func (c *Channel) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}
