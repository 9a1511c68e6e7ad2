package quic

import (
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// closeLinger 关闭流后等待对端读完再关闭连接的最长时间
const closeLinger = time.Second

// errCodeClosed 正常关闭的应用错误码
const errCodeClosed quic.ApplicationErrorCode = 0

var _ interfaces.Channel = (*Channel)(nil)

// Channel QUIC 连接上的单个双向流
type Channel struct {
	conn   quic.Connection
	stream quic.Stream

	closeOnce sync.Once
}

func newChannel(conn quic.Connection, stream quic.Stream) *Channel {
	return &Channel{conn: conn, stream: stream}
}

// Read 实现 io.Reader
func (c *Channel) Read(p []byte) (int, error) {
	return c.stream.Read(p)
}

// Write 实现 io.Writer
func (c *Channel) Write(p []byte) (int, error) {
	return c.stream.Write(p)
}

// Close 关闭写方向，等待对端关闭或超时后关闭整个连接
//
// 已写入的数据（例如 Disconnecting 消息）在连接关闭前有机会送达。
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.stream.Close()
		c.stream.CancelRead(quic.StreamErrorCode(errCodeClosed))
		go func() {
			select {
			case <-c.conn.Context().Done():
			case <-time.After(closeLinger):
			}
			_ = c.conn.CloseWithError(errCodeClosed, "closed")
		}()
	})
	return err
}

// LocalAddr 本端地址
func (c *Channel) LocalAddr() types.PeerAddress {
	return types.AddressFromNetAddr(c.conn.LocalAddr())
}

// RemoteAddr 对端地址
func (c *Channel) RemoteAddr() types.PeerAddress {
	return types.AddressFromNetAddr(c.conn.RemoteAddr())
}

// SetDeadline 设置流的读写截止时间
func (c *Channel) SetDeadline(t time.Time) error {
	return c.stream.SetDeadline(t)
}
