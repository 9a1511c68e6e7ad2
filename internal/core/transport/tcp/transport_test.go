package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/pkg/types"
)

var loopback = types.PeerAddress{Host: "127.0.0.1", Port: 0}

// TestTransport_DialListen 测试监听与拨号
func TestTransport_DialListen(t *testing.T) {
	tr := New(time.Second)
	defer tr.Close()
	assert.Equal(t, Protocol, tr.Protocol())

	l, err := tr.Listen(loopback)
	require.NoError(t, err)
	defer l.Close()
	require.NotZero(t, l.Addr().Port)

	accepted := make(chan error, 1)
	go func() {
		ch, err := l.Accept()
		if err != nil {
			accepted <- err
			return
		}
		defer ch.Close()
		buf := make([]byte, 5)
		if _, err := io.ReadFull(ch, buf); err != nil {
			accepted <- err
			return
		}
		_, err = ch.Write(buf)
		accepted <- err
	}()

	ch, err := tr.Dial(context.Background(), l.Addr())
	require.NoError(t, err)
	defer ch.Close()

	assert.Equal(t, l.Addr(), ch.RemoteAddr())
	assert.Equal(t, "127.0.0.1", ch.LocalAddr().Host)

	_, err = ch.Write([]byte("hello"))
	require.NoError(t, err)

	require.NoError(t, ch.SetDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 5)
	_, err = io.ReadFull(ch, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	require.NoError(t, <-accepted)

	t.Log("✅ TCP 拨号/监听测试通过")
}

// TestTransport_DialRefused 测试拨号到未监听端口
func TestTransport_DialRefused(t *testing.T) {
	tr := New(time.Second)
	defer tr.Close()

	// 占用端口后立即释放，得到一个当前未监听的端口
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := types.AddressFromNetAddr(l.Addr())
	require.NoError(t, l.Close())

	_, err = tr.Dial(context.Background(), addr)
	assert.Error(t, err)
}

// TestTransport_Close 测试关闭传输
func TestTransport_Close(t *testing.T) {
	tr := New(0)
	l, err := tr.Listen(loopback)
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = l.Accept()
	assert.True(t, errors.Is(err, net.ErrClosed))

	_, err = tr.Dial(context.Background(), l.Addr())
	assert.ErrorIs(t, err, ErrTransportClosed)

	_, err = tr.Listen(loopback)
	assert.ErrorIs(t, err, ErrTransportClosed)
}

// TestChannel_Pipe 测试包装 net.Pipe
func TestChannel_Pipe(t *testing.T) {
	a, b := net.Pipe()
	ca, cb := NewChannel(a), NewChannel(b)
	defer ca.Close()
	defer cb.Close()

	go func() { _, _ = ca.Write([]byte("x")) }()
	buf := make([]byte, 1)
	_, err := cb.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "x", string(buf))

	// pipe 地址无法解析为 host:port
	assert.Equal(t, "pipe", ca.RemoteAddr().Host)
}
