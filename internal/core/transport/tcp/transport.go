package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// Protocol 协议名称
const Protocol = "tcp"

// DefaultDialTimeout 默认拨号超时
const DefaultDialTimeout = 10 * time.Second

var _ interfaces.Transport = (*Transport)(nil)

// Transport TCP 传输
type Transport struct {
	dialer net.Dialer

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool
}

// New 创建 TCP 传输，dialTimeout <= 0 时使用 DefaultDialTimeout
func New(dialTimeout time.Duration) *Transport {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &Transport{
		dialer: net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		},
		listeners: make(map[*Listener]struct{}),
	}
}

// Dial 建立出站连接
func (t *Transport) Dial(ctx context.Context, addr types.PeerAddress) (interfaces.Channel, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTransportClosed
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return NewChannel(conn), nil
}

// Listen 在指定地址监听
func (t *Transport) Listen(addr types.PeerAddress) (interfaces.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	var lc net.ListenConfig
	l, err := lc.Listen(context.Background(), "tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	listener := &Listener{
		listener: l,
		addr:     types.AddressFromNetAddr(l.Addr()),
		onClose:  t.forget,
	}
	t.listeners[listener] = struct{}{}
	return listener, nil
}

func (t *Transport) forget(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// Protocol 返回协议名称
func (t *Transport) Protocol() string {
	return Protocol
}

// Close 关闭传输及其所有监听器，已建立的通道由持有者关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	listeners := make([]*Listener, 0, len(t.listeners))
	for l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.listeners = make(map[*Listener]struct{})
	t.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if err := l.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
