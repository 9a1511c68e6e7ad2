package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("transport.quic")

// Protocol 协议名称
const Protocol = "quic"

// DefaultDialTimeout 默认拨号超时
const DefaultDialTimeout = 10 * time.Second

var _ interfaces.Transport = (*Transport)(nil)

// Transport QUIC 传输
//
// 监听与拨号共享同一个 UDP socket：首次 Listen 时创建，
// 未监听就拨号时创建随机端口的 socket。
type Transport struct {
	mu sync.Mutex

	serverTLS   *tls.Config
	clientTLS   *tls.Config
	config      *quic.Config
	dialTimeout time.Duration

	udpConn       *net.UDPConn
	quicTransport *quic.Transport

	listeners map[*Listener]struct{}
	closed    bool
}

// New 创建 QUIC 传输，dialTimeout <= 0 时使用 DefaultDialTimeout
func New(dialTimeout time.Duration) (*Transport, error) {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	server, client, err := newTLSConfigs()
	if err != nil {
		return nil, err
	}
	return &Transport{
		serverTLS:   server,
		clientTLS:   client,
		dialTimeout: dialTimeout,
		config: &quic.Config{
			HandshakeIdleTimeout: dialTimeout,
			MaxIdleTimeout:       30 * time.Second,
			KeepAlivePeriod:      10 * time.Second,
			MaxIncomingStreams:   1,
		},
		listeners: make(map[*Listener]struct{}),
	}, nil
}

// ensureSocket 在持锁状态下创建共享 socket
func (t *Transport) ensureSocket(laddr *net.UDPAddr) error {
	if t.udpConn != nil {
		return nil
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}
	t.udpConn = conn
	t.quicTransport = &quic.Transport{Conn: conn}
	return nil
}

// Dial 拨号并打开一个双向流
func (t *Transport) Dial(ctx context.Context, addr types.PeerAddress) (interfaces.Channel, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	if err := t.ensureSocket(&net.UDPAddr{}); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	qt := t.quicTransport
	t.mu.Unlock()

	raddr, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.dialTimeout)
	defer cancel()

	conn, err := qt.Dial(ctx, raddr, t.clientTLS, t.config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(errCodeClosed, "open stream failed")
		return nil, fmt.Errorf("open stream to %s: %w", addr, err)
	}
	return newChannel(conn, stream), nil
}

// Listen 在指定地址监听
//
// 共享 socket 已存在（例如先拨号）时沿用其地址。
func (t *Transport) Listen(addr types.PeerAddress) (interfaces.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	laddr, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if err := t.ensureSocket(laddr); err != nil {
		return nil, err
	}

	ql, err := t.quicTransport.Listen(t.serverTLS, t.config)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	l := newListener(ql, types.AddressFromNetAddr(t.udpConn.LocalAddr()), t.forget)
	t.listeners[l] = struct{}{}
	log.Debug("QUIC 开始监听", "addr", l.Addr())
	return l, nil
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

// Close 关闭所有监听器和共享 socket
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
	qt, udp := t.quicTransport, t.udpConn
	t.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if err := l.Close(); err != nil && !errors.Is(err, quic.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if qt != nil {
		if err := qt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if udp != nil {
		if err := udp.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
