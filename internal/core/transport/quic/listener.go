package quic

import (
	"context"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// streamAcceptTimeout 新连接上等待首个流的时间
const streamAcceptTimeout = 10 * time.Second

var _ interfaces.Listener = (*Listener)(nil)

// Listener QUIC 监听器
//
// 后台 goroutine 接受连接并等待其首个流，就绪的通道经 Accept 交付。
type Listener struct {
	listener *quic.Listener
	addr     types.PeerAddress

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan *Channel
	wg     sync.WaitGroup

	closeOnce sync.Once
	onClose   func(*Listener)
}

func newListener(l *quic.Listener, addr types.PeerAddress, onClose func(*Listener)) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	ln := &Listener{
		listener: l,
		addr:     addr,
		ctx:      ctx,
		cancel:   cancel,
		ready:    make(chan *Channel),
		onClose:  onClose,
	}
	ln.wg.Add(1)
	go ln.acceptLoop()
	return ln
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.listener.Accept(l.ctx)
		if err != nil {
			return
		}
		l.wg.Add(1)
		go l.awaitStream(conn)
	}
}

func (l *Listener) awaitStream(conn quic.Connection) {
	defer l.wg.Done()

	ctx, cancel := context.WithTimeout(l.ctx, streamAcceptTimeout)
	defer cancel()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(errCodeClosed, "no stream")
		return
	}

	ch := newChannel(conn, stream)
	select {
	case l.ready <- ch:
	case <-l.ctx.Done():
		_ = ch.Close()
	}
}

// Accept 返回下一个就绪的入站通道
func (l *Listener) Accept() (interfaces.Channel, error) {
	select {
	case ch := <-l.ready:
		return ch, nil
	case <-l.ctx.Done():
		return nil, ErrListenerClosed
	}
}

// Addr 实际监听地址
func (l *Listener) Addr() types.PeerAddress {
	return l.addr
}

// Close 关闭监听器并等待后台 goroutine 退出
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.cancel()
		err = l.listener.Close()
		l.wg.Wait()
		if l.onClose != nil {
			l.onClose(l)
		}
	})
	return err
}
