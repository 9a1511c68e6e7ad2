package peer

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dep2p/go-overlay/internal/core/identity"
	"github.com/dep2p/go-overlay/internal/core/wire"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// nonceSize 握手 nonce 长度
const nonceSize = 16

// failure 握手失败的原因
type failure struct {
	reason types.DisconnectReason
	notify bool
	remote bool
	err    error
}

func (f *failure) Error() string {
	if f.err != nil {
		return fmt.Sprintf("%s: %v", f.reason, f.err)
	}
	return f.reason.String()
}

func reject(reason types.DisconnectReason) *failure {
	return &failure{reason: reason, notify: true}
}

// Handshake 在 ch 上完成身份握手
//
// 成功时 Peer 进入 Connected 并发出 HandshakeComplete，读循环需由调用方
// 通过 Start 启动。失败时 Peer 已被关闭，返回 *types.DisconnectedError。
// ctx 取消时以 Shutdown 关闭。
func (p *Peer) Handshake(ctx context.Context, ch interfaces.Channel) error {
	p.mu.Lock()
	if p.state != types.StateConnecting {
		state := p.state
		p.mu.Unlock()
		_ = ch.Close()
		if state >= types.StateDisconnecting {
			<-p.done
			return p.closedError()
		}
		return ErrHandshakeStarted
	}
	p.ch = ch
	p.reader = wire.NewReader(ch, p.cfg.MaxMessageSize)
	if p.dir == types.DirInbound {
		p.addr = ch.RemoteAddr()
	}
	p.state = types.StateHandshaking
	p.mu.Unlock()

	log.Debug("开始握手", "dir", p.dir, "addr", p.Address(), "target", shortKey(p.target.NodePubKey))

	var (
		remote *wire.Hello
		f      *failure
	)
	if err := ch.SetDeadline(time.Now().Add(p.cfg.HandshakeTimeout)); err != nil {
		f = &failure{reason: types.TransportError, err: err}
	} else {
		stop := context.AfterFunc(ctx, func() {
			_ = ch.SetDeadline(time.Unix(1, 0))
		})
		if p.dir == types.DirOutbound {
			remote, f = p.exchangeOutbound()
		} else {
			remote, f = p.exchangeInbound()
		}
		stop()
		if f == nil {
			if err := ch.SetDeadline(time.Time{}); err != nil {
				f = &failure{reason: types.TransportError, err: err}
			}
		}
	}
	if f != nil && ctx.Err() != nil && !f.remote {
		f = &failure{reason: types.Shutdown, notify: true, err: ctx.Err()}
	}
	if f != nil {
		log.Debug("握手失败",
			"dir", p.dir,
			"addr", p.Address(),
			"reason", f.reason,
			"error", f.err)
		p.close(f.reason, f.notify, f.remote)
		<-p.done
		return p.closedError()
	}

	p.mu.Lock()
	if p.state != types.StateHandshaking {
		p.mu.Unlock()
		<-p.done
		return p.closedError()
	}
	p.state = types.StateConnected
	p.remotePubKey = remote.PubKey
	p.nodeState = remote.State.Clone()
	p.connectedAt = time.Now()
	p.mu.Unlock()
	p.touch()

	log.Debug("握手完成", "peer", shortKey(remote.PubKey), "dir", p.dir, "addr", p.Address())

	p.handshakeTopic.Emit(HandshakeComplete{
		PubKey:  remote.PubKey,
		Address: p.Address(),
		Inbound: p.dir == types.DirInbound,
	})
	return nil
}

// exchangeOutbound 发起方：发送 Hello，校验对端回复
func (p *Peer) exchangeOutbound() (*wire.Hello, *failure) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, &failure{reason: types.TransportError, err: err}
	}
	if err := p.write(p.ch, p.newHello(p.target.NodePubKey, nonce, nil)); err != nil {
		return nil, ioFailure(err)
	}

	pkt, err := p.reader.ReadFrame()
	if err != nil {
		return nil, ioFailure(err)
	}
	switch m := pkt.(type) {
	case *wire.Disconnecting:
		return nil, &failure{reason: m.Reason, remote: true}
	case *wire.Hello:
		if f := checkVersion(m); f != nil {
			return nil, f
		}
		if m.PubKey != p.target.NodePubKey ||
			m.PubKey == p.cfg.Identity.PubKey() ||
			identity.ValidatePubKey(m.PubKey) != nil {
			return nil, reject(types.AuthFailureInvalidTarget)
		}
		if err := identity.Verify(m.PubKey, m.SigningBytes(), m.Signature); err != nil {
			return nil, &failure{reason: types.AuthFailureInvalidSignature, notify: true, err: err}
		}
		if !bytes.Equal(m.EchoNonce, nonce) {
			return nil, reject(types.AuthFailureInvalidSignature)
		}
		return m, nil
	default:
		return nil, reject(types.WireProtocolErr)
	}
}

// exchangeInbound 响应方：校验发起方 Hello，准入后回复
func (p *Peer) exchangeInbound() (*wire.Hello, *failure) {
	pkt, err := p.reader.ReadFrame()
	if err != nil {
		return nil, ioFailure(err)
	}
	m, ok := pkt.(*wire.Hello)
	if !ok {
		return nil, reject(types.WireProtocolErr)
	}
	if f := checkVersion(m); f != nil {
		return nil, f
	}
	if err := identity.Verify(m.PubKey, m.SigningBytes(), m.Signature); err != nil {
		return nil, &failure{reason: types.AuthFailureInvalidSignature, notify: true, err: err}
	}

	p.mu.Lock()
	p.remotePubKey = m.PubKey
	p.mu.Unlock()

	own := p.cfg.Identity.PubKey()
	if m.ExpectedPubKey != own {
		return nil, reject(types.AuthFailureInvalidTarget)
	}
	if m.PubKey == own {
		return nil, reject(types.ConnectedToSelf)
	}
	if p.cfg.Admit != nil {
		if reason := p.cfg.Admit(m.PubKey); reason != types.ReasonNone {
			return nil, reject(reason)
		}
	}

	if err := p.write(p.ch, p.newHello("", nil, m.Nonce)); err != nil {
		return nil, ioFailure(err)
	}
	return m, nil
}

func (p *Peer) newHello(expected string, nonce, echo []byte) *wire.Hello {
	h := &wire.Hello{
		Version:        wire.ProtocolVersion,
		PubKey:         p.cfg.Identity.PubKey(),
		ExpectedPubKey: expected,
		Nonce:          nonce,
		EchoNonce:      echo,
		State:          p.cfg.LocalState(),
	}
	h.Signature = p.cfg.Identity.Sign(h.SigningBytes())

	p.mu.Lock()
	p.advertised = h.State.Clone()
	p.mu.Unlock()
	return h
}

func checkVersion(h *wire.Hello) *failure {
	switch h.Version {
	case wire.ProtocolVersion:
		return nil
	case 0:
		return reject(types.MalformedVersion)
	default:
		return &failure{
			reason: types.IncompatibleProtocolVersion,
			notify: true,
			err:    fmt.Errorf("remote version %d, local %d", h.Version, wire.ProtocolVersion),
		}
	}
}

// ioFailure 把读写错误映射为断开原因
func ioFailure(err error) *failure {
	reason, notify := classify(err)
	return &failure{reason: reason, notify: notify, err: err}
}

// classify 协议错误 -> WireProtocolErr，超时 -> ResponseStalling，其余 -> TransportError
func classify(err error) (types.DisconnectReason, bool) {
	switch {
	case errors.Is(err, wire.ErrMessageTooLarge),
		errors.Is(err, wire.ErrMalformedPacket),
		errors.Is(err, wire.ErrUnknownPacket):
		return types.WireProtocolErr, true
	case isTimeout(err):
		return types.ResponseStalling, true
	default:
		return types.TransportError, false
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
