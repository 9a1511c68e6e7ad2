package pool

import (
	"context"
	"time"

	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// acceptRetryDelay Accept 临时失败后的等待时间
const acceptRetryDelay = 100 * time.Millisecond

// Start 开始监听入站连接；配置了 ReconnectKnownPeers 时重连已知节点
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return types.ErrPoolClosed
	}
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	if p.listenCfg.Listen {
		addr := types.PeerAddress{Host: p.listenCfg.ListenHost, Port: p.listenCfg.ListenPort}
		l, err := p.transport.Listen(addr)
		if err != nil {
			return err
		}

		p.mu.Lock()
		p.listener = l
		p.mu.Unlock()

		p.wg.Add(1)
		go p.acceptLoop(l)
		log.Info("连接池开始监听", "addr", l.Addr(), "protocol", p.transport.Protocol())
	}

	if p.cfg.ReconnectKnownPeers && p.store != nil {
		p.reconnectKnown(ctx)
	}
	return nil
}

// reconnectKnown 对存储中未封禁的已知节点发起带重试的连接
func (p *Pool) reconnectKnown(ctx context.Context) {
	records, err := p.store.List(ctx)
	if err != nil {
		log.Warn("读取已知节点失败", "error", err)
		return
	}
	for _, rec := range records {
		if rec.Banned {
			continue
		}
		uri, ok := rec.LatestURI()
		if !ok {
			continue
		}
		if _, err := p.ConnectAsync(uri, true); err != nil {
			log.Debug("跳过已知节点", "peer", shortKey(rec.PubKey), "error", err)
			continue
		}
		log.Debug("重连已知节点", "target", uri)
	}
}

func (p *Pool) acceptLoop(l interfaces.Listener) {
	defer p.wg.Done()

	for {
		ch, err := l.Accept()
		if err != nil {
			if p.isClosed() {
				return
			}
			log.Warn("接受连接失败", "error", err)
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		pr, err := p.registerPending(types.DirInbound, types.PeerURI{})
		if err != nil {
			_ = ch.Close()
			return
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := pr.Handshake(p.ctx, ch); err != nil {
				log.Debug("入站握手失败", "remote", ch.RemoteAddr(), "error", err)
				return
			}
			if err := p.promote(pr); err != nil {
				return
			}
			pr.Start()
		}()
	}
}

// admit 入站准入检查
func (p *Pool) admit(pubKey string) types.DisconnectReason {
	if !p.cfg.AcceptInbound {
		return types.NotAcceptingConnections
	}

	p.mu.Lock()
	_, dup := p.peers[pubKey]
	inbound := 0
	for _, pr := range p.peers {
		if pr.Direction() == types.DirInbound {
			inbound++
		}
	}
	p.mu.Unlock()

	if dup {
		return types.AlreadyConnected
	}
	if p.cfg.MaxInbound > 0 && inbound >= p.cfg.MaxInbound {
		return types.NotAcceptingConnections
	}
	if p.store != nil {
		banned, err := p.store.IsBanned(p.ctx, pubKey)
		if err != nil {
			log.Warn("查询封禁状态失败", "peer", shortKey(pubKey), "error", err)
		} else if banned {
			return types.Banned
		}
	}
	return types.ReasonNone
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
