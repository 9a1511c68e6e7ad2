package peer

import (
	"math/rand/v2"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-overlay/internal/core/wire"
	"github.com/dep2p/go-overlay/pkg/types"
)

// Start 启动读循环与心跳，仅对 Connected 的 Peer 生效一次
func (p *Peer) Start() {
	p.mu.Lock()
	if p.state != types.StateConnected || p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	// ticker 在返回前创建，调用方推进 mock 时钟时不会错过
	if ticker := p.newKeepaliveTicker(); ticker != nil {
		go p.keepalive(ticker)
	}
	go p.readLoop()
}

func (p *Peer) readLoop() {
	for {
		pkt, err := p.reader.ReadFrame()
		if err != nil {
			if p.State() >= types.StateDisconnecting {
				return
			}
			reason, notify := classify(err)
			log.Debug("读取消息失败", "peer", shortKey(p.PubKey()), "reason", reason, "error", err)
			p.close(reason, notify, false)
			return
		}
		p.touch()

		if p.limiter != nil && !p.limiter.Allow() {
			log.Warn("消息速率超限", "peer", shortKey(p.PubKey()))
			p.close(types.MessageFlood, true, false)
			return
		}
		if !p.handle(pkt) {
			return
		}
	}
}

// handle 处理一条消息，返回 false 表示 Peer 已关闭
func (p *Peer) handle(pkt wire.Packet) bool {
	switch m := pkt.(type) {
	case *wire.NodeStateUpdate:
		p.mu.Lock()
		changed := p.nodeState.Merge(m.State)
		snapshot := p.nodeState.Clone()
		pubKey := p.remotePubKey
		p.mu.Unlock()

		p.stateTopic.Emit(NodeStateUpdated{PubKey: pubKey, State: snapshot, Changed: changed})

	case *wire.Disconnecting:
		p.close(m.Reason, false, true)
		return false

	case *wire.Ping:
		// 不在读循环中阻塞写，双方同时回复时不会互相等待
		go func(nonce uint64) {
			if err := p.Send(&wire.Pong{Nonce: nonce}); err != nil {
				log.Debug("回复心跳失败", "peer", shortKey(p.PubKey()), "error", err)
			}
		}(m.Nonce)

	case *wire.Pong:

	default:
		log.Debug("握手后收到意外消息", "peer", shortKey(p.PubKey()), "type", pkt.Type())
		p.close(types.WireProtocolErr, true, false)
		return false
	}
	return true
}

func (p *Peer) newKeepaliveTicker() *clock.Ticker {
	interval := p.cfg.PingInterval
	if interval <= 0 {
		interval = p.cfg.StallTimeout / 2
	}
	if interval <= 0 {
		return nil
	}
	return p.cfg.Clock.Ticker(interval)
}

// keepalive 定期发送 Ping，超过 StallTimeout 未收到任何消息时关闭
func (p *Peer) keepalive(ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}

		if p.cfg.StallTimeout > 0 && p.idle() >= p.cfg.StallTimeout {
			log.Debug("对端无响应", "peer", shortKey(p.PubKey()), "idle", p.idle())
			p.close(types.ResponseStalling, true, false)
			return
		}
		if p.cfg.PingInterval > 0 {
			if err := p.Send(&wire.Ping{Nonce: rand.Uint64()}); err != nil {
				log.Debug("发送心跳失败", "peer", shortKey(p.PubKey()), "error", err)
			}
		}
	}
}
