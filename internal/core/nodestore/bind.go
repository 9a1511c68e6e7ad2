package nodestore

import (
	"context"
	"time"

	"github.com/dep2p/go-overlay/internal/core/pool"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

const writeTimeout = 5 * time.Second

// Bind 订阅连接池事件并写回存储，返回取消订阅函数
//
// 入站连接的来源端口是临时端口，只刷新 LastConnected，不记录地址。
func Bind(p *pool.Pool, s interfaces.NodeStore) (unbind func()) {
	cancelConnected := p.OnPeerConnected(func(ev pool.PeerConnected) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		addr := ev.Summary.Address
		if ev.Summary.Inbound {
			addr = types.PeerAddress{}
		}
		if err := s.Upsert(ctx, ev.Summary.NodePubKey, addr); err != nil {
			log.Warn("记录连接失败", "peer", ev.Summary.NodePubKey, "error", err)
		}
	})
	cancelDisconnected := p.OnPeerDisconnected(func(ev pool.PeerDisconnected) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.RecordDisconnect(ctx, ev.PubKey, ev.Reason); err != nil {
			log.Warn("记录断开失败", "peer", ev.PubKey, "error", err)
		}
	})

	return func() {
		cancelConnected()
		cancelDisconnected()
	}
}
