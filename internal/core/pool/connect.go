package pool

import (
	"context"
	"errors"

	"github.com/dep2p/go-overlay/internal/core/retry"
	"github.com/dep2p/go-overlay/pkg/types"
)

// isRetryable 只有传输层失败值得重试
func isRetryable(err error) bool {
	return errors.Is(err, types.ErrConnectFailed)
}

// TargetKey 返回重试条目的键：公钥，公钥为空时为 URI 原文
func TargetKey(uri types.PeerURI) string {
	if uri.NodePubKey != "" {
		return uri.NodePubKey
	}
	return uri.String()
}

// Connect 连接到 uri 并等待结果
//
// ctx 只约束等待；需要停止重试时使用 CancelConnect 或再次 Connect。
func (p *Pool) Connect(ctx context.Context, uri types.PeerURI, retrying bool) (types.PeerSummary, error) {
	f, err := p.ConnectAsync(uri, retrying)
	if err != nil {
		return types.PeerSummary{}, err
	}
	return f.Wait(ctx)
}

// ConnectAsync 发起连接，返回可等待的 Future
//
// 自连接、重复连接与连接池已关闭在任何 I/O 之前同步返回错误。
// 同一目标已有进行中的尝试时，旧尝试以 types.ErrRetryRevoked 结束。
func (p *Pool) ConnectAsync(uri types.PeerURI, retrying bool) (*retry.Future[types.PeerSummary], error) {
	if uri.NodePubKey == p.id.PubKey() {
		return nil, types.ErrSelfConnection
	}

	p.mu.Lock()
	closed := p.closed
	_, connected := p.peers[uri.NodePubKey]
	p.mu.Unlock()

	if closed {
		return nil, types.ErrPoolClosed
	}
	if connected {
		return nil, types.ErrAlreadyConnected
	}

	log.Debug("发起连接", "target", uri, "retry", retrying)
	return p.retry.Schedule(TargetKey(uri), func(ctx context.Context, attempt int) (types.PeerSummary, error) {
		summary, err := p.attempt(ctx, uri)
		p.attemptTopic.Emit(ConnectAttempt{Target: uri, Attempt: attempt, Err: err})
		return summary, err
	}, retrying), nil
}

// CancelConnect 撤销到 uri 的进行中尝试，返回是否撤销
//
// 已握手完成正在登记的尝试不再撤销，返回 false。
func (p *Pool) CancelConnect(uri types.PeerURI) bool {
	return p.retry.Revoke(TargetKey(uri))
}

// attempt 执行一次出站连接：拨号、握手、登记
func (p *Pool) attempt(ctx context.Context, uri types.PeerURI) (types.PeerSummary, error) {
	if _, ok := p.Peer(uri.NodePubKey); ok {
		return types.PeerSummary{}, types.ErrAlreadyConnected
	}

	pr, err := p.registerPending(types.DirOutbound, uri)
	if err != nil {
		return types.PeerSummary{}, err
	}

	ch, err := p.transport.Dial(ctx, uri.Address)
	if err != nil {
		pr.Close(types.TransportError)
		log.Debug("拨号失败", "addr", uri.Address, "error", err)
		return types.PeerSummary{}, &types.ConnectFailedError{Address: uri.Address, Err: err}
	}

	if err := pr.Handshake(ctx, ch); err != nil {
		return types.PeerSummary{}, err
	}
	// 握手后被撤销的连接不得登记
	if !retry.Claim(ctx) {
		pr.Close(types.Shutdown)
		return types.PeerSummary{}, types.ErrRetryRevoked
	}
	if err := p.promote(pr); err != nil {
		return types.PeerSummary{}, err
	}
	pr.Start()
	return pr.Summary(), nil
}
