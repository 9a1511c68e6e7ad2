package interfaces

import (
	"context"

	"github.com/dep2p/go-overlay/pkg/types"
)

// NodeStore 已知节点存储
//
// 连接池通过它判断封禁状态，并在启动时取得需要重连的节点。
// 实现必须并发安全。
type NodeStore interface {
	// Get 读取节点记录，不存在时返回 types.ErrNotFound
	Get(ctx context.Context, pubKey string) (types.NodeRecord, error)

	// List 列出所有节点记录（按公钥排序）
	List(ctx context.Context) ([]types.NodeRecord, error)

	// Upsert 记录一次成功连接
	Upsert(ctx context.Context, pubKey string, addr types.PeerAddress) error

	// RecordDisconnect 记录断开原因
	RecordDisconnect(ctx context.Context, pubKey string, reason types.DisconnectReason) error

	// SetBanned 设置封禁状态
	SetBanned(ctx context.Context, pubKey string, banned bool) error

	// IsBanned 是否被封禁，未知节点返回 false
	IsBanned(ctx context.Context, pubKey string) (bool, error)

	// Close 关闭存储
	Close() error
}
