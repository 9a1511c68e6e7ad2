package types

import "time"

// PeerSummary 已连接节点的摘要（listPeers 的返回项）
type PeerSummary struct {
	// NodePubKey 已验证的节点公钥
	NodePubKey string `json:"node_pub_key"`

	// Address 对端地址（出站为拨号地址，入站为来源地址）
	Address PeerAddress `json:"address"`

	// Inbound 是否为入站连接
	Inbound bool `json:"inbound"`

	// NodeState 对端最近一次发布的能力状态
	NodeState NodeState `json:"node_state"`

	// ConnectedAt 握手完成时间
	ConnectedAt time.Time `json:"connected_at"`
}

// URI 返回对端的 PeerURI
func (s PeerSummary) URI() PeerURI {
	return PeerURI{NodePubKey: s.NodePubKey, Address: s.Address}
}
