package types

import "time"

// NodeRecord 已知节点记录
type NodeRecord struct {
	// PubKey 节点公钥
	PubKey string `json:"pub_key"`

	// Addresses 曾成功连接的地址，最近的在前
	Addresses []PeerAddress `json:"addresses,omitempty"`

	// LastConnected 最近一次握手完成时间
	LastConnected time.Time `json:"last_connected,omitempty"`

	// LastDisconnectReason 最近一次断开原因
	LastDisconnectReason DisconnectReason `json:"last_disconnect_reason,omitempty"`

	// Banned 是否被封禁
	Banned bool `json:"banned,omitempty"`
}

// LatestURI 返回最近地址对应的 URI，没有地址时 ok 为 false
func (r NodeRecord) LatestURI() (PeerURI, bool) {
	if len(r.Addresses) == 0 {
		return PeerURI{}, false
	}
	return PeerURI{NodePubKey: r.PubKey, Address: r.Addresses[0]}, true
}
