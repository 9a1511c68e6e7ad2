package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// PeerAddress 节点的网络地址
type PeerAddress struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// String 返回 host:port，IPv6 主机带方括号
func (a PeerAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// IsZero 地址是否为空
func (a PeerAddress) IsZero() bool {
	return a.Host == "" && a.Port == 0
}

// ParsePeerAddress 解析 host:port
func ParsePeerAddress(s string) (PeerAddress, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return PeerAddress{}, fmt.Errorf("%w: %q: %v", ErrMalformedURI, s, err)
	}
	if host == "" {
		return PeerAddress{}, fmt.Errorf("%w: %q: missing host", ErrMalformedURI, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return PeerAddress{}, fmt.Errorf("%w: %q: invalid port %q", ErrMalformedURI, s, portStr)
	}
	return PeerAddress{Host: host, Port: port}, nil
}

// PeerURI 连接目标：<nodePubKey>@<host>:<port>
//
// NodePubKey 只要求非空，不做格式校验；格式错误的公钥在握手校验时被拒绝。
type PeerURI struct {
	NodePubKey string      `json:"node_pub_key"`
	Address    PeerAddress `json:"address"`
}

// NewPeerURI 创建 PeerURI
func NewPeerURI(nodePubKey, host string, port int) PeerURI {
	return PeerURI{NodePubKey: nodePubKey, Address: PeerAddress{Host: host, Port: port}}
}

// ParsePeerURI 解析 <nodePubKey>@<host>:<port>
func ParsePeerURI(text string) (PeerURI, error) {
	pubKey, addr, ok := strings.Cut(strings.TrimSpace(text), "@")
	if !ok {
		return PeerURI{}, fmt.Errorf("%w: %q: missing '@'", ErrMalformedURI, text)
	}
	if pubKey == "" {
		return PeerURI{}, fmt.Errorf("%w: %q: empty node pub key", ErrMalformedURI, text)
	}
	address, err := ParsePeerAddress(addr)
	if err != nil {
		return PeerURI{}, err
	}
	return PeerURI{NodePubKey: pubKey, Address: address}, nil
}

// String 返回规范形式 <nodePubKey>@<host>:<port>
func (u PeerURI) String() string {
	return u.NodePubKey + "@" + u.Address.String()
}

// AddressFromNetAddr 从 net.Addr 转换，无法解析时 Host 为原始字符串、Port 为 0
func AddressFromNetAddr(addr net.Addr) PeerAddress {
	if addr == nil {
		return PeerAddress{}
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return PeerAddress{Host: a.IP.String(), Port: a.Port}
	case *net.UDPAddr:
		return PeerAddress{Host: a.IP.String(), Port: a.Port}
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return PeerAddress{Host: addr.String()}
	}
	port, _ := strconv.Atoi(portStr)
	return PeerAddress{Host: host, Port: port}
}
