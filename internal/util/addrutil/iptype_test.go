package addrutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-overlay/pkg/types"
)

// TestAddrType 测试地址分类
func TestAddrType(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"127.0.0.1", TypeLoopback},
		{"::1", TypeLoopback},
		{"localhost", TypeLoopback},
		{"10.1.2.3", TypePrivate},
		{"192.168.1.1", TypePrivate},
		{"fe80::1", TypePrivate},
		{"8.8.8.8", TypePublic},
		{"2001:4860::8888", TypePublic},
		{"0.0.0.0", TypeUnspecified},
		{"::", TypeUnspecified},
		{"", TypeUnspecified},
		{"node.example.com", TypeDNS},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, AddrType(tt.host))
		})
	}
}

func ipNet(s string) net.Addr {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

// TestShareable 测试可分享地址推导
func TestShareable(t *testing.T) {
	ifaces := []net.Addr{
		ipNet("127.0.0.1"),
		ipNet("192.168.1.10"),
		ipNet("203.0.113.7"),
		ipNet("fe80::1"),
		&net.IPNet{IP: net.ParseIP("2001:db8::1"), Mask: net.CIDRMask(64, 128)},
	}

	// 具体地址原样返回
	specific := types.PeerAddress{Host: "10.0.0.1", Port: 8885}
	assert.Equal(t, []types.PeerAddress{specific}, Shareable(specific, ifaces))

	// IPv4 通配只展开 IPv4，公网在前
	got := Shareable(types.PeerAddress{Host: "0.0.0.0", Port: 8885}, ifaces)
	assert.Equal(t, []types.PeerAddress{
		{Host: "203.0.113.7", Port: 8885},
		{Host: "192.168.1.10", Port: 8885},
		{Host: "127.0.0.1", Port: 8885},
	}, got)

	// IPv6 通配包含 IPv6，跳过链路本地
	got = Shareable(types.PeerAddress{Host: "::", Port: 1}, ifaces)
	assert.Contains(t, got, types.PeerAddress{Host: "2001:db8::1", Port: 1})
	assert.NotContains(t, got, types.PeerAddress{Host: "fe80::1", Port: 1})

	assert.Nil(t, Shareable(types.PeerAddress{}, ifaces))
}
