// Package addrutil 提供地址分类与可分享地址推导
package addrutil

import (
	"net"
	"sort"

	"github.com/dep2p/go-overlay/pkg/types"
)

// ============================================================================
//                              IP 类型判断工具
// ============================================================================

// 地址类型
const (
	TypeLoopback    = "loopback"
	TypePrivate     = "private"
	TypePublic      = "public"
	TypeUnspecified = "unspecified"
	TypeDNS         = "dns"
)

// IsLoopback 判断主机是否是回环地址
//
// 支持格式：
//   - 127.x.x.x
//   - ::1
//   - localhost
func IsLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// IsPrivate 判断主机是否是私网地址
//
// 私网地址范围：
//   - 10.0.0.0/8
//   - 172.16.0.0/12
//   - 192.168.0.0/16
//   - fc00::/7 (IPv6 ULA)
//   - fe80::/10 (IPv6 链路本地)
func IsPrivate(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// IsPublic 判断主机是否是公网地址
func IsPublic(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsGlobalUnicast() && !ip.IsPrivate() && !ip.IsLoopback()
}

// IsUnspecified 判断主机是否是 0.0.0.0 或 ::
func IsUnspecified(host string) bool {
	if host == "" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}

// AddrType 返回主机的地址类型，不是 IP 的主机名按 dns 处理
func AddrType(host string) string {
	switch {
	case IsUnspecified(host):
		return TypeUnspecified
	case IsLoopback(host):
		return TypeLoopback
	case IsPrivate(host):
		return TypePrivate
	case IsPublic(host):
		return TypePublic
	case net.ParseIP(host) == nil:
		return TypeDNS
	}
	return TypeUnspecified
}

// ============================================================================
//                              可分享地址
// ============================================================================

// Shareable 推导对外可分享的地址
//
// 监听在具体地址时原样返回；监听在 0.0.0.0 / :: 时展开为本机接口地址，
// 按 公网 > 私网 > 回环 排序。IPv4 监听只展开 IPv4 地址。
func Shareable(listen types.PeerAddress, ifaceAddrs []net.Addr) []types.PeerAddress {
	if listen.IsZero() {
		return nil
	}
	if !IsUnspecified(listen.Host) {
		return []types.PeerAddress{listen}
	}

	v4Only := listen.Host == "" || net.ParseIP(listen.Host).To4() != nil
	var out []types.PeerAddress
	for _, a := range ifaceAddrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if ip.IsUnspecified() || ip.IsMulticast() || ip.IsLinkLocalUnicast() {
			continue
		}
		if v4Only && ip.To4() == nil {
			continue
		}
		out = append(out, types.PeerAddress{Host: ip.String(), Port: listen.Port})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Host) < rank(out[j].Host)
	})
	return out
}

// InterfaceShareable 使用本机网络接口调用 Shareable
func InterfaceShareable(listen types.PeerAddress) ([]types.PeerAddress, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	return Shareable(listen, addrs), nil
}

func rank(host string) int {
	switch AddrType(host) {
	case TypePublic:
		return 0
	case TypePrivate:
		return 1
	case TypeLoopback:
		return 2
	}
	return 3
}
