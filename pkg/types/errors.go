package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              错误定义
// ============================================================================
//
// 下列消息文本是对外契约，调用方可能按文本匹配，不要修改。

var (
	// ErrSelfConnection 目标身份等于本节点身份
	ErrSelfConnection = errors.New("cannot attempt connection to self")

	// ErrAlreadyConnected 目标身份已有活跃连接
	ErrAlreadyConnected = errors.New("already connected")

	// ErrRetryRevoked 重试序列被新的同目标连接请求取代
	ErrRetryRevoked = errors.New("Connection retry attempts to peer were revoked")

	// ErrConnectFailed 传输层无法建立连接
	ErrConnectFailed = errors.New("could not connect to peer")

	// ErrAuthFailureInvalidTarget 对端身份与请求目标不符
	ErrAuthFailureInvalidTarget = errors.New("auth failure: invalid target")

	// ErrPeerDisconnected 对端在握手或运行中断开
	ErrPeerDisconnected = errors.New("peer disconnected")

	// ErrMalformedURI 地址字符串格式错误
	ErrMalformedURI = errors.New("malformed peer URI")

	// ErrNotFound 不存在该身份的连接
	ErrNotFound = errors.New("peer not found")

	// ErrNotConnected Peer 不处于 Connected 状态
	ErrNotConnected = errors.New("peer not connected")

	// ErrPoolClosed 连接池已关闭
	ErrPoolClosed = errors.New("connection pool closed")
)

// ConnectFailedError 传输层连接失败
type ConnectFailedError struct {
	Address PeerAddress
	Err     error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("could not connect to peer at %s", e.Address)
}

// Unwrap 返回底层传输错误
func (e *ConnectFailedError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrConnectFailed) 成立
func (e *ConnectFailedError) Is(target error) bool {
	return target == ErrConnectFailed
}

// DisconnectedError Peer 因某个原因被断开（握手失败或被对端拒绝）
type DisconnectedError struct {
	URI    PeerURI
	Reason DisconnectReason
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("Peer %s disconnected from us due to %s", e.URI, e.Reason)
}

// Is 匹配 ErrPeerDisconnected，以及与原因对应的哨兵错误
func (e *DisconnectedError) Is(target error) bool {
	switch target {
	case ErrPeerDisconnected:
		return true
	case ErrAuthFailureInvalidTarget:
		return e.Reason == AuthFailureInvalidTarget
	case ErrAlreadyConnected:
		return e.Reason == AlreadyConnected
	case ErrSelfConnection:
		return e.Reason == ConnectedToSelf
	}
	return false
}

// ReasonOf 提取错误链中的断开原因
func ReasonOf(err error) (DisconnectReason, bool) {
	var de *DisconnectedError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return ReasonNone, false
}
