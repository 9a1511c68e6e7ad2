package nodestore

import "errors"

var (
	// ErrClosed 存储已关闭
	ErrClosed = errors.New("nodestore: closed")

	// ErrEmptyPubKey 公钥为空
	ErrEmptyPubKey = errors.New("nodestore: empty public key")

	// ErrDisabled 配置未启用存储
	ErrDisabled = errors.New("nodestore: storage disabled")
)
