package identity

import "errors"

var (
	// ErrInvalidPubKey 公钥格式错误（非 hex、长度不对或不在曲线上）
	ErrInvalidPubKey = errors.New("invalid node public key")

	// ErrInvalidPrivateKey 私钥字节无效
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidSignature 签名无法解析或校验失败
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPEM 无效的 PEM 数据
	ErrInvalidPEM = errors.New("invalid PEM data")

	// ErrKeyNotFound 密钥文件不存在
	ErrKeyNotFound = errors.New("key not found")
)
