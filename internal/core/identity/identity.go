// Package identity 管理本节点的 secp256k1 密钥对
//
// 对外标识 nodePubKey 为压缩公钥的小写 hex（66 个字符）。
// 签名为 blake3-256 摘要上的 DER 编码 ECDSA 签名。
package identity

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"lukechampine.com/blake3"
)

// PubKeyHexLen 压缩公钥 hex 长度
const PubKeyHexLen = 2 * secp256k1.PubKeyBytesLenCompressed

// Identity 本节点身份
//
// 公钥在创建后不可变，私钥不会被序列化输出（SaveKeyFile 除外）。
type Identity struct {
	priv   *secp256k1.PrivateKey
	pubHex string
}

// Generate 生成新的身份
//
// 密钥生成在独立 goroutine 中进行，调用方阻塞直到完成或 ctx 取消。
func Generate(ctx context.Context) (*Identity, error) {
	type result struct {
		priv *secp256k1.PrivateKey
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		priv, err := secp256k1.GeneratePrivateKey()
		ch <- result{priv, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("generate key: %w", r.err)
		}
		return newIdentity(r.priv), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FromPrivateKeyBytes 从 32 字节私钥标量恢复身份
func FromPrivateKeyBytes(b []byte) (*Identity, error) {
	if len(b) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidPrivateKey, secp256k1.PrivKeyBytesLen, len(b))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidPrivateKey)
	}
	return newIdentity(secp256k1.NewPrivateKey(&scalar)), nil
}

func newIdentity(priv *secp256k1.PrivateKey) *Identity {
	return &Identity{
		priv:   priv,
		pubHex: hex.EncodeToString(priv.PubKey().SerializeCompressed()),
	}
}

// PrivateKeyBytes 返回 32 字节私钥标量
func (i *Identity) PrivateKeyBytes() []byte {
	return i.priv.Serialize()
}

// PubKey 返回 nodePubKey
func (i *Identity) PubKey() string {
	return i.pubHex
}

// String 实现 fmt.Stringer，只输出公钥
func (i *Identity) String() string {
	return i.pubHex
}

// Sign 对消息签名
func (i *Identity) Sign(msg []byte) []byte {
	digest := blake3.Sum256(msg)
	return ecdsa.Sign(i.priv, digest[:]).Serialize()
}

// Verify 使用 pubHex 校验 msg 上的签名
func Verify(pubHex string, msg, sig []byte) error {
	pub, err := ParsePubKey(pubHex)
	if err != nil {
		return err
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	digest := blake3.Sum256(msg)
	if !parsed.Verify(digest[:], pub) {
		return ErrInvalidSignature
	}
	return nil
}

// ParsePubKey 解析 hex 编码的压缩公钥
func ParsePubKey(pubHex string) (*secp256k1.PublicKey, error) {
	if len(pubHex) != PubKeyHexLen {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPubKey, len(pubHex))
	}
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	// 只接受规范的小写压缩形式，保证身份比较按字节进行
	if hex.EncodeToString(pub.SerializeCompressed()) != pubHex {
		return nil, fmt.Errorf("%w: not canonical", ErrInvalidPubKey)
	}
	return pub, nil
}

// ValidatePubKey 结构性校验 nodePubKey
func ValidatePubKey(pubHex string) error {
	_, err := ParsePubKey(pubHex)
	return err
}
