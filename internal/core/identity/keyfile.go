package identity

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const pemTypeSecp256k1Private = "SECP256K1 PRIVATE KEY"

// SaveKeyFile 将私钥保存为 PEM 文件
//
// 临时文件 + rename 原子写入，权限 0600。
func (i *Identity) SaveKeyFile(path string) error {
	block := &pem.Block{
		Type:  pemTypeSecp256k1Private,
		Bytes: i.priv.Serialize(),
	}
	return atomicWriteFile(path, pem.EncodeToMemory(block), 0o600)
}

// LoadKeyFile 从 PEM 文件加载身份
func LoadKeyFile(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeSecp256k1Private {
		return nil, ErrInvalidPEM
	}
	return FromPrivateKeyBytes(block.Bytes)
}

// LoadOrCreate 加载密钥文件，不存在时生成并保存
//
// 返回的 created 表示是否新生成。
func LoadOrCreate(path string) (id *Identity, created bool, err error) {
	id, err = LoadKeyFile(path)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, false, fmt.Errorf("load key file %s: %w", path, err)
	}

	id, err = Generate(context.Background())
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, false, fmt.Errorf("create key dir: %w", err)
	}
	if err := id.SaveKeyFile(path); err != nil {
		return nil, false, err
	}
	return id, true, nil
}

// atomicWriteFile 原子写文件，失败时不留下半写的目标文件
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-key-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename key file: %w", err)
	}
	ok = true
	return nil
}
