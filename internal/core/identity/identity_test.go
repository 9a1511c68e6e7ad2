package identity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-overlay/config"
)

func mustGenerate(t *testing.T) *Identity {
	t.Helper()
	id, err := Generate(context.Background())
	require.NoError(t, err)
	return id
}

// TestGenerate 测试生成身份
func TestGenerate(t *testing.T) {
	a := mustGenerate(t)
	b := mustGenerate(t)

	assert.Len(t, a.PubKey(), PubKeyHexLen)
	assert.Equal(t, strings.ToLower(a.PubKey()), a.PubKey())
	assert.NotEqual(t, a.PubKey(), b.PubKey())
	assert.NoError(t, ValidatePubKey(a.PubKey()))
	assert.Equal(t, a.PubKey(), a.String())

	t.Log("✅ Generate 测试通过")
}

// TestGenerate_Cancelled 测试取消的上下文
func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 生成可能先于取消完成，两种结果都合法
	id, err := Generate(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, id)
	} else {
		assert.NotNil(t, id)
	}
}

// TestSignVerify 测试签名与验证
func TestSignVerify(t *testing.T) {
	id := mustGenerate(t)
	other := mustGenerate(t)
	msg := []byte("hello overlay")

	sig := id.Sign(msg)
	require.NoError(t, Verify(id.PubKey(), msg, sig))

	assert.ErrorIs(t, Verify(id.PubKey(), []byte("tampered"), sig), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(other.PubKey(), msg, sig), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(id.PubKey(), msg, []byte{0x30, 0x01}), ErrInvalidSignature)
	assert.ErrorIs(t, Verify("not-a-key", msg, sig), ErrInvalidPubKey)
}

// TestValidatePubKey 测试公钥结构校验
func TestValidatePubKey(t *testing.T) {
	id := mustGenerate(t)

	cases := map[string]string{
		"empty":     "",
		"short":     id.PubKey()[:10],
		"non-hex":   strings.Repeat("zz", 33),
		"uppercase": strings.ToUpper(id.PubKey()),
		"off-curve": "02" + strings.Repeat("ff", 32),
		"bad-tag":   "05" + id.PubKey()[2:],
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePubKey(key), ErrInvalidPubKey)
		})
	}
}

// TestFromPrivateKeyBytes 测试从私钥字节恢复
func TestFromPrivateKeyBytes(t *testing.T) {
	id := mustGenerate(t)

	restored, err := FromPrivateKeyBytes(id.priv.Serialize())
	require.NoError(t, err)
	assert.Equal(t, id.PubKey(), restored.PubKey())

	_, err = FromPrivateKeyBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = FromPrivateKeyBytes(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

// TestKeyFile 测试密钥文件持久化
func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.key")

	_, err := LoadKeyFile(path)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	id, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id.PubKey(), again.PubKey())

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	_, _, err = LoadOrCreate(path)
	assert.ErrorIs(t, err, ErrInvalidPEM)
}

// TestModule 测试 fx 模块
func TestModule(t *testing.T) {
	t.Run("Ephemeral", func(t *testing.T) {
		var id *Identity
		app := fxtest.New(t,
			fx.Supply(config.NewConfig()),
			Module(),
			fx.Populate(&id),
		)
		app.RequireStart().RequireStop()
		require.NotNil(t, id)
	})

	t.Run("Preset", func(t *testing.T) {
		preset := mustGenerate(t)
		var id *Identity
		app := fxtest.New(t,
			fx.Supply(config.NewConfig()),
			fx.Supply(fx.Annotated{Name: "preset_identity", Target: preset}),
			Module(),
			fx.Populate(&id),
		)
		app.RequireStart().RequireStop()
		assert.Same(t, preset, id)
	})

	t.Run("KeyFile", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Identity.KeyFile = filepath.Join(t.TempDir(), "node.key")

		var first, second *Identity
		fxtest.New(t, fx.Supply(cfg), Module(), fx.Populate(&first)).RequireStart().RequireStop()
		fxtest.New(t, fx.Supply(cfg), Module(), fx.Populate(&second)).RequireStart().RequireStop()
		assert.Equal(t, first.PubKey(), second.PubKey())
	})
}
