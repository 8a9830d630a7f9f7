package vault

import (
	"strings"
	"testing"

	"github.com/railzwaylabs/shopfaq/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const shop = "demo.myshopify.com"

func TestSealOpen(t *testing.T) {
	v, err := NewAES("a-test-key")
	require.NoError(t, err)

	sealed, err := v.Seal("sk-secret-12345", shop)
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "sk-secret")

	plain, err := v.Open(sealed, shop)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-12345", plain)
}

func TestSeal_NonceIsRandom(t *testing.T) {
	v, err := NewAES("a-test-key")
	require.NoError(t, err)

	a, err := v.Seal("same", shop)
	require.NoError(t, err)
	b, err := v.Seal("same", shop)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_Rejects(t *testing.T) {
	v, err := NewAES("key-one")
	require.NoError(t, err)
	other, err := NewAES("key-two")
	require.NoError(t, err)

	sealed, err := v.Seal("secret", shop)
	require.NoError(t, err)

	tests := []struct {
		name  string
		vault *AESVault
		value string
		scope string
		want  error
	}{
		{name: "wrong key", vault: other, value: sealed, scope: shop, want: ErrDecryption},
		{name: "other shop", vault: v, value: sealed, scope: "other.myshopify.com", want: ErrDecryption},
		{name: "legacy plaintext", vault: v, value: "sk-plaintext-legacy", scope: shop, want: ErrInvalidPayload},
		{name: "bad base64", vault: v, value: "v1.***", scope: shop, want: ErrInvalidPayload},
		{name: "truncated", vault: v, value: sealed[:8], scope: shop, want: ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.vault.Open(tt.value, tt.scope)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsSealed(t *testing.T) {
	assert.False(t, IsSealed("sk-abc"))
	assert.False(t, IsSealed(""))
	assert.True(t, IsSealed("v1."+strings.Repeat("A", 40)))
}

func TestNew_KeyRequirements(t *testing.T) {
	_, err := NewAES("  ")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = New(config.Config{App: config.AppConfig{Env: "production"}}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidKey)

	v, err := New(config.Config{App: config.AppConfig{Env: "development"}}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, v)
}
