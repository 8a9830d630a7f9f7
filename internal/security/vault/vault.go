package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// sealedPrefix marks values written by Seal. Anything else is treated as
// legacy plaintext by callers.
const sealedPrefix = "v1."

var (
	ErrInvalidKey     = errors.New("vault: invalid encryption key")
	ErrInvalidPayload = errors.New("vault: invalid sealed value")
	ErrDecryption     = errors.New("vault: decryption failed")
)

// Provider seals short secrets such as merchant API keys for storage in a
// text column. The scope (the owning shop) is authenticated but not stored,
// so a value copied onto another shop's row will not open.
type Provider interface {
	Seal(plaintext, scope string) (string, error)
	Open(sealed, scope string) (string, error)
}

// AESVault implements Provider with AES-256-GCM.
type AESVault struct {
	aead cipher.AEAD
}

// NewAES derives a 256-bit key from keyStr, so any non-empty string works as
// ENCRYPTION_KEY.
func NewAES(keyStr string) (*AESVault, error) {
	if strings.TrimSpace(keyStr) == "" {
		return nil, ErrInvalidKey
	}
	sum := sha256.Sum256([]byte(keyStr))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESVault{aead: aead}, nil
}

// IsSealed reports whether value looks like output of Seal.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Seal returns "v1." followed by base64url(nonce || ciphertext).
func (v *AESVault) Seal(plaintext, scope string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := v.aead.Seal(nonce, nonce, []byte(plaintext), []byte(scope))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

func (v *AESVault) Open(sealed, scope string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrInvalidPayload
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", ErrInvalidPayload
	}

	n := v.aead.NonceSize()
	if len(raw) < n+v.aead.Overhead() {
		return "", ErrInvalidPayload
	}
	plain, err := v.aead.Open(nil, raw[:n], raw[n:], []byte(scope))
	if err != nil {
		return "", ErrDecryption
	}
	return string(plain), nil
}
