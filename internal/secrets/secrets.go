// Package secrets encrypts custodian API credentials at rest using fernet
// symmetric tokens. The key comes from configuration and never touches the
// database.
package secrets

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrNoKey indicates encryption was attempted without a configured key.
var ErrNoKey = errors.New("encryption key not configured")

// ErrDecryptFailed indicates the stored token could not be decrypted, usually
// because the key changed since the credential was saved.
var ErrDecryptFailed = errors.New("failed to decrypt credential")

// Box wraps a fernet key for encrypting and decrypting short secrets.
type Box struct {
	key *fernet.Key
}

// NewBox parses a base64-encoded fernet key. An empty key yields a Box whose
// operations fail with ErrNoKey, so callers without secrets configured still
// get a usable (if inert) instance.
func NewBox(encodedKey string) (*Box, error) {
	if encodedKey == "" {
		return &Box{}, nil
	}

	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}

	return &Box{key: key}, nil
}

// GenerateKey creates a fresh base64-encoded fernet key.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key.Encode(), nil
}

// Encrypt seals a plaintext secret into a fernet token.
func (b *Box) Encrypt(plaintext string) (string, error) {
	if b.key == nil {
		return "", ErrNoKey
	}

	token, err := fernet.EncryptAndSign([]byte(plaintext), b.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credential: %w", err)
	}

	return string(token), nil
}

// Decrypt opens a fernet token. Tokens do not expire; a credential stays valid
// until replaced.
func (b *Box) Decrypt(token string) (string, error) {
	if b.key == nil {
		return "", ErrNoKey
	}

	plaintext := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{b.key})
	if plaintext == nil {
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}
