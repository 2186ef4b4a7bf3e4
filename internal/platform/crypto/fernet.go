package crypto

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrInvalidToken indicates a token that failed verification or decryption.
var ErrInvalidToken = errors.New("invalid fernet token")

// Cipher provides reversible string encryption for the mask mirror.
// Tokens are standard Fernet, so rows written by earlier deployments of the
// masking pipeline remain decryptable.
type Cipher struct {
	key *fernet.Key
}

// NewCipher builds a Cipher from a base64-encoded 32-byte Fernet key.
func NewCipher(encodedKey string) (*Cipher, error) {
	if encodedKey == "" {
		return nil, errors.New("fernet key is not configured")
	}
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode fernet key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt returns the Fernet token for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", fmt.Errorf("fernet encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt reverses Encrypt. Tokens never expire; the mirror is long-lived.
func (c *Cipher) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{c.key})
	if msg == nil {
		return "", ErrInvalidToken
	}
	return string(msg), nil
}
