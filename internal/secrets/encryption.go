package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the required secretbox master key length.
const KeySize = 32

var (
	// ErrInvalidCiphertext is returned when ciphertext fails to decrypt
	// or authenticate.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// ErrInvalidKey is returned when a master key is not KeySize bytes.
	ErrInvalidKey = errors.New("invalid encryption key")
)

// boxEncryptor encrypts the at-rest fallback secrets file with
// nacl/secretbox (XSalsa20-Poly1305), grounded on the teacher's
// internal/workspace/encryption.go AES-256-GCM encryptor but built on
// golang.org/x/crypto instead of crypto/aes, per SPEC_FULL.md's dependency
// table entry for internal/secrets/encryption.go. Format is identical in
// spirit: a random nonce prepended to the sealed box.
type boxEncryptor struct {
	key [KeySize]byte
}

func newBoxEncryptor(masterKey []byte) (*boxEncryptor, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidKey, KeySize, len(masterKey))
	}
	e := &boxEncryptor{}
	copy(e.key[:], masterKey)
	return e, nil
}

// Encrypt seals plaintext behind a freshly generated nonce.
func (e *boxEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("secrets: generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &e.key), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (e *boxEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidCiphertext)
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])

	plaintext, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &e.key)
	if !ok {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper returning base64-encoded ciphertext.
func (e *boxEncryptor) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	ct, err := e.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptString is the inverse of EncryptString.
func (e *boxEncryptor) DecryptString(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("secrets: decode ciphertext: %w", err)
	}
	pt, err := e.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// GenerateMasterKey returns a cryptographically random KeySize-byte key,
// used the first time no master key is found in the keychain or
// DIRECLAW_MASTER_KEY.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("secrets: generate master key: %w", err)
	}
	return key, nil
}
