package hipaa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ErrCrypto is the sentinel every vault decryption failure unwraps to.
var ErrCrypto = errors.New("ciphertext not readable under current key")

// CryptoError reports a failed vault operation. Decrypt failures always carry
// one: a wrong key, tampered bytes, and stale ciphertext after a key change
// are indistinguishable and all surface as ErrCrypto.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("vault %s: %s", e.Op, ErrCrypto)
	}
	return fmt.Sprintf("vault %s: %s: %v", e.Op, ErrCrypto, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

func (e *CryptoError) Is(target error) bool { return target == ErrCrypto }

// Vault seals opaque payloads with AES-256-GCM under a single key. The nonce
// is prepended to the sealed output. A Vault is immutable after construction
// and safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
}

// NewVault creates a Vault from a 32-byte key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt returns nonce || ciphertext || tag.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, &CryptoError{Op: "encrypt", Err: fmt.Errorf("generate nonce: %w", err)}
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt. It never returns plaintext that
// failed authentication.
func (v *Vault) Decrypt(data []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize+v.aead.Overhead() {
		return nil, &CryptoError{Op: "decrypt", Err: errors.New("ciphertext too short")}
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &CryptoError{Op: "decrypt", Err: err}
	}
	return plaintext, nil
}
