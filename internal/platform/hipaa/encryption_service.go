package hipaa

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
)

// ParseKey decodes a 64-character hex string into a vault key.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be %d bytes (%d hex chars), got %d bytes", KeySize, KeySize*2, len(key))
	}
	return key, nil
}

// GenerateKey returns a fresh random vault key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate vault key: %w", err)
	}
	return key, nil
}

// GenerateHexKey returns a fresh key encoded the way ENCRYPTION_KEY expects it.
func GenerateHexKey() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// OpenVault builds the process vault from the configured hex key.
//
// An empty key yields a vault under an ephemeral random key. Records written
// under it cannot be read after the process exits, so a warning is logged
// once. A malformed key is an error and the server refuses to start.
func OpenVault(hexKey string, logger zerolog.Logger) (*Vault, error) {
	if hexKey == "" {
		key, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		logger.Warn().Msg("ENCRYPTION_KEY is not set: using an ephemeral vault key, stored analyses will be unreadable after restart")
		return NewVault(key)
	}

	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}

	v, err := NewVault(key)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("record vault initialized")
	return v, nil
}
