package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/rs/zerolog"
)

// Archive encrypts uploads with the vault before handing them to a BlobStore.
// Save and Remove never fail the caller; problems are logged.
type Archive struct {
	store  BlobStore
	vault  *hipaa.Vault
	logger zerolog.Logger
}

func NewArchive(store BlobStore, vault *hipaa.Vault, logger zerolog.Logger) *Archive {
	return &Archive{store: store, vault: vault, logger: logger}
}

// Save archives data for the given record. It reports whether the upload was stored.
func (a *Archive) Save(ctx context.Context, ownerID, recordID uuid.UUID, data []byte) bool {
	if a == nil {
		return false
	}
	key := UploadKey(ownerID, recordID)

	sealed, err := a.vault.Encrypt(data)
	if err != nil {
		a.logger.Error().Err(err).Str("key", key).Msg("archive encrypt failed")
		return false
	}
	if err := a.store.Put(ctx, key, sealed); err != nil {
		a.logger.Error().Err(err).Str("key", key).Msg("archive write failed")
		return false
	}
	return true
}

// Load returns the decrypted upload. A blob sealed under another key yields
// a hipaa.CryptoError. A nil Archive holds nothing.
func (a *Archive) Load(ctx context.Context, ownerID, recordID uuid.UUID) ([]byte, error) {
	if a == nil {
		return nil, ErrBlobNotFound
	}
	sealed, err := a.store.Get(ctx, UploadKey(ownerID, recordID))
	if err != nil {
		return nil, err
	}
	data, err := a.vault.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("opening archived upload: %w", err)
	}
	return data, nil
}

// Rekey moves the archived upload for a record from the archive's vault to
// to. It reports false when there is no upload. A blob that does not open
// under the archive's vault yields a hipaa.CryptoError and is left as is.
func (a *Archive) Rekey(ctx context.Context, ownerID, recordID uuid.UUID, to *hipaa.Vault) (bool, error) {
	if a == nil {
		return false, nil
	}
	key := UploadKey(ownerID, recordID)
	sealed, err := a.store.Get(ctx, key)
	if errors.Is(err, ErrBlobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	out, err := hipaa.Rekey(a.vault, to, sealed)
	if err != nil {
		return false, err
	}
	if err := a.store.Put(ctx, key, out); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Archive) Remove(ctx context.Context, ownerID, recordID uuid.UUID) {
	if a == nil {
		return
	}
	key := UploadKey(ownerID, recordID)
	if err := a.store.Delete(ctx, key); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("archive delete failed")
	}
}
