package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/db"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/rs/zerolog"
)

const DefaultStoreTimeout = 5 * time.Second

// RecordStore seals payloads with the vault before they reach the
// repository and opens them on the way out. Ciphertext never leaves this
// type.
type RecordStore struct {
	repo    Repository
	vault   *hipaa.Vault
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewRecordStore(repo Repository, vault *hipaa.Vault, timeout time.Duration, logger zerolog.Logger) *RecordStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &RecordStore{
		repo:    repo,
		vault:   vault,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// unavailable folds repository failures into ErrStoreUnavailable, leaving
// ErrNotFound untouched.
func unavailable(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	if db.IsTimeout(err) {
		return fmt.Errorf("%s: %w: deadline exceeded", op, ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}

func (s *RecordStore) seal(p *Payload) ([]byte, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return s.vault.Encrypt(plaintext)
}

func (s *RecordStore) open(ciphertext []byte) (Payload, error) {
	var p Payload
	plaintext, err := s.vault.Decrypt(ciphertext)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return p, &hipaa.CryptoError{Op: "decode", Err: err}
	}
	return p, nil
}

// Store seals p and persists it as a new record owned by ownerID.
func (s *RecordStore) Store(ctx context.Context, ownerID uuid.UUID, kind Kind, p *Payload) (*Record, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	ciphertext, err := s.seal(p)
	if err != nil {
		return nil, err
	}

	rec := &SealedRecord{
		Record: Record{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			Kind:      kind,
			CreatedAt: s.now().UTC().Truncate(time.Microsecond),
		},
		Ciphertext: ciphertext,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, unavailable("store record", err)
	}
	return &rec.Record, nil
}

// Get opens one record. A record owned by someone else is reported exactly
// like a missing one.
func (s *RecordStore) Get(ctx context.Context, id, ownerID uuid.UUID) (*Opened, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.repo.Get(ctx, id, ownerID)
	if err != nil {
		return nil, unavailable("get record", err)
	}
	p, err := s.open(rec.Ciphertext)
	if err != nil {
		return nil, err
	}
	return &Opened{Record: rec.Record, Payload: p}, nil
}

// List returns record metadata without decrypting anything.
func (s *RecordStore) List(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order, limit, offset int) ([]Record, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, total, err := s.repo.ListByOwner(ctx, ownerID, kind, order, limit, offset)
	if err != nil {
		return nil, 0, unavailable("list records", err)
	}
	return items, total, nil
}

// DecryptAll opens every record of kind owned by ownerID. Records that fail
// to open are logged and skipped.
func (s *RecordStore) DecryptAll(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order) ([]Opened, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sealed, err := s.repo.ListSealed(ctx, ownerID, kind, order)
	if err != nil {
		return nil, unavailable("list sealed records", err)
	}

	out := make([]Opened, 0, len(sealed))
	for _, rec := range sealed {
		p, err := s.open(rec.Ciphertext)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("record_id", rec.ID.String()).
				Str("kind", string(rec.Kind)).
				Msg("skipping unreadable record")
			continue
		}
		out = append(out, Opened{Record: rec.Record, Payload: p})
	}
	return out, nil
}

// Latest opens the newest record of kind. It does not fall back to older
// records when the newest one cannot be opened.
func (s *RecordStore) Latest(ctx context.Context, ownerID uuid.UUID, kind Kind) (*Opened, error) {
	items, _, err := s.List(ctx, ownerID, kind, NewestFirst, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, items[0].ID, ownerID)
}

func (s *RecordStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return unavailable("delete record", s.repo.Delete(ctx, id, ownerID))
}
