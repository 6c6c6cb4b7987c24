package analysis

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists sealed records. Every read and delete is scoped to an
// owner and returns ErrNotFound when the id does not belong to that owner.
type Repository interface {
	Create(ctx context.Context, r *SealedRecord) error
	Get(ctx context.Context, id, ownerID uuid.UUID) (*SealedRecord, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order, limit, offset int) ([]Record, int, error)
	ListSealed(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order) ([]SealedRecord, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error

	// ListAllSealed and ReplaceCiphertext serve offline re-encryption only.
	ListAllSealed(ctx context.Context) ([]SealedRecord, error)
	ReplaceCiphertext(ctx context.Context, id uuid.UUID, ciphertext []byte) error
}

func orderSQL(o Order) string {
	if o == OldestFirst {
		return "ASC"
	}
	return "DESC"
}
