package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/hipaa"
)

// AuditEventRepository is append-only: there is no update or delete.
// Implementations satisfy hipaa.AuditSink.
type AuditEventRepository interface {
	Append(ctx context.Context, e hipaa.AuditEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*hipaa.AuditEntry, error)
	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*hipaa.AuditEntry, int, error)
}
