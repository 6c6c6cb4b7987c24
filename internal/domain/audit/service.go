package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/hipaa"
)

type Service struct {
	repo AuditEventRepository
}

func NewService(repo AuditEventRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetAuditEvent(ctx context.Context, id uuid.UUID) (*hipaa.AuditEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// SearchAuditEvents returns one page of the trail, newest first.
func (s *Service) SearchAuditEvents(ctx context.Context, params SearchParams, limit, offset int) ([]*hipaa.AuditEntry, int, error) {
	items, total, err := s.repo.Search(ctx, params, limit, offset)
	if items == nil {
		items = []*hipaa.AuditEntry{}
	}
	return items, total, err
}
