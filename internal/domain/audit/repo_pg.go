package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medassist/medassist/internal/platform/db"
	"github.com/medassist/medassist/internal/platform/hipaa"
)

type AuditEventRepoPG struct {
	pool *pgxpool.Pool
}

func NewAuditEventRepoPG(pool *pgxpool.Pool) *AuditEventRepoPG {
	return &AuditEventRepoPG{pool: pool}
}

const auditCols = `id, user_id, action, resource, origin_address, created_at`

func pgPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func scanAudit(row pgx.Row) (*hipaa.AuditEntry, error) {
	var e hipaa.AuditEntry
	err := row.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &e.Origin, &e.Timestamp)
	return &e, err
}

func (r *AuditEventRepoPG) Append(ctx context.Context, e hipaa.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (`+auditCols+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Action, e.Resource, e.Origin, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *AuditEventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*hipaa.AuditEntry, error) {
	e, err := scanAudit(r.pool.QueryRow(ctx, `SELECT `+auditCols+` FROM audit_events WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return e, nil
}

func (r *AuditEventRepoPG) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*hipaa.AuditEntry, int, error) {
	where, args := params.where(pgPlaceholder)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT %s FROM audit_events%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		auditCols, where, n+1, n+2)
	rows, err := r.pool.Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search audit events: %w", err)
	}
	defer rows.Close()

	var items []*hipaa.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
