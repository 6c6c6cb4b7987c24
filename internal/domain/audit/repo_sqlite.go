package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/db"
	"github.com/medassist/medassist/internal/platform/hipaa"
)

type AuditEventRepoSQLite struct {
	db *sql.DB
}

func NewAuditEventRepoSQLite(conn *sql.DB) *AuditEventRepoSQLite {
	return &AuditEventRepoSQLite{db: conn}
}

func sqlitePlaceholder(int) string { return "?" }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditSQLite(row rowScanner) (*hipaa.AuditEntry, error) {
	var e hipaa.AuditEntry
	var userID uuid.NullUUID
	if err := row.Scan(&e.ID, &userID, &e.Action, &e.Resource, &e.Origin, &e.Timestamp); err != nil {
		return nil, err
	}
	if userID.Valid {
		e.UserID = &userID.UUID
	}
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}

func (r *AuditEventRepoSQLite) Append(ctx context.Context, e hipaa.AuditEntry) error {
	var userID uuid.NullUUID
	if e.UserID != nil {
		userID = uuid.NullUUID{UUID: *e.UserID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (`+auditCols+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, userID, e.Action, e.Resource, e.Origin, e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *AuditEventRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*hipaa.AuditEntry, error) {
	e, err := scanAuditSQLite(r.db.QueryRowContext(ctx, `SELECT `+auditCols+` FROM audit_events WHERE id = ?`, id))
	if db.IsNoRows(err) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return e, nil
}

func (r *AuditEventRepoSQLite) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*hipaa.AuditEntry, int, error) {
	where, args := params.where(sqlitePlaceholder)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}

	q := `SELECT ` + auditCols + ` FROM audit_events` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search audit events: %w", err)
	}
	defer rows.Close()

	var items []*hipaa.AuditEntry
	for rows.Next() {
		e, err := scanAuditSQLite(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
