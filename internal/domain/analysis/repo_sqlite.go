package analysis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/db"
)

type RepoSQLite struct {
	db *sql.DB
}

func NewRepoSQLite(conn *sql.DB) *RepoSQLite {
	return &RepoSQLite{db: conn}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSealedSQLite(row rowScanner) (*SealedRecord, error) {
	var r SealedRecord
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Kind, &r.CreatedAt, &r.Ciphertext); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (r *RepoSQLite) Create(ctx context.Context, rec *SealedRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_results (`+sealedCols+`)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, string(rec.Kind), rec.CreatedAt.UTC(), rec.Ciphertext)
	if err != nil {
		return fmt.Errorf("insert analysis result: %w", err)
	}
	return nil
}

func (r *RepoSQLite) Get(ctx context.Context, id, ownerID uuid.UUID) (*SealedRecord, error) {
	rec, err := scanSealedSQLite(r.db.QueryRowContext(ctx,
		`SELECT `+sealedCols+` FROM analysis_results WHERE id = ? AND owner_id = ?`, id, ownerID))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis result: %w", err)
	}
	return rec, nil
}

func (r *RepoSQLite) ListByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order, limit, offset int) ([]Record, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_results WHERE owner_id = ? AND kind = ?`, ownerID, string(kind)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count analysis results: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM analysis_results WHERE owner_id = ? AND kind = ?
		ORDER BY created_at %s LIMIT ? OFFSET ?`, recordCols, orderSQL(order))
	rows, err := r.db.QueryContext(ctx, q, ownerID, string(kind), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list analysis results: %w", err)
	}
	defer rows.Close()

	var items []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Kind, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *RepoSQLite) ListSealed(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order) ([]SealedRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM analysis_results WHERE owner_id = ? AND kind = ?
		ORDER BY created_at %s`, sealedCols, orderSQL(order))
	return r.collectSealed(ctx, q, ownerID, string(kind))
}

func (r *RepoSQLite) ListAllSealed(ctx context.Context) ([]SealedRecord, error) {
	return r.collectSealed(ctx, `SELECT `+sealedCols+` FROM analysis_results ORDER BY created_at`)
}

func (r *RepoSQLite) collectSealed(ctx context.Context, q string, args ...interface{}) ([]SealedRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sealed results: %w", err)
	}
	defer rows.Close()

	var items []SealedRecord
	for rows.Next() {
		rec, err := scanSealedSQLite(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	return items, rows.Err()
}

func (r *RepoSQLite) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete analysis result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoSQLite) ReplaceCiphertext(ctx context.Context, id uuid.UUID, ciphertext []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE analysis_results SET ciphertext = ? WHERE id = ?`, ciphertext, id)
	if err != nil {
		return fmt.Errorf("replace ciphertext: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
