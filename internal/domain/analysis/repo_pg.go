package analysis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medassist/medassist/internal/platform/db"
)

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

const (
	recordCols = `id, owner_id, kind, created_at`
	sealedCols = `id, owner_id, kind, created_at, ciphertext`
)

func scanSealed(row pgx.Row) (*SealedRecord, error) {
	var r SealedRecord
	err := row.Scan(&r.ID, &r.OwnerID, &r.Kind, &r.CreatedAt, &r.Ciphertext)
	return &r, err
}

func (r *RepoPG) Create(ctx context.Context, rec *SealedRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analysis_results (`+sealedCols+`)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.OwnerID, rec.Kind, rec.CreatedAt, rec.Ciphertext)
	if err != nil {
		return fmt.Errorf("insert analysis result: %w", err)
	}
	return nil
}

func (r *RepoPG) Get(ctx context.Context, id, ownerID uuid.UUID) (*SealedRecord, error) {
	rec, err := scanSealed(r.pool.QueryRow(ctx,
		`SELECT `+sealedCols+` FROM analysis_results WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis result: %w", err)
	}
	return rec, nil
}

func (r *RepoPG) ListByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order, limit, offset int) ([]Record, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM analysis_results WHERE owner_id = $1 AND kind = $2`, ownerID, kind).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count analysis results: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM analysis_results WHERE owner_id = $1 AND kind = $2
		ORDER BY created_at %s LIMIT $3 OFFSET $4`, recordCols, orderSQL(order))
	rows, err := r.pool.Query(ctx, q, ownerID, kind, limit, offset)
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
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) ListSealed(ctx context.Context, ownerID uuid.UUID, kind Kind, order Order) ([]SealedRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM analysis_results WHERE owner_id = $1 AND kind = $2
		ORDER BY created_at %s`, sealedCols, orderSQL(order))
	return r.collectSealed(ctx, q, ownerID, kind)
}

func (r *RepoPG) ListAllSealed(ctx context.Context) ([]SealedRecord, error) {
	return r.collectSealed(ctx, `SELECT `+sealedCols+` FROM analysis_results ORDER BY created_at`)
}

func (r *RepoPG) collectSealed(ctx context.Context, q string, args ...interface{}) ([]SealedRecord, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sealed results: %w", err)
	}
	defer rows.Close()

	var items []SealedRecord
	for rows.Next() {
		rec, err := scanSealed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	return items, rows.Err()
}

func (r *RepoPG) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM analysis_results WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete analysis result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) ReplaceCiphertext(ctx context.Context, id uuid.UUID, ciphertext []byte) error {
	tag, err := r.pool.Exec(ctx, `UPDATE analysis_results SET ciphertext = $1 WHERE id = $2`, ciphertext, id)
	if err != nil {
		return fmt.Errorf("replace ciphertext: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
