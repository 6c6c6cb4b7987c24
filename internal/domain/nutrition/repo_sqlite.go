package nutrition

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RepoSQLite struct {
	db *sql.DB
}

func NewRepoSQLite(conn *sql.DB) *RepoSQLite {
	return &RepoSQLite{db: conn}
}

func (r *RepoSQLite) CreateMeal(ctx context.Context, m *MealLog) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO meal_logs (`+mealCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OwnerID, m.Name, m.Calories, m.Protein, m.Carbs, m.Fats, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert meal log: %w", err)
	}
	return nil
}

func (r *RepoSQLite) ListMeals(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit int) ([]*MealLog, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mealCols+` FROM meal_logs
		WHERE owner_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at DESC LIMIT ?`, ownerID, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list meal logs: %w", err)
	}
	defer rows.Close()

	var meals []*MealLog
	for rows.Next() {
		var m MealLog
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Calories, &m.Protein, &m.Carbs, &m.Fats, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		meals = append(meals, &m)
	}
	return meals, rows.Err()
}

func (r *RepoSQLite) SumMeals(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (Totals, error) {
	var t Totals
	err := r.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(calories), 0.0), COALESCE(SUM(protein), 0.0),
			COALESCE(SUM(carbs), 0.0), COALESCE(SUM(fats), 0.0)
		FROM meal_logs WHERE owner_id = ? AND created_at >= ? AND created_at < ?`,
		ownerID, from.UTC(), to.UTC()).Scan(&t.Calories, &t.Protein, &t.Carbs, &t.Fats)
	if err != nil {
		return t, fmt.Errorf("sum meal logs: %w", err)
	}
	return t, nil
}

func (r *RepoSQLite) CreateWater(ctx context.Context, w *WaterLog) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO water_logs (id, owner_id, amount_ml, created_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.OwnerID, w.AmountML, w.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert water log: %w", err)
	}
	return nil
}

func (r *RepoSQLite) SumWater(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_ml), 0) FROM water_logs
		WHERE owner_id = ? AND created_at >= ? AND created_at < ?`, ownerID, from.UTC(), to.UTC()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum water logs: %w", err)
	}
	return total, nil
}
