package nutrition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

const mealCols = `id, owner_id, name, calories, protein, carbs, fats, created_at`

func (r *RepoPG) CreateMeal(ctx context.Context, m *MealLog) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO meal_logs (`+mealCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.OwnerID, m.Name, m.Calories, m.Protein, m.Carbs, m.Fats, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert meal log: %w", err)
	}
	return nil
}

func (r *RepoPG) ListMeals(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit int) ([]*MealLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+mealCols+` FROM meal_logs
		WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC LIMIT $4`, ownerID, from, to, limit)
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
		meals = append(meals, &m)
	}
	return meals, rows.Err()
}

func (r *RepoPG) SumMeals(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `SELECT
			COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0),
			COALESCE(SUM(carbs), 0), COALESCE(SUM(fats), 0)
		FROM meal_logs WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3`,
		ownerID, from, to).Scan(&t.Calories, &t.Protein, &t.Carbs, &t.Fats)
	if err != nil {
		return t, fmt.Errorf("sum meal logs: %w", err)
	}
	return t, nil
}

func (r *RepoPG) CreateWater(ctx context.Context, w *WaterLog) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO water_logs (id, owner_id, amount_ml, created_at) VALUES ($1, $2, $3, $4)`,
		w.ID, w.OwnerID, w.AmountML, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert water log: %w", err)
	}
	return nil
}

func (r *RepoPG) SumWater(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount_ml), 0) FROM water_logs
		WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3`, ownerID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum water logs: %w", err)
	}
	return total, nil
}
