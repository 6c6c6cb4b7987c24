package nutrition

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores meal and water logs. Time ranges are [from, to).
type Repository interface {
	CreateMeal(ctx context.Context, m *MealLog) error
	ListMeals(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit int) ([]*MealLog, error)
	SumMeals(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (Totals, error)

	CreateWater(ctx context.Context, w *WaterLog) error
	SumWater(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int, error)
}
