package nutrition

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) LogMeal(ctx context.Context, ownerID uuid.UUID, in MealInput) (*MealLog, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m := &MealLog{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Calories:  in.Calories,
		Protein:   in.Protein,
		Carbs:     in.Carbs,
		Fats:      in.Fats,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.CreateMeal(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// TodayMeals returns up to TodayMealsMax meals logged today (UTC), newest
// first.
func (s *Service) TodayMeals(ctx context.Context, ownerID uuid.UUID) ([]*MealLog, error) {
	from, to := dayBounds(s.now())
	meals, err := s.repo.ListMeals(ctx, ownerID, from, to, TodayMealsMax)
	if err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []*MealLog{}
	}
	return meals, nil
}

func (s *Service) Summary(ctx context.Context, ownerID uuid.UUID) (*Summary, error) {
	from, to := dayBounds(s.now())
	totals, err := s.repo.SumMeals(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	water, err := s.repo.SumWater(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return &Summary{
		TotalCalories: totals.Calories,
		TotalProtein:  totals.Protein,
		TotalCarbs:    totals.Carbs,
		TotalFats:     totals.Fats,
		TotalWaterML:  water,
		GoalCalories:  GoalCalories,
		GoalProtein:   GoalProteinG,
	}, nil
}

func (s *Service) LogWater(ctx context.Context, ownerID uuid.UUID, amountML int) (*WaterLog, error) {
	if amountML <= 0 {
		return nil, ErrInvalidAmount
	}
	w := &WaterLog{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		AmountML:  amountML,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.CreateWater(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// HydrationHistory returns daily water totals for the last seven UTC days,
// oldest first and ending today.
func (s *Service) HydrationHistory(ctx context.Context, ownerID uuid.UUID) ([]DayAmount, error) {
	return s.history(ctx, GoalWaterML, func(from, to time.Time) (float64, error) {
		ml, err := s.repo.SumWater(ctx, ownerID, from, to)
		return float64(ml), err
	})
}

// ProteinHistory returns daily protein totals for the last seven UTC days.
func (s *Service) ProteinHistory(ctx context.Context, ownerID uuid.UUID) ([]DayAmount, error) {
	return s.history(ctx, GoalProteinG, func(from, to time.Time) (float64, error) {
		t, err := s.repo.SumMeals(ctx, ownerID, from, to)
		return t.Protein, err
	})
}

func (s *Service) history(ctx context.Context, goal float64, sum func(from, to time.Time) (float64, error)) ([]DayAmount, error) {
	todayStart, _ := dayBounds(s.now())

	out := make([]DayAmount, 0, HistoryDays)
	for i := HistoryDays - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		from := todayStart.AddDate(0, 0, -i)
		amount, err := sum(from, from.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		out = append(out, DayAmount{
			Label:  dayLabel(from, i == 0),
			Amount: amount,
			Pct:    percentOf(amount, goal),
		})
	}
	return out, nil
}
