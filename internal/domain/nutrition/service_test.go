package nutrition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/db/dbtest"
	"github.com/rs/zerolog"
)

type fixture struct {
	svc   *Service
	owner uuid.UUID
	other uuid.UUID
	clock time.Time
}

// newFixture pins the clock to Wednesday 2026-03-04 15:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{
		svc:   NewService(NewRepoSQLite(conn), zerolog.Nop()),
		owner: dbtest.InsertUser(t, conn, "owner@example.com"),
		other: dbtest.InsertUser(t, conn, "other@example.com"),
		clock: time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

// at runs fn with the clock moved to ts.
func (f *fixture) at(ts time.Time, fn func()) {
	saved := f.clock
	f.clock = ts
	fn()
	f.clock = saved
}

func TestService_LogMealValidation(t *testing.T) {
	f := newFixture(t)
	bad := []MealInput{
		{Name: ""},
		{Name: "   "},
		{Name: "toast", Calories: -1},
		{Name: "toast", Fats: -0.5},
	}
	for _, in := range bad {
		if _, err := f.svc.LogMeal(context.Background(), f.owner, in); !errors.Is(err, ErrInvalidMeal) {
			t.Errorf("LogMeal(%+v): expected ErrInvalidMeal, got %v", in, err)
		}
	}
}

func TestService_TodayMeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.at(f.clock.AddDate(0, 0, -1), func() {
		f.svc.LogMeal(ctx, f.owner, MealInput{Name: "yesterday", Calories: 500})
	})
	f.at(f.clock.Add(-2*time.Hour), func() {
		f.svc.LogMeal(ctx, f.owner, MealInput{Name: "breakfast", Calories: 300, Protein: 20})
	})
	f.svc.LogMeal(ctx, f.owner, MealInput{Name: "lunch", Calories: 600, Protein: 40, Carbs: 50, Fats: 20})
	f.svc.LogMeal(ctx, f.other, MealInput{Name: "not mine", Calories: 900})

	meals, err := f.svc.TodayMeals(ctx, f.owner)
	if err != nil {
		t.Fatalf("today meals: %v", err)
	}
	if len(meals) != 2 {
		t.Fatalf("expected 2 meals today, got %d", len(meals))
	}
	if meals[0].Name != "lunch" || meals[1].Name != "breakfast" {
		t.Errorf("expected newest first, got %s, %s", meals[0].Name, meals[1].Name)
	}
}

func TestService_TodayMealsEmpty(t *testing.T) {
	f := newFixture(t)
	meals, err := f.svc.TodayMeals(context.Background(), f.owner)
	if err != nil || meals == nil || len(meals) != 0 {
		t.Errorf("expected empty non-nil list, got %v, %v", meals, err)
	}
}

func TestService_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.LogMeal(ctx, f.owner, MealInput{Name: "a", Calories: 300, Protein: 20.5, Carbs: 10, Fats: 5})
	f.svc.LogMeal(ctx, f.owner, MealInput{Name: "b", Calories: 200, Protein: 10, Carbs: 30, Fats: 2})
	f.svc.LogWater(ctx, f.owner, 500)
	f.svc.LogWater(ctx, f.owner, 250)
	f.at(f.clock.AddDate(0, 0, -1), func() {
		f.svc.LogWater(ctx, f.owner, 1000)
	})

	sum, err := f.svc.Summary(ctx, f.owner)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := Summary{
		TotalCalories: 500,
		TotalProtein:  30.5,
		TotalCarbs:    40,
		TotalFats:     7,
		TotalWaterML:  750,
		GoalCalories:  2000,
		GoalProtein:   150,
	}
	if *sum != want {
		t.Errorf("summary = %+v, want %+v", *sum, want)
	}
}

func TestService_LogWater(t *testing.T) {
	f := newFixture(t)
	for _, amount := range []int{0, -100} {
		if _, err := f.svc.LogWater(context.Background(), f.owner, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("LogWater(%d): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	w, err := f.svc.LogWater(context.Background(), f.owner, 330)
	if err != nil || w.AmountML != 330 {
		t.Errorf("unexpected result %+v, %v", w, err)
	}
}

func TestService_HydrationHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.LogWater(ctx, f.owner, 1000)
	f.svc.LogWater(ctx, f.owner, 2000)
	f.at(f.clock.AddDate(0, 0, -6), func() { f.svc.LogWater(ctx, f.owner, 1250) })
	f.at(f.clock.AddDate(0, 0, -7), func() { f.svc.LogWater(ctx, f.owner, 9999) })

	days, err := f.svc.HydrationHistory(ctx, f.owner)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(days) != HistoryDays {
		t.Fatalf("expected %d days, got %d", HistoryDays, len(days))
	}

	// Wednesday today: THU FRI SAT SUN MON TUE TODAY
	labels := []string{"THU", "FRI", "SAT", "SUN", "MON", "TUE", "TODAY"}
	for i, l := range labels {
		if days[i].Label != l {
			t.Errorf("day %d label = %s, want %s", i, days[i].Label, l)
		}
	}
	if days[0].Amount != 1250 || days[0].Pct != 50 {
		t.Errorf("oldest day = %+v", days[0])
	}
	if days[6].Amount != 3000 || days[6].Pct != 100 {
		t.Errorf("today should be capped at 100%%, got %+v", days[6])
	}
	if days[3].Amount != 0 || days[3].Pct != 0 {
		t.Errorf("empty day = %+v", days[3])
	}
}

func TestService_ProteinHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.LogMeal(ctx, f.owner, MealInput{Name: "shake", Protein: 75})
	f.at(f.clock.AddDate(0, 0, -2), func() {
		f.svc.LogMeal(ctx, f.owner, MealInput{Name: "steak", Protein: 30})
	})

	days, err := f.svc.ProteinHistory(ctx, f.owner)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if days[6].Label != TodayLabel || days[6].Amount != 75 || days[6].Pct != 50 {
		t.Errorf("today = %+v", days[6])
	}
	if days[4].Label != "MON" || days[4].Amount != 30 || days[4].Pct != 20 {
		t.Errorf("monday = %+v", days[4])
	}
}
