// Package nutrition tracks logged meals and water intake and builds the
// daily and weekly views over them.
package nutrition

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	GoalCalories  = 2000
	GoalProteinG  = 150
	GoalWaterML   = 2500
	HistoryDays   = 7
	TodayMealsMax = 50
	TodayLabel    = "TODAY"
)

var (
	ErrInvalidMeal   = errors.New("meal name is required and macros must not be negative")
	ErrInvalidAmount = errors.New("amount_ml must be positive")
)

type MealLog struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Name      string    `json:"name"`
	Calories  float64   `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fats      float64   `json:"fats"`
	CreatedAt time.Time `json:"created_at"`
}

type WaterLog struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	AmountML  int       `json:"amount_ml"`
	CreatedAt time.Time `json:"created_at"`
}

// MealInput is the body of a meal log request.
type MealInput struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

func (m MealInput) Validate() error {
	if strings.TrimSpace(m.Name) == "" || m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fats < 0 {
		return ErrInvalidMeal
	}
	return nil
}

// Totals sums macros over a set of meals.
type Totals struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fats     float64
}

type Summary struct {
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalCarbs    float64 `json:"total_carbs"`
	TotalFats     float64 `json:"total_fats"`
	TotalWaterML  int     `json:"total_water_ml"`
	GoalCalories  int     `json:"goal_calories"`
	GoalProtein   int     `json:"goal_protein"`
}

// DayAmount is one bar of a 7-day history chart.
type DayAmount struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Pct    float64 `json:"pct"`
}

// Estimate is a per-serving macro guess for a free-text food description.
type Estimate struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// dayBounds returns the UTC day containing t as [start, end).
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func dayLabel(day time.Time, today bool) string {
	if today {
		return TodayLabel
	}
	return strings.ToUpper(day.Weekday().String()[:3])
}

func percentOf(amount, goal float64) float64 {
	return min(100, amount/goal*100)
}
