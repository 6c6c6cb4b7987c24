package nutrition

import "strings"

type foodEntry struct {
	keyword string
	Estimate
}

// foods is matched in order; the first keyword contained in the query wins.
var foods = []foodEntry{
	{"oatmeal", Estimate{Calories: 150, Protein: 5, Carbs: 27, Fats: 3}},
	{"egg", Estimate{Calories: 70, Protein: 6, Carbs: 1, Fats: 5}},
	{"chicken", Estimate{Calories: 165, Protein: 31, Carbs: 0, Fats: 3.6}},
	{"salad", Estimate{Calories: 50, Protein: 2, Carbs: 10, Fats: 0}},
	{"apple", Estimate{Calories: 95, Protein: 0.5, Carbs: 25, Fats: 0.3}},
	{"rice", Estimate{Calories: 130, Protein: 2.7, Carbs: 28, Fats: 0.3}},
	{"banana", Estimate{Calories: 105, Protein: 1.3, Carbs: 27, Fats: 0.3}},
	{"yogurt", Estimate{Calories: 59, Protein: 10, Carbs: 3.6, Fats: 0.4}},
	{"salmon", Estimate{Calories: 208, Protein: 20, Carbs: 0, Fats: 13}},
	{"avocado", Estimate{Calories: 160, Protein: 2, Carbs: 9, Fats: 15}},
	{"almonds", Estimate{Calories: 164, Protein: 6, Carbs: 6, Fats: 14}},
	{"steak", Estimate{Calories: 271, Protein: 26, Carbs: 0, Fats: 19}},
}

// EstimateFood looks the query up in the keyword table. Unknown foods
// estimate to zero.
func EstimateFood(query string) Estimate {
	q := strings.ToLower(query)
	for _, f := range foods {
		if strings.Contains(q, f.keyword) {
			return f.Estimate
		}
	}
	return Estimate{}
}
