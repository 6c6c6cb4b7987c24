package diet

import "slices"

// Diet type names. These strings are part of the stored payload.
const (
	TypeBalanced    = "Balanced Maintenance"
	TypeLowGlycemic = "Low Glycemic / Diabetic Friendly"
	TypeDASH        = "DASH (Heart Healthy)"
	TypeRenal       = "Renal Friendly"
)

// Macros are daily targets.
type Macros struct {
	Calories  int `json:"calories"`
	Protein   int `json:"protein"`
	Carbs     int `json:"carbs"`
	Fats      int `json:"fats"`
	Hydration int `json:"hydration"`
}

// Meal is one slot of a plan template.
type Meal struct {
	Time        string `json:"time"`
	Name        string `json:"name"`
	Calories    int    `json:"calories"`
	Protein     int    `json:"protein"`
	Carbs       int    `json:"carbs"`
	Fats        int    `json:"fats"`
	Description string `json:"desc"`
}

// Plan is a diet recommendation. It is a value: two plans generated from the
// same readings are equal and share no backing arrays.
type Plan struct {
	DietType        string   `json:"diet_type"`
	Macros          Macros   `json:"macros"`
	Meals           []Meal   `json:"meals"`
	ShoppingList    []string `json:"shopping_list"`
	Recommendations []string `json:"recommendations"`
}

type template struct {
	dietType string
	macros   Macros
	meals    []Meal
	shopping []string
}

func (t template) plan() Plan {
	return Plan{
		DietType:     t.dietType,
		Macros:       t.macros,
		Meals:        slices.Clone(t.meals),
		ShoppingList: slices.Clone(t.shopping),
		Recommendations: []string{
			"Follow the " + t.dietType + " plan.",
			"Stay hydrated.",
			"Monitor portion sizes.",
		},
	}
}

var balanced = template{
	dietType: TypeBalanced,
	macros:   Macros{Calories: 2000, Protein: 150, Carbs: 200, Fats: 65, Hydration: 2500},
	meals: []Meal{
		{"Breakfast", "Oatmeal with Berries", 400, 12, 60, 8, "Steel-cut oats with blueberries and almonds"},
		{"Lunch", "Grilled Chicken Salad", 600, 45, 20, 35, "Mixed greens, cherry tomatoes, balsamic vinaigrette"},
		{"Snack", "Greek Yogurt Parfait", 250, 15, 30, 5, "Low-fat yogurt with honey and granola"},
		{"Dinner", "Baked Salmon & Quinoa", 550, 40, 45, 20, "Lemon herb salmon with steamed broccoli"},
	},
	shopping: []string{"Oats", "Blueberries", "Chicken Breast", "Mixed Greens", "Salmon", "Quinoa", "Greek Yogurt"},
}

var lowGlycemic = template{
	dietType: TypeLowGlycemic,
	macros:   Macros{Calories: 1800, Protein: 140, Carbs: 130, Fats: 70, Hydration: 2200},
	meals: []Meal{
		{"Breakfast", "Vegetable Omelet", 350, 22, 8, 25, "3 eggs with spinach and mushrooms"},
		{"Lunch", "Turkey Lettuce Wraps", 450, 35, 15, 28, "Lean ground turkey, asian slaw, lettuce cups"},
		{"Snack", "Handful of Almonds", 180, 6, 6, 16, "Raw almonds (unsalted)"},
		{"Dinner", "Zucchini Noodles with Pesto", 400, 28, 12, 24, "Spiralized zucchini, chicken, basil pesto"},
	},
	shopping: []string{"Eggs", "Spinach", "Ground Turkey", "Lettuce", "Zucchini", "Chicken Breast", "Almonds", "Pesto"},
}

var dash = template{
	dietType: TypeDASH,
	macros:   Macros{Calories: 1900, Protein: 130, Carbs: 220, Fats: 50, Hydration: 2000},
	meals: []Meal{
		{"Breakfast", "Banana & Spinach Smoothie", 300, 10, 55, 4, "Spinach, banana, skim milk, chia seeds"},
		{"Lunch", "Lentil Soup", 450, 25, 65, 8, "Low-sodium lentil soup with whole wheat roll"},
		{"Snack", "Apple Slices", 100, 1, 25, 0, "Fresh apple slices"},
		{"Dinner", "Grilled White Fish", 500, 45, 40, 15, "Cod or Tilapia with brown rice and asparagus"},
	},
	shopping: []string{"Banana", "Spinach", "Skim Milk", "Lentils", "Whole Wheat Rolls", "Cod/Tilapia", "Brown Rice", "Asparagus"},
}

var renal = template{
	dietType: TypeRenal,
	macros:   Macros{Calories: 1800, Protein: 60, Carbs: 250, Fats: 60, Hydration: 1800},
	meals: []Meal{
		{"Breakfast", "Rice Cereal with Berries", 350, 4, 70, 4, "Rice cereal with almond milk and strawberries"},
		{"Lunch", "Pasta with Olive Oil", 500, 10, 80, 14, "White pasta with garlic, olive oil, and bell peppers"},
		{"Snack", "Rice Cakes", 100, 2, 22, 0, "Plain rice cakes"},
		{"Dinner", "Eggplant Stir-fry", 450, 8, 60, 20, "Eggplant, onions, carrots, white rice"},
	},
	shopping: []string{"Rice Cereal", "Strawberries", "Pasta", "Bell Peppers", "Eggplant", "White Rice", "Rice Cakes"},
}
