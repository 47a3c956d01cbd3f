package nutrition

import (
	"errors"
	"time"

	"github.com/2beens/fitlog/internal/catalog"
)

var (
	ErrNotFound    = errors.New("diet log entry not found")
	ErrUnknownFood = errors.New("unknown food")
)

// Entry is one eaten portion, with its macros computed and frozen at
// log time. Editing the food afterwards does not rewrite history.
type Entry struct {
	ID       int       `json:"id"`
	FoodID   int       `json:"foodId"`
	FoodName string    `json:"foodName,omitempty"`
	LogDate  time.Time `json:"logDate"`
	Weight   float64   `json:"weight"`
	Protein  float64   `json:"protein"`
	Carbs    float64   `json:"carbs"`
	Fat      float64   `json:"fat"`
	Calories float64   `json:"calories"`
}

// DayLog is a day's entries plus the running totals.
type DayLog struct {
	Entries  []Entry `json:"entries"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Calories float64 `json:"calories"`
}

// ComputeMacros scales the food's nutrients to the eaten weight.
// Nutrients are stored per the food's reference weight (usually 100g);
// calories use the 4/4/9 rule.
func ComputeMacros(food *catalog.Item, weight float64) (protein, carbs, fat, calories float64) {
	refWeight := 100.0
	if food.RefWeight != nil && *food.RefWeight > 0 {
		refWeight = *food.RefWeight
	}
	factor := weight / refWeight

	if food.Protein != nil {
		protein = *food.Protein * factor
	}
	if food.Carbs != nil {
		carbs = *food.Carbs * factor
	}
	if food.Fat != nil {
		fat = *food.Fat * factor
	}
	calories = protein*4 + carbs*4 + fat*9
	return protein, carbs, fat, calories
}
