package plangen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"example.com/coach/internal/domain"
)

// ErrStructuralMismatch indicates the parsed completion lacked a required
// nested collection and cannot be projected onto the plan schema.
var ErrStructuralMismatch = errors.New("completion missing required structure")

// Fallback defaults applied when a routine field is non-numeric and unparseable.
const (
	defaultSets = 1
	defaultReps = 10
)

// ValidateWorkout projects a loosely-typed parse tree onto the workout
// schema. It coerces rather than rejects: the completion is syntactically
// JSON by the time it reaches here, but the model does not reliably honour
// the requested primitive types. The projection is a total function over
// the parse tree and is a fixed point on its own output.
func ValidateWorkout(parsed map[string]any) (domain.WorkoutPlan, error) {
	plan := domain.WorkoutPlan{
		Schedule: coerceStringSlice(parsed["schedule"]),
	}

	days, ok := parsed["exercises"].([]any)
	if !ok {
		return domain.WorkoutPlan{}, fmt.Errorf("%w: exercises array is missing", ErrStructuralMismatch)
	}

	plan.Exercises = make([]domain.ExerciseDay, 0, len(days))
	for _, rawDay := range days {
		day, ok := rawDay.(map[string]any)
		if !ok {
			continue
		}

		rawRoutines, ok := day["routines"].([]any)
		if !ok {
			return domain.WorkoutPlan{}, fmt.Errorf("%w: routines array is missing for day %q", ErrStructuralMismatch, coerceString(day["day"]))
		}

		routines := make([]domain.Routine, 0, len(rawRoutines))
		for _, rawRoutine := range rawRoutines {
			routine, ok := rawRoutine.(map[string]any)
			if !ok {
				continue
			}
			routines = append(routines, domain.Routine{
				Name: coerceString(routine["name"]),
				Sets: coerceInt(routine["sets"], defaultSets),
				Reps: coerceInt(routine["reps"], defaultReps),
			})
		}

		plan.Exercises = append(plan.Exercises, domain.ExerciseDay{
			Day:      coerceString(day["day"]),
			Routines: routines,
		})
	}

	return plan, nil
}

// ValidateDiet projects a loosely-typed parse tree onto the diet schema.
// dailyCalories passes through with numeric coercion only.
func ValidateDiet(parsed map[string]any) (domain.DietPlan, error) {
	plan := domain.DietPlan{
		DailyCalories: coerceFloat(parsed["dailyCalories"]),
	}

	rawMeals, ok := parsed["meals"].([]any)
	if !ok {
		return domain.DietPlan{}, fmt.Errorf("%w: meals array is missing", ErrStructuralMismatch)
	}

	plan.Meals = make([]domain.Meal, 0, len(rawMeals))
	for _, rawMeal := range rawMeals {
		meal, ok := rawMeal.(map[string]any)
		if !ok {
			continue
		}
		plan.Meals = append(plan.Meals, domain.Meal{
			Name:  coerceString(meal["name"]),
			Foods: coerceStringSlice(meal["foods"]),
		})
	}

	return plan, nil
}

// coerceInt converts a loosely-typed value to int, falling back to def when
// the value is non-numeric and unparseable.
func coerceInt(value any, def int) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.Atoi(trimmed); err == nil {
			return parsed
		}
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int(parsed)
		}
	}
	return def
}

func coerceFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return 0
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func coerceStringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, coerceString(item))
	}
	return out
}
