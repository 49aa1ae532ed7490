// Package plangen turns a user's biometric profile into a persisted
// workout-and-diet plan by prompting an LLM once per facet and coercing the
// loosely-structured completions onto the strict plan schema.
package plangen

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks request payloads rejected before any prompt is built.
var ErrInvalidRequest = errors.New("invalid plan request")

// PlanRequest is the payload for POST /vapi/generate-program.
type PlanRequest struct {
	UserID              string  `json:"user_id"`
	Age                 int     `json:"age"`
	Height              float64 `json:"height"`
	Weight              float64 `json:"weight"`
	Injuries            string  `json:"injuries"`
	WorkoutDays         int     `json:"workout_days"`
	FitnessGoal         string  `json:"fitness_goal"`
	FitnessLevel        string  `json:"fitness_level"`
	DietaryRestrictions string  `json:"dietary_restrictions"`
}

// Validate ensures every field the prompt templates interpolate is present,
// so a degraded prompt is never sent to the model. Free-text fields default
// to "none" rather than failing.
func (r *PlanRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if r.Age <= 0 {
		return fmt.Errorf("%w: age must be > 0", ErrInvalidRequest)
	}
	if r.Height <= 0 {
		return fmt.Errorf("%w: height must be > 0", ErrInvalidRequest)
	}
	if r.Weight <= 0 {
		return fmt.Errorf("%w: weight must be > 0", ErrInvalidRequest)
	}
	if r.WorkoutDays <= 0 || r.WorkoutDays > 7 {
		return fmt.Errorf("%w: workout_days must be between 1 and 7", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.FitnessGoal) == "" {
		return fmt.Errorf("%w: fitness_goal is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.FitnessLevel) == "" {
		return fmt.Errorf("%w: fitness_level is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Injuries) == "" {
		r.Injuries = "none"
	}
	if strings.TrimSpace(r.DietaryRestrictions) == "" {
		r.DietaryRestrictions = "none"
	}
	return nil
}
