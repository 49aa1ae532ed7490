package domain

import "time"

// Routine is a single exercise prescription inside a workout day.
type Routine struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps int    `json:"reps"`
}

// ExerciseDay groups the routines assigned to one scheduled day.
type ExerciseDay struct {
	Day      string    `json:"day"`
	Routines []Routine `json:"routines"`
}

// WorkoutPlan is the workout facet of a generated program.
type WorkoutPlan struct {
	Schedule  []string      `json:"schedule"`
	Exercises []ExerciseDay `json:"exercises"`
}

// Meal is a named collection of foods in the diet facet.
type Meal struct {
	Name  string   `json:"name"`
	Foods []string `json:"foods"`
}

// DietPlan is the diet facet of a generated program.
type DietPlan struct {
	DailyCalories float64 `json:"dailyCalories"`
	Meals         []Meal  `json:"meals"`
}

// Plan is the persisted workout-and-diet program for one user.
type Plan struct {
	ID          string
	UserID      string
	Name        string
	WorkoutPlan WorkoutPlan
	DietPlan    DietPlan
	IsActive    bool
	CreatedAt   time.Time
}
