// Package domain defines the business logic for the coach service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when an update targets an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrPlanNotFound is returned when a plan cannot be located.
	ErrPlanNotFound = errors.New("plan not found")
)

// Store captures persistence operations for users and plans.
type Store interface {
	SyncUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	CreatePlan(ctx context.Context, plan Plan) error
	ListPlansByUser(ctx context.Context, userID string) ([]Plan, error)
}

// Service orchestrates user-sync and plan workflows.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SyncUser creates the user record, or refreshes it if one already exists.
func (s *Service) SyncUser(ctx context.Context, user User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return s.store.SyncUser(ctx, user)
}

// UpdateUser refreshes the stored projection of an existing user.
func (s *Service) UpdateUser(ctx context.Context, user User) error {
	user.UpdatedAt = time.Now().UTC()
	return s.store.UpdateUser(ctx, user)
}

// CreatePlanInput captures the payload from the generation pipeline.
type CreatePlanInput struct {
	UserID      string
	Name        string
	WorkoutPlan WorkoutPlan
	DietPlan    DietPlan
}

// CreatePlan persists a new active plan for the user. The store retires any
// previously active plan in the same transaction.
func (s *Service) CreatePlan(ctx context.Context, input CreatePlanInput) (*Plan, error) {
	plan := Plan{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Name:        input.Name,
		WorkoutPlan: input.WorkoutPlan,
		DietPlan:    input.DietPlan,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlansByUser fetches the user's plans, active plan first.
func (s *Service) ListPlansByUser(ctx context.Context, userID string) ([]Plan, error) {
	return s.store.ListPlansByUser(ctx, userID)
}
