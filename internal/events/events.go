// Package events defines the payloads published through the outbox.
package events

import "time"

// UserSynced is emitted when an identity-provider account is created or refreshed.
type UserSynced struct {
	ClerkID    string    `json:"clerk_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PlanCreated is emitted when a generated plan is persisted.
type PlanCreated struct {
	PlanID    string    `json:"plan_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
