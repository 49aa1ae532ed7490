package domain

import "time"

// User is the local projection of an identity-provider account.
type User struct {
	ClerkID   string
	Email     string
	Name      string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
