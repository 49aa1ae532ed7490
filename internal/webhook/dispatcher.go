package webhook

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"example.com/coach/internal/domain"
)

// Event kinds the dispatcher acts on. Anything else is ignored silently.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
)

// ErrNoEmailAddress is returned when the event payload carries an empty
// address list and no primary email can be derived.
var ErrNoEmailAddress = errors.New("event payload has no email addresses")

// UserSyncer is the subset of the domain service the dispatcher needs.
type UserSyncer interface {
	SyncUser(ctx context.Context, user domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
}

// DispatcherOption configures optional behaviour for the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger overrides the logger used to report sync outcomes.
func WithLogger(logger *log.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher routes verified events to the matching user-sync operation.
type Dispatcher struct {
	users  UserSyncer
	logger *log.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(users UserSyncer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		users:  users,
		logger: log.New(log.Writer(), "[webhook] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch invokes the sync operation for the event kind. Unknown kinds are
// a no-op: the provider sends more lifecycle events than this service consumes.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventUserCreated:
		user, err := projectUser(event.Data)
		if err != nil {
			return err
		}
		if err := d.users.SyncUser(ctx, user); err != nil {
			return fmt.Errorf("sync user %s: %w", user.ClerkID, err)
		}
		d.logger.Printf("user synced (clerk_id=%s)", user.ClerkID)
		return nil
	case EventUserUpdated:
		user, err := projectUser(event.Data)
		if err != nil {
			return err
		}
		if err := d.users.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("update user %s: %w", user.ClerkID, err)
		}
		d.logger.Printf("user updated (clerk_id=%s)", user.ClerkID)
		return nil
	default:
		return nil
	}
}

// projectUser derives the sync record shared by both event kinds: primary
// email is the first address, display name is the trimmed concatenation of
// first and last name with missing parts treated as empty strings.
func projectUser(payload UserPayload) (domain.User, error) {
	if len(payload.EmailAddresses) == 0 {
		return domain.User{}, ErrNoEmailAddress
	}
	return domain.User{
		ClerkID: payload.ID,
		Email:   payload.EmailAddresses[0].EmailAddress,
		Name:    strings.TrimSpace(payload.FirstName + " " + payload.LastName),
		Image:   payload.ImageURL,
	}, nil
}
