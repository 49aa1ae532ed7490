// Package postgres provides pgx-backed persistence for users, plans, and
// the transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/coach/internal/domain"
	"example.com/coach/internal/events"
	"example.com/coach/internal/observability"
)

// Repository implements domain.Store on top of a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SyncUser upserts the user projection and records a user.synced outbox
// event inside the same transaction.
func (r *Repository) SyncUser(ctx context.Context, user domain.User) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const upsert = `INSERT INTO users (clerk_id, email, name, image, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (clerk_id) DO UPDATE SET email=$2, name=$3, image=$4, updated_at=$6`

	if _, err = tx.Exec(ctx, upsert, user.ClerkID, user.Email, user.Name, user.Image, user.CreatedAt, user.UpdatedAt); err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, outboxEntry{
		AggregateType: "user",
		AggregateID:   user.ClerkID,
		EventType:     "user.synced",
		Payload: events.UserSynced{
			ClerkID:    user.ClerkID,
			Email:      user.Email,
			Name:       user.Name,
			Image:      user.Image,
			OccurredAt: user.UpdatedAt,
		},
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordUserSynced(user.UpdatedAt)
	return nil
}

// UpdateUser refreshes an existing user and records a user.synced outbox event.
func (r *Repository) UpdateUser(ctx context.Context, user domain.User) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const update = `UPDATE users SET email=$2, name=$3, image=$4, updated_at=$5 WHERE clerk_id=$1`

	tag, err := tx.Exec(ctx, update, user.ClerkID, user.Email, user.Name, user.Image, user.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrUserNotFound
		return err
	}

	if err = r.insertOutbox(ctx, tx, outboxEntry{
		AggregateType: "user",
		AggregateID:   user.ClerkID,
		EventType:     "user.synced",
		Payload: events.UserSynced{
			ClerkID:    user.ClerkID,
			Email:      user.Email,
			Name:       user.Name,
			Image:      user.Image,
			OccurredAt: user.UpdatedAt,
		},
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordUserSynced(user.UpdatedAt)
	return nil
}

// CreatePlan persists the plan, retires the user's previously active plans,
// and records a plan.created outbox event, all in one transaction.
func (r *Repository) CreatePlan(ctx context.Context, plan domain.Plan) error {
	workoutJSON, err := json.Marshal(plan.WorkoutPlan)
	if err != nil {
		return fmt.Errorf("marshal workout plan: %w", err)
	}
	dietJSON, err := json.Marshal(plan.DietPlan)
	if err != nil {
		return fmt.Errorf("marshal diet plan: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `UPDATE plans SET is_active=FALSE WHERE user_id=$1 AND is_active`, plan.UserID); err != nil {
		return err
	}

	const insert = `INSERT INTO plans (plan_id, user_id, name, workout_plan, diet_plan, is_active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	if _, err = tx.Exec(ctx, insert, plan.ID, plan.UserID, plan.Name, workoutJSON, dietJSON, plan.IsActive, plan.CreatedAt); err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, outboxEntry{
		AggregateType: "plan",
		AggregateID:   plan.ID,
		EventType:     "plan.created",
		Payload: events.PlanCreated{
			PlanID:    plan.ID,
			UserID:    plan.UserID,
			Name:      plan.Name,
			IsActive:  plan.IsActive,
			CreatedAt: plan.CreatedAt,
		},
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordPlanPersisted(plan.CreatedAt)
	return nil
}

// ListPlansByUser returns the user's plans, active plan first, newest next.
func (r *Repository) ListPlansByUser(ctx context.Context, userID string) ([]domain.Plan, error) {
	const query = `SELECT plan_id, user_id, name, workout_plan, diet_plan, is_active, created_at
        FROM plans WHERE user_id=$1 ORDER BY is_active DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]domain.Plan, 0)
	for rows.Next() {
		var plan domain.Plan
		var workoutJSON, dietJSON []byte
		if err := rows.Scan(&plan.ID, &plan.UserID, &plan.Name, &workoutJSON, &dietJSON, &plan.IsActive, &plan.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(workoutJSON, &plan.WorkoutPlan); err != nil {
			return nil, fmt.Errorf("decode workout plan %s: %w", plan.ID, err)
		}
		if err := json.Unmarshal(dietJSON, &plan.DietPlan); err != nil {
			return nil, fmt.Errorf("decode diet plan %s: %w", plan.ID, err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

type outboxEntry struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       interface{}
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, entry outboxEntry) error {
	body, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[entry.EventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", entry.EventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", entry.AggregateID, entry.EventType, time.Now().UnixNano())

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		meta.Topic,
		entry.AggregateID,
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic string
}

var eventCatalog = map[string]EventMetadata{
	"user.synced":  {Topic: "user_events"},
	"plan.created": {Topic: "plan_events"},
}
