package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
)

const subscriptionColumns = `id, sequence, user_id, target_type, target_id, created_at, updated_at, deleted_at`

// SubscriptionRepository implements [models.Repository] for [models.Subscription] persistence.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a subscription. Subscribing twice to the same target returns [shared.ErrDuplicate].
func (r *SubscriptionRepository) Create(sub *models.Subscription) error {
	if err := prepare(r.db, "subscriptions", sub); err != nil {
		return err
	}

	_, err := r.db.Exec(`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		sub.ID(), sub.Sequence(), sub.UserID, sub.TargetType, sub.TargetID, sub.CreatedAt(), sub.UpdatedAt(),
	)
	if err != nil {
		return wrapWrite(err, "insert", "subscription")
	}
	return nil
}

// Ensure subscribes userID to target unless a subscription already exists.
func (r *SubscriptionRepository) Ensure(userID string, target models.Target) (*models.Subscription, error) {
	existing, err := r.Find(userID, target)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	sub := models.NewSubscription(userID, target)
	if err := r.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) Get(id string) (*models.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, wrapGet(err, "subscription", id)
	}
	return sub, nil
}

// Find returns userID's subscription to target.
func (r *SubscriptionRepository) Find(userID string, target models.Target) (*models.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? AND target_type = ? AND target_id = ? AND deleted_at IS NULL`,
		userID, target.Type, target.ID,
	))
	if err != nil {
		return nil, wrapGet(err, "subscription", string(target.Type)+" "+target.ID)
	}
	return sub, nil
}

// Update only refreshes updated_at; a subscription's user and target never change.
func (r *SubscriptionRepository) Update(sub *models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	sub.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE subscriptions SET updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, sub.ID())
	if err != nil {
		return wrapWrite(err, "update", "subscription")
	}
	return expectRow(result, "subscription", sub.ID())
}

func (r *SubscriptionRepository) Delete(id string) error {
	return softDelete(r.db, "subscriptions", "subscription", id)
}

// List returns subscriptions oldest first. Supported criteria: "user_id", "target_type", "target_id".
func (r *SubscriptionRepository) List(criteria map[string]any) ([]*models.Subscription, error) {
	f := newFilter()
	f.eqString(criteria, "user_id", "user_id")
	f.eqString(criteria, "target_type", "target_type")
	f.eqString(criteria, "target_id", "target_id")

	rows, err := r.db.Query(`SELECT `+subscriptionColumns+` FROM subscriptions`+f.sql()+` ORDER BY sequence ASC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	return scanAll(rows, "subscription", scanSubscription)
}

// Subscribers returns the distinct IDs of users subscribed to any of targets.
func (r *SubscriptionRepository) Subscribers(targets ...models.Target) ([]string, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(targets))
	args := make([]any, 0, len(targets)*2)
	for _, t := range targets {
		clauses = append(clauses, "(target_type = ? AND target_id = ?)")
		args = append(args, t.Type, t.ID)
	}

	query := `SELECT DISTINCT user_id FROM subscriptions WHERE deleted_at IS NULL AND (` +
		strings.Join(clauses, " OR ") + `) ORDER BY user_id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	return scanAll(rows, "subscriber", func(s rowScanner) (string, error) {
		var id string
		err := s.Scan(&id)
		return id, err
	})
}

func scanSubscription(s rowScanner) (*models.Subscription, error) {
	var (
		rec record
		sub models.Subscription
	)
	err := s.Scan(&rec.id, &rec.sequence, &sub.UserID, &sub.TargetType, &sub.TargetID, &rec.createdAt, &rec.updatedAt, &rec.deletedAt)
	if err != nil {
		return nil, err
	}
	rec.apply(&sub)
	return &sub, nil
}
