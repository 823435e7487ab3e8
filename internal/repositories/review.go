package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
)

const reviewColumns = `id, sequence, task_id, user_id, body, state, created_at, updated_at, deleted_at`

// ReviewRepository implements [models.Repository] for [models.Review] persistence.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(review *models.Review) error {
	return insertReview(r.db, review)
}

// Request stores a new pending review and the task it moves into review in one transaction.
//
// A task that already has a pending review fails with [shared.ErrInvalidState].
func (r *ReviewRepository) Request(review *models.Review, task *models.Task) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		if err := insertReview(tx, review); err != nil {
			return err
		}
		return updateTask(tx, task)
	})
}

// Settle stores a decided review and the task it approved or sent back in one transaction.
func (r *ReviewRepository) Settle(review *models.Review, task *models.Task) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		if err := updateReview(tx, review); err != nil {
			return err
		}
		return updateTask(tx, task)
	})
}

func insertReview(q querier, review *models.Review) error {
	if err := prepare(q, "reviews", review); err != nil {
		return err
	}

	_, err := q.Exec(`INSERT INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		review.ID(), review.Sequence(), review.TaskID, review.UserID, review.Body, review.State,
		review.CreatedAt(), review.UpdatedAt(),
	)
	if err != nil {
		return pendingConflict(wrapWrite(err, "insert", "review"), review.TaskID)
	}
	return nil
}

// pendingConflict reports a violation of the one-pending-review-per-task index as a state error.
func pendingConflict(err error, taskID string) error {
	if errors.Is(err, shared.ErrDuplicate) {
		return fmt.Errorf("%w: a review is already pending for task %s", shared.ErrInvalidState, taskID)
	}
	return err
}

func (r *ReviewRepository) Get(id string) (*models.Review, error) {
	review, err := scanReview(r.db.QueryRow(`SELECT `+reviewColumns+` FROM reviews WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, wrapGet(err, "review", id)
	}
	return review, nil
}

// Pending returns the open review request for a task, if any.
func (r *ReviewRepository) Pending(taskID string) (*models.Review, error) {
	review, err := scanReview(r.db.QueryRow(
		`SELECT `+reviewColumns+` FROM reviews WHERE task_id = ? AND state = ? AND deleted_at IS NULL ORDER BY sequence DESC LIMIT 1`,
		taskID, models.ReviewPending,
	))
	if err != nil {
		return nil, wrapGet(err, "pending review for task", taskID)
	}
	return review, nil
}

func (r *ReviewRepository) Update(review *models.Review) error {
	return updateReview(r.db, review)
}

func updateReview(q querier, review *models.Review) error {
	if err := review.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	review.SetUpdatedAt(now)

	result, err := q.Exec(`UPDATE reviews SET user_id = ?, body = ?, state = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		review.UserID, review.Body, review.State, now, review.ID(),
	)
	if err != nil {
		return pendingConflict(wrapWrite(err, "update", "review"), review.TaskID)
	}
	return expectRow(result, "review", review.ID())
}

func (r *ReviewRepository) Delete(id string) error {
	return softDelete(r.db, "reviews", "review", id)
}

// List returns reviews oldest first. Supported criteria: "task_id", "user_id", "state".
func (r *ReviewRepository) List(criteria map[string]any) ([]*models.Review, error) {
	f := newFilter()
	f.eqString(criteria, "task_id", "task_id")
	f.eqString(criteria, "user_id", "user_id")
	f.eqString(criteria, "state", "state")

	rows, err := r.db.Query(`SELECT `+reviewColumns+` FROM reviews`+f.sql()+` ORDER BY sequence ASC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	return scanAll(rows, "review", scanReview)
}

func scanReview(s rowScanner) (*models.Review, error) {
	var (
		rec    record
		review models.Review
	)
	err := s.Scan(&rec.id, &rec.sequence, &review.TaskID, &review.UserID, &review.Body, &review.State, &rec.createdAt, &rec.updatedAt, &rec.deletedAt)
	if err != nil {
		return nil, err
	}
	rec.apply(&review)
	return &review, nil
}
