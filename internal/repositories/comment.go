package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
)

const commentColumns = `id, sequence, user_id, target_type, target_id, body, created_at, updated_at, deleted_at`

// CommentRepository implements [models.Repository] for [models.Comment] persistence.
type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(comment *models.Comment) error {
	if err := prepare(r.db, "comments", comment); err != nil {
		return err
	}

	_, err := r.db.Exec(`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		comment.ID(), comment.Sequence(), comment.UserID, comment.TargetType, comment.TargetID, comment.Body,
		comment.CreatedAt(), comment.UpdatedAt(),
	)
	if err != nil {
		return wrapWrite(err, "insert", "comment")
	}
	return nil
}

func (r *CommentRepository) Get(id string) (*models.Comment, error) {
	comment, err := scanComment(r.db.QueryRow(`SELECT `+commentColumns+` FROM comments WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, wrapGet(err, "comment", id)
	}
	return comment, nil
}

// Update changes a comment's body. The author and target are fixed at creation.
func (r *CommentRepository) Update(comment *models.Comment) error {
	if err := comment.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	comment.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE comments SET body = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		comment.Body, now, comment.ID(),
	)
	if err != nil {
		return wrapWrite(err, "update", "comment")
	}
	return expectRow(result, "comment", comment.ID())
}

func (r *CommentRepository) Delete(id string) error {
	return softDelete(r.db, "comments", "comment", id)
}

// ForTarget returns the comments on target, oldest first.
func (r *CommentRepository) ForTarget(target models.Target) ([]*models.Comment, error) {
	return r.List(map[string]any{"target_type": string(target.Type), "target_id": target.ID})
}

// List returns comments oldest first. Supported criteria: "user_id", "target_type", "target_id".
func (r *CommentRepository) List(criteria map[string]any) ([]*models.Comment, error) {
	f := newFilter()
	f.eqString(criteria, "user_id", "user_id")
	f.eqString(criteria, "target_type", "target_type")
	f.eqString(criteria, "target_id", "target_id")

	rows, err := r.db.Query(`SELECT `+commentColumns+` FROM comments`+f.sql()+` ORDER BY sequence ASC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	return scanAll(rows, "comment", scanComment)
}

func scanComment(s rowScanner) (*models.Comment, error) {
	var (
		rec     record
		comment models.Comment
	)
	err := s.Scan(
		&rec.id, &rec.sequence, &comment.UserID, &comment.TargetType, &comment.TargetID, &comment.Body,
		&rec.createdAt, &rec.updatedAt, &rec.deletedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.apply(&comment)
	return &comment, nil
}
