// package models defines the data model for the tracker
package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Record holds the identity and lifecycle columns every persistent entity shares.
type Record struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func newRecord() Record {
	now := time.Now().UTC()
	return Record{createdAt: now, updatedAt: now}
}

func (r *Record) ID() string            { return r.id }
func (r *Record) Sequence() int         { return r.sequence }
func (r *Record) CreatedAt() time.Time  { return r.createdAt }
func (r *Record) UpdatedAt() time.Time  { return r.updatedAt }
func (r *Record) DeletedAt() *time.Time { return r.deletedAt }

func (r *Record) SetID(id string)           { r.id = id }
func (r *Record) SetSequence(seq int)       { r.sequence = seq }
func (r *Record) SetCreatedAt(t time.Time)  { r.createdAt = t }
func (r *Record) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *Record) SetDeletedAt(t *time.Time) { r.deletedAt = t }
func (r *Record) Persisted() bool           { return r.id != "" }

// TargetType names the kind of entity a comment or subscription points at.
type TargetType string

const (
	TargetIssue    TargetType = "issue"
	TargetTask     TargetType = "task"
	TargetProject  TargetType = "project"
	TargetCategory TargetType = "category"
)

// Target identifies a commentable or subscribable entity.
type Target struct {
	Type TargetType
	ID   string
}

// Path returns the web path of the target's show page.
func (t Target) Path() string {
	switch t.Type {
	case TargetCategory:
		return "/categories/" + t.ID
	case TargetProject:
		return "/projects/" + t.ID
	case TargetTask:
		return "/tasks/" + t.ID
	default:
		return "/issues/" + t.ID
	}
}
