package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
)

const categoryColumns = `id, sequence, name, visible, internal, created_at, updated_at, deleted_at`

// CategoryRepository implements [models.Repository] for [models.Category] persistence.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(category *models.Category) error {
	if err := prepare(r.db, "categories", category); err != nil {
		return err
	}

	_, err := r.db.Exec(`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		category.ID(), category.Sequence(), category.Name, category.Visible, category.Internal,
		category.CreatedAt(), category.UpdatedAt(),
	)
	if err != nil {
		return wrapWrite(err, "insert", "category")
	}
	return nil
}

func (r *CategoryRepository) Get(id string) (*models.Category, error) {
	category, err := scanCategory(r.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, wrapGet(err, "category", id)
	}
	return category, nil
}

func (r *CategoryRepository) Update(category *models.Category) error {
	if err := category.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	category.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE categories SET name = ?, visible = ?, internal = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		category.Name, category.Visible, category.Internal, now, category.ID(),
	)
	if err != nil {
		return wrapWrite(err, "update", "category")
	}
	return expectRow(result, "category", category.ID())
}

func (r *CategoryRepository) Delete(id string) error {
	return softDelete(r.db, "categories", "category", id)
}

// List returns categories ordered by name. Supported criteria: "visible" (bool), "internal" (bool).
func (r *CategoryRepository) List(criteria map[string]any) ([]*models.Category, error) {
	f := newFilter()
	f.eqBool(criteria, "visible", "visible")
	f.eqBool(criteria, "internal", "internal")

	rows, err := r.db.Query(`SELECT `+categoryColumns+` FROM categories`+f.sql()+` ORDER BY name ASC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	return scanAll(rows, "category", scanCategory)
}

func scanCategory(s rowScanner) (*models.Category, error) {
	var (
		rec      record
		category models.Category
	)
	if err := s.Scan(&rec.id, &rec.sequence, &category.Name, &category.Visible, &category.Internal, &rec.createdAt, &rec.updatedAt, &rec.deletedAt); err != nil {
		return nil, err
	}
	rec.apply(&category)
	return &category, nil
}
