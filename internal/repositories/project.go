package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
)

const projectColumns = `id, sequence, category_id, name, visible, internal, github_repo, github_url, created_at, updated_at, deleted_at`

// ProjectRepository implements [models.Repository] for [models.Project] persistence.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(project *models.Project) error {
	if err := prepare(r.db, "projects", project); err != nil {
		return err
	}

	_, err := r.db.Exec(`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		project.ID(), project.Sequence(), project.CategoryID, project.Name, project.Visible, project.Internal,
		project.GitHubRepo, project.GitHubURL, project.CreatedAt(), project.UpdatedAt(),
	)
	if err != nil {
		return wrapWrite(err, "insert", "project")
	}
	return nil
}

func (r *ProjectRepository) Get(id string) (*models.Project, error) {
	project, err := scanProject(r.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, wrapGet(err, "project", id)
	}
	return project, nil
}

// GetByRepo finds the project mirrored to a GitHub repository ("owner/name", case-insensitive).
func (r *ProjectRepository) GetByRepo(fullName string) (*models.Project, error) {
	project, err := scanProject(r.db.QueryRow(
		`SELECT `+projectColumns+` FROM projects WHERE github_repo = ? COLLATE NOCASE AND github_repo != '' AND deleted_at IS NULL ORDER BY sequence LIMIT 1`,
		fullName,
	))
	if err != nil {
		return nil, wrapGet(err, "project", fullName)
	}
	return project, nil
}

func (r *ProjectRepository) Update(project *models.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	project.SetUpdatedAt(now)

	result, err := r.db.Exec(`
		UPDATE projects
		SET category_id = ?, name = ?, visible = ?, internal = ?, github_repo = ?, github_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		project.CategoryID, project.Name, project.Visible, project.Internal, project.GitHubRepo, project.GitHubURL, now, project.ID(),
	)
	if err != nil {
		return wrapWrite(err, "update", "project")
	}
	return expectRow(result, "project", project.ID())
}

func (r *ProjectRepository) Delete(id string) error {
	return softDelete(r.db, "projects", "project", id)
}

// List returns projects ordered by name. Supported criteria: "category_id", "visible" (bool), "internal" (bool).
func (r *ProjectRepository) List(criteria map[string]any) ([]*models.Project, error) {
	f := newFilter()
	f.eqString(criteria, "category_id", "category_id")
	f.eqBool(criteria, "visible", "visible")
	f.eqBool(criteria, "internal", "internal")

	rows, err := r.db.Query(`SELECT `+projectColumns+` FROM projects`+f.sql()+` ORDER BY name ASC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	return scanAll(rows, "project", scanProject)
}

func scanProject(s rowScanner) (*models.Project, error) {
	var (
		rec     record
		project models.Project
	)
	err := s.Scan(
		&rec.id, &rec.sequence, &project.CategoryID, &project.Name, &project.Visible, &project.Internal,
		&project.GitHubRepo, &project.GitHubURL, &rec.createdAt, &rec.updatedAt, &rec.deletedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.apply(&project)
	return &project, nil
}
