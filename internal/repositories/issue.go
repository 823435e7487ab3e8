package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
)

const issueColumns = `id, sequence, project_id, user_id, issue_type, summary, description, status, closed, opened_at, github_number, github_url, created_at, updated_at, deleted_at`

// IssueRepository implements [models.Repository] for [models.Issue] persistence.
type IssueRepository struct {
	db *sql.DB
}

// NewIssueRepository creates a new [IssueRepository] with the given database connection
func NewIssueRepository(db *sql.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts a new issue. The issue's sequence doubles as its display number.
func (r *IssueRepository) Create(issue *models.Issue) error {
	if err := prepare(r.db, "issues", issue); err != nil {
		return err
	}

	query := `INSERT INTO issues (` + issueColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`
	_, err := r.db.Exec(query,
		issue.ID(), issue.Sequence(), issue.ProjectID, issue.UserID, issue.IssueType, issue.Summary, issue.Description,
		issue.Status, issue.Closed, issue.OpenedAt, issue.GitHubNumber, issue.GitHubURL,
		issue.CreatedAt(), issue.UpdatedAt(),
	)
	if err != nil {
		return wrapWrite(err, "insert", "issue")
	}
	return nil
}

// Get retrieves an issue by ID, excluding soft-deleted issues
func (r *IssueRepository) Get(id string) (*models.Issue, error) {
	issue, err := scanIssue(r.db.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, wrapGet(err, "issue", id)
	}
	return issue, nil
}

// Update writes every user-editable column of issue. The GitHub columns belong to [IssueRepository.SetRemote].
func (r *IssueRepository) Update(issue *models.Issue) error {
	if err := issue.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	issue.SetUpdatedAt(now)

	query := `
		UPDATE issues
		SET project_id = ?, issue_type = ?, summary = ?, description = ?, status = ?, closed = ?,
			opened_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query,
		issue.ProjectID, issue.IssueType, issue.Summary, issue.Description, issue.Status, issue.Closed,
		issue.OpenedAt, now, issue.ID(),
	)
	if err != nil {
		return wrapWrite(err, "update", "issue")
	}
	return expectRow(result, "issue", issue.ID())
}

// SetRemote records the GitHub issue an issue was mirrored to without touching other columns,
// so a job finishing late cannot overwrite edits made in the meantime.
func (r *IssueRepository) SetRemote(id string, number int, url string) error {
	result, err := r.db.Exec(
		`UPDATE issues SET github_number = ?, github_url = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		number, url, time.Now().UTC(), id,
	)
	if err != nil {
		return wrapWrite(err, "update", "issue")
	}
	return expectRow(result, "issue", id)
}

func (r *IssueRepository) Delete(id string) error {
	return softDelete(r.db, "issues", "issue", id)
}

// List retrieves issues newest first.
//
// Supported criteria: "project_id", "user_id", "status", "issue_type" (strings) and "closed" (bool).
func (r *IssueRepository) List(criteria map[string]any) ([]*models.Issue, error) {
	f := newFilter()
	f.eqString(criteria, "project_id", "project_id")
	f.eqString(criteria, "user_id", "user_id")
	f.eqString(criteria, "status", "status")
	f.eqString(criteria, "issue_type", "issue_type")
	f.eqBool(criteria, "closed", "closed")

	rows, err := r.db.Query(`SELECT `+issueColumns+` FROM issues`+f.sql()+` ORDER BY sequence DESC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	return scanAll(rows, "issue", scanIssue)
}

func scanIssue(s rowScanner) (*models.Issue, error) {
	var (
		rec   record
		issue models.Issue
	)

	err := s.Scan(
		&rec.id, &rec.sequence, &issue.ProjectID, &issue.UserID, &issue.IssueType, &issue.Summary, &issue.Description,
		&issue.Status, &issue.Closed, &issue.OpenedAt, &issue.GitHubNumber, &issue.GitHubURL,
		&rec.createdAt, &rec.updatedAt, &rec.deletedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.apply(&issue)
	return &issue, nil
}
