package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
)

const taskColumns = `id, sequence, project_id, issue_id, user_id, assignee_id, task_type, summary, description, status, closed, opened_at, created_at, updated_at, deleted_at`

// TaskRepository implements [models.Repository] for [models.Task] persistence.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new [TaskRepository] with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(task *models.Task) error {
	if err := prepare(r.db, "tasks", task); err != nil {
		return err
	}

	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`
	_, err := r.db.Exec(query,
		task.ID(), task.Sequence(), task.ProjectID, nullString(task.IssueID), task.UserID, nullString(task.AssigneeID),
		task.TaskType, task.Summary, task.Description, task.Status, task.Closed, task.OpenedAt,
		task.CreatedAt(), task.UpdatedAt(),
	)
	if err != nil {
		return wrapWrite(err, "insert", "task")
	}
	return nil
}

func (r *TaskRepository) Get(id string) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, wrapGet(err, "task", id)
	}
	return task, nil
}

func (r *TaskRepository) Update(task *models.Task) error {
	return updateTask(r.db, task)
}

func updateTask(q querier, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	task.SetUpdatedAt(now)

	query := `
		UPDATE tasks
		SET project_id = ?, issue_id = ?, assignee_id = ?, task_type = ?, summary = ?, description = ?,
			status = ?, closed = ?, opened_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := q.Exec(query,
		task.ProjectID, nullString(task.IssueID), nullString(task.AssigneeID), task.TaskType, task.Summary, task.Description,
		task.Status, task.Closed, task.OpenedAt, now, task.ID(),
	)
	if err != nil {
		return wrapWrite(err, "update", "task")
	}
	return expectRow(result, "task", task.ID())
}

func (r *TaskRepository) Delete(id string) error {
	return softDelete(r.db, "tasks", "task", id)
}

// List retrieves tasks newest first.
//
// Supported criteria: "project_id", "issue_id", "user_id", "assignee_id", "status" (strings) and "closed" (bool).
func (r *TaskRepository) List(criteria map[string]any) ([]*models.Task, error) {
	f := newFilter()
	f.eqString(criteria, "project_id", "project_id")
	f.eqString(criteria, "issue_id", "issue_id")
	f.eqString(criteria, "user_id", "user_id")
	f.eqString(criteria, "assignee_id", "assignee_id")
	f.eqString(criteria, "status", "status")
	f.eqBool(criteria, "closed", "closed")

	rows, err := r.db.Query(`SELECT `+taskColumns+` FROM tasks`+f.sql()+` ORDER BY sequence DESC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return scanAll(rows, "task", scanTask)
}

func scanTask(s rowScanner) (*models.Task, error) {
	var (
		rec        record
		task       models.Task
		issueID    sql.NullString
		assigneeID sql.NullString
	)

	err := s.Scan(
		&rec.id, &rec.sequence, &task.ProjectID, &issueID, &task.UserID, &assigneeID,
		&task.TaskType, &task.Summary, &task.Description, &task.Status, &task.Closed, &task.OpenedAt,
		&rec.createdAt, &rec.updatedAt, &rec.deletedAt,
	)
	if err != nil {
		return nil, err
	}

	task.IssueID = issueID.String
	task.AssigneeID = assigneeID.String
	rec.apply(&task)
	return &task, nil
}
