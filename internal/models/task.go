package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/shared"
)

// TaskType classifies a unit of work.
type TaskType string

const (
	TaskBug         TaskType = "Bug"
	TaskFeature     TaskType = "Feature"
	TaskImprovement TaskType = "Improvement"
)

var TaskTypes = []TaskType{TaskBug, TaskFeature, TaskImprovement}

// TaskStatus tracks a task through assignment and review.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskInReview   TaskStatus = "in_review"
	TaskApproved   TaskStatus = "approved"
	TaskClosed     TaskStatus = "closed"
)

var TaskStatuses = []TaskStatus{TaskOpen, TaskInProgress, TaskInReview, TaskApproved, TaskClosed}

func (s TaskStatus) Label() string { return strings.ReplaceAll(string(s), "_", " ") }

// Task is a unit of work in a project, optionally addressing an issue.
type Task struct {
	Record
	ProjectID   string     `validate:"required"`
	IssueID     string     // empty when the task is not tied to an issue
	UserID      string     `validate:"required"`
	AssigneeID  string     // empty when unassigned
	TaskType    TaskType   `validate:"required,oneof=Bug Feature Improvement"`
	Summary     string     `validate:"required,max=200"`
	Description string     `validate:"required,max=100000"`
	Status      TaskStatus `validate:"required,oneof=open in_progress in_review approved closed"`
	Closed      bool
	OpenedAt    time.Time
}

// NewTask creates an unsaved open task created by userID.
func NewTask(projectID, userID string, taskType TaskType, summary, description string) *Task {
	rec := newRecord()
	return &Task{
		Record:      rec,
		ProjectID:   projectID,
		UserID:      userID,
		TaskType:    taskType,
		Summary:     strings.TrimSpace(summary),
		Description: description,
		Status:      TaskOpen,
		OpenedAt:    rec.createdAt,
	}
}

func (t *Task) Validate() error { return Validate(t) }

func (t *Task) Target() Target { return Target{Type: TargetTask, ID: t.ID()} }

// Assign sets the assignee. An open task moves to in_progress; clearing the assignee of an
// in-progress task moves it back to open.
func (t *Task) Assign(userID string) error {
	if t.Closed {
		return fmt.Errorf("%w: task is closed", shared.ErrInvalidState)
	}
	if t.Status == TaskInReview {
		return fmt.Errorf("%w: task is in review", shared.ErrInvalidState)
	}

	t.AssigneeID = userID
	switch {
	case userID != "" && t.Status == TaskOpen:
		t.Status = TaskInProgress
	case userID == "" && t.Status == TaskInProgress:
		t.Status = TaskOpen
	}
	return nil
}

// RequestReview moves an in-progress task into review.
func (t *Task) RequestReview() error {
	if t.Status != TaskInProgress {
		return fmt.Errorf("%w: only in-progress tasks can be reviewed", shared.ErrInvalidState)
	}
	t.Status = TaskInReview
	return nil
}

// Approve closes a task under review as approved.
func (t *Task) Approve() error {
	if t.Status != TaskInReview {
		return fmt.Errorf("%w: task is not in review", shared.ErrInvalidState)
	}
	t.Status = TaskApproved
	t.Closed = true
	return nil
}

// Disapprove sends a task under review back to its assignee.
func (t *Task) Disapprove() error {
	if t.Status != TaskInReview {
		return fmt.Errorf("%w: task is not in review", shared.ErrInvalidState)
	}
	t.Status = TaskInProgress
	return nil
}

// Close marks the task closed without review.
func (t *Task) Close() error {
	if t.Closed {
		return fmt.Errorf("%w: task already closed", shared.ErrInvalidState)
	}
	t.Closed = true
	t.Status = TaskClosed
	return nil
}

// Reopen reopens a closed or approved task, keeping its assignee.
func (t *Task) Reopen(now time.Time) error {
	if !t.Closed {
		return fmt.Errorf("%w: task is not closed", shared.ErrInvalidState)
	}
	t.Closed = false
	t.OpenedAt = now
	t.Status = TaskOpen
	if t.AssigneeID != "" {
		t.Status = TaskInProgress
	}
	return nil
}
