package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/shared"
)

// IssueType classifies a reported issue.
type IssueType string

const (
	IssueBug        IssueType = "Bug"
	IssueSuggestion IssueType = "Suggestion"
	IssueQuestion   IssueType = "Question"
)

var IssueTypes = []IssueType{IssueBug, IssueSuggestion, IssueQuestion}

// IssueStatus tracks an issue from report to resolution.
type IssueStatus string

const (
	IssueOpen          IssueStatus = "open"
	IssueBeingWorkedOn IssueStatus = "being_worked_on"
	IssueAddressed     IssueStatus = "addressed"
	IssueResolved      IssueStatus = "resolved"
	IssueClosed        IssueStatus = "closed"
)

var IssueStatuses = []IssueStatus{IssueOpen, IssueBeingWorkedOn, IssueAddressed, IssueResolved, IssueClosed}

// Label returns the status for display, e.g. "being worked on".
func (s IssueStatus) Label() string { return strings.ReplaceAll(string(s), "_", " ") }

// Issue is a problem, suggestion or question reported against a project.
type Issue struct {
	Record
	ProjectID    string      `validate:"required"`
	UserID       string      `validate:"required"`
	IssueType    IssueType   `validate:"required,oneof=Bug Suggestion Question"`
	Summary      string      `validate:"required,max=200"`
	Description  string      `validate:"required,max=100000"`
	Status       IssueStatus `validate:"required,oneof=open being_worked_on addressed resolved closed"`
	Closed       bool
	OpenedAt     time.Time
	GitHubNumber int    `validate:"gte=0"`
	GitHubURL    string `validate:"omitempty,url"`
}

// NewIssue creates an unsaved open issue reported by userID.
func NewIssue(projectID, userID string, issueType IssueType, summary, description string) *Issue {
	rec := newRecord()
	return &Issue{
		Record:      rec,
		ProjectID:   projectID,
		UserID:      userID,
		IssueType:   issueType,
		Summary:     strings.TrimSpace(summary),
		Description: description,
		Status:      IssueOpen,
		OpenedAt:    rec.createdAt,
	}
}

func (i *Issue) Validate() error { return Validate(i) }

func (i *Issue) Target() Target { return Target{Type: TargetIssue, ID: i.ID()} }

// HasRemote reports whether the issue has been mirrored to GitHub.
func (i *Issue) HasRemote() bool { return i != nil && i.GitHubNumber > 0 }

// Close marks the issue closed.
func (i *Issue) Close() error {
	if i.Closed {
		return fmt.Errorf("%w: issue already closed", shared.ErrInvalidState)
	}
	i.Closed = true
	i.Status = IssueClosed
	return nil
}

// Reopen marks a closed issue open again and restarts its open clock.
func (i *Issue) Reopen(now time.Time) error {
	if !i.Closed {
		return fmt.Errorf("%w: issue is not closed", shared.ErrInvalidState)
	}
	i.Closed = false
	i.Status = IssueOpen
	i.OpenedAt = now
	return nil
}

// SetStatus moves an open issue between the non-terminal statuses.
func (i *Issue) SetStatus(status IssueStatus) error {
	if i.Closed {
		return fmt.Errorf("%w: reopen the issue before changing its status", shared.ErrInvalidState)
	}
	if status == IssueClosed {
		return i.Close()
	}
	i.Status = status
	return nil
}
