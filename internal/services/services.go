// package services defines interface IssueService for mirroring issues to a remote tracker
//
// GitHub
package services

import (
	"context"
)

// Remote issue states accepted by [IssueService.SetIssueState].
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// IssueService is a remote issue tracker that local issues are mirrored to.
type IssueService interface {
	// CreateIssue opens a new issue in repo and returns its number and URL.
	CreateIssue(ctx context.Context, repo, title, body string) (*RemoteIssue, error)

	// SetIssueState opens or closes an existing remote issue.
	SetIssueState(ctx context.Context, repo string, number int, state string) (*RemoteIssue, error)

	// CreateComment posts body as a comment on a remote issue.
	CreateComment(ctx context.Context, repo string, number int, body string) (*RemoteComment, error)

	// Name returns the name of the service (e.g., "GitHub")
	Name() string
}

// RemoteIssue is an issue as the remote tracker reports it.
type RemoteIssue struct {
	Number int
	URL    string
	State  string
}

// RemoteComment is a comment as the remote tracker reports it.
type RemoteComment struct {
	ID  int64
	URL string
}
