package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/services"
	"github.com/desertthunder/roller/internal/shared"
)

// IssueStore is the issue persistence a repo issue job needs.
type IssueStore interface {
	Get(id string) (*models.Issue, error)
	SetRemote(id string, number int, url string) error
}

// ProjectStore looks up the project an issue belongs to.
type ProjectStore interface {
	Get(id string) (*models.Project, error)
}

// CommentStore looks up comments to mirror.
type CommentStore interface {
	Get(id string) (*models.Comment, error)
}

// Deps are the collaborators shared by every repo issue job.
type Deps struct {
	Issues   IssueStore
	Projects ProjectStore
	Comments CommentStore
	Client   services.IssueService // nil when no GitHub token is configured
	Logger   *log.Logger
}

// RepoIssueJob is the base of the jobs that mirror one issue to GitHub.
type RepoIssueJob struct {
	Deps
	IssueID string
}

// target is what a repo issue job operates on once resolved.
type target struct {
	issue   *models.Issue
	project *models.Project
}

// resolve loads the issue and its project. ok is false when the job should do nothing:
// no client, or the issue is gone.
func (j *RepoIssueJob) resolve() (t target, ok bool, err error) {
	if j.client() == nil {
		j.logf("no GitHub client configured, skipping issue %s", j.IssueID)
		return t, false, nil
	}
	if j.Issues == nil || j.IssueID == "" {
		return t, false, nil
	}

	issue, err := j.Issues.Get(j.IssueID)
	if errors.Is(err, shared.ErrNotFound) {
		j.logf("issue %s not found, skipping", j.IssueID)
		return t, false, nil
	}
	if err != nil {
		return t, false, fmt.Errorf("failed to load issue: %w", err)
	}

	t.issue = issue
	if j.Projects != nil {
		project, err := j.Projects.Get(issue.ProjectID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return t, false, fmt.Errorf("failed to load project: %w", err)
		}
		t.project = project
	}
	return t, true, nil
}

// resolveRemote is resolve plus the requirement that the issue is already mirrored.
func (j *RepoIssueJob) resolveRemote() (target, bool, error) {
	t, ok, err := j.resolve()
	if !ok || err != nil {
		return t, ok, err
	}
	if !t.issue.HasRemote() || !t.project.HasRepo() {
		j.logf("issue %s is not mirrored, skipping", j.IssueID)
		return t, false, nil
	}
	return t, true, nil
}

// client returns the GitHub client, treating a typed nil as missing.
func (j *RepoIssueJob) client() services.IssueService {
	if gh, ok := j.Client.(*services.GitHubClient); ok && gh == nil {
		return nil
	}
	return j.Client
}

func (j *RepoIssueJob) logf(format string, args ...any) {
	if j.Logger != nil {
		j.Logger.Debugf(format, args...)
	}
}

// OpenIssueJob creates the remote issue for a local one.
type OpenIssueJob struct{ RepoIssueJob }

func NewOpenIssueJob(deps Deps, issueID string) *OpenIssueJob {
	return &OpenIssueJob{RepoIssueJob{Deps: deps, IssueID: issueID}}
}

func (j *OpenIssueJob) Name() string { return "open_issue:" + j.IssueID }

func (j *OpenIssueJob) Perform(ctx context.Context) error {
	t, ok, err := j.resolve()
	if !ok || err != nil {
		return err
	}
	if t.issue.HasRemote() || !t.project.HasRepo() {
		return nil
	}

	remote, err := j.client().CreateIssue(ctx, t.project.GitHubRepo, t.issue.Summary, t.issue.Description)
	if err != nil {
		return fmt.Errorf("failed to open remote issue: %w", err)
	}

	if err := j.Issues.SetRemote(t.issue.ID(), remote.Number, remote.URL); err != nil {
		return fmt.Errorf("failed to store remote issue #%d: %w", remote.Number, err)
	}
	return nil
}

// CloseIssueJob closes the remote issue.
type CloseIssueJob struct{ RepoIssueJob }

func NewCloseIssueJob(deps Deps, issueID string) *CloseIssueJob {
	return &CloseIssueJob{RepoIssueJob{Deps: deps, IssueID: issueID}}
}

func (j *CloseIssueJob) Name() string { return "close_issue:" + j.IssueID }

func (j *CloseIssueJob) Perform(ctx context.Context) error {
	return j.setState(ctx, services.StateClosed)
}

// ReopenIssueJob reopens the remote issue.
type ReopenIssueJob struct{ RepoIssueJob }

func NewReopenIssueJob(deps Deps, issueID string) *ReopenIssueJob {
	return &ReopenIssueJob{RepoIssueJob{Deps: deps, IssueID: issueID}}
}

func (j *ReopenIssueJob) Name() string { return "reopen_issue:" + j.IssueID }

func (j *ReopenIssueJob) Perform(ctx context.Context) error {
	return j.setState(ctx, services.StateOpen)
}

func (j *RepoIssueJob) setState(ctx context.Context, state string) error {
	t, ok, err := j.resolveRemote()
	if !ok || err != nil {
		return err
	}

	if _, err := j.client().SetIssueState(ctx, t.project.GitHubRepo, t.issue.GitHubNumber, state); err != nil {
		return fmt.Errorf("failed to set remote issue #%d %s: %w", t.issue.GitHubNumber, state, err)
	}
	return nil
}

// CommentIssueJob posts a local comment to the remote issue.
type CommentIssueJob struct {
	RepoIssueJob
	CommentID string
}

func NewCommentIssueJob(deps Deps, issueID, commentID string) *CommentIssueJob {
	return &CommentIssueJob{RepoIssueJob: RepoIssueJob{Deps: deps, IssueID: issueID}, CommentID: commentID}
}

func (j *CommentIssueJob) Name() string { return "comment_issue:" + j.IssueID + ":" + j.CommentID }

func (j *CommentIssueJob) Perform(ctx context.Context) error {
	t, ok, err := j.resolveRemote()
	if !ok || err != nil {
		return err
	}
	if j.Comments == nil {
		return nil
	}

	comment, err := j.Comments.Get(j.CommentID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load comment: %w", err)
	}

	if _, err := j.client().CreateComment(ctx, t.project.GitHubRepo, t.issue.GitHubNumber, comment.Body); err != nil {
		return fmt.Errorf("failed to post comment to remote issue #%d: %w", t.issue.GitHubNumber, err)
	}
	return nil
}
