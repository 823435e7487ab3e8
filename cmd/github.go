package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/roller/internal/jobs"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/urfave/cli/v3"
)

// GitHubSync runs one mirroring job in the foreground, bypassing the queue.
func (r *Runner) GitHubSync(ctx context.Context, cmd *cli.Command) error {
	client := r.githubClient()
	if client == nil {
		return fmt.Errorf("%w: set github.token or ROLLER_GITHUB_TOKEN", shared.ErrMissingCredentials)
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	issues := repositories.NewIssueRepository(db)
	deps := jobs.Deps{
		Issues:   issues,
		Projects: repositories.NewProjectRepository(db),
		Comments: repositories.NewCommentRepository(db),
		Client:   client,
		Logger:   r.logger,
	}

	id := cmd.String("issue")
	var job jobs.Job
	switch action := cmd.String("action"); action {
	case "open":
		job = jobs.NewOpenIssueJob(deps, id)
	case "close":
		job = jobs.NewCloseIssueJob(deps, id)
	case "reopen":
		job = jobs.NewReopenIssueJob(deps, id)
	default:
		return fmt.Errorf("%w: action must be open, close or reopen, got %q", shared.ErrInvalidArgument, action)
	}

	r.logger.Info("running job", "job", job.Name())
	if err := job.Perform(ctx); err != nil {
		return err
	}

	issue, err := issues.Get(id)
	if err != nil {
		return err
	}
	if issue.GitHubNumber == 0 {
		return r.writePlain("Nothing mirrored: the issue's project has no GitHub repository\n")
	}
	return r.writePlain("✓ %s → #%d %s\n", job.Name(), issue.GitHubNumber, issue.GitHubURL)
}
