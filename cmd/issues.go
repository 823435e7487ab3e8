package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/desertthunder/roller/internal/formatter"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/urfave/cli/v3"
)

func issueCriteria(cmd *cli.Command) map[string]any {
	criteria := map[string]any{"closed": cmd.Bool("closed")}
	if p := cmd.String("project"); p != "" {
		criteria["project_id"] = p
	}
	if s := cmd.String("status"); s != "" {
		criteria["status"] = s
	}
	return criteria
}

// IssuesList prints matching issues, one per line.
func (r *Runner) IssuesList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	issues, err := repositories.NewIssueRepository(db).List(issueCriteria(cmd))
	if err != nil {
		return err
	}
	projects := r.projectNames(db)

	r.writePlainHeader(fmt.Sprintf("Issues (%d)", len(issues)))
	for _, i := range issues {
		remote := ""
		if i.GitHubNumber > 0 {
			remote = fmt.Sprintf(" #%d", i.GitHubNumber)
		}
		r.writePlain("%s  %-10s %-16s %-12s %s%s\n", i.ID(), i.IssueType, i.Status.Label(), projects[i.ProjectID], i.Summary, remote)
	}
	return nil
}

// IssuesExport writes matching issues and their comments in one of [formatter.Formats].
func (r *Runner) IssuesExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: format must be one of %s, got %q", shared.ErrInvalidArgument, strings.Join(formatter.Formats, ", "), format)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	issues, err := repositories.NewIssueRepository(db).List(issueCriteria(cmd))
	if err != nil {
		return err
	}
	export, err := r.buildExport(db, issues)
	if err != nil {
		return err
	}

	r.logger.Info("exporting issues", "count", len(export), "format", format)
	path := cmd.String("output")
	if path == "" {
		return formatter.Write(r.output, format, export)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := formatter.Write(f, format, export); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return r.writePlain("✓ Exported %d issues to %s\n", len(export), path)
}

func (r *Runner) buildExport(db *sql.DB, issues []*models.Issue) ([]formatter.IssueExport, error) {
	comments := repositories.NewCommentRepository(db)
	projects := r.projectNames(db)
	names := r.userNames(db)

	export := make([]formatter.IssueExport, 0, len(issues))
	for _, i := range issues {
		list, err := comments.ForTarget(i.Target())
		if err != nil {
			return nil, fmt.Errorf("failed to load comments for %s: %w", i.ID(), err)
		}

		e := formatter.IssueExport{
			ID:           i.ID(),
			Project:      projects[i.ProjectID],
			Type:         string(i.IssueType),
			Status:       string(i.Status),
			Summary:      i.Summary,
			Description:  i.Description,
			Reporter:     names[i.UserID],
			OpenedAt:     i.OpenedAt,
			Closed:       i.Closed,
			GitHubNumber: i.GitHubNumber,
			GitHubURL:    i.GitHubURL,
			Comments:     make([]formatter.CommentExport, 0, len(list)),
		}
		for _, c := range list {
			e.Comments = append(e.Comments, formatter.CommentExport{Author: names[c.UserID], Body: c.Body, CreatedAt: c.CreatedAt()})
		}
		export = append(export, e)
	}
	return export, nil
}

func (r *Runner) projectNames(db *sql.DB) map[string]string {
	names := map[string]string{}
	projects, err := repositories.NewProjectRepository(db).List(nil)
	if err != nil {
		r.logger.Warn("failed to list projects", "error", err)
		return names
	}
	for _, p := range projects {
		names[p.ID()] = p.Name
	}
	return names
}

func (r *Runner) userNames(db *sql.DB) map[string]string {
	names := map[string]string{}
	users, err := repositories.NewUserRepository(db).List(nil)
	if err != nil {
		r.logger.Warn("failed to list users", "error", err)
		return names
	}
	for _, u := range users {
		names[u.ID()] = u.Name
	}
	return names
}
