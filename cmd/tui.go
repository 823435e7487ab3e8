package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/desertthunder/roller/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive issue browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Keep logs off the terminal while bubbletea owns it
	var w io.Writer = io.Discard
	if r.config.Log.File != "" {
		fw := shared.NewFileWriter(r.config.Log)
		defer fw.Close()
		w = fw
	}
	logger := shared.NewLogger(w)
	shared.SetLogLevel(logger, shared.ParseLevel(r.config.Log.Level))
	r.logger = logger

	db, err := r.database()
	if err != nil {
		return err
	}

	model := ui.NewModel(ui.Stores{
		Issues:   repositories.NewIssueRepository(db),
		Projects: repositories.NewProjectRepository(db),
		Comments: repositories.NewCommentRepository(db),
		Users:    repositories.NewUserRepository(db),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
