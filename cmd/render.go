package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/roller/internal/markdown"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/urfave/cli/v3"
)

// Render prints the HTML the tracker would show for a markdown file.
func (r *Runner) Render(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: file", shared.ErrMissingArgument)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return r.writePlain("%s", markdown.Render(string(source)))
}
