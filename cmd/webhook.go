package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/roller/internal/server"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/urfave/cli/v3"
)

// WebhookSign prints the signature header GitHub would send for a payload.
func (r *Runner) WebhookSign(ctx context.Context, cmd *cli.Command) error {
	secret := cmd.String("secret")
	if secret == "" {
		secret = r.config.GitHub.WebhookSecret
	}
	if secret == "" {
		return fmt.Errorf("%w: --secret or github.webhook_secret", shared.ErrMissingArgument)
	}

	var body []byte
	var err error
	if path := cmd.String("file"); path != "" {
		body, err = os.ReadFile(path)
	} else {
		body, err = io.ReadAll(r.input)
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	return r.writePlain("%s: %s\n", server.SignatureHeader, server.SignPayload([]byte(secret), body))
}
