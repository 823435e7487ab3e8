// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/roller/internal/models"
	"github.com/urfave/cli/v3"
)

func roleNames() string {
	names := make([]string, len(models.EmployeeTypes))
	for i, t := range models.EmployeeTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// serveCommand runs the web application and the job queue.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web server and background jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the tracker in the default browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "status",
				Usage:  "List migrations and whether they are applied",
				Action: r.SetupStatus,
			},
		},
	}
}

// usersCommand manages accounts from the command line, e.g. to create the first admin.
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage user accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					&cli.StringFlag{Name: "role", Usage: "One of " + roleNames(), Value: string(models.Reporter)},
					&cli.StringFlag{Name: "password", Usage: "Password (read from stdin when empty)"},
				},
				Action: r.UsersCreate,
			},
			{
				Name:  "list",
				Usage: "List users",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.UsersList,
			},
			{
				Name:  "promote",
				Usage: "Change a user's role",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "role", Usage: "One of " + roleNames(), Value: string(models.Admin)},
				},
				Action: r.UsersPromote,
			},
		},
	}
}

// issuesCommand reads issues straight from the database.
func issuesCommand(r *Runner) *cli.Command {
	filters := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "Only issues in this project ID"},
			&cli.StringFlag{Name: "status", Usage: "Only issues with this status"},
			&cli.BoolFlag{Name: "closed", Usage: "Show closed issues instead of open ones"},
		}
	}

	return &cli.Command{
		Name:  "issues",
		Usage: "List and export issues",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List issues",
				Flags:  filters(),
				Action: r.IssuesList,
			},
			{
				Name:  "export",
				Usage: "Export issues with their comments",
				Flags: append(filters(),
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, yaml, csv, markdown or text", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path (default: stdout)"},
				),
				Action: r.IssuesExport,
			},
		},
	}
}

// githubCommand runs the mirroring jobs by hand.
func githubCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "github",
		Aliases: []string{"gh"},
		Usage:   "GitHub mirroring",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Mirror one issue to its project's repository now",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "issue", Usage: "Issue ID", Required: true},
					&cli.StringFlag{Name: "action", Usage: "open, close or reopen", Value: "open"},
				},
				Action: r.GitHubSync,
			},
		},
	}
}

// webhookCommand helps test the webhook endpoint.
func webhookCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "webhook",
		Usage: "Webhook utilities",
		Commands: []*cli.Command{
			{
				Name:  "sign",
				Usage: "Print the X-Hub-Signature-256 header for a payload",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "secret", Usage: "Webhook secret (default: github.webhook_secret from config)"},
					&cli.StringFlag{Name: "file", Usage: "Payload file (default: stdin)"},
				},
				Action: r.WebhookSign,
			},
		},
	}
}

// renderCommand previews how a description or comment will look.
func renderCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render a markdown file to HTML as the tracker would",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Action: r.Render,
	}
}

// tuiCommand returns the top-level TUI command for browsing issues.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse issues in the terminal",
		Action:  r.TUI,
	}
}
