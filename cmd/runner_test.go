package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/roller/internal/formatter"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/server"
	"github.com/desertthunder/roller/internal/services"
	"github.com/desertthunder/roller/internal/shared"
	tu "github.com/desertthunder/roller/internal/testing"
	"github.com/stretchr/testify/mock"
	"gopkg.in/yaml.v3"
)

// run executes the CLI against db with a missing config file, returning stdout.
func run(t *testing.T, db *sql.DB, opts RunnerOpts, args ...string) (string, error) {
	t.Helper()
	output := &bytes.Buffer{}
	opts.DB = db
	opts.Output = output
	opts.Logger = tu.QuietLogger()
	runner := NewRunner(opts)

	missing := filepath.Join(t.TempDir(), "config.toml")
	argv := append([]string{"roller", "--config", missing}, args...)
	err := newApp(runner).Run(context.Background(), argv)
	return output.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			client := &tu.MockIssueService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				GitHub:     client,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.githubClient() != client {
				t.Error("expected github client to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("without a token there is no github client", func(t *testing.T) {
			t.Setenv("ROLLER_GITHUB_TOKEN", "")
			config := shared.DefaultConfig()
			config.GitHub.Token = ""
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.githubClient() != nil {
				t.Error("expected a nil IssueService, not a typed nil")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: tu.NewLimitedWriter(1, &bytes.Buffer{})})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"serve", "setup", "users", "issues", "github", "webhook", "render", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil || cmd.Name != want[i] {
				t.Errorf("command %d: expected %s, got %v", i, want[i], cmd)
			}
		}
	})
}

func TestConfigLoading(t *testing.T) {
	t.Run("broken config is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[server\nport ="), 0600); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: tu.QuietLogger()})
		err := newApp(runner).Run(context.Background(), []string{"roller", "--config", path, "render", path})
		if err == nil {
			t.Fatal("expected a config error")
		}
	})

	t.Run("setup config writes the example", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: tu.QuietLogger()})

		if err := newApp(runner).Run(context.Background(), []string{"roller", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "[github]") {
			t.Error("expected the example config")
		}

		if err := newApp(runner).Run(context.Background(), []string{"roller", "--config", path, "setup", "config"}); err == nil {
			t.Error("expected an error when the file exists")
		}
	})
}

func TestSetupCommands(t *testing.T) {
	db := tu.NewTestDB(t)

	out, err := run(t, db, RunnerOpts{}, "setup", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "✓ 0001") {
		t.Errorf("expected the first migration applied, got %q", out)
	}

	if _, err := run(t, db, RunnerOpts{}, "setup", "database"); err != nil {
		t.Fatalf("database failed: %v", err)
	}
}

func TestUsersCommands(t *testing.T) {
	db := tu.NewTestDB(t)

	t.Run("create with password on stdin", func(t *testing.T) {
		out, err := run(t, db, RunnerOpts{Input: strings.NewReader("sup3r secret\n")},
			"users", "create", "--email", "Root@Example.com", "--name", "Root", "--role", "admin")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if !strings.Contains(out, "Created Root <root@example.com> (Admin)") {
			t.Errorf("unexpected output %q", out)
		}

		u, err := repositories.NewUserRepository(db).GetByEmail("root@example.com")
		if err != nil {
			t.Fatalf("user not stored: %v", err)
		}
		if !u.CheckPassword("sup3r secret") {
			t.Error("expected the password from stdin")
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, err := run(t, db, RunnerOpts{}, "users", "create", "--email", "x@example.com", "--name", "X", "--password", "short")
		if err == nil {
			t.Fatal("expected a validation error")
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := run(t, db, RunnerOpts{}, "users", "create", "--email", "y@example.com", "--name", "Y", "--role", "boss", "--password", "long enough")
		if err == nil || !strings.Contains(err.Error(), "role must be one of") {
			t.Fatalf("expected a role error, got %v", err)
		}
	})

	t.Run("promote", func(t *testing.T) {
		if _, err := run(t, db, RunnerOpts{}, "users", "create", "--email", "w@example.com", "--name", "W", "--role", "Worker", "--password", "long enough"); err != nil {
			t.Fatal(err)
		}
		out, err := run(t, db, RunnerOpts{}, "users", "promote", "--email", "w@example.com", "--role", "Reviewer")
		if err != nil {
			t.Fatalf("promote failed: %v", err)
		}
		if !strings.Contains(out, "Promoted w@example.com from Worker to Reviewer") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("list as json", func(t *testing.T) {
		out, err := run(t, db, RunnerOpts{}, "users", "list", "--json")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var rows []userRow
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(rows) != 2 {
			t.Errorf("expected 2 users, got %d", len(rows))
		}
		if strings.Contains(out, "$2a$") {
			t.Error("password hashes must not be exported")
		}
	})
}

func TestIssuesCommands(t *testing.T) {
	db := tu.NewTestDB(t)
	fx := tu.Seed(t, db)

	comment := models.NewComment(fx.Worker.ID(), fx.Issue.Target(), "Reproduced on main.")
	if err := repositories.NewCommentRepository(db).Create(comment); err != nil {
		t.Fatal(err)
	}

	t.Run("list", func(t *testing.T) {
		out, err := run(t, db, RunnerOpts{}, "issues", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, "Crash on save") || !strings.Contains(out, "Roller") {
			t.Errorf("unexpected output %q", out)
		}

		out, err = run(t, db, RunnerOpts{}, "issues", "list", "--closed")
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out, "Crash on save") {
			t.Error("open issue listed as closed")
		}
	})

	t.Run("export json", func(t *testing.T) {
		out, err := run(t, db, RunnerOpts{}, "issues", "export")
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		var export []formatter.IssueExport
		if err := json.Unmarshal([]byte(out), &export); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(export) != 1 || len(export[0].Comments) != 1 {
			t.Fatalf("expected one issue with one comment, got %+v", export)
		}
		if export[0].Reporter != fx.Reporter.Name || export[0].Comments[0].Author != fx.Worker.Name {
			t.Errorf("expected author names, got %+v", export[0])
		}
	})

	t.Run("export yaml to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "issues.yaml")
		if _, err := run(t, db, RunnerOpts{}, "issues", "export", "--format", "yaml", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		var export []formatter.IssueExport
		if err := yaml.Unmarshal([]byte(tu.MustReadFile(t, path)), &export); err != nil {
			t.Fatalf("invalid yaml: %v", err)
		}
		if len(export) != 1 || export[0].Summary != "Crash on save" {
			t.Errorf("unexpected export %+v", export)
		}
	})

	t.Run("export markdown", func(t *testing.T) {
		out, err := run(t, db, RunnerOpts{}, "issues", "export", "-f", "markdown")
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(out, "## Crash on save") || !strings.Contains(out, "Reproduced on main.") {
			t.Errorf("unexpected markdown %q", out)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, db, RunnerOpts{}, "issues", "export", "--format", "xml")
		if err == nil {
			t.Fatal("expected a format error")
		}
	})
}

func TestGitHubSync(t *testing.T) {
	t.Run("opens the remote issue", func(t *testing.T) {
		db := tu.NewTestDB(t)
		fx := tu.Seed(t, db)
		client := &tu.MockIssueService{}
		client.On("CreateIssue", mock.Anything, "acme/roller", "Crash on save", mock.Anything).
			Return(&services.RemoteIssue{Number: 7, URL: "https://github.com/acme/roller/issues/7"}, nil)

		out, err := run(t, db, RunnerOpts{GitHub: client}, "github", "sync", "--issue", fx.Issue.ID())
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if !strings.Contains(out, "#7") {
			t.Errorf("unexpected output %q", out)
		}
		client.AssertExpectations(t)
	})

	t.Run("requires a token", func(t *testing.T) {
		t.Setenv("ROLLER_GITHUB_TOKEN", "")
		db := tu.NewTestDB(t)
		config := shared.DefaultConfig()
		config.GitHub.Token = ""

		_, err := run(t, db, RunnerOpts{Config: config}, "github", "sync", "--issue", "x")
		if err == nil || !strings.Contains(err.Error(), shared.ErrMissingCredentials.Error()) {
			t.Fatalf("expected missing credentials, got %v", err)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		db := tu.NewTestDB(t)
		_, err := run(t, db, RunnerOpts{GitHub: &tu.MockIssueService{}}, "github", "sync", "--issue", "x", "--action", "merge")
		if err == nil {
			t.Fatal("expected an action error")
		}
	})
}

func TestWebhookSign(t *testing.T) {
	body := "Hello, World!"
	out, err := run(t, nil, RunnerOpts{Input: strings.NewReader(body)}, "webhook", "sign", "--secret", "It's a Secret to Everybody")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	want := server.SignatureHeader + ": sha256=757107ea0eb2509fc211221cce984b8a37570b6d7586c22c46f4379c8b043e17\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("# Title\n\nSome **bold** text."), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, nil, RunnerOpts{}, "render", path)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("unexpected output %q", out)
	}
}
