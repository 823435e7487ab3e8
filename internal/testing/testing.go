// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/services"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/stretchr/testify/mock"
)

// Password is the password every seeded user signs in with.
const Password = "correct horse battery"

// NewTestDB creates an in-memory SQLite database with migrations applied, closed on cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// QuietLogger discards everything.
func QuietLogger() *log.Logger {
	return log.New(io.Discard)
}

// Fixture is one user per role plus a category, a project linked to acme/roller and an open issue.
type Fixture struct {
	Admin    *models.User
	Reviewer *models.User
	Worker   *models.User
	Reporter *models.User
	Category *models.Category
	Project  *models.Project
	Issue    *models.Issue
}

// Seed writes a [Fixture] into db.
func Seed(t *testing.T, db *sql.DB) Fixture {
	t.Helper()

	users := repositories.NewUserRepository(db)
	newUser := func(email, name string, role models.EmployeeType) *models.User {
		u := models.NewUser(email, name, role)
		if err := u.SetPassword(Password); err != nil {
			t.Fatalf("failed to set password: %v", err)
		}
		if err := users.Create(u); err != nil {
			t.Fatalf("failed to create user %s: %v", email, err)
		}
		return u
	}

	f := Fixture{
		Admin:    newUser("admin@example.com", "Ada Admin", models.Admin),
		Reviewer: newUser("reviewer@example.com", "Rita Reviewer", models.Reviewer),
		Worker:   newUser("worker@example.com", "Walt Worker", models.Worker),
		Reporter: newUser("reporter@example.com", "Remy Reporter", models.Reporter),
		Category: models.NewCategory("Apps"),
	}

	if err := repositories.NewCategoryRepository(db).Create(f.Category); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	f.Project = models.NewProject(f.Category.ID(), "Roller")
	f.Project.GitHubRepo = "acme/roller"
	if err := repositories.NewProjectRepository(db).Create(f.Project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	f.Issue = models.NewIssue(f.Project.ID(), f.Reporter.ID(), models.IssueBug, "Crash on save", "Saving a **draft** crashes.")
	if err := repositories.NewIssueRepository(db).Create(f.Issue); err != nil {
		t.Fatalf("failed to create issue: %v", err)
	}
	return f
}

// MockIssueService is a testify mock of [services.IssueService].
type MockIssueService struct {
	mock.Mock
}

func (m *MockIssueService) Name() string { return "mock" }

func (m *MockIssueService) CreateIssue(ctx context.Context, repo, title, body string) (*services.RemoteIssue, error) {
	args := m.Called(ctx, repo, title, body)
	issue, _ := args.Get(0).(*services.RemoteIssue)
	return issue, args.Error(1)
}

func (m *MockIssueService) SetIssueState(ctx context.Context, repo string, number int, state string) (*services.RemoteIssue, error) {
	args := m.Called(ctx, repo, number, state)
	issue, _ := args.Get(0).(*services.RemoteIssue)
	return issue, args.Error(1)
}

func (m *MockIssueService) CreateComment(ctx context.Context, repo string, number int, body string) (*services.RemoteComment, error) {
	args := m.Called(ctx, repo, number, body)
	comment, _ := args.Get(0).(*services.RemoteComment)
	return comment, args.Error(1)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
