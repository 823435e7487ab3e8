// Package web serves the tracker's HTML interface.
//
// Pages are rendered server side from embedded html/template files. Every form posts back with a
// CSRF token and, for PATCH and DELETE, a _method field that [server.MethodOverride] turns into
// the real method before routing.
//
// # Sessions
//
// Signing in stores a [models.Session] in SQLite and sets the roller_session cookie. Guests get a
// roller_csrf cookie instead, so the sign-in form is protected the same way.
//
// # Authorization
//
// Handlers load the resource, ask [policy.Authorize] and map the result: guests are redirected to
// the sign-in page and everyone else sees a 403 page.
//
// # Side effects
//
// Successful writes subscribe the actor to what they touched, enqueue GitHub mirroring jobs for
// issues and enqueue one mail job per subscriber. Enqueue failures are logged and never fail the
// request.
package web

import (
	"database/sql"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roller/internal/jobs"
	"github.com/desertthunder/roller/internal/mailer"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/server"
	"github.com/desertthunder/roller/internal/services"
	"github.com/desertthunder/roller/internal/shared"
)

// Stores groups the repositories the web app reads and writes.
type Stores struct {
	Users         *repositories.UserRepository
	Categories    *repositories.CategoryRepository
	Projects      *repositories.ProjectRepository
	Issues        *repositories.IssueRepository
	Tasks         *repositories.TaskRepository
	Comments      *repositories.CommentRepository
	Subscriptions *repositories.SubscriptionRepository
	Reviews       *repositories.ReviewRepository
	Sessions      *repositories.SessionRepository
}

// NewStores builds every repository on db.
func NewStores(db *sql.DB) Stores {
	return Stores{
		Users:         repositories.NewUserRepository(db),
		Categories:    repositories.NewCategoryRepository(db),
		Projects:      repositories.NewProjectRepository(db),
		Issues:        repositories.NewIssueRepository(db),
		Tasks:         repositories.NewTaskRepository(db),
		Comments:      repositories.NewCommentRepository(db),
		Subscriptions: repositories.NewSubscriptionRepository(db),
		Reviews:       repositories.NewReviewRepository(db),
		Sessions:      repositories.NewSessionRepository(db),
	}
}

// Options configures an [App].
type Options struct {
	Config    *shared.Config
	DB        *sql.DB
	Logger    *log.Logger
	Queue     jobs.Enqueuer
	Mailer    *mailer.Mailer
	Deliverer mailer.Deliverer
	GitHub    services.IssueService // nil disables issue mirroring
}

// App holds the web application's collaborators.
type App struct {
	cfg       *shared.Config
	db        *sql.DB
	stores    Stores
	logger    *log.Logger
	queue     jobs.Enqueuer
	mailer    *mailer.Mailer
	deliverer mailer.Deliverer
	github    services.IssueService
	views     *views
}

// New creates the app and parses its templates.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	v, err := loadViews()
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		db:        opts.DB,
		stores:    NewStores(opts.DB),
		logger:    logger.WithPrefix("web"),
		queue:     opts.Queue,
		mailer:    opts.Mailer,
		deliverer: opts.Deliverer,
		github:    opts.GitHub,
		views:     v,
	}, nil
}

// Stores exposes the app's repositories.
func (a *App) Stores() Stores { return a.stores }

// Handler returns the complete HTTP handler: webhook, health check, OAuth and every page.
//
// The webhook, health check and static assets sit outside the session, CSRF and method
// override layers; the webhook needs the raw body for its signature.
func (a *App) Handler() http.Handler {
	root := server.NewBasicRouter()
	root.Use(server.Recover(a.logger), server.Logging(a.logger))

	root.Handler(server.NewWebhookHandler(a.cfg.GitHub.WebhookSecret, a.stores.Projects, a.logger))
	root.HandleFunc(http.MethodGet, "/healthz", a.healthz)
	root.Handle("", "/static/", staticHandler())

	pages := server.NewBasicRouter()
	pages.Use(a.loadSession, a.verifyCSRF)
	if a.cfg.GitHub.ClientID != "" {
		oauth := server.NewOAuthHandler(services.GitHubOAuthConfig(a.cfg.GitHub), a.finishGitHubSignIn, a.logger)
		pages.Handler(oauth)
	}
	a.routes(pages)

	root.Handle("", "/", server.MethodOverride(pages))
	return root
}

func (a *App) routes(r *server.BasicRouter) {
	r.HandleFunc(http.MethodGet, "/{$}", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/issues", http.StatusFound)
	})

	r.HandleFunc(http.MethodGet, "/sign_in", a.signInForm)
	r.HandleFunc(http.MethodPost, "/sign_in", a.signIn)
	r.HandleFunc(http.MethodDelete, "/sign_out", a.signOut)

	r.HandleFunc(http.MethodGet, "/users", a.listUsers)
	r.HandleFunc(http.MethodGet, "/users/new", a.newUser)
	r.HandleFunc(http.MethodPost, "/users", a.createUser)
	r.HandleFunc(http.MethodGet, "/users/{id}", a.showUser)
	r.HandleFunc(http.MethodGet, "/users/{id}/edit", a.editUser)
	r.HandleFunc(http.MethodPatch, "/users/{id}", a.updateUser)
	r.HandleFunc(http.MethodDelete, "/users/{id}", a.deleteUser)

	r.HandleFunc(http.MethodGet, "/categories", a.listCategories)
	r.HandleFunc(http.MethodGet, "/categories/new", a.newCategory)
	r.HandleFunc(http.MethodPost, "/categories", a.createCategory)
	r.HandleFunc(http.MethodGet, "/categories/{id}", a.showCategory)
	r.HandleFunc(http.MethodGet, "/categories/{id}/edit", a.editCategory)
	r.HandleFunc(http.MethodPatch, "/categories/{id}", a.updateCategory)
	r.HandleFunc(http.MethodDelete, "/categories/{id}", a.deleteCategory)

	r.HandleFunc(http.MethodGet, "/projects", a.listProjects)
	r.HandleFunc(http.MethodGet, "/projects/new", a.newProject)
	r.HandleFunc(http.MethodPost, "/projects", a.createProject)
	r.HandleFunc(http.MethodGet, "/projects/{id}", a.showProject)
	r.HandleFunc(http.MethodGet, "/projects/{id}/edit", a.editProject)
	r.HandleFunc(http.MethodPatch, "/projects/{id}", a.updateProject)
	r.HandleFunc(http.MethodDelete, "/projects/{id}", a.deleteProject)

	r.HandleFunc(http.MethodGet, "/issues", a.listIssues)
	r.HandleFunc(http.MethodGet, "/issues/new", a.newIssue)
	r.HandleFunc(http.MethodPost, "/issues", a.createIssue)
	r.HandleFunc(http.MethodGet, "/issues/{id}", a.showIssue)
	r.HandleFunc(http.MethodGet, "/issues/{id}/edit", a.editIssue)
	r.HandleFunc(http.MethodPatch, "/issues/{id}", a.updateIssue)
	r.HandleFunc(http.MethodDelete, "/issues/{id}", a.deleteIssue)
	r.HandleFunc(http.MethodPost, "/issues/{id}/close", a.closeIssue)
	r.HandleFunc(http.MethodPost, "/issues/{id}/reopen", a.reopenIssue)

	r.HandleFunc(http.MethodGet, "/tasks", a.listTasks)
	r.HandleFunc(http.MethodGet, "/tasks/new", a.newTask)
	r.HandleFunc(http.MethodPost, "/tasks", a.createTask)
	r.HandleFunc(http.MethodGet, "/tasks/{id}", a.showTask)
	r.HandleFunc(http.MethodGet, "/tasks/{id}/edit", a.editTask)
	r.HandleFunc(http.MethodPatch, "/tasks/{id}", a.updateTask)
	r.HandleFunc(http.MethodDelete, "/tasks/{id}", a.deleteTask)
	r.HandleFunc(http.MethodPost, "/tasks/{id}/close", a.closeTask)
	r.HandleFunc(http.MethodPost, "/tasks/{id}/reopen", a.reopenTask)
	r.HandleFunc(http.MethodPost, "/tasks/{id}/assign", a.assignTask)
	r.HandleFunc(http.MethodPost, "/tasks/{id}/request_review", a.requestReview)
	r.HandleFunc(http.MethodPost, "/tasks/{id}/approve", a.approveTask)
	r.HandleFunc(http.MethodPost, "/tasks/{id}/disapprove", a.disapproveTask)

	r.HandleFunc(http.MethodPost, "/comments", a.createComment)
	r.HandleFunc(http.MethodGet, "/comments/{id}/edit", a.editComment)
	r.HandleFunc(http.MethodPatch, "/comments/{id}", a.updateComment)
	r.HandleFunc(http.MethodDelete, "/comments/{id}", a.deleteComment)

	r.HandleFunc(http.MethodGet, "/subscriptions", a.listSubscriptions)
	r.HandleFunc(http.MethodPost, "/subscriptions", a.createSubscription)
	r.HandleFunc(http.MethodDelete, "/subscriptions/{id}", a.deleteSubscription)
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.PingContext(r.Context()); err != nil {
			a.logger.Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
