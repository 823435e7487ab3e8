package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/markdown"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
	"github.com/desertthunder/roller/internal/shared"
)

//go:embed templates static
var assets embed.FS

// views holds one template set per page, each parsed together with the layout and partials.
type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"can": func(user *models.User, action string, resource any) bool {
		return policy.Can(user, policy.Action(action), resource)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"path": func(t models.Target) string { return t.Path() },
	"md":   markdown.Render,
}

func loadViews() (*views, error) {
	pages, err := fs.Glob(assets, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list page templates: %w", err)
	}

	v := &views{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		name := strings.TrimSuffix(page[len("templates/pages/"):], ".html")
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/partials/*.html", page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		v.pages[name] = tmpl
	}
	return v, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

// page is the data every template receives. Data carries the page-specific values.
type page struct {
	Title     string
	User      *models.User
	CSRFToken string
	Notice    string
	Errors    map[string]string
	Data      any
}

// render executes the named page into a buffer first so template errors become a clean 500.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	a.renderPage(w, r, status, name, page{Title: title, Data: data})
}

func (a *App) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	tmpl, ok := a.views.pages[name]
	if !ok {
		a.logger.Error("unknown template", "name", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	v := visitorFrom(r)
	p.User = v.user
	p.CSRFToken = v.csrf
	if p.Notice == "" {
		p.Notice = r.URL.Query().Get("notice")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		a.logger.Error("failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (a *App) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	a.render(w, r, status, "error", http.StatusText(status), struct {
		Status  int
		Message string
	}{status, message})
}

// fail maps an error to a response: guests go to sign in, and the shared sentinels pick the status.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		a.requireSignIn(w, r)
	case errors.Is(err, shared.ErrForbidden):
		a.renderError(w, r, http.StatusForbidden, "You are not allowed to do that.")
	case errors.Is(err, shared.ErrNotFound):
		a.renderError(w, r, http.StatusNotFound, "That page does not exist.")
	case errors.Is(err, shared.ErrInvalidState):
		a.renderError(w, r, http.StatusConflict, sentence(err))
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrDuplicate):
		a.renderError(w, r, http.StatusUnprocessableEntity, sentence(err))
	default:
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		a.renderError(w, r, http.StatusInternalServerError, "Something went wrong.")
	}
}

// invalid re-renders a form with per-field messages when err is a validation or duplicate error.
func (a *App) invalid(w http.ResponseWriter, r *http.Request, name, title string, data any, err error) {
	fields := map[string]string{}
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		fields = verr.Fields
	case errors.Is(err, shared.ErrDuplicate):
		fields["Name"] = "has already been taken"
	default:
		a.fail(w, r, err)
		return
	}
	a.renderPage(w, r, http.StatusUnprocessableEntity, name, page{Title: title, Errors: fields, Data: data})
}

func (a *App) requireSignIn(w http.ResponseWriter, r *http.Request) {
	target := "/sign_in"
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?return_to=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirect(w http.ResponseWriter, r *http.Request, path, notice string) {
	if notice != "" {
		path += "?notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// sentence strips the sentinel prefix from wrapped errors for display.
func sentence(err error) string {
	msg := err.Error()
	if _, after, ok := strings.Cut(msg, ": "); ok {
		msg = after
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
