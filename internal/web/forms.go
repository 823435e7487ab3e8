package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
	"github.com/desertthunder/roller/internal/shared"
)

// authorize writes the failure response and returns false when the visitor may not act.
func (a *App) authorize(w http.ResponseWriter, r *http.Request, action policy.Action, resource any) bool {
	if err := policy.Authorize(currentUser(r), action, resource); err != nil {
		a.fail(w, r, err)
		return false
	}
	return true
}

// signedIn sends guests to the sign-in page.
func (a *App) signedIn(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := currentUser(r)
	if user == nil {
		a.requireSignIn(w, r)
		return nil, false
	}
	return user, true
}

func field(r *http.Request, name string) string {
	return strings.TrimSpace(r.PostFormValue(name))
}

// checked reports whether a checkbox was ticked. Unticked boxes are absent from the form.
func checked(r *http.Request, name string) bool {
	switch strings.ToLower(r.PostFormValue(name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// duplicateOn turns a uniqueness failure into a validation error on the given field.
func duplicateOn(field string, err error) error {
	if errors.Is(err, shared.ErrDuplicate) {
		return &models.ValidationError{Fields: map[string]string{field: "has already been taken"}}
	}
	return err
}

// safeReturn only follows local paths, so return_to cannot redirect off-site.
func safeReturn(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	if u, err := url.Parse(raw); err != nil || u.Host != "" {
		return fallback
	}
	return raw
}

// filters copies the named, non-empty query parameters into repository criteria.
func filters(r *http.Request, names ...string) map[string]any {
	criteria := map[string]any{}
	q := r.URL.Query()
	for _, name := range names {
		if v := q.Get(name); v != "" {
			criteria[name] = v
		}
	}
	switch q.Get("state") {
	case "open":
		criteria["closed"] = false
	case "closed":
		criteria["closed"] = true
	}
	return criteria
}

// option is a select box entry.
type option struct {
	Value string
	Label string
}
