package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
)

const (
	sessionCookie = "roller_session"
	guestCSRF     = "roller_csrf"
	csrfField     = "csrf_token"
	csrfHeader    = "X-CSRF-Token"
)

type ctxKey int

const visitorKey ctxKey = iota

// visitor is who is making the request: a signed-in user with a session, or a guest with only
// a CSRF token.
type visitor struct {
	user    *models.User
	session *models.Session
	csrf    string
}

func visitorFrom(r *http.Request) *visitor {
	if v, ok := r.Context().Value(visitorKey).(*visitor); ok {
		return v
	}
	return &visitor{}
}

// currentUser returns the signed-in user or nil for guests.
func currentUser(r *http.Request) *models.User {
	return visitorFrom(r).user
}

// loadSession resolves the session cookie to a user. Expired or dangling sessions are cleared.
func (a *App) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := &visitor{}

		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			session, user, err := a.resolveSession(c.Value)
			switch {
			case err == nil:
				v.user, v.session, v.csrf = user, session, session.CSRFToken
			case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrSessionExpired):
				a.clearCookie(w, sessionCookie)
			default:
				a.logger.Error("failed to load session", "error", err)
			}
		}

		if v.user == nil {
			v.csrf = a.guestToken(w, r)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey, v)))
	})
}

func (a *App) resolveSession(token string) (*models.Session, *models.User, error) {
	session, err := a.stores.Sessions.Get(token)
	if err != nil {
		return nil, nil, err
	}
	user, err := a.stores.Users.Get(session.UserID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (a *App) guestToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(guestCSRF); err == nil && c.Value != "" {
		return c.Value
	}
	token := shared.GenerateToken()
	http.SetCookie(w, a.cookie(guestCSRF, token, 0))
	return token
}

// verifyCSRF rejects unsafe requests whose form field or header does not carry the visitor's token.
func (a *App) verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		want := visitorFrom(r).csrf
		got := r.Header.Get(csrfHeader)
		if got == "" {
			got = r.PostFormValue(csrfField)
		}
		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			a.logger.Warn("csrf check failed", "method", r.Method, "path", r.URL.Path)
			a.renderError(w, r, http.StatusForbidden, "The form has expired. Go back, reload the page and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// startSession signs user in and sets the session cookie.
func (a *App) startSession(w http.ResponseWriter, user *models.User) error {
	ttl := a.cfg.Server.SessionTTL()
	session := models.NewSession(user.ID(), ttl)
	if err := a.stores.Sessions.Create(session); err != nil {
		return err
	}
	http.SetCookie(w, a.cookie(sessionCookie, session.Token, ttl))
	a.clearCookie(w, guestCSRF)
	return nil
}

func (a *App) endSession(w http.ResponseWriter, r *http.Request) {
	if s := visitorFrom(r).session; s != nil {
		if err := a.stores.Sessions.Delete(s.Token); err != nil && !errors.Is(err, shared.ErrNotFound) {
			a.logger.Error("failed to delete session", "error", err)
		}
	}
	a.clearCookie(w, sessionCookie)
}

func (a *App) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure(),
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

func (a *App) clearCookie(w http.ResponseWriter, name string) {
	c := a.cookie(name, "", 0)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (a *App) secure() bool {
	return strings.HasPrefix(a.cfg.Server.BaseURL, "https://")
}
