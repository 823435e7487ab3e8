package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roller/internal/shared"
	"golang.org/x/oauth2"
)

const (
	stateCookie = "roller_oauth_state"
	stateTTL    = 10 * time.Minute
)

// TokenFunc finishes a sign-in once the authorization code has been exchanged.
//
// It owns the response: typically it starts a session and redirects.
type TokenFunc func(w http.ResponseWriter, r *http.Request, token *oauth2.Token)

// OAuthHandler runs the OAuth2 authorization code flow for GitHub sign-in.
//
// GET /auth/github stores a random state in a short-lived cookie and redirects to the provider.
// GET /auth/github/callback checks that state, exchanges the code and hands the token to a [TokenFunc].
type OAuthHandler struct {
	config   *oauth2.Config
	onToken  TokenFunc
	logger   *log.Logger
	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
	secure   bool
}

// NewOAuthHandler creates a new OAuth handler with the given OAuth2 config.
func NewOAuthHandler(config *oauth2.Config, onToken TokenFunc, logger *log.Logger) *OAuthHandler {
	h := &OAuthHandler{config: config, onToken: onToken, logger: logger.WithPrefix("oauth")}
	h.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return h.config.Exchange(ctx, code)
	}
	return h
}

// SecureCookies marks the state cookie Secure, for deployments behind TLS.
func (h *OAuthHandler) SecureCookies(secure bool) { h.secure = secure }

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /auth/github", "GET /auth/github/callback"}
}

// ServeHTTP dispatches between the redirect and the callback.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/auth/github/callback" {
		h.callback(w, r)
		return
	}
	h.begin(w, r)
}

func (h *OAuthHandler) begin(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateToken()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	h.clearState(w)

	if err := h.checkState(r); err != nil {
		h.logger.Warn("rejected oauth callback", "error", err)
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("authorization failed", "error", r.URL.Query().Get("error"), "description", r.URL.Query().Get("error_description"))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	h.onToken(w, r, token)
}

func (h *OAuthHandler) checkState(r *http.Request) error {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		return errors.New("missing state cookie")
	}
	state := r.URL.Query().Get("state")
	if subtle.ConstantTimeCompare([]byte(state), []byte(cookie.Value)) != 1 {
		return fmt.Errorf("state mismatch")
	}
	return nil
}

func (h *OAuthHandler) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth/github", MaxAge: -1, HttpOnly: true})
}
