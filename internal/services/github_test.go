package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/roller/internal/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GitHubClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewGitHubClient(shared.GitHubConfig{Token: "test-token", APIURL: server.URL})
	if client == nil {
		t.Fatal("expected client to be created")
	}
	return client
}

func TestGitHubClient(t *testing.T) {
	t.Run("NewGitHubClient", func(t *testing.T) {
		t.Run("Without Token", func(t *testing.T) {
			if client := NewGitHubClient(shared.GitHubConfig{}); client != nil {
				t.Error("expected nil client without a token")
			}
		})

		t.Run("Default API URL", func(t *testing.T) {
			client := NewGitHubClient(shared.GitHubConfig{Token: "t"})
			if client.baseURL != defaultGitHubAPIURL {
				t.Errorf("expected default base url, got %s", client.baseURL)
			}
			if client.Name() != "GitHub" {
				t.Errorf("expected service name GitHub, got %s", client.Name())
			}
		})
	})

	t.Run("CreateIssue", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/repos/acme/roller/issues" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("expected bearer token, got %q", got)
			}

			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("failed to decode payload: %v", err)
			}
			if payload["title"] != "Crash" || payload["body"] != "It crashed" {
				t.Errorf("unexpected payload %v", payload)
			}

			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"number": 7, "html_url": "https://github.com/acme/roller/issues/7", "state": "open"}`))
		})

		issue, err := client.CreateIssue(context.Background(), "acme/roller", "Crash", "It crashed")
		if err != nil {
			t.Fatalf("failed to create issue: %v", err)
		}
		if issue.Number != 7 || issue.URL != "https://github.com/acme/roller/issues/7" {
			t.Errorf("unexpected issue %+v", issue)
		}
	})

	t.Run("SetIssueState", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch || r.URL.Path != "/repos/acme/roller/issues/7" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			w.Write([]byte(`{"number": 7, "state": "` + payload["state"] + `"}`))
		})

		issue, err := client.SetIssueState(context.Background(), "acme/roller", 7, StateClosed)
		if err != nil {
			t.Fatalf("failed to set state: %v", err)
		}
		if issue.State != StateClosed {
			t.Errorf("expected closed, got %s", issue.State)
		}

		if _, err := client.SetIssueState(context.Background(), "acme/roller", 7, "merged"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("CreateComment", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/repos/acme/roller/issues/7/comments" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id": 99, "html_url": "https://github.com/acme/roller/issues/7#issuecomment-99"}`))
		})

		comment, err := client.CreateComment(context.Background(), "acme/roller", 7, "hello")
		if err != nil {
			t.Fatalf("failed to create comment: %v", err)
		}
		if comment.ID != 99 {
			t.Errorf("expected comment 99, got %d", comment.ID)
		}
	})

	t.Run("Invalid Repo", func(t *testing.T) {
		client := NewGitHubClient(shared.GitHubConfig{Token: "t", APIURL: "http://127.0.0.1:1"})
		for _, repo := range []string{"", "acme", "/roller", "acme/", "a/b/c"} {
			if _, err := client.CreateIssue(context.Background(), repo, "t", "b"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("repo %q: expected ErrInvalidArgument, got %v", repo, err)
			}
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		t.Run("Public Email", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"id": 1, "login": "octocat", "name": "Octo", "email": "octo@example.com"}`))
			})

			user, err := client.CurrentUser(context.Background())
			if err != nil {
				t.Fatalf("failed to get user: %v", err)
			}
			if user.Login != "octocat" || user.Email != "octo@example.com" {
				t.Errorf("unexpected user %+v", user)
			}
		})

		t.Run("Private Email", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/user":
					w.Write([]byte(`{"id": 1, "login": "octocat", "email": null}`))
				case "/user/emails":
					w.Write([]byte(`[{"email": "old@example.com", "primary": false, "verified": true},
						{"email": "main@example.com", "primary": true, "verified": true}]`))
				}
			})

			user, err := client.CurrentUser(context.Background())
			if err != nil {
				t.Fatalf("failed to get user: %v", err)
			}
			if user.Email != "main@example.com" {
				t.Errorf("expected primary email, got %q", user.Email)
			}
		})
	})
}

func TestAPIError(t *testing.T) {
	t.Run("Parsed From Response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found"}`))
		})

		_, err := client.CreateIssue(context.Background(), "acme/missing", "t", "b")

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Message != "Not Found" {
			t.Errorf("expected message Not Found, got %q", apiErr.Message)
		}
		if !IsNotFound(err) {
			t.Error("expected IsNotFound")
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("APIError should unwrap to ErrAPIRequest")
		}
	})

	t.Run("Rate Limits", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want bool
		}{
			{"secondary limit", &APIError{StatusCode: 429, Message: "Too Many Requests"}, true},
			{"primary limit", &APIError{StatusCode: 403, Message: "API rate limit exceeded for user"}, true},
			{"plain forbidden", &APIError{StatusCode: 403, Message: "Resource not accessible"}, false},
			{"not an api error", errors.New("boom"), false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := IsRateLimited(tt.err); got != tt.want {
					t.Errorf("IsRateLimited = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Error String", func(t *testing.T) {
		err := &APIError{StatusCode: 422, Message: "Validation Failed"}
		if err.Error() != "github: HTTP 422: Validation Failed" {
			t.Errorf("unexpected error string %q", err.Error())
		}
	})
}

func TestGitHubOAuthConfig(t *testing.T) {
	cfg := GitHubOAuthConfig(shared.GitHubConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://localhost:3000/auth/github/callback"})

	if cfg.Endpoint.AuthURL != "https://github.com/login/oauth/authorize" {
		t.Errorf("unexpected auth url %s", cfg.Endpoint.AuthURL)
	}
	if cfg.RedirectURL != "http://localhost:3000/auth/github/callback" {
		t.Errorf("unexpected redirect url %s", cfg.RedirectURL)
	}
	if len(cfg.Scopes) != 2 {
		t.Errorf("expected 2 scopes, got %v", cfg.Scopes)
	}
}
