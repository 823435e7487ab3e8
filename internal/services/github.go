// GitHub REST API implementation of [IssueService]
//
// Response types follow https://docs.github.com/en/rest/issues
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/roller/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubAPIURL = "https://api.github.com"

// GitHubUser is the subset of a GitHub account profile used for sign-in.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubIssue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
	Title   string `json:"title"`
}

type githubComment struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubClient implements [IssueService] against the GitHub REST API.
// Requests are authenticated through an [oauth2] token source.
type GitHubClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGitHubClient creates a client authenticated with the configured personal access token.
//
// It returns nil when no token is configured; callers treat that as "no client".
func NewGitHubClient(cfg shared.GitHubConfig) *GitHubClient {
	if cfg.Token == "" {
		return nil
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	return newGitHubClient(cfg.APIURL, oauth2.NewClient(context.Background(), src))
}

// NewGitHubUserClient creates a client acting as the user who granted token during OAuth sign-in.
func NewGitHubUserClient(ctx context.Context, cfg shared.GitHubConfig, token *oauth2.Token) *GitHubClient {
	return newGitHubClient(cfg.APIURL, GitHubOAuthConfig(cfg).Client(ctx, token))
}

func newGitHubClient(baseURL string, client *http.Client) *GitHubClient {
	if baseURL == "" {
		baseURL = defaultGitHubAPIURL
	}
	return &GitHubClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// GitHubOAuthConfig returns the OAuth2 configuration for "Sign in with GitHub".
func GitHubOAuthConfig(cfg shared.GitHubConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}
}

func (c *GitHubClient) Name() string {
	return "GitHub"
}

// CreateIssue opens an issue in repo ("owner/name").
func (c *GitHubClient) CreateIssue(ctx context.Context, repo, title, body string) (*RemoteIssue, error) {
	path, err := repoPath(repo, "/issues")
	if err != nil {
		return nil, err
	}

	var issue githubIssue
	payload := map[string]string{"title": title, "body": body}
	if err := c.doRequest(ctx, http.MethodPost, path, payload, &issue); err != nil {
		return nil, err
	}
	return issue.remote(), nil
}

// SetIssueState changes a remote issue's state to "open" or "closed".
func (c *GitHubClient) SetIssueState(ctx context.Context, repo string, number int, state string) (*RemoteIssue, error) {
	if state != StateOpen && state != StateClosed {
		return nil, fmt.Errorf("%w: issue state %q", shared.ErrInvalidArgument, state)
	}
	path, err := repoPath(repo, fmt.Sprintf("/issues/%d", number))
	if err != nil {
		return nil, err
	}

	var issue githubIssue
	if err := c.doRequest(ctx, http.MethodPatch, path, map[string]string{"state": state}, &issue); err != nil {
		return nil, err
	}
	return issue.remote(), nil
}

// CreateComment posts a comment on remote issue number in repo.
func (c *GitHubClient) CreateComment(ctx context.Context, repo string, number int, body string) (*RemoteComment, error) {
	path, err := repoPath(repo, fmt.Sprintf("/issues/%d/comments", number))
	if err != nil {
		return nil, err
	}

	var comment githubComment
	if err := c.doRequest(ctx, http.MethodPost, path, map[string]string{"body": body}, &comment); err != nil {
		return nil, err
	}
	return &RemoteComment{ID: comment.ID, URL: comment.HTMLURL}, nil
}

// CurrentUser returns the authenticated account. When the profile hides its email,
// the primary verified address is looked up instead.
func (c *GitHubClient) CurrentUser(ctx context.Context) (*GitHubUser, error) {
	var user GitHubUser
	if err := c.doRequest(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, err
	}
	if user.Email != "" {
		return &user, nil
	}

	var emails []githubEmail
	if err := c.doRequest(ctx, http.MethodGet, "/user/emails", nil, &emails); err != nil {
		if IsNotFound(err) {
			return &user, nil
		}
		return nil, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			user.Email = e.Email
			break
		}
	}
	return &user, nil
}

// doRequest performs an authenticated JSON request against the API.
func (c *GitHubClient) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (i githubIssue) remote() *RemoteIssue {
	return &RemoteIssue{Number: i.Number, URL: i.HTMLURL, State: i.State}
}

// repoPath builds /repos/{owner}/{name}{suffix} from "owner/name".
func repoPath(repo, suffix string) (string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: repository %q must look like owner/name", shared.ErrInvalidArgument, repo)
	}
	return "/repos/" + owner + "/" + name + suffix, nil
}

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match any API failure with [shared.ErrAPIRequest].
func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

func parseAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var wire struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &wire) == nil && wire.Message != "" {
		apiErr.Message = wire.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a GitHub rate limit response. GitHub answers 429 for
// secondary limits and 403 with a "rate limit" message for the primary one.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return apiErr.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}
