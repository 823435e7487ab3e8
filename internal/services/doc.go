// Package services defines the [IssueService] interface for remote issue trackers and implements it for GitHub.
//
// # GitHub Implementation
//
// [GitHubClient] talks to the REST API with a personal access token wrapped in an
// [oauth2.StaticTokenSource]. [NewGitHubClient] returns nil when no token is configured,
// which background jobs treat as "nothing to mirror to".
//
// The same client type also serves "Sign in with GitHub": [GitHubOAuthConfig] builds the
// [oauth2.Config] and [NewGitHubUserClient] wraps the exchanged user token so
// [GitHubClient.CurrentUser] can read the profile.
//
// # Error Handling
//
// Non-2xx responses come back as [*APIError], which unwraps to [shared.ErrAPIRequest].
// Use [IsNotFound] and [IsRateLimited] to branch on common cases.
package services
