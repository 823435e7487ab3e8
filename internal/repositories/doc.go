// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [UserRepository] : Accounts with email and GitHub ID lookups
//   - [CategoryRepository] and [ProjectRepository] : Grouping, with repository-name lookup for webhooks
//   - [IssueRepository] and [TaskRepository] : Tracked work, filterable by project, reporter, assignee and state
//   - [CommentRepository] : Discussion keyed by target
//   - [SubscriptionRepository] : Notification interest, resolving subscribers for a set of targets
//   - [ReviewRepository] : Task reviews with pending lookup
//   - [SessionRepository] : Sign-in sessions (hard deleted, no sequence)
//
// Lookups that match nothing return an error wrapping [shared.ErrNotFound]; unique index violations
// return an error wrapping [shared.ErrDuplicate].
package repositories
