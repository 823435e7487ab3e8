// Package models defines the tracker's domain entities and persistence interfaces.
//
// Persistent entities embed [Record], which carries the identity and lifecycle columns shared by every table
// (UUID, sequence number, timestamps, soft delete), and implement [Model]:
//   - [User] : People using the tracker, with an [EmployeeType] that drives authorization
//   - [Category] and [Project] : Two-level grouping for issues and tasks
//   - [Issue] : Reported problems, optionally mirrored to a GitHub repository
//   - [Task] : Work items, optionally linked to an issue, with an assignee and reviews
//   - [Comment] : Discussion attached to an issue or task
//   - [Subscription] : A user's interest in an issue, task, project or category
//   - [Review] : Approval requested for a task
//
// [Session] is a sign-in session and is not a [Model].
//
// Validation is declared with struct tags and checked by [Validate], which returns a [*ValidationError].
// State changes on issues, tasks and reviews go through methods that enforce the allowed transitions.
package models
