// Package jobs runs background work off the request path.
//
// # Queue
//
// [Queue] is an in-process worker pool. Jobs are accepted without blocking, handed to
// workers in the order they were enqueued and paced by a token-bucket [rate.Limiter] so
// bursts of edits do not hammer the GitHub API. A job runs once: failures are logged and
// reported as an [Event], never retried.
//
// # Repo Issue Jobs
//
// [RepoIssueJob] mirrors a local issue to its project's GitHub repository. The
// specializations are:
//
//   - [OpenIssueJob] : creates the remote issue and stores its number and URL
//   - [CloseIssueJob] / [ReopenIssueJob] : set the remote issue state
//   - [CommentIssueJob] : posts a local comment to the remote issue
//
// Every job resolves the issue by ID and checks for a GitHub client first. Either one
// missing makes the job a no-op, as does an issue that has nowhere to go (no remote
// number yet, or a project without a repository).
//
// # Mail
//
// [MailJob] hands a rendered [mailer.Message] to a [mailer.Deliverer].
package jobs
