package web

import (
	"github.com/desertthunder/roller/internal/jobs"
	"github.com/desertthunder/roller/internal/mailer"
	"github.com/desertthunder/roller/internal/models"
)

// subscribe makes sure userID hears about target. Failures are logged only.
func (a *App) subscribe(userID string, target models.Target) {
	if userID == "" {
		return
	}
	if _, err := a.stores.Subscriptions.Ensure(userID, target); err != nil {
		a.logger.Error("failed to subscribe", "user", userID, "target", target.Path(), "error", err)
	}
}

func (a *App) enqueue(job jobs.Job) {
	if a.queue == nil {
		return
	}
	if err := a.queue.Enqueue(job); err != nil {
		a.logger.Error("failed to enqueue job", "job", job.Name(), "error", err)
	}
}

func (a *App) issueDeps() jobs.Deps {
	return jobs.Deps{
		Issues:   a.stores.Issues,
		Projects: a.stores.Projects,
		Comments: a.stores.Comments,
		Client:   a.github,
		Logger:   a.logger,
	}
}

// notify mails the subscribers of n's target through the job queue.
func (a *App) notify(n mailer.Notification) {
	if n.Project == nil {
		var projectID string
		switch {
		case n.Task != nil:
			projectID = n.Task.ProjectID
		case n.Issue != nil:
			projectID = n.Issue.ProjectID
		}
		project, err := a.stores.Projects.Get(projectID)
		if err != nil {
			a.logger.Error("failed to load project for notification", "event", n.Event, "error", err)
			return
		}
		n.Project = project
	}

	if err := jobs.EnqueueNotification(a.queue, a.mailer, a.deliverer, n); err != nil {
		a.logger.Error("failed to enqueue notification", "event", n.Event, "error", err)
	}
}

// userNames maps user IDs to display names for list pages.
func (a *App) userNames() map[string]string {
	users, err := a.stores.Users.List(nil)
	if err != nil {
		a.logger.Error("failed to list users", "error", err)
		return map[string]string{}
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID()] = u.Name
	}
	return names
}
