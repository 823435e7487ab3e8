package web

import (
	"errors"
	"net/http"

	"github.com/desertthunder/roller/internal/jobs"
	"github.com/desertthunder/roller/internal/mailer"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
	"github.com/desertthunder/roller/internal/shared"
)

// commentable is the issue or task a comment is attached to.
type commentable struct {
	issue *models.Issue
	task  *models.Task
}

func (c commentable) resource() any {
	if c.task != nil {
		return c.task
	}
	return c.issue
}

func (a *App) loadTarget(target models.Target) (commentable, error) {
	switch target.Type {
	case models.TargetIssue:
		issue, err := a.stores.Issues.Get(target.ID)
		return commentable{issue: issue}, err
	case models.TargetTask:
		task, err := a.stores.Tasks.Get(target.ID)
		return commentable{task: task}, err
	default:
		return commentable{}, shared.ErrNotFound
	}
}

func (a *App) createComment(w http.ResponseWriter, r *http.Request) {
	user, ok := a.signedIn(w, r)
	if !ok {
		return
	}

	target := models.Target{Type: models.TargetType(field(r, "target_type")), ID: field(r, "target_id")}
	on, err := a.loadTarget(target)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !a.authorize(w, r, policy.Read, on.resource()) {
		return
	}

	c := models.NewComment(user.ID(), target, r.PostFormValue("body"))
	if !a.authorize(w, r, policy.Create, c) {
		return
	}
	if err := a.stores.Comments.Create(c); err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			redirect(w, r, target.Path(), "Comment can't be blank.")
			return
		}
		a.fail(w, r, err)
		return
	}

	a.subscribe(user.ID(), target)
	if on.issue != nil {
		a.enqueue(jobs.NewCommentIssueJob(a.issueDeps(), on.issue.ID(), c.ID()))
		a.notify(mailer.Notification{Event: mailer.IssueCommented, Actor: user, Issue: on.issue, Comment: c})
	} else {
		a.notify(mailer.Notification{Event: mailer.TaskCommented, Actor: user, Task: on.task, Comment: c})
	}
	http.Redirect(w, r, target.Path()+"#comment-"+c.ID(), http.StatusSeeOther)
}

func (a *App) loadComment(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.Comment, bool) {
	if _, ok := a.signedIn(w, r); !ok {
		return nil, false
	}
	c, err := a.stores.Comments.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return c, a.authorize(w, r, action, c)
}

func (a *App) editComment(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadComment(w, r, policy.Update)
	if !ok {
		return
	}
	a.render(w, r, http.StatusOK, "comment_form", "Edit comment", c)
}

func (a *App) updateComment(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadComment(w, r, policy.Update)
	if !ok {
		return
	}
	c.Body = field(r, "body")
	if err := a.stores.Comments.Update(c); err != nil {
		a.invalid(w, r, "comment_form", "Edit comment", c, err)
		return
	}
	http.Redirect(w, r, c.Target().Path()+"#comment-"+c.ID(), http.StatusSeeOther)
}

func (a *App) deleteComment(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadComment(w, r, policy.Destroy)
	if !ok {
		return
	}
	if err := a.stores.Comments.Delete(c.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	redirect(w, r, c.Target().Path(), "Comment deleted.")
}
