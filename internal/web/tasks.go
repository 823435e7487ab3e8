package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/roller/internal/mailer"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
	"github.com/desertthunder/roller/internal/shared"
)

type taskForm struct {
	Task      *models.Task
	Projects  []*models.Project
	Types     []models.TaskType
	Assignees []*models.User
}

type taskList struct {
	Tasks    []*models.Task
	Projects map[string]*models.Project
	Names    map[string]string
	State    string
	Statuses []models.TaskStatus
}

func (a *App) loadTask(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.Task, bool) {
	if _, ok := a.signedIn(w, r); !ok {
		return nil, false
	}
	t, err := a.stores.Tasks.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return t, a.authorize(w, r, action, t)
}

// assignees lists the users a task can be given to: everyone from Worker up.
func (a *App) assignees() ([]*models.User, error) {
	users, err := a.stores.Users.List(nil)
	if err != nil {
		return nil, err
	}
	workers := users[:0]
	for _, u := range users {
		if u.IsEmployee() {
			workers = append(workers, u)
		}
	}
	return workers, nil
}

func (a *App) taskForm(w http.ResponseWriter, r *http.Request, t *models.Task) (taskForm, bool) {
	projects, err := a.readableProjects(r, nil)
	if err != nil {
		a.fail(w, r, err)
		return taskForm{}, false
	}
	users, err := a.assignees()
	if err != nil {
		a.fail(w, r, err)
		return taskForm{}, false
	}
	return taskForm{Task: t, Projects: projects, Types: models.TaskTypes, Assignees: users}, true
}

func (a *App) listTasks(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.List, &models.Task{}) {
		return
	}

	criteria := filters(r, "project_id", "issue_id", "user_id", "assignee_id", "status")
	state := r.URL.Query().Get("state")
	if state == "" {
		state = "open"
		criteria["closed"] = false
	}

	tasks, err := a.stores.Tasks.List(criteria)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	projects, err := a.projectIndex(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	visible := tasks[:0]
	for _, t := range tasks {
		if _, ok := projects[t.ProjectID]; ok {
			visible = append(visible, t)
		}
	}

	a.render(w, r, http.StatusOK, "tasks", "Tasks", taskList{
		Tasks:    visible,
		Projects: projects,
		Names:    a.userNames(),
		State:    state,
		Statuses: models.TaskStatuses,
	})
}

func (a *App) newTask(w http.ResponseWriter, r *http.Request) {
	user, ok := a.signedIn(w, r)
	if !ok || !a.authorize(w, r, policy.Create, &models.Task{}) {
		return
	}

	q := r.URL.Query()
	t := models.NewTask(q.Get("project_id"), user.ID(), models.TaskFeature, "", "")
	if issueID := q.Get("issue_id"); issueID != "" {
		if issue, err := a.stores.Issues.Get(issueID); err == nil {
			t.IssueID = issue.ID()
			t.ProjectID = issue.ProjectID
			t.Summary = issue.Summary
		}
	}
	if form, ok := a.taskForm(w, r, t); ok {
		a.render(w, r, http.StatusOK, "task_form", "New task", form)
	}
}

func (a *App) createTask(w http.ResponseWriter, r *http.Request) {
	user, ok := a.signedIn(w, r)
	if !ok || !a.authorize(w, r, policy.Create, &models.Task{}) {
		return
	}

	t := models.NewTask(field(r, "project_id"), user.ID(), models.TaskType(field(r, "task_type")), field(r, "summary"), r.PostFormValue("description"))
	t.IssueID = field(r, "issue_id")

	_, err := a.checkProject(r, t.ProjectID)
	if err == nil {
		err = a.checkTaskIssue(t)
	}
	if err == nil {
		err = a.assign(t, field(r, "assignee_id"))
	}
	if err == nil {
		err = a.stores.Tasks.Create(t)
	}
	if err != nil {
		if form, ok := a.taskForm(w, r, t); ok {
			a.invalid(w, r, "task_form", "New task", form, err)
		}
		return
	}

	a.subscribe(user.ID(), t.Target())
	a.subscribe(t.AssigneeID, t.Target())
	redirect(w, r, "/tasks/"+t.ID(), "Task created.")
}

// checkTaskIssue requires a linked issue to exist in the task's project.
func (a *App) checkTaskIssue(t *models.Task) error {
	if t.IssueID == "" {
		return nil
	}
	issue, err := a.stores.Issues.Get(t.IssueID)
	if err != nil || issue.ProjectID != t.ProjectID {
		return &models.ValidationError{Fields: map[string]string{"IssueID": "must be an issue in the same project"}}
	}
	return nil
}

// assign validates the assignee and applies the assignment to t.
func (a *App) assign(t *models.Task, userID string) error {
	if userID == t.AssigneeID {
		return nil
	}
	if userID != "" {
		assignee, err := a.stores.Users.Get(userID)
		if err != nil || !assignee.IsEmployee() {
			return &models.ValidationError{Fields: map[string]string{"AssigneeID": "must be a worker"}}
		}
	}
	return t.Assign(userID)
}

func (a *App) showTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.Read)
	if !ok {
		return
	}

	project, err := a.stores.Projects.Get(t.ProjectID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var issue *models.Issue
	if t.IssueID != "" {
		if issue, err = a.stores.Issues.Get(t.IssueID); err != nil && !errors.Is(err, shared.ErrNotFound) {
			a.fail(w, r, err)
			return
		}
	}
	comments, err := a.stores.Comments.ForTarget(t.Target())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	reviews, err := a.stores.Reviews.List(map[string]any{"task_id": t.ID()})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	users, err := a.assignees()
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, "task", t.Summary, struct {
		Task         *models.Task
		Project      *models.Project
		Issue        *models.Issue
		Comments     []*models.Comment
		Reviews      []*models.Review
		Assignees    []*models.User
		Names        map[string]string
		Subscription *models.Subscription
		Target       models.Target
	}{t, project, issue, comments, reviews, users, a.userNames(), a.subscriptionFor(r, t.Target()), t.Target()})
}

func (a *App) editTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.Update)
	if !ok {
		return
	}
	if form, ok := a.taskForm(w, r, t); ok {
		a.render(w, r, http.StatusOK, "task_form", "Edit task", form)
	}
}

func (a *App) updateTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.Update)
	if !ok {
		return
	}

	t.TaskType = models.TaskType(field(r, "task_type"))
	t.Summary = field(r, "summary")
	t.Description = r.PostFormValue("description")

	if err := a.stores.Tasks.Update(t); err != nil {
		if form, ok := a.taskForm(w, r, t); ok {
			a.invalid(w, r, "task_form", "Edit task", form, err)
		}
		return
	}
	redirect(w, r, "/tasks/"+t.ID(), "Task updated.")
}

func (a *App) deleteTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.Destroy)
	if !ok {
		return
	}
	if err := a.stores.Tasks.Delete(t.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	redirect(w, r, "/tasks", "Task deleted.")
}

func (a *App) assignTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.Assign)
	if !ok {
		return
	}

	before := t.Status
	if err := a.assign(t, field(r, "assignee_id")); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.stores.Tasks.Update(t); err != nil {
		a.fail(w, r, err)
		return
	}

	a.subscribe(t.AssigneeID, t.Target())
	if t.Status != before {
		a.notify(mailer.Notification{Event: mailer.TaskStatusChanged, Actor: currentUser(r), Task: t})
	}
	redirect(w, r, "/tasks/"+t.ID(), "Task assigned.")
}

func (a *App) closeTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.Close)
	if !ok {
		return
	}
	a.transitionTask(w, r, t, t.Close, "Task closed.")
}

func (a *App) reopenTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.Reopen)
	if !ok {
		return
	}
	a.transitionTask(w, r, t, func() error { return t.Reopen(time.Now().UTC()) }, "Task reopened.")
}

func (a *App) transitionTask(w http.ResponseWriter, r *http.Request, t *models.Task, change func() error, notice string) {
	if err := change(); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.stores.Tasks.Update(t); err != nil {
		a.fail(w, r, err)
		return
	}
	a.notify(mailer.Notification{Event: mailer.TaskStatusChanged, Actor: currentUser(r), Task: t})
	redirect(w, r, "/tasks/"+t.ID(), notice)
}

// requestReview moves the task into review and opens its single pending review.
func (a *App) requestReview(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTask(w, r, policy.RequestReview)
	if !ok {
		return
	}

	if err := t.RequestReview(); err != nil {
		a.fail(w, r, err)
		return
	}
	review := models.NewReview(t.ID(), currentUser(r).ID())
	if err := a.stores.Reviews.Request(review, t); err != nil {
		a.fail(w, r, err)
		return
	}

	a.notify(mailer.Notification{Event: mailer.ReviewRequested, Actor: currentUser(r), Task: t, Review: review})
	redirect(w, r, "/tasks/"+t.ID(), "Review requested.")
}

func (a *App) approveTask(w http.ResponseWriter, r *http.Request) {
	a.decide(w, r, true)
}

func (a *App) disapproveTask(w http.ResponseWriter, r *http.Request) {
	a.decide(w, r, false)
}

// decide settles the task's pending review.
func (a *App) decide(w http.ResponseWriter, r *http.Request, approved bool) {
	t, ok := a.loadTask(w, r, policy.Review)
	if !ok {
		return
	}
	review, err := a.stores.Reviews.Pending(t.ID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = fmt.Errorf("%w: no review is pending", shared.ErrInvalidState)
		}
		a.fail(w, r, err)
		return
	}

	reviewer := currentUser(r)
	if err := review.Decide(reviewer.ID(), approved, r.PostFormValue("body")); err != nil {
		a.fail(w, r, err)
		return
	}

	event, notice, settle := mailer.ReviewDisapproved, "Changes requested.", t.Disapprove
	if approved {
		event, notice, settle = mailer.ReviewApproved, "Task approved.", t.Approve
	}
	if err := settle(); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.stores.Reviews.Settle(review, t); err != nil {
		a.fail(w, r, err)
		return
	}

	a.notify(mailer.Notification{Event: event, Actor: reviewer, Task: t, Review: review})
	redirect(w, r, "/tasks/"+t.ID(), notice)
}
