package web

import (
	"net/http"
	"time"

	"github.com/desertthunder/roller/internal/jobs"
	"github.com/desertthunder/roller/internal/mailer"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
)

type issueForm struct {
	Issue        *models.Issue
	Projects     []*models.Project
	Types        []models.IssueType
	Statuses     []models.IssueStatus
	CanSetStatus bool
}

type issueList struct {
	Issues   []*models.Issue
	Projects map[string]*models.Project
	Names    map[string]string
	State    string
	Types    []models.IssueType
	Statuses []models.IssueStatus
}

func (a *App) loadIssue(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.Issue, bool) {
	if _, ok := a.signedIn(w, r); !ok {
		return nil, false
	}
	i, err := a.stores.Issues.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return i, a.authorize(w, r, action, i)
}

func (a *App) issueForm(w http.ResponseWriter, r *http.Request, i *models.Issue) (issueForm, bool) {
	projects, err := a.readableProjects(r, nil)
	if err != nil {
		a.fail(w, r, err)
		return issueForm{}, false
	}
	return issueForm{
		Issue:        i,
		Projects:     projects,
		Types:        models.IssueTypes,
		Statuses:     models.IssueStatuses[:len(models.IssueStatuses)-1],
		CanSetStatus: i.Persisted() && !i.Closed && policy.Can(currentUser(r), policy.Close, i),
	}, true
}

// projectIndex maps project IDs to projects for list pages.
func (a *App) projectIndex(r *http.Request) (map[string]*models.Project, error) {
	projects, err := a.readableProjects(r, nil)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*models.Project, len(projects))
	for _, p := range projects {
		index[p.ID()] = p
	}
	return index, nil
}

func (a *App) listIssues(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.List, &models.Issue{}) {
		return
	}

	criteria := filters(r, "project_id", "user_id", "status", "issue_type")
	state := r.URL.Query().Get("state")
	if state == "" {
		state = "open"
		criteria["closed"] = false
	}

	issues, err := a.stores.Issues.List(criteria)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	projects, err := a.projectIndex(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	visible := issues[:0]
	for _, i := range issues {
		if _, ok := projects[i.ProjectID]; ok {
			visible = append(visible, i)
		}
	}

	a.render(w, r, http.StatusOK, "issues", "Issues", issueList{
		Issues:   visible,
		Projects: projects,
		Names:    a.userNames(),
		State:    state,
		Types:    models.IssueTypes,
		Statuses: models.IssueStatuses,
	})
}

func (a *App) newIssue(w http.ResponseWriter, r *http.Request) {
	user, ok := a.signedIn(w, r)
	if !ok || !a.authorize(w, r, policy.Create, &models.Issue{}) {
		return
	}
	i := models.NewIssue(r.URL.Query().Get("project_id"), user.ID(), models.IssueBug, "", "")
	if form, ok := a.issueForm(w, r, i); ok {
		a.render(w, r, http.StatusOK, "issue_form", "New issue", form)
	}
}

func (a *App) createIssue(w http.ResponseWriter, r *http.Request) {
	user, ok := a.signedIn(w, r)
	if !ok || !a.authorize(w, r, policy.Create, &models.Issue{}) {
		return
	}

	i := models.NewIssue(field(r, "project_id"), user.ID(), models.IssueType(field(r, "issue_type")), field(r, "summary"), r.PostFormValue("description"))
	project, err := a.checkProject(r, i.ProjectID)
	if err == nil {
		err = a.stores.Issues.Create(i)
	}
	if err != nil {
		if form, ok := a.issueForm(w, r, i); ok {
			a.invalid(w, r, "issue_form", "New issue", form, err)
		}
		return
	}

	a.subscribe(user.ID(), i.Target())
	a.enqueue(jobs.NewOpenIssueJob(a.issueDeps(), i.ID()))
	a.notify(mailer.Notification{Event: mailer.IssueOpened, Actor: user, Project: project, Issue: i})
	redirect(w, r, "/issues/"+i.ID(), "Issue created.")
}

// checkProject returns the project if the visitor may file things in it.
func (a *App) checkProject(r *http.Request, id string) (*models.Project, error) {
	invalid := &models.ValidationError{Fields: map[string]string{"ProjectID": "can't be blank"}}
	if id == "" {
		return nil, invalid
	}
	p, err := a.stores.Projects.Get(id)
	if err != nil || !policy.Can(currentUser(r), policy.Read, p) {
		invalid.Fields["ProjectID"] = "is invalid"
		return nil, invalid
	}
	return p, nil
}

func (a *App) showIssue(w http.ResponseWriter, r *http.Request) {
	i, ok := a.loadIssue(w, r, policy.Read)
	if !ok {
		return
	}

	project, err := a.stores.Projects.Get(i.ProjectID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	comments, err := a.stores.Comments.ForTarget(i.Target())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tasks, err := a.stores.Tasks.List(map[string]any{"issue_id": i.ID()})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, "issue", i.Summary, struct {
		Issue        *models.Issue
		Project      *models.Project
		Comments     []*models.Comment
		Tasks        []*models.Task
		Names        map[string]string
		Subscription *models.Subscription
		Target       models.Target
	}{i, project, comments, tasks, a.userNames(), a.subscriptionFor(r, i.Target()), i.Target()})
}

func (a *App) editIssue(w http.ResponseWriter, r *http.Request) {
	i, ok := a.loadIssue(w, r, policy.Update)
	if !ok {
		return
	}
	if form, ok := a.issueForm(w, r, i); ok {
		a.render(w, r, http.StatusOK, "issue_form", "Edit issue", form)
	}
}

func (a *App) updateIssue(w http.ResponseWriter, r *http.Request) {
	i, ok := a.loadIssue(w, r, policy.Update)
	if !ok {
		return
	}

	i.IssueType = models.IssueType(field(r, "issue_type"))
	i.Summary = field(r, "summary")
	i.Description = r.PostFormValue("description")

	var err error
	if status := models.IssueStatus(field(r, "status")); status != "" && status != i.Status && status != models.IssueClosed {
		if !a.authorize(w, r, policy.Close, i) {
			return
		}
		err = i.SetStatus(status)
	}
	if err == nil {
		err = a.stores.Issues.Update(i)
	}
	if err != nil {
		if form, ok := a.issueForm(w, r, i); ok {
			a.invalid(w, r, "issue_form", "Edit issue", form, err)
		}
		return
	}
	redirect(w, r, "/issues/"+i.ID(), "Issue updated.")
}

func (a *App) deleteIssue(w http.ResponseWriter, r *http.Request) {
	i, ok := a.loadIssue(w, r, policy.Destroy)
	if !ok {
		return
	}
	if err := a.stores.Issues.Delete(i.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	redirect(w, r, "/issues", "Issue deleted.")
}

func (a *App) closeIssue(w http.ResponseWriter, r *http.Request) {
	i, ok := a.loadIssue(w, r, policy.Close)
	if !ok {
		return
	}
	if err := a.transitionIssue(i, i.Close); err != nil {
		a.fail(w, r, err)
		return
	}

	a.enqueue(jobs.NewCloseIssueJob(a.issueDeps(), i.ID()))
	a.notify(mailer.Notification{Event: mailer.IssueClosed, Actor: currentUser(r), Issue: i})
	redirect(w, r, "/issues/"+i.ID(), "Issue closed.")
}

func (a *App) reopenIssue(w http.ResponseWriter, r *http.Request) {
	i, ok := a.loadIssue(w, r, policy.Reopen)
	if !ok {
		return
	}
	reopen := func() error { return i.Reopen(time.Now().UTC()) }
	if err := a.transitionIssue(i, reopen); err != nil {
		a.fail(w, r, err)
		return
	}

	a.enqueue(jobs.NewReopenIssueJob(a.issueDeps(), i.ID()))
	a.notify(mailer.Notification{Event: mailer.IssueReopened, Actor: currentUser(r), Issue: i})
	redirect(w, r, "/issues/"+i.ID(), "Issue reopened.")
}

func (a *App) transitionIssue(i *models.Issue, change func() error) error {
	if err := change(); err != nil {
		return err
	}
	return a.stores.Issues.Update(i)
}
