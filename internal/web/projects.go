package web

import (
	"net/http"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
)

type projectForm struct {
	Project    *models.Project
	Categories []*models.Category
}

func (a *App) loadProject(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.Project, bool) {
	if _, ok := a.signedIn(w, r); !ok {
		return nil, false
	}
	p, err := a.stores.Projects.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return p, a.authorize(w, r, action, p)
}

// readableProjects lists projects matching criteria that the visitor may open.
func (a *App) readableProjects(r *http.Request, criteria map[string]any) ([]*models.Project, error) {
	all, err := a.stores.Projects.List(criteria)
	if err != nil {
		return nil, err
	}
	user := currentUser(r)
	visible := all[:0]
	for _, p := range all {
		if policy.Can(user, policy.Read, p) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

func (a *App) projectForm(w http.ResponseWriter, r *http.Request, p *models.Project) (projectForm, bool) {
	categories, err := a.readableCategories(r)
	if err != nil {
		a.fail(w, r, err)
		return projectForm{}, false
	}
	return projectForm{Project: p, Categories: categories}, true
}

func (a *App) listProjects(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.List, &models.Project{}) {
		return
	}
	projects, err := a.readableProjects(r, filters(r, "category_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "projects", "Projects", projects)
}

func (a *App) newProject(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.Create, &models.Project{}) {
		return
	}
	form, ok := a.projectForm(w, r, models.NewProject(r.URL.Query().Get("category_id"), ""))
	if !ok {
		return
	}
	a.render(w, r, http.StatusOK, "project_form", "New project", form)
}

func (a *App) createProject(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.Create, &models.Project{}) {
		return
	}

	p := models.NewProject(field(r, "category_id"), field(r, "name"))
	p.Visible = checked(r, "visible")
	p.Internal = checked(r, "internal")
	p.GitHubRepo = field(r, "github_repo")

	err := a.checkCategory(r, p.CategoryID)
	if err == nil {
		err = a.stores.Projects.Create(p)
	}
	if err != nil {
		if form, ok := a.projectForm(w, r, p); ok {
			a.invalid(w, r, "project_form", "New project", form, err)
		}
		return
	}

	a.subscribe(currentUser(r).ID(), p.Target())
	redirect(w, r, "/projects/"+p.ID(), "Project created.")
}

// checkCategory rejects categories the visitor cannot see, as if they did not exist.
func (a *App) checkCategory(r *http.Request, id string) error {
	if id == "" {
		return nil
	}
	c, err := a.stores.Categories.Get(id)
	if err == nil && policy.Can(currentUser(r), policy.Read, c) {
		return nil
	}
	return &models.ValidationError{Fields: map[string]string{"CategoryID": "is invalid"}}
}

func (a *App) showProject(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadProject(w, r, policy.Read)
	if !ok {
		return
	}

	issues, err := a.stores.Issues.List(map[string]any{"project_id": p.ID(), "closed": false})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tasks, err := a.stores.Tasks.List(map[string]any{"project_id": p.ID(), "closed": false})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	category, err := a.stores.Categories.Get(p.CategoryID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, "project", p.Name, struct {
		Project      *models.Project
		Category     *models.Category
		Issues       []*models.Issue
		Tasks        []*models.Task
		Subscription *models.Subscription
		Target       models.Target
	}{p, category, issues, tasks, a.subscriptionFor(r, p.Target()), p.Target()})
}

func (a *App) editProject(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadProject(w, r, policy.Update)
	if !ok {
		return
	}
	if form, ok := a.projectForm(w, r, p); ok {
		a.render(w, r, http.StatusOK, "project_form", "Edit "+p.Name, form)
	}
}

func (a *App) updateProject(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadProject(w, r, policy.Update)
	if !ok {
		return
	}

	if id := field(r, "category_id"); id != "" {
		p.CategoryID = id
	}
	p.Name = field(r, "name")
	p.Visible = checked(r, "visible")
	p.Internal = checked(r, "internal")
	p.GitHubRepo = field(r, "github_repo")

	err := a.checkCategory(r, p.CategoryID)
	if err == nil {
		err = a.stores.Projects.Update(p)
	}
	if err != nil {
		if form, ok := a.projectForm(w, r, p); ok {
			a.invalid(w, r, "project_form", "Edit project", form, err)
		}
		return
	}
	redirect(w, r, "/projects/"+p.ID(), "Project updated.")
}

func (a *App) deleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadProject(w, r, policy.Destroy)
	if !ok {
		return
	}
	if err := a.stores.Projects.Delete(p.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	redirect(w, r, "/projects", "Project deleted.")
}
