package web

import (
	"net/http"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
)

func (a *App) loadCategory(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.Category, bool) {
	if _, ok := a.signedIn(w, r); !ok {
		return nil, false
	}
	c, err := a.stores.Categories.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return c, a.authorize(w, r, action, c)
}

// readableCategories returns the categories the visitor may open.
func (a *App) readableCategories(r *http.Request) ([]*models.Category, error) {
	all, err := a.stores.Categories.List(nil)
	if err != nil {
		return nil, err
	}
	user := currentUser(r)
	visible := all[:0]
	for _, c := range all {
		if policy.Can(user, policy.Read, c) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (a *App) listCategories(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.List, &models.Category{}) {
		return
	}
	categories, err := a.readableCategories(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "categories", "Categories", categories)
}

func (a *App) newCategory(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.Create, &models.Category{}) {
		return
	}
	a.render(w, r, http.StatusOK, "category_form", "New category", models.NewCategory(""))
}

func (a *App) createCategory(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.Create, &models.Category{}) {
		return
	}

	c := models.NewCategory(field(r, "name"))
	c.Visible = checked(r, "visible")
	c.Internal = checked(r, "internal")
	if err := a.stores.Categories.Create(c); err != nil {
		a.invalid(w, r, "category_form", "New category", c, err)
		return
	}
	redirect(w, r, "/categories/"+c.ID(), "Category created.")
}

func (a *App) showCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCategory(w, r, policy.Read)
	if !ok {
		return
	}

	projects, err := a.readableProjects(r, map[string]any{"category_id": c.ID()})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "category", c.Name, struct {
		Category     *models.Category
		Projects     []*models.Project
		Subscription *models.Subscription
		Target       models.Target
	}{c, projects, a.subscriptionFor(r, c.Target()), c.Target()})
}

func (a *App) editCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCategory(w, r, policy.Update)
	if !ok {
		return
	}
	a.render(w, r, http.StatusOK, "category_form", "Edit "+c.Name, c)
}

func (a *App) updateCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCategory(w, r, policy.Update)
	if !ok {
		return
	}

	c.Name = field(r, "name")
	c.Visible = checked(r, "visible")
	c.Internal = checked(r, "internal")
	if err := a.stores.Categories.Update(c); err != nil {
		a.invalid(w, r, "category_form", "Edit category", c, err)
		return
	}
	redirect(w, r, "/categories/"+c.ID(), "Category updated.")
}

func (a *App) deleteCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCategory(w, r, policy.Destroy)
	if !ok {
		return
	}
	if err := a.stores.Categories.Delete(c.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	redirect(w, r, "/categories", "Category deleted.")
}
