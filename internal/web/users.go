package web

import (
	"net/http"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
)

type userForm struct {
	User          *models.User
	EmployeeTypes []models.EmployeeType
	CanChangeRole bool
}

func (a *App) userForm(r *http.Request, u *models.User) userForm {
	return userForm{
		User:          u,
		EmployeeTypes: models.EmployeeTypes,
		CanChangeRole: policy.Can(currentUser(r), policy.ChangeRole, u),
	}
}

func (a *App) loadUser(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.User, bool) {
	if _, ok := a.signedIn(w, r); !ok {
		return nil, false
	}
	u, err := a.stores.Users.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return u, a.authorize(w, r, action, u)
}

func (a *App) listUsers(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.List, &models.User{}) {
		return
	}
	users, err := a.stores.Users.List(filters(r, "employee_type"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "users", "Users", users)
}

func (a *App) newUser(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.Create, &models.User{}) {
		return
	}
	u := models.NewUser("", "", models.Reporter)
	a.render(w, r, http.StatusOK, "user_form", "New user", a.userForm(r, u))
}

func (a *App) createUser(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, policy.Create, &models.User{}) {
		return
	}

	u := models.NewUser(field(r, "email"), field(r, "name"), models.EmployeeType(field(r, "employee_type")))
	err := u.SetPassword(r.PostFormValue("password"))
	if err == nil {
		err = duplicateOn("Email", a.stores.Users.Create(u))
	}
	if err != nil {
		a.invalid(w, r, "user_form", "New user", a.userForm(r, u), err)
		return
	}

	a.logger.Info("created user", "user", u.ID(), "by", currentUser(r).ID())
	redirect(w, r, "/users/"+u.ID(), "User created.")
}

func (a *App) showUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.loadUser(w, r, policy.Read)
	if !ok {
		return
	}

	subs, err := a.stores.Subscriptions.List(map[string]any{"user_id": u.ID()})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "user", u.Name, struct {
		Person        *models.User
		Subscriptions []*models.Subscription
	}{u, subs})
}

func (a *App) editUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.loadUser(w, r, policy.Update)
	if !ok {
		return
	}
	a.render(w, r, http.StatusOK, "user_form", "Edit "+u.Name, a.userForm(r, u))
}

func (a *App) updateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.loadUser(w, r, policy.Update)
	if !ok {
		return
	}

	edited := models.NewUser(field(r, "email"), field(r, "name"), u.EmployeeType)
	u.Email, u.Name = edited.Email, edited.Name

	if role := field(r, "employee_type"); role != "" && models.EmployeeType(role) != u.EmployeeType {
		if !a.authorize(w, r, policy.ChangeRole, u) {
			return
		}
		u.EmployeeType = models.EmployeeType(role)
	}

	var err error
	if password := r.PostFormValue("password"); password != "" {
		err = u.SetPassword(password)
	}
	if err == nil {
		err = duplicateOn("Email", a.stores.Users.Update(u))
	}
	if err != nil {
		a.invalid(w, r, "user_form", "Edit "+u.Name, a.userForm(r, u), err)
		return
	}
	redirect(w, r, "/users/"+u.ID(), "User updated.")
}

func (a *App) deleteUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.loadUser(w, r, policy.Destroy)
	if !ok {
		return
	}
	if err := a.stores.Users.Delete(u.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger.Info("deleted user", "user", u.ID(), "by", currentUser(r).ID())
	redirect(w, r, "/users", "User deleted.")
}
