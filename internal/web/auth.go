package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/services"
	"github.com/desertthunder/roller/internal/shared"
	"golang.org/x/oauth2"
)

type signInData struct {
	Email    string
	ReturnTo string
	GitHub   bool
}

func (a *App) signInForm(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/issues", http.StatusSeeOther)
		return
	}
	a.render(w, r, http.StatusOK, "sign_in", "Sign in", signInData{
		ReturnTo: r.URL.Query().Get("return_to"),
		GitHub:   a.cfg.GitHub.ClientID != "",
	})
}

func (a *App) signIn(w http.ResponseWriter, r *http.Request) {
	data := signInData{
		Email:    field(r, "email"),
		ReturnTo: field(r, "return_to"),
		GitHub:   a.cfg.GitHub.ClientID != "",
	}

	user, err := a.authenticate(data.Email, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			a.fail(w, r, err)
			return
		}
		a.renderPage(w, r, http.StatusUnauthorized, "sign_in", page{
			Title:  "Sign in",
			Errors: map[string]string{"Email": "or password is incorrect"},
			Data:   data,
		})
		return
	}

	if err := a.startSession(w, user); err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger.Info("signed in", "user", user.ID())
	http.Redirect(w, r, safeReturn(data.ReturnTo, "/issues"), http.StatusSeeOther)
}

// authenticate checks an email and password pair. Unknown emails and wrong passwords look the same.
func (a *App) authenticate(email, password string) (*models.User, error) {
	user, err := a.stores.Users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

func (a *App) signOut(w http.ResponseWriter, r *http.Request) {
	a.endSession(w, r)
	redirect(w, r, "/sign_in", "Signed out.")
}

// githubProfile fetches the account that granted token. Tests replace it.
var githubProfile = func(ctx context.Context, cfg shared.GitHubConfig, token *oauth2.Token) (*services.GitHubUser, error) {
	return services.NewGitHubUserClient(ctx, cfg, token).CurrentUser(ctx)
}

// finishGitHubSignIn links the GitHub account to a user and signs them in.
//
// A signed-in visitor links their own account. Otherwise the account must already be linked,
// or its email must match an existing user.
func (a *App) finishGitHubSignIn(w http.ResponseWriter, r *http.Request, token *oauth2.Token) {
	profile, err := githubProfile(r.Context(), a.cfg.GitHub, token)
	if err != nil {
		a.logger.Error("failed to fetch github profile", "error", err)
		a.renderError(w, r, http.StatusBadGateway, "GitHub did not return your profile. Try again later.")
		return
	}

	user, err := a.githubUser(currentUser(r), profile)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			a.renderError(w, r, http.StatusForbidden, fmt.Sprintf("No account matches the GitHub user %s. Ask an admin to create one for %s.", profile.Login, profile.Email))
			return
		}
		a.fail(w, r, err)
		return
	}

	if currentUser(r) == nil {
		if err := a.startSession(w, user); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	a.logger.Info("github account linked", "user", user.ID(), "login", profile.Login)
	redirect(w, r, "/issues", "Signed in with GitHub as "+profile.Login+".")
}

func (a *App) githubUser(current *models.User, profile *services.GitHubUser) (*models.User, error) {
	linked, err := a.stores.Users.GetByGitHubID(profile.ID)
	switch {
	case err == nil:
		if current != nil && linked.ID() != current.ID() {
			return nil, fmt.Errorf("%w: GitHub account %s belongs to another user", shared.ErrDuplicate, profile.Login)
		}
		return a.linkGitHub(linked, profile)
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	if current != nil {
		return a.linkGitHub(current, profile)
	}
	if profile.Email == "" {
		return nil, shared.ErrNotFound
	}
	user, err := a.stores.Users.GetByEmail(profile.Email)
	if err != nil {
		return nil, err
	}
	return a.linkGitHub(user, profile)
}

func (a *App) linkGitHub(user *models.User, profile *services.GitHubUser) (*models.User, error) {
	if user.GitHubID == profile.ID && user.GitHubUsername == profile.Login {
		return user, nil
	}
	user.GitHubID = profile.ID
	user.GitHubUsername = profile.Login
	if err := a.stores.Users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
