package web

import (
	"errors"
	"net/http"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/policy"
	"github.com/desertthunder/roller/internal/shared"
)

type subscriptionRow struct {
	Subscription *models.Subscription
	Label        string
}

// subscriptionFor returns the visitor's subscription to target, or nil.
func (a *App) subscriptionFor(r *http.Request, target models.Target) *models.Subscription {
	user := currentUser(r)
	if user == nil {
		return nil
	}
	sub, err := a.stores.Subscriptions.Find(user.ID(), target)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			a.logger.Error("failed to look up subscription", "error", err)
		}
		return nil
	}
	return sub
}

// label names a subscription target for the subscriptions page.
func (a *App) label(target models.Target) string {
	switch target.Type {
	case models.TargetIssue:
		if i, err := a.stores.Issues.Get(target.ID); err == nil {
			return "Issue: " + i.Summary
		}
	case models.TargetTask:
		if t, err := a.stores.Tasks.Get(target.ID); err == nil {
			return "Task: " + t.Summary
		}
	case models.TargetProject:
		if p, err := a.stores.Projects.Get(target.ID); err == nil {
			return "Project: " + p.Name
		}
	case models.TargetCategory:
		if c, err := a.stores.Categories.Get(target.ID); err == nil {
			return "Category: " + c.Name
		}
	}
	return ""
}

// readable reports whether the visitor may see the subscription target.
func (a *App) readable(r *http.Request, target models.Target) (bool, error) {
	var resource any
	var err error
	switch target.Type {
	case models.TargetIssue:
		resource, err = a.stores.Issues.Get(target.ID)
	case models.TargetTask:
		resource, err = a.stores.Tasks.Get(target.ID)
	case models.TargetProject:
		resource, err = a.stores.Projects.Get(target.ID)
	case models.TargetCategory:
		resource, err = a.stores.Categories.Get(target.ID)
	default:
		return false, shared.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return policy.Can(currentUser(r), policy.Read, resource), nil
}

func (a *App) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, ok := a.signedIn(w, r)
	if !ok {
		return
	}

	subs, err := a.stores.Subscriptions.List(map[string]any{"user_id": user.ID()})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	rows := make([]subscriptionRow, 0, len(subs))
	for _, s := range subs {
		if label := a.label(s.Target()); label != "" {
			rows = append(rows, subscriptionRow{Subscription: s, Label: label})
		}
	}
	a.render(w, r, http.StatusOK, "subscriptions", "Subscriptions", rows)
}

func (a *App) createSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := a.signedIn(w, r)
	if !ok {
		return
	}

	target := models.Target{Type: models.TargetType(field(r, "target_type")), ID: field(r, "target_id")}
	sub := models.NewSubscription(user.ID(), target)
	if !a.authorize(w, r, policy.Create, sub) {
		return
	}

	visible, err := a.readable(r, target)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !visible {
		a.fail(w, r, shared.ErrForbidden)
		return
	}

	if _, err := a.stores.Subscriptions.Ensure(user.ID(), target); err != nil {
		a.fail(w, r, err)
		return
	}
	redirect(w, r, target.Path(), "Subscribed.")
}

func (a *App) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.signedIn(w, r); !ok {
		return
	}
	sub, err := a.stores.Subscriptions.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !a.authorize(w, r, policy.Destroy, sub) {
		return
	}
	if err := a.stores.Subscriptions.Delete(sub.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	redirect(w, r, safeReturn(field(r, "return_to"), "/subscriptions"), "Unsubscribed.")
}
