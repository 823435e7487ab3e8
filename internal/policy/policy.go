// package policy decides whether a user may perform an action on a resource.
//
// Rules are evaluated against the acting user, where nil means a signed-out guest.
// Guests may do nothing and admins may do everything; every other combination is
// decided per resource type below.
package policy

import (
	"fmt"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
)

// Action is something a user attempts to do to a resource.
type Action string

const (
	List          Action = "list"
	Read          Action = "read"
	Create        Action = "create"
	Update        Action = "update"
	Destroy       Action = "destroy"
	Close         Action = "close"
	Reopen        Action = "reopen"
	Assign        Action = "assign"
	RequestReview Action = "request_review"
	Review        Action = "review" // approve or disapprove a pending review
	ChangeRole    Action = "change_role"
)

// Authorize returns nil when user may perform action on resource.
//
// Guests get [shared.ErrUnauthorized] so callers can send them to sign in; everyone
// else gets [shared.ErrForbidden]. Resource is a model pointer; for List and Create a
// zero value of the model stands in for the collection.
func Authorize(user *models.User, action Action, resource any) error {
	if user == nil {
		return fmt.Errorf("%w: sign in to %s", shared.ErrUnauthorized, action)
	}
	if user.IsAdmin() || allowed(user, action, resource) {
		return nil
	}
	return fmt.Errorf("%w: %s may not %s %s", shared.ErrForbidden, user.EmployeeType, action, kind(resource))
}

// Can reports whether user may perform action on resource.
func Can(user *models.User, action Action, resource any) bool {
	return Authorize(user, action, resource) == nil
}

func allowed(user *models.User, action Action, resource any) bool {
	switch r := resource.(type) {
	case *models.Category:
		return container(user, action, r.Visible, r.Internal)
	case *models.Project:
		return container(user, action, r.Visible, r.Internal)
	case *models.Issue:
		return issue(user, action, r)
	case *models.Task:
		return task(user, action, r)
	case *models.Comment:
		return comment(user, action, r)
	case *models.Subscription:
		return subscription(user, action, r)
	case *models.User:
		return person(user, action, r)
	default:
		return false
	}
}

// container covers categories and projects, which share visibility flags.
func container(user *models.User, action Action, visible, internal bool) bool {
	switch action {
	case List:
		return true
	case Read:
		return visible && (!internal || user.IsEmployee())
	case Create, Update:
		return user.IsReviewer()
	default:
		return false
	}
}

func issue(user *models.User, action Action, i *models.Issue) bool {
	switch action {
	case List, Read, Create:
		return true
	case Update:
		return i.UserID == user.ID() || user.IsReviewer()
	case Close, Reopen:
		return user.IsReviewer()
	default:
		return false
	}
}

func task(user *models.User, action Action, t *models.Task) bool {
	switch action {
	case List, Read:
		return true
	case Create, Assign, Close, Reopen:
		return user.IsReviewer()
	case Update:
		return t.UserID == user.ID() || (t.AssigneeID != "" && t.AssigneeID == user.ID()) || user.IsReviewer()
	case RequestReview:
		owns := t.UserID == user.ID() || (t.AssigneeID != "" && t.AssigneeID == user.ID())
		return owns && t.Status == models.TaskInProgress
	case Review:
		return user.IsReviewer() && t.AssigneeID != user.ID() && t.Status == models.TaskInReview
	default:
		return false
	}
}

func comment(user *models.User, action Action, c *models.Comment) bool {
	switch action {
	case List, Read, Create:
		return true
	case Update, Destroy:
		return c.UserID == user.ID()
	default:
		return false
	}
}

func subscription(user *models.User, action Action, s *models.Subscription) bool {
	switch action {
	case List:
		return true
	case Read, Create, Destroy:
		return s.UserID == user.ID()
	default:
		return false
	}
}

func person(user *models.User, action Action, u *models.User) bool {
	switch action {
	case Read, Update:
		return u.ID() == user.ID()
	default:
		return false
	}
}

func kind(resource any) string {
	switch resource.(type) {
	case *models.Category:
		return "category"
	case *models.Project:
		return "project"
	case *models.Issue:
		return "issue"
	case *models.Task:
		return "task"
	case *models.Comment:
		return "comment"
	case *models.Subscription:
		return "subscription"
	case *models.User:
		return "user"
	default:
		return fmt.Sprintf("%T", resource)
	}
}
