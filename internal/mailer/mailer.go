// package mailer builds notification emails for subscribers and hands them to a [Deliverer].
//
// Recipients are the subscribers of the changed issue or task, of its project and of the
// project's category, minus whoever made the change. Each recipient gets their own message.
package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/desertthunder/roller/internal/markdown"
	"github.com/desertthunder/roller/internal/models"
)

//go:embed templates
var templateFiles embed.FS

// Event names a notification kind; each has a template in templates/.
type Event string

const (
	IssueOpened       Event = "issue_opened"
	IssueCommented    Event = "issue_commented"
	IssueClosed       Event = "issue_closed"
	IssueReopened     Event = "issue_reopened"
	TaskCommented     Event = "task_commented"
	TaskStatusChanged Event = "task_status_changed"
	ReviewRequested   Event = "review_requested"
	ReviewApproved    Event = "review_approved"
	ReviewDisapproved Event = "review_disapproved"
)

// Events lists every notification kind.
var Events = []Event{
	IssueOpened, IssueCommented, IssueClosed, IssueReopened,
	TaskCommented, TaskStatusChanged,
	ReviewRequested, ReviewApproved, ReviewDisapproved,
}

// Notification describes a change worth telling subscribers about.
// Issue or Task must be set, and Project must be the one it belongs to.
type Notification struct {
	Event   Event
	Actor   *models.User
	Project *models.Project
	Issue   *models.Issue
	Task    *models.Task
	Comment *models.Comment
	Review  *models.Review
}

// Target returns the issue or task the notification is about.
func (n Notification) Target() models.Target {
	if n.Task != nil {
		return n.Task.Target()
	}
	return n.Issue.Target()
}

// Message is a single outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// UserLookup resolves subscriber IDs to users.
type UserLookup interface {
	Get(id string) (*models.User, error)
}

// SubscriberLookup returns the IDs of users subscribed to any of targets.
type SubscriberLookup interface {
	Subscribers(targets ...models.Target) ([]string, error)
}

// Mailer renders notifications into messages.
type Mailer struct {
	from        string
	baseURL     string
	users       UserLookup
	subscribers SubscriberLookup
	text        map[Event]*template.Template
	layout      *htmltemplate.Template
	markdown    *markdown.Renderer
}

// New parses the embedded templates. baseURL prefixes links back to the tracker.
func New(from, baseURL string, users UserLookup, subscribers SubscriberLookup) (*Mailer, error) {
	m := &Mailer{
		from:        from,
		baseURL:     strings.TrimRight(baseURL, "/"),
		users:       users,
		subscribers: subscribers,
		text:        make(map[Event]*template.Template, len(Events)),
		markdown:    markdown.Default(),
	}

	for _, event := range Events {
		tmpl, err := template.ParseFS(templateFiles, "templates/"+string(event)+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", event, err)
		}
		m.text[event] = tmpl
	}

	layout, err := htmltemplate.ParseFS(templateFiles, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout template: %w", err)
	}
	m.layout = layout
	return m, nil
}

// Notify builds one message per recipient of n. It returns no messages when nobody but
// the actor is subscribed.
func (m *Mailer) Notify(n Notification) ([]*Message, error) {
	if n.Issue == nil && n.Task == nil {
		return nil, fmt.Errorf("notification %s has no issue or task", n.Event)
	}

	recipients, err := m.Recipients(n)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	subject, text, err := m.renderText(n)
	if err != nil {
		return nil, err
	}
	html, err := m.renderHTML(n, text)
	if err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(recipients))
	for _, to := range recipients {
		messages = append(messages, &Message{From: m.from, To: to, Subject: subject, Text: text, HTML: html})
	}
	return messages, nil
}

// Recipients returns the email addresses of everyone subscribed to the notification's
// target, project or category, excluding the actor.
func (m *Mailer) Recipients(n Notification) ([]string, error) {
	targets := []models.Target{n.Target()}
	if n.Project != nil {
		targets = append(targets,
			n.Project.Target(),
			models.Target{Type: models.TargetCategory, ID: n.Project.CategoryID},
		)
	}

	ids, err := m.subscribers.Subscribers(targets...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscribers: %w", err)
	}

	var emails []string
	for _, id := range ids {
		if n.Actor != nil && id == n.Actor.ID() {
			continue
		}
		user, err := m.users.Get(id)
		if err != nil {
			continue
		}
		emails = append(emails, user.Email)
	}
	return emails, nil
}

func (m *Mailer) renderText(n Notification) (subject, body string, err error) {
	tmpl, ok := m.text[n.Event]
	if !ok {
		return "", "", fmt.Errorf("unknown notification event %q", n.Event)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "subject", n); err != nil {
		return "", "", fmt.Errorf("failed to render %s subject: %w", n.Event, err)
	}
	subject = strings.Join(strings.Fields(buf.String()), " ")

	buf.Reset()
	if err := tmpl.ExecuteTemplate(&buf, "body", n); err != nil {
		return "", "", fmt.Errorf("failed to render %s body: %w", n.Event, err)
	}
	body = strings.TrimSpace(buf.String()) + "\n\n" + m.url(n) + "\n"
	return subject, body, nil
}

// renderHTML wraps the plain text lead in the layout. Comment bodies and new issue
// descriptions go through the markdown renderer instead of being repeated as text.
func (m *Mailer) renderHTML(n Notification, text string) (string, error) {
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")
	paragraphs = paragraphs[:len(paragraphs)-1]

	var md htmltemplate.HTML
	switch {
	case n.Comment != nil:
		md = m.markdown.Render(n.Comment.Body)
		paragraphs = paragraphs[:1]
	case n.Event == IssueOpened && n.Issue != nil:
		md = m.markdown.Render(n.Issue.Description)
		if len(paragraphs) > 2 {
			paragraphs = paragraphs[:2]
		}
	}

	data := struct {
		Paragraphs       []string
		Markdown         htmltemplate.HTML
		URL              string
		SubscriptionsURL string
	}{paragraphs, md, m.url(n), m.baseURL + "/subscriptions"}

	var buf bytes.Buffer
	if err := m.layout.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

func (m *Mailer) url(n Notification) string {
	return m.baseURL + n.Target().Path()
}
