package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/roller/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	IssueListView ViewState = iota
	IssueDetailView
)

// IssueLister lists issues matching repository criteria.
type IssueLister interface {
	List(criteria map[string]any) ([]*models.Issue, error)
}

// ProjectGetter loads a project by ID.
type ProjectGetter interface {
	Get(id string) (*models.Project, error)
}

// CommentLister loads the comments on a target, oldest first.
type CommentLister interface {
	ForTarget(target models.Target) ([]*models.Comment, error)
}

// UserGetter loads a user by ID.
type UserGetter interface {
	Get(id string) (*models.User, error)
}

// Stores are the data sources the browser reads from.
type Stores struct {
	Issues   IssueLister
	Projects ProjectGetter
	Comments CommentLister
	Users    UserGetter
}

// Model represents the TUI application state.
type Model struct {
	view       ViewState
	stores     Stores
	showClosed bool
	width      int
	height     int
	issueList  list.Model
	detail     viewport.Model
	selected   *models.Issue
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model reading from stores.
func NewModel(stores Stores) *Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Open issues"
	return &Model{
		view:      IssueListView,
		stores:    stores,
		issueList: l,
		detail:    viewport.New(0, 0),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the first page of issues.
func (m *Model) Init() tea.Cmd {
	return m.fetchIssues()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.issueList.SetSize(msg.Width-4, msg.Height-4)
		m.detail.Width = msg.Width - 4
		m.detail.Height = msg.Height - 6
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case IssueListView:
			return m.handleListKeys(msg)
		case IssueDetailView:
			return m.handleDetailKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateView(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgIssuesFetched:
		data := msg.data.(issuesFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(data.items))
		for i, item := range data.items {
			items[i] = item
		}
		m.issueList.Title = "Open issues"
		if m.showClosed {
			m.issueList.Title = "Closed issues"
		}
		return m, m.issueList.SetItems(items)

	case MsgDetailFetched:
		data := msg.data.(detailFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.selected = data.issue
		m.detail.SetContent(m.renderIssue(data))
		m.detail.GotoTop()
		m.view = IssueDetailView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case IssueListView:
		return m.renderList()
	case IssueDetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.issueList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.issueList, cmd = m.issueList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.err = nil
		return m, m.fetchIssues()
	case key.Matches(msg, m.keys.closed):
		m.showClosed = !m.showClosed
		return m, m.fetchIssues()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.issueList.SelectedItem().(issueItem); ok {
			return m, m.fetchDetail(item.issue)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.issueList, cmd = m.issueList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = IssueListView
		m.selected = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) updateView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case IssueListView:
		m.issueList, cmd = m.issueList.Update(msg)
	case IssueDetailView:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchIssues() tea.Cmd {
	closed := m.showClosed
	return func() tea.Msg {
		issues, err := m.stores.Issues.List(map[string]any{"closed": closed})
		if err != nil {
			return issuesFetchedMsg(nil, err)
		}

		names := map[string]string{}
		items := make([]issueItem, len(issues))
		for i, issue := range issues {
			name, ok := names[issue.ProjectID]
			if !ok && m.stores.Projects != nil {
				if p, err := m.stores.Projects.Get(issue.ProjectID); err == nil {
					name = p.Name
				}
				names[issue.ProjectID] = name
			}
			items[i] = issueItem{issue: issue, project: name}
		}
		return issuesFetchedMsg(items, nil)
	}
}

func (m *Model) fetchDetail(issue *models.Issue) tea.Cmd {
	return func() tea.Msg {
		d := detailFetched{issue: issue}
		if m.stores.Projects != nil {
			p, err := m.stores.Projects.Get(issue.ProjectID)
			if err != nil {
				return detailFetchedMsg(detailFetched{err: err})
			}
			d.project = p
		}
		if m.stores.Comments != nil {
			comments, err := m.stores.Comments.ForTarget(issue.Target())
			if err != nil {
				return detailFetchedMsg(detailFetched{err: err})
			}
			d.comments = comments
		}
		return detailFetchedMsg(d)
	}
}

func (m *Model) author(id string) string {
	if m.stores.Users != nil {
		if u, err := m.stores.Users.Get(id); err == nil {
			return u.Name
		}
	}
	return "unknown"
}

func (m *Model) renderIssue(d detailFetched) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", styles.label.Render(label), value)
	}

	if d.project != nil {
		row("Project", d.project.Name)
	}
	row("Type", string(d.issue.IssueType))
	row("Status", styles.status(d.issue.Status.Label()))
	row("Opened", d.issue.OpenedAt.Format("2006-01-02 15:04"))
	row("Reporter", m.author(d.issue.UserID))
	if d.issue.GitHubURL != "" {
		row("GitHub", d.issue.GitHubURL)
	}

	b.WriteString("\n")
	b.WriteString(d.issue.Description)
	b.WriteString("\n")

	if len(d.comments) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.title.Render(fmt.Sprintf("%d comments", len(d.comments))))
		b.WriteString("\n")
		for _, c := range d.comments {
			fmt.Fprintf(&b, "%s %s\n%s\n\n",
				styles.ok.Render(m.author(c.UserID)),
				styles.help.Render(c.CreatedAt().Format("2006-01-02 15:04")),
				c.Body,
			)
		}
	}
	return b.String()
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.closed, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.issueList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	title := styles.title.Render(m.selected.Summary)
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.detail.View(), helpView)
}
