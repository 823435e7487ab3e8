package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/roller/internal/models"
)

var _ list.Item = issueItem{}

// issueItem wraps [models.Issue] to implement [list.Item].
type issueItem struct {
	issue   *models.Issue
	project string
}

func (i issueItem) FilterValue() string { return i.issue.Summary + " " + i.project }
func (i issueItem) Title() string       { return i.issue.Summary }
func (i issueItem) Description() string {
	desc := fmt.Sprintf("%s • %s • %s", i.issue.IssueType, i.issue.Status.Label(), i.issue.OpenedAt.Format("2006-01-02"))
	if i.project != "" {
		desc = fmt.Sprintf("%s • %s", i.project, desc)
	}
	if i.issue.GitHubNumber > 0 {
		desc = fmt.Sprintf("%s • #%d", desc, i.issue.GitHubNumber)
	}
	return desc
}
