// package formatter renders exported issues in the formats `roller issues export` supports
// (JSON, YAML, CSV, Markdown, plain text).
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/shared"
	"gopkg.in/yaml.v3"
)

// Formats lists the accepted values of the export --format flag.
var Formats = []string{"json", "yaml", "csv", "markdown", "text"}

// IssueExport is one issue with its comments, as written by the exporters.
type IssueExport struct {
	ID           string          `json:"id" yaml:"id"`
	Project      string          `json:"project" yaml:"project"`
	Type         string          `json:"type" yaml:"type"`
	Status       string          `json:"status" yaml:"status"`
	Summary      string          `json:"summary" yaml:"summary"`
	Description  string          `json:"description" yaml:"description"`
	Reporter     string          `json:"reporter" yaml:"reporter"`
	OpenedAt     time.Time       `json:"opened_at" yaml:"opened_at"`
	Closed       bool            `json:"closed" yaml:"closed"`
	GitHubNumber int             `json:"github_number,omitempty" yaml:"github_number,omitempty"`
	GitHubURL    string          `json:"github_url,omitempty" yaml:"github_url,omitempty"`
	Comments     []CommentExport `json:"comments" yaml:"comments"`
}

// CommentExport is a comment nested in an [IssueExport].
type CommentExport struct {
	Author    string    `json:"author" yaml:"author"`
	Body      string    `json:"body" yaml:"body"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Write renders issues to w in the named format.
func Write(w io.Writer, format string, issues []IssueExport) error {
	var data []byte
	var err error

	switch format {
	case "json":
		data, err = ExportToJSON(issues)
	case "yaml":
		data, err = ExportToYAML(issues)
	case "csv":
		data, err = ExportToCSV(issues)
	case "markdown", "md":
		data, err = ExportToMarkdown(issues)
	case "text", "txt":
		data, err = ExportToText(issues)
	default:
		return fmt.Errorf("%w: format must be one of %s, got %q", shared.ErrInvalidArgument, strings.Join(Formats, ", "), format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ExportToJSON renders issues as indented JSON followed by a newline.
func ExportToJSON(issues []IssueExport) ([]byte, error) {
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToYAML renders issues as a YAML sequence.
func ExportToYAML(issues []IssueExport) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(issues); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToCSV converts issues to CSV with columns: ID, Project, Type, Status, Summary, Reporter, Opened, Closed,
// GitHub, Comments. Comment bodies are not included; use JSON or YAML for a full export.
func ExportToCSV(issues []IssueExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Project", "Type", "Status", "Summary", "Reporter", "Opened", "Closed", "GitHub", "Comments"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, issue := range issues {
		record := []string{
			issue.ID,
			issue.Project,
			issue.Type,
			issue.Status,
			issue.Summary,
			issue.Reporter,
			issue.OpenedAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(issue.Closed),
			issue.GitHubURL,
			strconv.Itoa(len(issue.Comments)),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders each issue as a section with its description and comment thread.
func ExportToMarkdown(issues []IssueExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Issues\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d\n", len(issues)))

	for _, issue := range issues {
		state := "open"
		if issue.Closed {
			state = "closed"
		}
		buf.WriteString(fmt.Sprintf("\n## %s\n\n", issue.Summary))
		buf.WriteString(fmt.Sprintf("**Project**: %s · **Type**: %s · **Status**: %s (%s)\n", issue.Project, issue.Type, issue.Status, state))
		buf.WriteString(fmt.Sprintf("**Reporter**: %s · **Opened**: %s\n", issue.Reporter, issue.OpenedAt.Format("2006-01-02")))
		if issue.GitHubURL != "" {
			buf.WriteString(fmt.Sprintf("**GitHub**: [#%d](%s)\n", issue.GitHubNumber, issue.GitHubURL))
		}
		buf.WriteString("\n" + strings.TrimSpace(issue.Description) + "\n")

		if len(issue.Comments) > 0 {
			buf.WriteString("\n### Comments\n")
			for _, c := range issue.Comments {
				buf.WriteString(fmt.Sprintf("\n**%s** on %s:\n\n%s\n", c.Author, c.CreatedAt.Format("2006-01-02 15:04"), strings.TrimSpace(c.Body)))
			}
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per issue.
func ExportToText(issues []IssueExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Issues: %d\n\n", len(issues)))
	for i, issue := range issues {
		remote := ""
		if issue.GitHubNumber > 0 {
			remote = fmt.Sprintf(" #%d", issue.GitHubNumber)
		}
		buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s (%s, %d comments)%s\n",
			i+1, issue.Project, issue.Summary, issue.Status, issue.Reporter, len(issue.Comments), remote))
	}

	return buf.Bytes(), nil
}
