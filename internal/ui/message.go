package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/roller/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgIssuesFetched MsgKind = iota
	MsgDetailFetched
)

type issuesFetched struct {
	items []issueItem
	err   error
}

type detailFetched struct {
	issue    *models.Issue
	project  *models.Project
	comments []*models.Comment
	err      error
}

// issuesFetchedMsg is the constructor for [MsgIssuesFetched]
func issuesFetchedMsg(items []issueItem, err error) Msg {
	return Msg{kind: MsgIssuesFetched, data: issuesFetched{items, err}}
}

// detailFetchedMsg is the constructor for [MsgDetailFetched]
func detailFetchedMsg(d detailFetched) Msg {
	return Msg{kind: MsgDetailFetched, data: d}
}
