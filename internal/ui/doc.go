// Package ui implements an interactive issue browser using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [IssueListView] : Browse issues, open ones by default, with fuzzy filtering
//  2. [IssueDetailView] : Read an issue's description and comments in a scrollable viewport
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Data is loaded through small store interfaces, so the browser runs against the SQLite repositories or in-memory fakes.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, c, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
