package tui

import (
	"github.com/cieldm/ciel/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// QueueChangedMsg signals that the registry contents changed and the list
// should re-render from a fresh snapshot.
type QueueChangedMsg struct{}

// SettingsChangedMsg carries a new settings snapshot after a sync broadcast.
type SettingsChangedMsg struct {
	Snapshot domain.Snapshot
}

// QueueRefreshedMsg signals that a full engine pull completed.
type QueueRefreshedMsg struct{}

// DownloadAddedMsg signals that a single download was created.
type DownloadAddedMsg struct {
	Download domain.Download
}

// BatchAddedMsg carries the aggregate outcome of a multi-URL add.
type BatchAddedMsg struct {
	Added int
	Total int
}

// CommandDoneMsg signals that a fire-and-return command finished.
type CommandDoneMsg struct {
	Action string
	ID     string
}

// HistoryLoadedMsg signals that the download history has been loaded.
type HistoryLoadedMsg struct {
	Records []domain.HistoryRecord
}

// ClipboardMsg carries the engine host's clipboard text.
type ClipboardMsg struct {
	Text string
}

// AutocatchMsg prompts the user with a URL caught from the clipboard.
type AutocatchMsg struct {
	URL string
}

// SettingSavedMsg signals that one setting persisted successfully.
type SettingSavedMsg struct {
	Key   string
	Value string
}

// EventStreamClosedMsg signals that the engine event stream dropped.
type EventStreamClosedMsg struct{}

// TickMsg is a general tick message for spinner animation
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
