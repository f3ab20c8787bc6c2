package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cieldm/ciel/internal/dispatch"
	"github.com/cieldm/ciel/internal/domain"
)

// Command factories for async operations

const commandTimeout = 30 * time.Second

// RefreshQueueCmd pulls the full queue from the engine.
func RefreshQueueCmd(d *dispatch.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := d.Refresh(ctx); err != nil {
			return ErrMsg{Err: err, Context: "refreshing queue"}
		}
		return QueueRefreshedMsg{}
	}
}

// AddDownloadCmd creates one download from a URL.
func AddDownloadCmd(d *dispatch.Dispatcher, req domain.AddRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		created, err := d.Add(ctx, req)
		if err != nil {
			return ErrMsg{Err: err, Context: "adding download"}
		}
		return DownloadAddedMsg{Download: created}
	}
}

// AddBatchCmd creates several downloads and reports the aggregate.
func AddBatchCmd(d *dispatch.Dispatcher, urls []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		result := d.AddBatch(ctx, urls)
		return BatchAddedMsg{Added: result.Added, Total: result.Total}
	}
}

// PauseCmd pauses one download.
func PauseCmd(d *dispatch.Dispatcher, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := d.Pause(ctx, id); err != nil {
			return ErrMsg{Err: err, Context: "pausing download"}
		}
		return CommandDoneMsg{Action: "pause", ID: id}
	}
}

// ResumeCmd resumes one download.
func ResumeCmd(d *dispatch.Dispatcher, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := d.Resume(ctx, id); err != nil {
			return ErrMsg{Err: err, Context: "resuming download"}
		}
		return CommandDoneMsg{Action: "resume", ID: id}
	}
}

// DeleteCmd removes one download, optionally deleting files on disk.
func DeleteCmd(d *dispatch.Dispatcher, id string, deleteFiles bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := d.Delete(ctx, id, deleteFiles); err != nil {
			return ErrMsg{Err: err, Context: "deleting download"}
		}
		return CommandDoneMsg{Action: "delete", ID: id}
	}
}

// ClearFinishedCmd removes all completed downloads from the queue.
func ClearFinishedCmd(d *dispatch.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := d.ClearFinished(ctx); err != nil {
			return ErrMsg{Err: err, Context: "clearing finished"}
		}
		return CommandDoneMsg{Action: "clear-finished"}
	}
}

// LoadHistoryCmd fetches the completed-download history.
func LoadHistoryCmd(d *dispatch.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		records, err := d.History(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading history"}
		}
		return HistoryLoadedMsg{Records: records}
	}
}

// LoadClipboardCmd fetches the engine host's clipboard text.
func LoadClipboardCmd(d *dispatch.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		text, err := d.Clipboard(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "reading clipboard"}
		}
		return ClipboardMsg{Text: text}
	}
}

// SettingsUpdater is the subset of the settings synchronizer the TUI uses.
type SettingsUpdater interface {
	UpdateOne(ctx context.Context, key, value string) error
}

// UpdateSettingCmd persists one setting. The optimistic local update has
// already been broadcast by the synchronizer before the result arrives.
func UpdateSettingCmd(s SettingsUpdater, key, value string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := s.UpdateOne(ctx, key, value); err != nil {
			return ErrMsg{Err: err, Context: "saving setting"}
		}
		return SettingSavedMsg{Key: key, Value: value}
	}
}

// WaitForQueueChangeCmd blocks until the registry notifies a change.
func WaitForQueueChangeCmd(n *QueueNotifier) tea.Cmd {
	return func() tea.Msg {
		<-n.C()
		return QueueChangedMsg{}
	}
}

// WaitForSettingsChangeCmd blocks until a new settings snapshot arrives.
func WaitForSettingsChangeCmd(n *SettingsNotifier) tea.Cmd {
	return func() tea.Msg {
		return SettingsChangedMsg{Snapshot: <-n.C()}
	}
}

// WaitForCatchCmd blocks until an autocatch URL arrives.
func WaitForCatchCmd(n *CatchNotifier) tea.Cmd {
	return func() tea.Msg {
		return AutocatchMsg{URL: <-n.C()}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
