// Package tui is the Bubble Tea terminal interface over the synchronized
// download queue.
package tui

import (
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cieldm/ciel/internal/config"
	"github.com/cieldm/ciel/internal/dispatch"
	"github.com/cieldm/ciel/internal/domain"
	"github.com/cieldm/ciel/internal/registry"
	"github.com/cieldm/ciel/internal/search"
	"github.com/cieldm/ciel/internal/settings"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateList ApplicationState = iota
	StateAdding
	StateFiltering
	StateHistory
	StateSettings
	StateConfirmDelete
	StateAutocatch
	StateHelp
)

// Tab indexes for the status views
const (
	TabAll = iota
	TabActive
	TabCompleted
	tabCount
)

var tabNames = [tabCount]string{"All", "Active", "Completed"}

const statusClearDelay = 4 * time.Second

// settingEntries lists the settings shown in the settings panel, in order.
var settingEntries = []string{
	domain.SettingDownloadPath,
	domain.SettingMaxConcurrent,
	domain.SettingMaxConnections,
	domain.SettingAutoStart,
	domain.SettingNotifications,
	domain.SettingSoundOnFinish,
	domain.SettingOpenFolderOnFinish,
	domain.SettingShutdownOnFinish,
	domain.SettingAutocatchEnabled,
	domain.SettingSchedulerEnabled,
	domain.SettingSchedulerStartTime,
	domain.SettingSchedulerPauseTime,
	domain.SettingSpeedLimit,
	domain.SettingTheme,
}

// boolSettings are toggled in place; everything else is edited as text.
var boolSettings = map[string]bool{
	domain.SettingAutoStart:          true,
	domain.SettingNotifications:      true,
	domain.SettingSoundOnFinish:      true,
	domain.SettingOpenFolderOnFinish: true,
	domain.SettingShutdownOnFinish:   true,
	domain.SettingAutocatchEnabled:   true,
	domain.SettingSchedulerEnabled:   true,
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Wiring
	Dispatcher *dispatch.Dispatcher
	Registry   *registry.Registry
	Settings   *settings.Synchronizer
	Logger     *slog.Logger

	// Local UI preferences, fixed at startup.
	ui config.UIConfig

	// Change notifications
	queueNotifier    *QueueNotifier
	settingsNotifier *SettingsNotifier
	catchNotifier    *CatchNotifier

	// Inputs
	addInput     textinput.Model
	filterInput  textinput.Model
	settingInput textinput.Model

	// Data snapshots
	downloads  []domain.Download
	visible    []domain.Download
	matchHints [][]int
	history    []domain.HistoryRecord
	snapshot   domain.Snapshot

	// List state
	tab    int
	cursor int

	// Settings panel state
	settingCursor  int
	editingSetting string

	// Pending interactions
	pendingDeleteID string
	catchURL        string
	catchSimilar    string

	// UI state
	Width        int
	Height       int
	StatusText   string
	StatusIsErr  bool
	SpinnerFrame int
}

// NewModel creates a new application model
func NewModel(
	dispatcher *dispatch.Dispatcher,
	reg *registry.Registry,
	sync *settings.Synchronizer,
	ui config.UIConfig,
	logger *slog.Logger,
) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	addInput := textinput.New()
	addInput.Placeholder = "https://... (separate multiple URLs with spaces)"
	addInput.CharLimit = 0
	addInput.Width = 60

	filterInput := textinput.New()
	filterInput.Placeholder = "filter by name"
	filterInput.Prompt = "/"
	filterInput.Width = 40

	settingInput := textinput.New()
	settingInput.Width = 40

	m := &Model{
		State:            StateList,
		Dispatcher:       dispatcher,
		Registry:         reg,
		Settings:         sync,
		Logger:           logger,
		ui:               ui,
		queueNotifier:    NewQueueNotifier(),
		settingsNotifier: NewSettingsNotifier(),
		catchNotifier:    NewCatchNotifier(),
		addInput:         addInput,
		filterInput:      filterInput,
		settingInput:     settingInput,
		snapshot:         sync.Current(),
	}

	reg.Subscribe(m.queueNotifier.Notify)
	sync.Subscribe(m.settingsNotifier.Notify)

	return m
}

// CatchHandler returns the callback to register as the reconciler's
// autocatch handler.
func (m *Model) CatchHandler() func(string) {
	return m.catchNotifier.Notify
}

// Init initializes the application
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		RefreshQueueCmd(m.Dispatcher),
		WaitForQueueChangeCmd(m.queueNotifier),
		WaitForSettingsChangeCmd(m.settingsNotifier),
		WaitForCatchCmd(m.catchNotifier),
		TickCmd(250*time.Millisecond),
	)
}

// Update handles all messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(250 * time.Millisecond)

	case QueueChangedMsg:
		m.reloadQueue()
		return m, WaitForQueueChangeCmd(m.queueNotifier)

	case SettingsChangedMsg:
		m.snapshot = msg.Snapshot
		return m, WaitForSettingsChangeCmd(m.settingsNotifier)

	case QueueRefreshedMsg:
		m.reloadQueue()
		return m, nil

	case DownloadAddedMsg:
		return m, m.setStatus("Added "+msg.Download.Filename, false)

	case BatchAddedMsg:
		status := fmt.Sprintf("Added %d/%d", msg.Added, msg.Total)
		return m, m.setStatus(status, msg.Added < msg.Total)

	case CommandDoneMsg:
		// Registry convergence arrives via events; nothing else to do.
		return m, nil

	case HistoryLoadedMsg:
		m.history = msg.Records
		m.State = StateHistory
		m.cursor = 0
		return m, nil

	case ClipboardMsg:
		if strings.TrimSpace(msg.Text) == "" {
			return m, m.setStatus("Clipboard is empty", true)
		}
		m.State = StateAdding
		m.addInput.SetValue(msg.Text)
		m.addInput.Focus()
		return m, nil

	case AutocatchMsg:
		m.catchURL = msg.URL
		m.catchSimilar = m.similarQueued(msg.URL)
		m.State = StateAutocatch
		return m, WaitForCatchCmd(m.catchNotifier)

	case SettingSavedMsg:
		return m, m.setStatus("Saved "+msg.Key, false)

	case EventStreamClosedMsg:
		return m, m.setStatus("Engine event stream lost, reconnecting...", true)

	case ErrMsg:
		m.Logger.Error("ui action failed", "context", msg.Context, "error", msg.Err)
		return m, m.setStatus(msg.Error(), true)

	case ClearStatusMsg:
		m.StatusText = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.StatusText = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(statusClearDelay)
}

// reloadQueue re-derives the snapshot and visible list from the registry.
func (m *Model) reloadQueue() {
	m.downloads = m.Registry.All()
	m.applyFilters()
}

// applyFilters derives the visible list: status tab, then category, then
// fuzzy filename filter. The registry itself is never mutated.
func (m *Model) applyFilters() {
	var base []domain.Download
	switch m.tab {
	case TabActive:
		base = m.Registry.Filter(registry.Active)
	case TabCompleted:
		base = m.Registry.Filter(registry.Completed)
	default:
		base = m.downloads
	}

	if category := m.category(); category != "All" {
		filtered := base[:0:0]
		pred := registry.InCategory(category)
		for _, d := range base {
			if pred(d) {
				filtered = append(filtered, d)
			}
		}
		base = filtered
	}

	m.matchHints = nil
	if query := m.filterInput.Value(); strings.TrimSpace(query) != "" {
		matches := search.NewIndex(base).Filter(query)
		base = make([]domain.Download, 0, len(matches))
		m.matchHints = make([][]int, 0, len(matches))
		for _, match := range matches {
			base = append(base, match.Download)
			m.matchHints = append(m.matchHints, match.MatchedIndexes)
		}
	}

	m.visible = base
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selected() (domain.Download, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return domain.Download{}, false
	}
	return m.visible[m.cursor], true
}

// category resolves the active category filter: the synchronized engine
// setting when present, falling back to the configured default.
func (m *Model) category() string {
	def := m.ui.DefaultCategory
	if def == "" {
		def = "All"
	}
	return m.snapshot.Str(domain.SettingCategoryFilter, def)
}

// hintAt returns the fuzzy match positions for visible row i, nil when no
// filter is active.
func (m *Model) hintAt(i int) []int {
	if i < 0 || i >= len(m.matchHints) {
		return nil
	}
	return m.matchHints[i]
}

// similarQueued returns the filename of the queued download closest to the
// caught URL's basename, so the autocatch prompt can warn about likely
// duplicates. Empty when nothing resembles it.
func (m *Model) similarQueued(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	ranked := search.RankByName(name, m.downloads)
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Filename
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.State {
	case StateAdding:
		return m.handleAddingKey(msg)
	case StateFiltering:
		return m.handleFilteringKey(msg)
	case StateSettings:
		return m.handleSettingsKey(msg)
	case StateConfirmDelete:
		return m.handleConfirmDeleteKey(msg)
	case StateAutocatch:
		return m.handleAutocatchKey(msg)
	case StateHelp, StateHistory:
		return m.handleOverlayKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, Keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, Keys.Home):
		m.cursor = 0

	case key.Matches(msg, Keys.End):
		m.cursor = len(m.visible) - 1
		if m.cursor < 0 {
			m.cursor = 0
		}

	case key.Matches(msg, Keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
		m.cursor = 0
		m.applyFilters()

	case key.Matches(msg, Keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.cursor = 0
		m.applyFilters()

	case key.Matches(msg, Keys.Add):
		m.State = StateAdding
		m.addInput.SetValue("")
		m.addInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, Keys.Paste):
		return m, LoadClipboardCmd(m.Dispatcher)

	case key.Matches(msg, Keys.Filter):
		m.State = StateFiltering
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, Keys.Refresh):
		return m, RefreshQueueCmd(m.Dispatcher)

	case key.Matches(msg, Keys.Pause):
		if d, ok := m.selected(); ok && d.Status == domain.StatusDownloading {
			return m, PauseCmd(m.Dispatcher, d.ID)
		}

	case key.Matches(msg, Keys.Resume):
		if d, ok := m.selected(); ok && !d.Status.IsTerminal() {
			return m, ResumeCmd(m.Dispatcher, d.ID)
		}

	case key.Matches(msg, Keys.Delete):
		if d, ok := m.selected(); ok {
			if !m.ui.ConfirmDelete {
				return m, DeleteCmd(m.Dispatcher, d.ID, false)
			}
			m.pendingDeleteID = d.ID
			m.State = StateConfirmDelete
		}

	case key.Matches(msg, Keys.ClearDone):
		return m, ClearFinishedCmd(m.Dispatcher)

	case key.Matches(msg, Keys.ShowFolder):
		if d, ok := m.selected(); ok && d.Filepath != "" {
			m.Dispatcher.ShowInFolder(d.Filepath)
			return m, m.setStatus("Opening folder", false)
		}

	case key.Matches(msg, Keys.History):
		return m, LoadHistoryCmd(m.Dispatcher)

	case key.Matches(msg, Keys.Settings):
		m.State = StateSettings
		m.settingCursor = 0

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp

	case key.Matches(msg, Keys.Escape):
		if m.filterInput.Value() != "" {
			m.filterInput.SetValue("")
			m.applyFilters()
		}
	}

	return m, nil
}

func (m *Model) handleAddingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.State = StateList
		m.addInput.Blur()
		return m, nil

	case tea.KeyEnter:
		raw := strings.TrimSpace(m.addInput.Value())
		m.State = StateList
		m.addInput.Blur()
		if raw == "" {
			return m, nil
		}
		urls := strings.Fields(raw)
		if len(urls) == 1 {
			return m, AddDownloadCmd(m.Dispatcher, domain.AddRequest{URL: urls[0]})
		}
		return m, AddBatchCmd(m.Dispatcher, urls)
	}

	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	return m, cmd
}

func (m *Model) handleFilteringKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.State = StateList
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.applyFilters()
		return m, nil

	case tea.KeyEnter:
		m.State = StateList
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilters()
	return m, cmd
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Editing a text-valued setting
	if m.editingSetting != "" {
		switch msg.Type {
		case tea.KeyEscape:
			m.editingSetting = ""
			m.settingInput.Blur()
			return m, nil
		case tea.KeyEnter:
			key := m.editingSetting
			value := strings.TrimSpace(m.settingInput.Value())
			m.editingSetting = ""
			m.settingInput.Blur()
			return m, UpdateSettingCmd(m.Settings, key, value)
		}
		var cmd tea.Cmd
		m.settingInput, cmd = m.settingInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, Keys.Escape), key.Matches(msg, Keys.Quit):
		m.State = StateList

	case key.Matches(msg, Keys.Up):
		if m.settingCursor > 0 {
			m.settingCursor--
		}

	case key.Matches(msg, Keys.Down):
		if m.settingCursor < len(settingEntries)-1 {
			m.settingCursor++
		}

	case msg.Type == tea.KeyEnter:
		entry := settingEntries[m.settingCursor]
		if boolSettings[entry] {
			// Toggle booleans immediately, text follows via broadcast.
			next := "true"
			if m.snapshot.Bool(entry, false) {
				next = "false"
			}
			return m, UpdateSettingCmd(m.Settings, entry, next)
		}
		m.editingSetting = entry
		m.settingInput.SetValue(m.snapshot.Str(entry, ""))
		m.settingInput.Focus()
		return m, textinput.Blink
	}

	return m, nil
}

func (m *Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Confirm):
		id := m.pendingDeleteID
		m.pendingDeleteID = ""
		m.State = StateList
		return m, DeleteCmd(m.Dispatcher, id, false)

	case msg.String() == "d":
		// delete including files on disk
		id := m.pendingDeleteID
		m.pendingDeleteID = ""
		m.State = StateList
		return m, DeleteCmd(m.Dispatcher, id, true)

	case key.Matches(msg, Keys.Deny):
		m.pendingDeleteID = ""
		m.State = StateList
	}
	return m, nil
}

func (m *Model) handleAutocatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Confirm):
		caught := m.catchURL
		m.catchURL = ""
		m.catchSimilar = ""
		m.State = StateList
		return m, AddDownloadCmd(m.Dispatcher, domain.AddRequest{URL: caught})

	case key.Matches(msg, Keys.Deny):
		m.catchURL = ""
		m.catchSimilar = ""
		m.State = StateList
	}
	return m, nil
}

func (m *Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Escape), key.Matches(msg, Keys.Quit),
		key.Matches(msg, Keys.Help), key.Matches(msg, Keys.History):
		m.State = StateList
	case key.Matches(msg, Keys.Up):
		if m.State == StateHistory && m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, Keys.Down):
		if m.State == StateHistory && m.cursor < len(m.history)-1 {
			m.cursor++
		}
	}
	return m, nil
}
