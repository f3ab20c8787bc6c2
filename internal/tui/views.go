package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cieldm/ciel/internal/domain"
	"github.com/cieldm/ciel/internal/tui/styles"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// View renders the application
func (m *Model) View() string {
	if !m.Ready {
		return "loading..."
	}

	switch m.State {
	case StateHelp:
		return m.renderHelp()
	case StateHistory:
		return m.renderHistory()
	case StateSettings:
		return m.renderSettings()
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	base := b.String()

	switch m.State {
	case StateAdding:
		return m.overlay(m.renderAddModal())
	case StateConfirmDelete:
		return m.overlay(m.renderConfirmModal())
	case StateAutocatch:
		return m.overlay(m.renderAutocatchModal())
	}

	return base
}

func (m *Model) renderTabs() string {
	var tabs []string
	for i, name := range tabNames {
		label := name
		if i == m.tab {
			tabs = append(tabs, styles.ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, styles.InactiveTabStyle.Render(label))
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	if category := m.category(); category != "All" {
		row += styles.DimStyle.Render("  category: " + category)
	}
	if query := m.filterInput.Value(); query != "" && m.State != StateFiltering {
		row += styles.AccentStyle.Render("  /" + query)
	}

	return row
}

func (m *Model) renderList() string {
	listHeight := m.Height - 4
	if listHeight < 1 {
		listHeight = 1
	}

	if len(m.visible) == 0 {
		empty := styles.DimStyle.Render("No downloads. Press 'a' to add one.")
		return lipgloss.Place(m.Width, listHeight, lipgloss.Center, lipgloss.Center, empty)
	}

	// Scroll window around the cursor
	start := 0
	rowsPerItem := 2
	visibleRows := listHeight / rowsPerItem
	if visibleRows < 1 {
		visibleRows = 1
	}
	if m.cursor >= visibleRows {
		start = m.cursor - visibleRows + 1
	}
	end := start + visibleRows
	if end > len(m.visible) {
		end = len(m.visible)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(m.visible[i], i == m.cursor, m.hintAt(i)))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderRow renders one download as a two-line entry: name line and
// progress line. hints marks the filename bytes the active filter matched.
func (m *Model) renderRow(d domain.Download, selected bool, hints []int) string {
	nameWidth := m.Width - 16
	if nameWidth < 10 {
		nameWidth = 10
	}

	name := styles.Truncate(d.Filename, nameWidth)
	if name == "" {
		name = styles.Truncate(d.URL, nameWidth)
	} else if len(hints) > 0 {
		name = styles.HighlightMatches(name, hints)
	}

	badge := statusBadge(d.Status)
	nameLine := fmt.Sprintf("%s %s", badge, name)

	barWidth := 24
	bar := styles.RenderProgressBar(d.Percent(), barWidth)
	detailLine := "  " + bar + "  " + detailText(d)

	itemStyle := styles.NormalItemStyle
	if selected {
		itemStyle = styles.SelectedItemStyle
	}

	return itemStyle.Width(m.Width-2).Render(nameLine) + "\n" +
		styles.DimStyle.Render(detailLine)
}

// detailText picks the per-row detail: an engine-provided status text always
// wins over locally computed progress figures.
func detailText(d domain.Download) string {
	if d.StatusText != "" {
		return d.StatusText
	}

	switch d.Status {
	case domain.StatusDownloading:
		text := fmt.Sprintf("%s / %s", domain.FormatBytes(d.Downloaded), d.FormattedSize())
		if d.Speed > 0 {
			text += "  " + d.FormattedSpeed()
		}
		if d.ETA > 0 {
			text += "  ETA " + d.FormattedETA()
		}
		return text
	case domain.StatusCompleted:
		return d.FormattedSize()
	case domain.StatusError:
		return "failed"
	default:
		return d.Status.String()
	}
}

func statusBadge(s domain.Status) string {
	switch s {
	case domain.StatusDownloading:
		return styles.DownloadingBadge.Render("▼")
	case domain.StatusPaused:
		return styles.PausedBadge.Render("⏸")
	case domain.StatusCompleted:
		return styles.CompletedBadge.Render("✓")
	case domain.StatusError:
		return styles.ErrorBadge.Render("✗")
	default:
		return styles.QueuedBadge.Render("○")
	}
}

func (m *Model) renderFooter() string {
	if m.State == StateFiltering {
		return m.filterInput.View()
	}

	if m.StatusText != "" {
		style := styles.SuccessStyle
		if m.StatusIsErr {
			style = styles.ErrorStyle
		}
		return style.Render(styles.Truncate(m.StatusText, m.Width))
	}

	active := 0
	var speed int64
	for _, d := range m.downloads {
		if d.Status == domain.StatusDownloading {
			active++
			speed += d.Speed
		}
	}

	left := fmt.Sprintf("%d downloads, %d active", len(m.downloads), active)
	if speed > 0 {
		left += "  " + styles.AccentStyle.Render(domain.FormatBytes(speed)+"/s")
	}
	if active > 0 {
		left = spinnerFrames[m.SpinnerFrame%len(spinnerFrames)] + " " + left
	}

	hint := styles.DimStyle.Render("a add  / filter  ? help  q quit")
	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(hint)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + hint
}

func (m *Model) renderAddModal() string {
	content := styles.ModalTitleStyle.Render("Add download") + "\n" +
		m.addInput.View() + "\n\n" +
		styles.DimStyle.Render("enter: add   esc: cancel")
	return styles.ModalStyle.Render(content)
}

func (m *Model) renderConfirmModal() string {
	name := m.pendingDeleteID
	if d, ok := m.Registry.Get(m.pendingDeleteID); ok {
		name = d.Filename
	}
	content := styles.ModalTitleStyle.Render("Delete download?") + "\n" +
		styles.Truncate(name, 50) + "\n\n" +
		styles.DimStyle.Render("y: remove   d: remove with files   n: cancel")
	return styles.ModalStyle.Render(content)
}

func (m *Model) renderAutocatchModal() string {
	content := styles.ModalTitleStyle.Render("Download link caught") + "\n" +
		styles.AccentStyle.Render(styles.Truncate(m.catchURL, 60))
	if m.catchSimilar != "" {
		content += "\n" + styles.DimStyle.Render("similar in queue: "+styles.Truncate(m.catchSimilar, 44))
	}
	content += "\n\n" + styles.DimStyle.Render("y: download   n: ignore")
	return styles.ModalStyle.Render(content)
}

func (m *Model) renderSettings() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Settings"))
	b.WriteString("\n\n")

	for i, entry := range settingEntries {
		value := m.snapshot.Str(entry, "")
		if m.editingSetting == entry {
			value = m.settingInput.View()
		}

		line := fmt.Sprintf("%-24s %s", entry, value)
		if i == m.settingCursor {
			b.WriteString(styles.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("enter: toggle/edit   esc: back"))
	return b.String()
}

func (m *Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("History"))
	b.WriteString("\n\n")

	if len(m.history) == 0 {
		b.WriteString(styles.DimStyle.Render("Nothing here yet."))
		return b.String()
	}

	for i, rec := range m.history {
		when := ""
		if !rec.FinishedAt.IsZero() {
			when = rec.FinishedAt.Format("2006-01-02 15:04")
		}
		line := fmt.Sprintf("%s  %s  %s",
			when,
			styles.Truncate(rec.Filename, m.Width-32),
			rec.FormattedSize())
		if i == m.cursor {
			b.WriteString(styles.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("esc: back"))
	return b.String()
}

func (m *Model) renderHelp() string {
	rows := [][2]string{
		{"a", "add download"},
		{"v", "add from clipboard"},
		{"/", "filter by name"},
		{"tab", "switch view"},
		{"p", "pause"},
		{"u", "resume"},
		{"x", "delete"},
		{"C", "clear finished"},
		{"o", "open folder"},
		{"H", "history"},
		{"s", "settings"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Keys"))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(styles.HelpKeyStyle.Render(styles.Pad(row[0], 6)))
		b.WriteString(styles.HelpDescStyle.Render(row[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("esc: back"))
	return b.String()
}

// overlay centers a modal on screen while a prompt is open.
func (m *Model) overlay(modal string) string {
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, modal)
}
