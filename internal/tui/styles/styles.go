package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette, dark theme defaults
var (
	SkyBlue    = lipgloss.Color("#38BDF8")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Yellow     = lipgloss.Color("#F59E0B")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(SkyBlue)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Yellow)
)

// Status badge styles keyed by download state
var (
	DownloadingBadge = lipgloss.NewStyle().Foreground(SkyBlue)
	QueuedBadge      = lipgloss.NewStyle().Foreground(LightGray)
	PausedBadge      = lipgloss.NewStyle().Foreground(Yellow)
	CompletedBadge   = lipgloss.NewStyle().Foreground(Green)
	ErrorBadge       = lipgloss.NewStyle().Foreground(Red)
)

// List item styles
var (
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight).
				Padding(0, 1)

	NormalItemStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)
)

// Tab styles for category views
var (
	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(SlateLight).
			Bold(true).
			Padding(0, 2)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(DimGray).
				Padding(0, 2)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SkyBlue).
			Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true).
			MarginBottom(1)
)

// Help styles
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(SkyBlue)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Progress bar styles
var (
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(SkyBlue)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(DimGray)
)

// Match highlight style for fuzzy filter results
var (
	MatchHighlightStyle = lipgloss.NewStyle().
		Foreground(SkyBlue).
		Bold(true)
)

// ApplyTheme switches the palette for the configured theme. Only the text
// tones change; accent and status colors read fine on both backgrounds.
func ApplyTheme(name string) {
	if name != "light" {
		return
	}

	White = lipgloss.Color("#111827")
	LightGray = lipgloss.Color("#4B5563")
	DimGray = lipgloss.Color("#6B7280")
	SlateLight = lipgloss.Color("#E5E7EB")

	TitleStyle = TitleStyle.Foreground(White)
	SubtitleStyle = SubtitleStyle.Foreground(LightGray)
	DimStyle = DimStyle.Foreground(DimGray)
	QueuedBadge = QueuedBadge.Foreground(LightGray)
	SelectedItemStyle = SelectedItemStyle.Foreground(White).Background(SlateLight)
	NormalItemStyle = NormalItemStyle.Foreground(LightGray)
	ActiveTabStyle = ActiveTabStyle.Foreground(White).Background(SlateLight)
	InactiveTabStyle = InactiveTabStyle.Foreground(DimGray)
	ModalTitleStyle = ModalTitleStyle.Foreground(White)
	HelpDescStyle = HelpDescStyle.Foreground(DimGray)
	ProgressEmptyStyle = ProgressEmptyStyle.Foreground(DimGray)
}

// Helper functions

// HighlightMatches renders the bytes at the matched positions in the match
// highlight style. Positions are byte offsets as produced by the fuzzy
// matcher; positions past the (possibly truncated) string are ignored.
func HighlightMatches(s string, positions []int) string {
	if len(positions) == 0 {
		return s
	}
	marked := make(map[int]bool, len(positions))
	for _, p := range positions {
		marked[p] = true
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if marked[i] {
			b.WriteString(MatchHighlightStyle.Render(string(s[i])))
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Truncate truncates a string to the given width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		if width > len(s) {
			return s
		}
		return s[:width]
	}
	return s[:width-3] + "..."
}

// Pad pads a string to the given width
func Pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + spaces(width-len(s))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// RenderProgressBar renders a progress bar for a percentage in [0, 100].
// A negative percent renders an indeterminate bar.
func RenderProgressBar(percent int, width int) string {
	if width < 3 {
		return ""
	}

	if percent < 0 {
		bar := ""
		for i := 0; i < width; i++ {
			bar += ProgressEmptyStyle.Render("▒")
		}
		return bar
	}

	filled := width * percent / 100
	if filled > width {
		filled = width
	}

	bar := ""
	for i := 0; i < filled; i++ {
		bar += ProgressFullStyle.Render("█")
	}
	for i := filled; i < width; i++ {
		bar += ProgressEmptyStyle.Render("░")
	}

	return bar
}
