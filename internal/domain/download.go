package domain

import (
	"fmt"
	"time"
)

// Status represents the current lifecycle stage of a download.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// ParseStatus converts an engine-reported status string to a Status.
// Unknown values map to StatusQueued, matching the engine's own fallback.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusDownloading, StatusPaused, StatusCompleted, StatusError:
		return Status(s)
	default:
		return StatusQueued
	}
}

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusDownloading:
		return "Downloading"
	case StatusPaused:
		return "Paused"
	case StatusCompleted:
		return "Completed"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the status is absorbing: a terminal record can
// still be deleted, but never transitions back to an active state on its own.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Protocol categorizes a download by its source protocol.
type Protocol string

const (
	ProtocolHTTP    Protocol = "http"
	ProtocolTorrent Protocol = "torrent"
	ProtocolVideo   Protocol = "video"
)

// ParseProtocol converts an engine-reported protocol string to a Protocol.
func ParseProtocol(s string) Protocol {
	switch Protocol(s) {
	case ProtocolTorrent, ProtocolVideo:
		return Protocol(s)
	default:
		return ProtocolHTTP
	}
}

// Download represents one queued/active/finished transfer as seen by the
// client. The engine daemon owns the authoritative record; this struct is the
// registry's cached view of it.
type Download struct {
	ID         string // Engine-assigned UUID, stable for the record's lifetime
	URL        string // Source URL (direct link, magnet, or page URL)
	Filename   string // Display name; may change after metadata resolution
	Filepath   string // Absolute target path on disk
	Size       int64  // Total expected bytes; 0 = unknown yet (e.g. torrent metadata pending)
	Downloaded int64  // Bytes written so far
	Status     Status
	Protocol   Protocol
	StatusText string // Transient annotation ("Fetching metadata...", "Paused", error text)
	Category   string // Engine-derived classification (Video, Audio, ...)
	InfoHash   string // Torrent info hash (empty for other protocols)

	// Instantaneous metrics, meaningful only while Status == downloading
	Speed       int64 // Bytes per second
	ETA         int64 // Seconds remaining, 0 if unknown
	Connections int   // Active connections/peers

	CreatedAt   time.Time
	CompletedAt time.Time // Zero unless Status == completed
}

// IsActive reports whether the record belongs in the active queue view.
func (d Download) IsActive() bool {
	return d.Status != StatusCompleted
}

// Percent returns download progress as 0-100, or -1 when progress is
// indeterminate. Progress is indeterminate while a transient status text is
// present and no size is known: byte counts are meaningless before metadata
// resolution completes, so "Initializing..." with 0/0 must not render as 0%.
func (d Download) Percent() int {
	if d.Size <= 0 {
		if d.StatusText != "" {
			return -1
		}
		return 0
	}
	p := int(d.Downloaded * 100 / d.Size)
	if p > 100 {
		p = 100
	}
	return p
}

// FormattedSize returns Size in a human-readable form, or "?" when unknown.
func (d Download) FormattedSize() string {
	if d.Size <= 0 {
		return "?"
	}
	return FormatBytes(d.Size)
}

// FormattedSpeed returns the current transfer rate, empty when idle.
func (d Download) FormattedSpeed() string {
	if d.Status != StatusDownloading || d.Speed <= 0 {
		return ""
	}
	return FormatBytes(d.Speed) + "/s"
}

// FormattedETA returns the remaining time as h/m/s, empty when unknown.
func (d Download) FormattedETA() string {
	if d.Status != StatusDownloading || d.ETA <= 0 {
		return ""
	}
	eta := time.Duration(d.ETA) * time.Second
	h := int(eta.Hours())
	m := int(eta.Minutes()) % 60
	s := int(eta.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/float64(gb))
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Patch is a partial update applied to a single registry record. Nil fields
// are left untouched.
type Patch struct {
	Filename    *string
	Size        *int64
	Downloaded  *int64
	Status      *Status
	StatusText  *string
	Speed       *int64
	ETA         *int64
	Connections *int
}

// HistoryRecord is a completed download with its completion timestamp, as
// returned by the engine's history endpoint.
type HistoryRecord struct {
	Download
	FinishedAt time.Time
}
