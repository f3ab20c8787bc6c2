package domain

import "context"

// AddRequest carries everything needed to create an HTTP download.
type AddRequest struct {
	URL          string
	Filename     string // Hint; empty lets the engine sniff one
	OutputFolder string // Empty uses the configured download path
	UserAgent    string
	Cookies      string
	StartPaused  bool
}

// TorrentRequest carries everything needed to create a torrent download.
// Nil Indices means "select all files".
type TorrentRequest struct {
	URL          string
	Filename     string
	OutputFolder string
	Indices      []int
	StartPaused  bool
}

// VideoRequest carries everything needed to create a video-site download.
type VideoRequest struct {
	URL          string
	FormatID     string
	AudioID      string // Separate audio stream to mux, empty for combined formats
	TotalSize    int64
	Filepath     string
	OutputFolder string
}

// Backend is the pull/command contract of the engine daemon. All state
// transitions happen engine-side; the client converges to it by refreshing.
type Backend interface {
	// Pull calls
	GetDownloads(ctx context.Context) ([]Download, error)
	GetHistory(ctx context.Context) ([]HistoryRecord, error)
	GetSettings(ctx context.Context) (Snapshot, error)
	GetClipboard(ctx context.Context) (string, error) // "" when clipboard holds no URL
	ValidateURLType(ctx context.Context, url string) (URLTypeInfo, error)
	AnalyzeTorrent(ctx context.Context, url string) (TorrentInfo, error)
	AnalyzeVideoURL(ctx context.Context, url string) (VideoMetadata, error)

	// Command calls
	AddDownload(ctx context.Context, req AddRequest) (Download, error)
	AddTorrent(ctx context.Context, req TorrentRequest) (Download, error)
	AddVideoDownload(ctx context.Context, req VideoRequest) (Download, error)
	PauseDownload(ctx context.Context, id string) error
	ResumeDownload(ctx context.Context, id string) error
	DeleteDownload(ctx context.Context, id string, deleteFiles bool) error
	UpdateSetting(ctx context.Context, key, value string) error
	ShowInFolder(ctx context.Context, path string) error
	ClearFinished(ctx context.Context) error
}

// Subscription is a live event stream. Close is safe to call any number of
// times and stops delivery immediately; Events is closed afterwards.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// EventSource produces push-event subscriptions from the engine.
type EventSource interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// QueueCache persists the last-known queue and settings so the UI can render
// before the first pull completes. It is a warm-start cache, never the source
// of truth.
type QueueCache interface {
	GetQueue() ([]Download, bool)
	SaveQueue(downloads []Download) error
	GetSettings() (Snapshot, bool)
	SaveSettings(s Snapshot) error
	Close() error
}
