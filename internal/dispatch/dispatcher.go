// Package dispatch translates user actions into engine calls and coordinates
// the registry refreshes that keep the client converged to engine truth.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cieldm/ciel/internal/domain"
	"github.com/cieldm/ciel/internal/registry"
)

const fireAndForgetTimeout = 10 * time.Second

// BatchResult summarizes a bulk add: Added of Total succeeded. Failures are
// not rolled back; the caller reports the aggregate ("Added 2/3").
type BatchResult struct {
	Added int
	Total int
}

func (b BatchResult) String() string {
	return fmt.Sprintf("Added %d/%d", b.Added, b.Total)
}

// Dispatcher issues engine commands. On any rejection of a queue-mutating
// command it does not guess the new state: it refreshes the registry from a
// fresh pull so the UI converges rather than diverging optimistically.
type Dispatcher struct {
	backend  domain.Backend
	registry *registry.Registry
	cache    domain.QueueCache // may be nil
	logger   *slog.Logger
}

// New creates a dispatcher. cache may be nil to disable warm-start caching.
func New(backend domain.Backend, reg *registry.Registry, cache domain.QueueCache, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{backend: backend, registry: reg, cache: cache, logger: logger}
}

// Refresh pulls the full queue and replaces the registry contents. The
// result is also written to the warm-start cache.
func (d *Dispatcher) Refresh(ctx context.Context) error {
	downloads, err := d.backend.GetDownloads(ctx)
	if err != nil {
		d.logger.Error("queue refresh failed", "error", err)
		return err
	}
	d.registry.ReplaceAll(downloads)
	if d.cache != nil {
		if err := d.cache.SaveQueue(downloads); err != nil {
			d.logger.Warn("queue cache write failed", "error", err)
		}
	}
	d.logger.Debug("queue refreshed", "count", len(downloads))
	return nil
}

// WarmStart seeds the registry from the local cache so the first render does
// not wait on the engine. Returns false when no cached queue exists.
func (d *Dispatcher) WarmStart() bool {
	if d.cache == nil {
		return false
	}
	downloads, ok := d.cache.GetQueue()
	if !ok {
		return false
	}
	d.registry.ReplaceAll(downloads)
	d.logger.Debug("queue warm-started from cache", "count", len(downloads))
	return true
}

// Add validates the URL and creates one download, routed by type: magnets
// and torrent sources go to the torrent pipeline, video pages are resolved
// to their best format, everything else downloads directly. The validation
// error surfaces inline before any engine call.
func (d *Dispatcher) Add(ctx context.Context, req domain.AddRequest) (domain.Download, error) {
	if err := ValidateURL(req.URL); err != nil {
		return domain.Download{}, err
	}

	if IsMagnet(req.URL) {
		return d.AddTorrent(ctx, domain.TorrentRequest{
			URL:          req.URL,
			Filename:     req.Filename,
			OutputFolder: req.OutputFolder,
			StartPaused:  req.StartPaused,
		})
	}

	// Engine-side inspection routes page URLs to the right pipeline and
	// resolves redirect tokens. Detection is advisory: on failure the URL
	// is treated as a direct download and fails loudly there if it is bad.
	info, err := d.ValidateURLType(ctx, req.URL)
	if err != nil {
		d.logger.Warn("url type detection failed", "url", req.URL, "error", err)
		info = domain.URLTypeInfo{}
	}
	if info.ResolvedURL != "" {
		req.URL = info.ResolvedURL
	}
	if req.Filename == "" {
		req.Filename = info.HintedFilename
	}

	switch {
	case info.IsMagnet, info.ContentType == "application/x-bittorrent":
		return d.AddTorrent(ctx, domain.TorrentRequest{
			URL:          req.URL,
			Filename:     req.Filename,
			OutputFolder: req.OutputFolder,
			StartPaused:  req.StartPaused,
		})
	case strings.HasPrefix(info.ContentType, "text/html"):
		created, err := d.addResolvedVideo(ctx, req)
		if err == nil {
			return created, nil
		}
		d.logger.Warn("video resolution failed, adding as direct download",
			"url", req.URL, "error", err)
	}

	created, err := d.backend.AddDownload(ctx, req)
	if err != nil {
		d.logger.Error("add download failed", "url", req.URL, "error", err)
		d.refreshAfterFailure(ctx)
		return domain.Download{}, err
	}
	return created, d.Refresh(ctx)
}

// AddBatch submits several URLs and reports the aggregate outcome. Invalid
// URLs count as failures without reaching the engine; successes are kept.
func (d *Dispatcher) AddBatch(ctx context.Context, urls []string) BatchResult {
	result := BatchResult{Total: len(urls)}
	for _, u := range urls {
		if _, err := d.Add(ctx, domain.AddRequest{URL: u}); err != nil {
			d.logger.Warn("batch add entry failed", "url", u, "error", err)
			continue
		}
		result.Added++
	}
	return result
}

// AddTorrent creates one torrent download. Nil indices means "select all";
// the record's filename is updated later by a name-updated event once the
// torrent metadata resolves.
func (d *Dispatcher) AddTorrent(ctx context.Context, req domain.TorrentRequest) (domain.Download, error) {
	if err := ValidateURL(req.URL); err != nil {
		return domain.Download{}, err
	}
	if req.Filename == "" {
		// Name the record up front when the source metadata is cheap to
		// read; otherwise the name-updated event fills it in later.
		if info, err := d.AnalyzeTorrent(ctx, req.URL); err == nil {
			req.Filename = info.Name
		}
	}
	created, err := d.backend.AddTorrent(ctx, req)
	if err != nil {
		d.logger.Error("add torrent failed", "url", req.URL, "error", err)
		d.refreshAfterFailure(ctx)
		return domain.Download{}, err
	}
	return created, d.Refresh(ctx)
}

// AddVideo creates one video-site download for a resolved format.
func (d *Dispatcher) AddVideo(ctx context.Context, req domain.VideoRequest) (domain.Download, error) {
	if err := ValidateURL(req.URL); err != nil {
		return domain.Download{}, err
	}
	created, err := d.backend.AddVideoDownload(ctx, req)
	if err != nil {
		d.logger.Error("add video download failed", "url", req.URL, "error", err)
		d.refreshAfterFailure(ctx)
		return domain.Download{}, err
	}
	return created, d.Refresh(ctx)
}

// addResolvedVideo resolves a page URL into its downloadable formats and
// adds the best combined one.
func (d *Dispatcher) addResolvedVideo(ctx context.Context, req domain.AddRequest) (domain.Download, error) {
	meta, err := d.AnalyzeVideo(ctx, req.URL)
	if err != nil {
		return domain.Download{}, err
	}
	format, ok := bestFormat(meta.Formats)
	if !ok {
		return domain.Download{}, fmt.Errorf("no downloadable formats for %s", req.URL)
	}
	return d.AddVideo(ctx, domain.VideoRequest{
		URL:          req.URL,
		FormatID:     format.FormatID,
		TotalSize:    format.Filesize,
		OutputFolder: req.OutputFolder,
	})
}

// bestFormat picks the last format carrying both streams; format lists
// arrive ordered worst to best.
func bestFormat(formats []domain.VideoFormat) (domain.VideoFormat, bool) {
	for i := len(formats) - 1; i >= 0; i-- {
		f := formats[i]
		if f.VideoCodec != "" && f.VideoCodec != "none" &&
			f.AudioCodec != "" && f.AudioCodec != "none" {
			return f, true
		}
	}
	if len(formats) > 0 {
		return formats[len(formats)-1], true
	}
	return domain.VideoFormat{}, false
}

// Pause halts an active transfer. Pausing an already-paused record is not an
// error from the caller's perspective; harmless failures re-sync.
func (d *Dispatcher) Pause(ctx context.Context, id string) error {
	if err := d.backend.PauseDownload(ctx, id); err != nil {
		d.logger.Warn("pause failed, resyncing", "id", id, "error", err)
		d.refreshAfterFailure(ctx)
		return err
	}
	return nil
}

// Resume restarts a paused or errored transfer. Resuming an
// already-downloading record is likewise tolerated.
func (d *Dispatcher) Resume(ctx context.Context, id string) error {
	if err := d.backend.ResumeDownload(ctx, id); err != nil {
		d.logger.Warn("resume failed, resyncing", "id", id, "error", err)
		d.refreshAfterFailure(ctx)
		return err
	}
	return nil
}

// ResumeAll resumes every paused or queued record; used by the scheduler
// window and the auto-start policy at launch.
func (d *Dispatcher) ResumeAll(ctx context.Context) {
	for _, dl := range d.registry.Filter(func(dl domain.Download) bool {
		return dl.Status == domain.StatusPaused || dl.Status == domain.StatusQueued
	}) {
		if err := d.Resume(ctx, dl.ID); err != nil {
			d.logger.Warn("resume-all entry failed", "id", dl.ID, "error", err)
		}
	}
}

// PauseAll pauses every downloading record; used by the scheduler window.
func (d *Dispatcher) PauseAll(ctx context.Context) {
	for _, dl := range d.registry.Filter(func(dl domain.Download) bool {
		return dl.Status == domain.StatusDownloading
	}) {
		if err := d.Pause(ctx, dl.ID); err != nil {
			d.logger.Warn("pause-all entry failed", "id", dl.ID, "error", err)
		}
	}
}

// Delete removes the record, optionally purging files on disk. A completed
// download can be cleared from history while keeping the file.
func (d *Dispatcher) Delete(ctx context.Context, id string, deleteFiles bool) error {
	if err := d.backend.DeleteDownload(ctx, id, deleteFiles); err != nil {
		d.logger.Error("delete failed, resyncing", "id", id, "error", err)
		d.refreshAfterFailure(ctx)
		return err
	}
	d.registry.Remove(id)
	return nil
}

// ClearFinished removes all completed records engine-side, then refreshes.
func (d *Dispatcher) ClearFinished(ctx context.Context) error {
	if err := d.backend.ClearFinished(ctx); err != nil {
		d.logger.Error("clear finished failed", "error", err)
		d.refreshAfterFailure(ctx)
		return err
	}
	return d.Refresh(ctx)
}

// ShowInFolder reveals a path in the OS file manager. Fire-and-forget: it
// never blocks the registry and failure is logged, never surfaced.
func (d *Dispatcher) ShowInFolder(path string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fireAndForgetTimeout)
		defer cancel()
		if err := d.backend.ShowInFolder(ctx, path); err != nil {
			d.logger.Warn("show in folder failed", "path", path, "error", err)
		}
	}()
}

// History fetches the completed-download history.
func (d *Dispatcher) History(ctx context.Context) ([]domain.HistoryRecord, error) {
	records, err := d.backend.GetHistory(ctx)
	if err != nil {
		d.logger.Error("history fetch failed", "error", err)
		return nil, err
	}
	return records, nil
}

// Clipboard returns the current clipboard text when it holds a usable URL.
func (d *Dispatcher) Clipboard(ctx context.Context) (string, error) {
	return d.backend.GetClipboard(ctx)
}

// ValidateURLType asks the engine to inspect a URL without downloading it.
func (d *Dispatcher) ValidateURLType(ctx context.Context, url string) (domain.URLTypeInfo, error) {
	if err := ValidateURL(url); err != nil {
		return domain.URLTypeInfo{}, err
	}
	return d.backend.ValidateURLType(ctx, url)
}

// AnalyzeTorrent fetches the file list of a torrent source for selective
// download.
func (d *Dispatcher) AnalyzeTorrent(ctx context.Context, url string) (domain.TorrentInfo, error) {
	if err := ValidateURL(url); err != nil {
		return domain.TorrentInfo{}, err
	}
	return d.backend.AnalyzeTorrent(ctx, url)
}

// AnalyzeVideo resolves a video page into its downloadable formats.
func (d *Dispatcher) AnalyzeVideo(ctx context.Context, url string) (domain.VideoMetadata, error) {
	if err := ValidateURL(url); err != nil {
		return domain.VideoMetadata{}, err
	}
	return d.backend.AnalyzeVideoURL(ctx, url)
}

// refreshAfterFailure pulls to truth after a rejected command. The refresh
// error itself is already logged inside Refresh.
func (d *Dispatcher) refreshAfterFailure(ctx context.Context) {
	_ = d.Refresh(ctx)
}
