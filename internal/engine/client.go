// Package engine is the HTTP client for the ciel download engine daemon.
// It implements domain.Backend over the engine's JSON API and
// domain.EventSource over its server-sent event stream.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cieldm/ciel/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Ciel/1.0"
)

// Client implements domain.Backend for the engine API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an engine API client for baseURL, e.g.
// "http://127.0.0.1:7899".
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// doRequest performs an engine API request, JSON-encoding payload when it is
// non-nil, and returns the raw response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("engine request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("engine request failed", "error", err)
		return nil, domain.ErrEngineOffline
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrDownloadNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorDTO
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			c.logger.Error("engine request rejected", "status", resp.StatusCode, "error", apiErr.Error)
			return nil, fmt.Errorf("engine: %s", apiErr.Error)
		}
		c.logger.Error("engine request error", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return respBody, nil
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("failed to parse response: %w", err)
	}
	return v, nil
}

// GetDownloads returns the full live queue.
func (c *Client) GetDownloads(ctx context.Context) ([]domain.Download, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/downloads", nil, nil)
	if err != nil {
		return nil, err
	}
	dtos, err := decode[[]downloadDTO](body)
	if err != nil {
		return nil, err
	}
	return mapDownloads(dtos), nil
}

// GetHistory returns completed downloads, newest first.
func (c *Client) GetHistory(ctx context.Context) ([]domain.HistoryRecord, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/history", nil, nil)
	if err != nil {
		return nil, err
	}
	dtos, err := decode[[]historyDTO](body)
	if err != nil {
		return nil, err
	}
	return mapHistory(dtos), nil
}

// GetSettings returns every persisted setting as a key/value snapshot.
func (c *Client) GetSettings(ctx context.Context) (domain.Snapshot, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/settings", nil, nil)
	if err != nil {
		return nil, err
	}
	dtos, err := decode[[]settingDTO](body)
	if err != nil {
		return nil, err
	}
	return mapSettings(dtos), nil
}

// GetClipboard returns the engine host's clipboard text, empty when it holds
// nothing usable.
func (c *Client) GetClipboard(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/clipboard", nil, nil)
	if err != nil {
		return "", err
	}
	dto, err := decode[clipboardDTO](body)
	if err != nil {
		return "", err
	}
	return dto.Text, nil
}

// ValidateURLType inspects a URL server-side without starting a download.
func (c *Client) ValidateURLType(ctx context.Context, rawURL string) (domain.URLTypeInfo, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/validate", nil, map[string]string{"url": rawURL})
	if err != nil {
		return domain.URLTypeInfo{}, err
	}
	dto, err := decode[urlTypeDTO](body)
	if err != nil {
		return domain.URLTypeInfo{}, err
	}
	return mapURLType(dto), nil
}

// AnalyzeTorrent resolves a torrent source into its file listing.
func (c *Client) AnalyzeTorrent(ctx context.Context, rawURL string) (domain.TorrentInfo, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/analyze/torrent", nil, map[string]string{"url": rawURL})
	if err != nil {
		return domain.TorrentInfo{}, err
	}
	dto, err := decode[torrentInfoDTO](body)
	if err != nil {
		return domain.TorrentInfo{}, err
	}
	return mapTorrentInfo(dto), nil
}

// AnalyzeVideoURL resolves a video page into its downloadable formats.
func (c *Client) AnalyzeVideoURL(ctx context.Context, rawURL string) (domain.VideoMetadata, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/analyze/video", nil, map[string]string{"url": rawURL})
	if err != nil {
		return domain.VideoMetadata{}, err
	}
	dto, err := decode[videoMetadataDTO](body)
	if err != nil {
		return domain.VideoMetadata{}, err
	}
	return mapVideoMetadata(dto), nil
}

// AddDownload creates a direct HTTP download and returns the created record.
func (c *Client) AddDownload(ctx context.Context, req domain.AddRequest) (domain.Download, error) {
	payload := map[string]any{
		"url":           req.URL,
		"filename":      req.Filename,
		"output_folder": req.OutputFolder,
		"user_agent":    req.UserAgent,
		"cookies":       req.Cookies,
		"start_paused":  req.StartPaused,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/downloads", nil, payload)
	if err != nil {
		return domain.Download{}, err
	}
	dto, err := decode[downloadDTO](body)
	if err != nil {
		return domain.Download{}, err
	}
	return mapDownload(dto), nil
}

// AddTorrent creates a torrent download. Nil indices selects every file.
func (c *Client) AddTorrent(ctx context.Context, req domain.TorrentRequest) (domain.Download, error) {
	payload := map[string]any{
		"url":           req.URL,
		"filename":      req.Filename,
		"output_folder": req.OutputFolder,
		"indices":       req.Indices,
		"start_paused":  req.StartPaused,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/downloads/torrent", nil, payload)
	if err != nil {
		return domain.Download{}, err
	}
	dto, err := decode[downloadDTO](body)
	if err != nil {
		return domain.Download{}, err
	}
	return mapDownload(dto), nil
}

// AddVideoDownload creates a video-site download for a resolved format.
func (c *Client) AddVideoDownload(ctx context.Context, req domain.VideoRequest) (domain.Download, error) {
	payload := map[string]any{
		"url":           req.URL,
		"format_id":     req.FormatID,
		"audio_id":      req.AudioID,
		"total_size":    req.TotalSize,
		"filepath":      req.Filepath,
		"output_folder": req.OutputFolder,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/downloads/video", nil, payload)
	if err != nil {
		return domain.Download{}, err
	}
	dto, err := decode[downloadDTO](body)
	if err != nil {
		return domain.Download{}, err
	}
	return mapDownload(dto), nil
}

// PauseDownload halts an active transfer.
func (c *Client) PauseDownload(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/downloads/%s/pause", url.PathEscape(id))
	_, err := c.doRequest(ctx, http.MethodPost, path, nil, nil)
	return err
}

// ResumeDownload restarts a paused or errored transfer.
func (c *Client) ResumeDownload(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/downloads/%s/resume", url.PathEscape(id))
	_, err := c.doRequest(ctx, http.MethodPost, path, nil, nil)
	return err
}

// DeleteDownload removes a record, optionally purging its files on disk.
func (c *Client) DeleteDownload(ctx context.Context, id string, deleteFiles bool) error {
	query := url.Values{}
	query.Set("delete_files", fmt.Sprintf("%t", deleteFiles))
	path := fmt.Sprintf("/api/downloads/%s", url.PathEscape(id))
	_, err := c.doRequest(ctx, http.MethodDelete, path, query, nil)
	return err
}

// UpdateSetting persists one key/value setting engine-side.
func (c *Client) UpdateSetting(ctx context.Context, key, value string) error {
	path := fmt.Sprintf("/api/settings/%s", url.PathEscape(key))
	_, err := c.doRequest(ctx, http.MethodPut, path, nil, map[string]string{"value": value})
	return err
}

// ShowInFolder reveals a path in the engine host's file manager.
func (c *Client) ShowInFolder(ctx context.Context, path string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/show-in-folder", nil, map[string]string{"path": path})
	return err
}

// ClearFinished removes all completed records from the live queue.
func (c *Client) ClearFinished(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/downloads/finished", nil, nil)
	return err
}
