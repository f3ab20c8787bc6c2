package engine

import (
	"time"

	"github.com/cieldm/ciel/internal/domain"
)

// downloadDTO is the engine's wire representation of one queue record.
type downloadDTO struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Filepath    string `json:"filepath"`
	Size        int64  `json:"size"`
	Downloaded  int64  `json:"downloaded"`
	Status      string `json:"status"`
	Protocol    string `json:"protocol"`
	StatusText  string `json:"status_text"`
	Category    string `json:"category"`
	InfoHash    string `json:"info_hash"`
	Speed       int64  `json:"speed"`
	ETA         int64  `json:"eta"`
	Connections int    `json:"connections"`
	CreatedAt   int64  `json:"created_at"`
	CompletedAt int64  `json:"completed_at"`
}

type historyDTO struct {
	downloadDTO
	FinishedAt int64 `json:"finished_at"`
}

type settingDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type urlTypeDTO struct {
	IsMagnet       bool   `json:"is_magnet"`
	ContentType    string `json:"content_type"`
	ContentLength  int64  `json:"content_length"`
	HintedFilename string `json:"hinted_filename"`
	ResolvedURL    string `json:"resolved_url"`
}

type torrentFileDTO struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Index int    `json:"index"`
}

type torrentInfoDTO struct {
	Name      string           `json:"name"`
	TotalSize int64            `json:"total_size"`
	Files     []torrentFileDTO `json:"files"`
}

type videoFormatDTO struct {
	FormatID   string `json:"format_id"`
	Extension  string `json:"ext"`
	Resolution string `json:"resolution"`
	Filesize   int64  `json:"filesize"`
	Protocol   string `json:"protocol"`
	Note       string `json:"format_note"`
	AudioCodec string `json:"acodec"`
	VideoCodec string `json:"vcodec"`
}

type videoMetadataDTO struct {
	Title     string           `json:"title"`
	Thumbnail string           `json:"thumbnail"`
	Duration  float64          `json:"duration"`
	URL       string           `json:"url"`
	Formats   []videoFormatDTO `json:"formats"`
}

type clipboardDTO struct {
	Text string `json:"text"`
}

// errorDTO carries the engine's error payload on non-2xx responses.
type errorDTO struct {
	Error string `json:"error"`
}

func mapDownload(d downloadDTO) domain.Download {
	return domain.Download{
		ID:          d.ID,
		URL:         d.URL,
		Filename:    d.Filename,
		Filepath:    d.Filepath,
		Size:        d.Size,
		Downloaded:  d.Downloaded,
		Status:      domain.ParseStatus(d.Status),
		Protocol:    domain.ParseProtocol(d.Protocol),
		StatusText:  d.StatusText,
		Category:    d.Category,
		InfoHash:    d.InfoHash,
		Speed:       d.Speed,
		ETA:         d.ETA,
		Connections: d.Connections,
		CreatedAt:   unixTime(d.CreatedAt),
		CompletedAt: unixTime(d.CompletedAt),
	}
}

func mapDownloads(dtos []downloadDTO) []domain.Download {
	out := make([]domain.Download, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, mapDownload(d))
	}
	return out
}

func mapHistory(dtos []historyDTO) []domain.HistoryRecord {
	out := make([]domain.HistoryRecord, 0, len(dtos))
	for _, h := range dtos {
		out = append(out, domain.HistoryRecord{
			Download:   mapDownload(h.downloadDTO),
			FinishedAt: unixTime(h.FinishedAt),
		})
	}
	return out
}

func mapSettings(dtos []settingDTO) domain.Snapshot {
	snap := make(domain.Snapshot, len(dtos))
	for _, s := range dtos {
		snap[s.Key] = s.Value
	}
	return snap
}

func mapURLType(d urlTypeDTO) domain.URLTypeInfo {
	return domain.URLTypeInfo{
		IsMagnet:       d.IsMagnet,
		ContentType:    d.ContentType,
		ContentLength:  d.ContentLength,
		HintedFilename: d.HintedFilename,
		ResolvedURL:    d.ResolvedURL,
	}
}

func mapTorrentInfo(d torrentInfoDTO) domain.TorrentInfo {
	files := make([]domain.TorrentFile, 0, len(d.Files))
	for _, f := range d.Files {
		files = append(files, domain.TorrentFile{Name: f.Name, Size: f.Size, Index: f.Index})
	}
	return domain.TorrentInfo{Name: d.Name, TotalSize: d.TotalSize, Files: files}
}

func mapVideoMetadata(d videoMetadataDTO) domain.VideoMetadata {
	formats := make([]domain.VideoFormat, 0, len(d.Formats))
	for _, f := range d.Formats {
		formats = append(formats, domain.VideoFormat{
			FormatID:   f.FormatID,
			Extension:  f.Extension,
			Resolution: f.Resolution,
			Filesize:   f.Filesize,
			Protocol:   f.Protocol,
			Note:       f.Note,
			AudioCodec: f.AudioCodec,
			VideoCodec: f.VideoCodec,
		})
	}
	return domain.VideoMetadata{
		Title:     d.Title,
		Thumbnail: d.Thumbnail,
		Duration:  d.Duration,
		URL:       d.URL,
		Formats:   formats,
	}
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
