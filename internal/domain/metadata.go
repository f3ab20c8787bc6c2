package domain

// URLTypeInfo is the result of a lightweight URL inspection performed by the
// engine before a download is created.
type URLTypeInfo struct {
	IsMagnet       bool
	ContentType    string // MIME type, empty when unknown
	ContentLength  int64  // Bytes, 0 when unknown
	HintedFilename string // From Content-Disposition or the URL path
	ResolvedURL    string // Final URL after redirects/token resolution
}

// TorrentFile is one file inside a torrent, used for selective downloads.
type TorrentFile struct {
	Name  string
	Size  int64
	Index int
}

// TorrentInfo is the metadata of an analyzed magnet/torrent source.
type TorrentInfo struct {
	Name      string
	TotalSize int64
	Files     []TorrentFile
}

// VideoFormat describes one downloadable rendition of a video page.
type VideoFormat struct {
	FormatID   string
	Extension  string
	Resolution string // "1920x1080" or "audio only"
	Filesize   int64  // 0 when the site does not report it
	Protocol   string
	Note       string
	AudioCodec string
	VideoCodec string
}

// VideoMetadata is the result of resolving a video page URL.
type VideoMetadata struct {
	Title     string
	Thumbnail string
	Duration  float64 // Seconds, 0 when unknown
	URL       string
	Formats   []VideoFormat
}
