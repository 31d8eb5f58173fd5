package jaydl

import "time"

// MediaKind distinguishes video and audio streams/downloads.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// ParseMediaKind maps a request token to a MediaKind, defaulting to video.
func ParseMediaKind(s string) MediaKind {
	switch s {
	case "audio", "mp3", "bestaudio":
		return MediaAudio
	default:
		return MediaVideo
	}
}

// SourceTag records which resolution tier produced a MediaInfo. The download
// strategy keys off this: direct tiers carry direct stream URLs that can be
// proxied, everything else goes through the extraction tool.
type SourceTag string

const (
	SourceInvidiousDirect SourceTag = "invidious"
	SourcePipedMetadata   SourceTag = "piped"
	SourceInvidiousSearch SourceTag = "invidious-search"
	SourceExtractor       SourceTag = "ytdlp"
	SourceExtractorIDOnly SourceTag = "ytdlp-identity"
	SourceSpotifyAPI      SourceTag = "spotify-api"
)

// Direct reports whether this tier exposes direct stream URLs.
func (t SourceTag) Direct() bool {
	return t == SourceInvidiousDirect || t == SourceInvidiousSearch
}

// MediaFormat is one downloadable encoding of a piece of media.
// FormatID is opaque and source-defined, unique within one MediaInfo.
type MediaFormat struct {
	FormatID  string
	Kind      MediaKind
	Height    int    // 0 for streams without a video resolution
	Container string // file extension, may be empty
	SizeBytes int64  // 0 when the upstream does not report a size
	DirectURL string // set only when the source tier is Direct()
}

// MediaInfo is the canonical resolved metadata for a URL. It is constructed
// once by the resolver and not mutated afterwards. Formats are in discovery
// order; consumers sort or filter themselves.
type MediaInfo struct {
	Title     string
	Duration  int // seconds, 0 when unknown
	Thumbnail string
	Uploader  string
	ViewCount int64
	Formats   []MediaFormat
	Platform  Platform
	Source    SourceTag
	NativeID  string // platform content ID, empty when not extracted
}

// HasDirectFormats reports whether at least one format carries a direct
// stream URL.
func (m *MediaInfo) HasDirectFormats() bool {
	for _, f := range m.Formats {
		if f.DirectURL != "" {
			return true
		}
	}
	return false
}

// DownloadRequest is one download call against the gateway.
type DownloadRequest struct {
	URL        string
	Quality    string // "best", "bestaudio", "720p", "mp4", ...
	Kind       MediaKind
	Credential string // opaque bearer token, optional
}

// DownloadResult describes a completed download. Exactly one of RemoteURL
// and LocalPath is set, except in the soft-success case where the fetch
// completed but the produced file could not be located.
type DownloadResult struct {
	Title     string
	Filename  string
	SizeBytes int64
	Platform  Platform
	Kind      MediaKind
	Quality   string
	RemoteURL string
	LocalPath string
}

// SearchHit is one result from the primary source's title search, used by
// the identity-recovery tier.
type SearchHit struct {
	VideoID  string
	Title    string
	Uploader string
}

// DownloadRecord is the persisted trace of one completed download.
type DownloadRecord struct {
	ID        string    `db:"id"`
	URL       string    `db:"url"`
	Platform  Platform  `db:"platform"`
	Source    SourceTag `db:"source"`
	Kind      MediaKind `db:"kind"`
	Quality   string    `db:"quality"`
	Filename  string    `db:"filename"`
	SizeBytes int64     `db:"size_bytes"`
	CreatedAt time.Time `db:"created_at"`
}
