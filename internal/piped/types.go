package piped

import (
	"strings"

	"github.com/jaydl/jaydl"
)

// rawStreams is the /streams/{id} response shape.
type rawStreams struct {
	Title        string      `json:"title"`
	Uploader     string      `json:"uploader"`
	UploaderURL  string      `json:"uploaderUrl"`
	Duration     int         `json:"duration"`
	Views        int64       `json:"views"`
	ThumbnailURL string      `json:"thumbnailUrl"`
	VideoStreams []rawStream `json:"videoStreams"`
	AudioStreams []rawStream `json:"audioStreams"`
}

type rawStream struct {
	Quality       string `json:"quality"`
	MimeType      string `json:"mimeType"`
	Format        string `json:"format"`
	Height        int    `json:"height"`
	ContentLength int64  `json:"contentLength"`
}

// normalize maps the raw response into the canonical schema. This tier is
// metadata-grade: the stream entries describe what exists but carry no
// direct URLs, since format resolution happens separately downstream.
func (r *rawStreams) normalize() *jaydl.MediaInfo {
	info := &jaydl.MediaInfo{
		Title:     r.Title,
		Duration:  r.Duration,
		Uploader:  uploaderName(r.Uploader, r.UploaderURL),
		ViewCount: r.Views,
		Thumbnail: r.ThumbnailURL,
	}
	for _, s := range r.VideoStreams {
		info.Formats = append(info.Formats, s.normalize(jaydl.MediaVideo))
	}
	for _, s := range r.AudioStreams {
		info.Formats = append(info.Formats, s.normalize(jaydl.MediaAudio))
	}
	info.Formats = jaydl.DedupeFormats(info.Formats)
	return info
}

func (s *rawStream) normalize(kind jaydl.MediaKind) jaydl.MediaFormat {
	height := s.Height
	if height == 0 {
		height = jaydl.HeightFromQuality(s.Quality)
	}
	if kind == jaydl.MediaAudio {
		height = 0
	}
	return jaydl.MediaFormat{
		FormatID:  strings.TrimSpace(s.Quality + " " + strings.ToLower(s.Format)),
		Kind:      kind,
		Height:    height,
		Container: containerFromMime(s.MimeType),
		SizeBytes: s.ContentLength,
	}
}

// uploaderName falls back to the channel path when no display name is set.
func uploaderName(uploader, uploaderURL string) string {
	if uploader != "" {
		return uploader
	}
	return strings.TrimPrefix(uploaderURL, "/channel/")
}

func containerFromMime(mime string) string {
	mime = strings.SplitN(mime, ";", 2)[0]
	parts := strings.SplitN(mime, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
