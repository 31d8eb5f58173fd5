package invidious

import (
	"strconv"
	"strings"

	"github.com/jaydl/jaydl"
)

// rawVideo is the /api/v1/videos/{id} response shape. Only the fields the
// normalizer consumes are declared; mirrors occasionally omit any of them.
type rawVideo struct {
	Title           string         `json:"title"`
	Author          string         `json:"author"`
	AuthorID        string         `json:"authorId"`
	LengthSeconds   int            `json:"lengthSeconds"`
	ViewCount       int64          `json:"viewCount"`
	VideoThumbnails []rawThumbnail `json:"videoThumbnails"`
	FormatStreams   []rawStream    `json:"formatStreams"`
	AdaptiveFormats []rawStream    `json:"adaptiveFormats"`
}

type rawThumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
}

type rawStream struct {
	URL          string `json:"url"`
	Itag         string `json:"itag"`
	Type         string `json:"type"`
	Container    string `json:"container"`
	Resolution   string `json:"resolution"`
	QualityLabel string `json:"qualityLabel"`
	Clen         string `json:"clen"`
	AudioQuality string `json:"audioQuality"`
}

type rawSearchHit struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	VideoID string `json:"videoId"`
	Author  string `json:"author"`
}

// normalize maps the raw response into the canonical schema. All of the
// "try field A, else field B" probing for this source lives here.
func (r *rawVideo) normalize() *jaydl.MediaInfo {
	info := &jaydl.MediaInfo{
		Title:     r.Title,
		Duration:  r.LengthSeconds,
		Uploader:  firstNonEmpty(r.Author, r.AuthorID),
		ViewCount: r.ViewCount,
		Thumbnail: bestThumbnail(r.VideoThumbnails),
	}
	for _, s := range r.FormatStreams {
		info.Formats = append(info.Formats, s.normalize(jaydl.MediaVideo))
	}
	for _, s := range r.AdaptiveFormats {
		kind := jaydl.MediaVideo
		if s.AudioQuality != "" {
			kind = jaydl.MediaAudio
		}
		info.Formats = append(info.Formats, s.normalize(kind))
	}
	info.Formats = jaydl.DedupeFormats(info.Formats)
	return info
}

func (s *rawStream) normalize(kind jaydl.MediaKind) jaydl.MediaFormat {
	height := jaydl.HeightFromQuality(firstNonEmpty(s.Resolution, s.QualityLabel))
	if kind == jaydl.MediaAudio {
		height = 0
	}
	size, _ := strconv.ParseInt(s.Clen, 10, 64)
	return jaydl.MediaFormat{
		FormatID:  firstNonEmpty(s.Itag, s.QualityLabel, s.Resolution),
		Kind:      kind,
		Height:    height,
		Container: firstNonEmpty(s.Container, containerFromMime(s.Type)),
		SizeBytes: size,
		DirectURL: s.URL,
	}
}

// bestThumbnail prefers the widest thumbnail on offer.
func bestThumbnail(thumbs []rawThumbnail) string {
	best := ""
	bestWidth := -1
	for _, t := range thumbs {
		if t.URL != "" && t.Width > bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	return best
}

// containerFromMime extracts "mp4" from `video/mp4; codecs="..."`.
func containerFromMime(mime string) string {
	mime = strings.SplitN(mime, ";", 2)[0]
	parts := strings.SplitN(mime, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
