package ytdlp

import (
	"encoding/json"
	"fmt"

	"github.com/jaydl/jaydl"
)

// rawProbe matches yt-dlp's --dump-single-json output.
type rawProbe struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Uploader  string      `json:"uploader"`
	Channel   string      `json:"channel"`
	Creator   string      `json:"creator"`
	Duration  float64     `json:"duration"`
	Thumbnail string      `json:"thumbnail"`
	ViewCount int64       `json:"view_count"`
	Formats   []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

func parseProbeOutput(stdout []byte) (*rawProbe, error) {
	if len(stdout) == 0 {
		return nil, fmt.Errorf("empty output")
	}
	var raw rawProbe
	if err := json.Unmarshal(stdout, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// normalize maps the tool's format list into the canonical schema. Uploader
// naming varies per extractor, so the uploader/channel/creator chain lives
// here. Storyboard and other codec-less pseudo-formats are dropped.
func (r *rawProbe) normalize() *jaydl.MediaInfo {
	info := &jaydl.MediaInfo{
		Title:     r.Title,
		Duration:  int(r.Duration),
		Thumbnail: r.Thumbnail,
		Uploader:  firstNonEmpty(r.Uploader, r.Channel, r.Creator),
		ViewCount: r.ViewCount,
		NativeID:  r.ID,
	}
	for _, f := range r.Formats {
		hasVideo := f.VCodec != "" && f.VCodec != "none"
		hasAudio := f.ACodec != "" && f.ACodec != "none"
		if !hasVideo && !hasAudio {
			continue
		}
		kind := jaydl.MediaVideo
		height := f.Height
		if !hasVideo {
			kind = jaydl.MediaAudio
			height = 0
		}
		size := f.Filesize
		if size == 0 {
			size = int64(f.FilesizeApprox)
		}
		info.Formats = append(info.Formats, jaydl.MediaFormat{
			FormatID:  f.FormatID,
			Kind:      kind,
			Height:    height,
			Container: f.Ext,
			SizeBytes: size,
		})
	}
	info.Formats = jaydl.DedupeFormats(info.Formats)
	return info
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
