// Package nativeyt implements the extraction port with a linked YouTube
// client library instead of a subprocess. It is used when no yt-dlp binary
// is available; it only understands YouTube URLs.
package nativeyt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
	"github.com/jaydl/jaydl/util"
)

type Extractor struct {
	outputDir string
	client    youtube.Client
	log       *zap.SugaredLogger
}

func New(outputDir string) *Extractor {
	return &Extractor{
		outputDir: outputDir,
		log:       zap.S().Named("nativeyt"),
	}
}

func (e *Extractor) Probe(ctx context.Context, url string, credential string) (*jaydl.MediaInfo, error) {
	video, err := e.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	return normalize(video), nil
}

func (e *Extractor) ProbeTitle(ctx context.Context, url string) (string, error) {
	video, err := e.client.GetVideoContext(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to get video info: %w", err)
	}
	return video.Title, nil
}

// Fetch downloads the best matching progressive stream to the output
// directory, named with the same quality token scheme as the subprocess
// adapter so the shared file locator works unchanged.
func (e *Extractor) Fetch(ctx context.Context, req jaydl.FetchRequest) error {
	video, err := e.client.GetVideoContext(ctx, req.URL)
	if err != nil {
		return fmt.Errorf("failed to get video info: %w", err)
	}
	format, err := pickFormat(video, req)
	if err != nil {
		return err
	}
	stream, _, err := e.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	token := jaydl.QualityToken(req.Quality, req.Kind)
	name := fmt.Sprintf("%s [%s].%s", util.SanitizeTitle(video.Title), token, extension(format))
	if err := os.MkdirAll(e.outputDir, 0775); err != nil {
		return err
	}
	target := filepath.Join(e.outputDir, name)
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, stream); err != nil {
		return fmt.Errorf("failed to save stream: %w", err)
	}
	e.log.Infow("saved stream", "path", target)
	return nil
}

func normalize(video *youtube.Video) *jaydl.MediaInfo {
	info := &jaydl.MediaInfo{
		Title:    video.Title,
		Duration: int(video.Duration.Seconds()),
		Uploader: video.Author,
		NativeID: video.ID,
	}
	if len(video.Thumbnails) > 0 {
		info.Thumbnail = video.Thumbnails[0].URL
	}
	for _, f := range video.Formats {
		hasVideo := f.Height > 0
		kind := jaydl.MediaVideo
		height := f.Height
		if !hasVideo {
			kind = jaydl.MediaAudio
			height = 0
		}
		format := f
		info.Formats = append(info.Formats, jaydl.MediaFormat{
			FormatID:  fmt.Sprintf("%d", f.ItagNo),
			Kind:      kind,
			Height:    height,
			Container: extension(&format),
			SizeBytes: f.ContentLength,
		})
	}
	info.Formats = jaydl.DedupeFormats(info.Formats)
	return info
}

// pickFormat prefers streams with audio so the saved file is playable
// without muxing.
func pickFormat(video *youtube.Video, req jaydl.FetchRequest) (*youtube.Format, error) {
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, fmt.Errorf("no playable formats")
	}
	if h := jaydl.HeightFromQuality(req.Quality); h > 0 && req.Kind == jaydl.MediaVideo {
		for i := range formats {
			if formats[i].Height == h {
				return &formats[i], nil
			}
		}
	}
	return &formats[0], nil
}

func extension(f *youtube.Format) string {
	mimeType := strings.SplitN(f.MimeType, ";", 2)[0]
	parts := strings.SplitN(mimeType, "/", 2)
	if len(parts) != 2 {
		return "mp4"
	}
	return parts[1]
}
