package jaydl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Quota gates Spotify download volume with a persisted daily counter.
type Quota interface {
	// CheckAndIncrement consumes one unit unless the cap is already reached.
	CheckAndIncrement() (atLimit bool, remaining int, err error)
	// Status reports the counter without consuming anything.
	Status() (atLimit bool, remaining int, err error)
	// ResetAt is when the counter next rolls over.
	ResetAt() time.Time
}

// HistoryRecorder persists a trace of completed downloads. Recording is
// best-effort; failures never fail the download.
type HistoryRecorder interface {
	Record(ctx context.Context, rec DownloadRecord) error
}

// Gateway is the inbound surface the serving layer consumes: resolve a URL,
// download from it, inspect the Spotify quota.
type Gateway struct {
	resolver    *Resolver
	extractor   Extractor
	quota       Quota
	history     HistoryRecorder
	downloadDir string
	log         *zap.SugaredLogger
}

func NewGateway(cfg Config, resolver *Resolver, extractor Extractor, quota Quota, history HistoryRecorder) *Gateway {
	return &Gateway{
		resolver:    resolver,
		extractor:   extractor,
		quota:       quota,
		history:     history,
		downloadDir: cfg.DownloadDir,
		log:         zap.S().Named("gateway"),
	}
}

// Resolve returns canonical metadata for a URL.
func (g *Gateway) Resolve(ctx context.Context, url string, credential string) (*MediaInfo, error) {
	return g.resolver.Resolve(ctx, url, credential)
}

// SpotifyQuota reports the daily Spotify counter without consuming it.
func (g *Gateway) SpotifyQuota() (atLimit bool, remaining int, err error) {
	if g.quota == nil {
		return false, 0, nil
	}
	return g.quota.Status()
}

// Download resolves the URL and executes the appropriate download strategy:
// direct-tier results hand back the upstream stream URL for proxying,
// everything else goes through the extraction tool and the produced file is
// located on disk afterwards.
func (g *Gateway) Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	kind := req.Kind
	if kind == "" {
		kind = MediaVideo
	}

	// The quota gate runs before any outbound call is made.
	if ClassifyURL(req.URL) == PlatformSpotify && g.quota != nil {
		atLimit, _, err := g.quota.CheckAndIncrement()
		if err != nil {
			g.log.Warnw("quota check failed, allowing download", "error", err)
		} else if atLimit {
			return nil, &RateLimitError{Remaining: 0, ResetAt: g.quota.ResetAt()}
		}
	}

	started := time.Now()
	info, err := g.resolver.Resolve(ctx, req.URL, req.Credential)
	if err != nil {
		return nil, err
	}

	var result *DownloadResult
	if info.Source.Direct() {
		result, err = g.downloadDirect(info, req.Quality, kind)
		if err != nil {
			return nil, err
		}
	} else {
		result, err = g.downloadViaExtractor(ctx, info, req, kind, started)
		if err != nil {
			return nil, err
		}
	}

	g.record(ctx, req, info, result, kind)
	return result, nil
}

// downloadDirect returns the matching format's direct URL; no local fetch
// happens on this path. The format list SHOULD always carry URLs on a
// direct tier, but a URL-less match still degrades to any format of the
// right kind that has one.
func (g *Gateway) downloadDirect(info *MediaInfo, quality string, kind MediaKind) (*DownloadResult, error) {
	f := SelectFormat(info.Formats, quality, kind)
	if f == nil {
		return nil, ErrNoFormats
	}
	pick := f
	if pick.DirectURL == "" {
		for i := range info.Formats {
			if info.Formats[i].DirectURL != "" && info.Formats[i].Kind == kind {
				pick = &info.Formats[i]
				break
			}
		}
	}
	if pick.DirectURL == "" {
		for i := range info.Formats {
			if info.Formats[i].DirectURL != "" {
				pick = &info.Formats[i]
				break
			}
		}
	}
	if pick.DirectURL == "" {
		return nil, ErrNoFormats
	}
	return &DownloadResult{
		Title:     info.Title,
		Platform:  info.Platform,
		Kind:      pick.Kind,
		Quality:   qualityLabel(pick),
		SizeBytes: pick.SizeBytes,
		RemoteURL: pick.DirectURL,
	}, nil
}

// downloadViaExtractor shells the fetch out to the extraction tool, then
// hunts for the produced file. Failure to locate the file is a soft
// success: the fetch itself completed, so a minimal result is returned
// instead of an error.
func (g *Gateway) downloadViaExtractor(ctx context.Context, info *MediaInfo, req DownloadRequest, kind MediaKind, started time.Time) (*DownloadResult, error) {
	err := g.extractor.Fetch(ctx, FetchRequest{
		URL:        req.URL,
		Quality:    req.Quality,
		Kind:       kind,
		Credential: req.Credential,
	})
	if err != nil {
		var authErr *AuthRequiredError
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		g.log.Warnw("extraction fetch failed", "url", req.URL, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, TruncateErrorText(err.Error()))
	}

	result := &DownloadResult{
		Title:    info.Title,
		Platform: info.Platform,
		Kind:     kind,
		Quality:  req.Quality,
	}
	token := QualityToken(req.Quality, kind)
	path, found := LocateDownload(g.downloadDir, info.Title, token, kind, started)
	if !found {
		g.log.Warnw("fetch completed but no output file located",
			"title", info.Title, "token", token)
		return result, nil
	}
	result.LocalPath = path
	result.Filename = filepath.Base(path)
	if st, err := os.Stat(path); err == nil {
		result.SizeBytes = st.Size()
	}
	return result, nil
}

func (g *Gateway) record(ctx context.Context, req DownloadRequest, info *MediaInfo, result *DownloadResult, kind MediaKind) {
	if g.history == nil {
		return
	}
	rec := DownloadRecord{
		ID:        uuid.NewString(),
		URL:       req.URL,
		Platform:  info.Platform,
		Source:    info.Source,
		Kind:      kind,
		Quality:   req.Quality,
		Filename:  result.Filename,
		SizeBytes: result.SizeBytes,
		CreatedAt: time.Now(),
	}
	if err := g.history.Record(ctx, rec); err != nil {
		g.log.Warnw("failed to record download", "error", err)
	}
}

// QualityToken derives the filename suffix token the extraction adapter
// embeds in its output template, so the locator can find what the tool
// wrote. Audio fetches always use "audio"; video fetches use the height
// label when the quality names one, otherwise "best".
func QualityToken(quality string, kind MediaKind) string {
	if kind == MediaAudio {
		return "audio"
	}
	if h := HeightFromQuality(quality); h > 0 {
		return fmt.Sprintf("%dp", h)
	}
	return "best"
}

func qualityLabel(f *MediaFormat) string {
	if f.Kind == MediaAudio {
		return "audio"
	}
	if f.Height > 0 {
		return fmt.Sprintf("%dp", f.Height)
	}
	return f.FormatID
}
