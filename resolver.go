package jaydl

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// PrimarySource is the first-tier federated read API (Invidious-shaped).
// Implementations own a mirror pool and report an error only once the whole
// pool is exhausted.
type PrimarySource interface {
	// FetchVideo returns normalized metadata. Formats should carry direct
	// stream URLs where the API exposes them.
	FetchVideo(ctx context.Context, videoID string) (*MediaInfo, error)
	// Search queries the pool by title, for identity recovery.
	Search(ctx context.Context, query string) ([]SearchHit, error)
}

// SecondarySource is the second-tier federated API (Piped-shaped). Its
// results are metadata-grade: formats describe what exists but carry no
// direct URLs.
type SecondarySource interface {
	FetchStreams(ctx context.Context, videoID string) (*MediaInfo, error)
}

// Extractor is the extraction-tool port. The resolver does not care whether
// the implementation shells out to a binary, links a native library, or
// calls a service wrapping the tool.
type Extractor interface {
	// Probe returns full metadata including the tool's format list.
	Probe(ctx context.Context, url string, credential string) (*MediaInfo, error)
	// ProbeTitle is a lightweight title-only probe.
	ProbeTitle(ctx context.Context, url string) (string, error)
	// Fetch materializes the media as a file under req-selected output
	// handling; the produced file is located afterwards by the caller.
	Fetch(ctx context.Context, req FetchRequest) error
}

// FetchRequest is one extraction-tool download invocation.
type FetchRequest struct {
	URL        string
	Quality    string
	Kind       MediaKind
	Credential string
}

// MusicSource resolves metadata for music-streaming URLs.
type MusicSource interface {
	Lookup(ctx context.Context, url string) (*MediaInfo, error)
}

// Resolver runs the tiered fallback chain that turns a URL into a
// MediaInfo. Tiers run strictly sequentially and the first tier to produce
// a usable result wins; later tiers are never consulted after a success,
// even if they might be higher fidelity.
type Resolver struct {
	primary   PrimarySource
	secondary SecondarySource
	extractor Extractor
	music     MusicSource
	log       *zap.SugaredLogger
}

func NewResolver(primary PrimarySource, secondary SecondarySource, extractor Extractor, music MusicSource) *Resolver {
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		extractor: extractor,
		music:     music,
		log:       zap.S().Named("resolver"),
	}
}

// Resolve classifies the URL and drives the platform-appropriate resolution
// path. The returned MediaInfo always has Platform, Source and (when
// extracted) NativeID populated.
func (r *Resolver) Resolve(ctx context.Context, url string, credential string) (*MediaInfo, error) {
	platform := ClassifyURL(url)
	switch platform {
	case PlatformYouTube:
		return r.resolveYouTube(ctx, url, credential)
	case PlatformSpotify:
		return r.resolveSpotify(ctx, url)
	default:
		return r.resolveViaExtractor(ctx, url, platform, credential)
	}
}

// resolveYouTube walks the four-tier chain. Per-tier failures are swallowed
// and logged; only the terminal outcome of the whole chain surfaces.
func (r *Resolver) resolveYouTube(ctx context.Context, url string, credential string) (*MediaInfo, error) {
	videoID, ok := ExtractVideoID(url)
	if !ok {
		return nil, ErrInvalidURL
	}

	var failures error

	if info, err := r.tryInvidiousDirect(ctx, videoID); err == nil {
		return info, nil
	} else {
		failures = multierror.Append(failures, multierror.Prefix(err, "[invidious]"))
	}

	if info, err := r.tryPipedMetadata(ctx, videoID, url, credential); err == nil {
		return info, nil
	} else {
		failures = multierror.Append(failures, multierror.Prefix(err, "[piped]"))
	}

	trueTitle := ""
	if info, title, err := r.trySearchRecovery(ctx, videoID, url); err == nil {
		return info, nil
	} else {
		if authErr := asAuthRequired(err); authErr != nil {
			return nil, authErr
		}
		trueTitle = title
		failures = multierror.Append(failures, multierror.Prefix(err, "[search-recovery]"))
	}

	if info, err := r.tryExtractor(ctx, url, videoID, trueTitle, credential); err == nil {
		return info, nil
	} else {
		if authErr := asAuthRequired(err); authErr != nil {
			return nil, authErr
		}
		failures = multierror.Append(failures, multierror.Prefix(err, "[ytdlp]"))
	}

	r.log.Warnw("all resolution tiers failed", "video_id", videoID, "error", failures)
	return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, TruncateErrorText(failures.Error()))
}

// tryInvidiousDirect succeeds only when the primary pool answers with at
// least one direct-URL-bearing format. A nominal success with an empty or
// URL-less format list is treated as a soft failure so the chain continues.
func (r *Resolver) tryInvidiousDirect(ctx context.Context, videoID string) (*MediaInfo, error) {
	info, err := r.primary.FetchVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !info.HasDirectFormats() {
		return nil, ErrNoFormats
	}
	info.Platform = PlatformYouTube
	info.Source = SourceInvidiousDirect
	info.NativeID = videoID
	return info, nil
}

// tryPipedMetadata takes metadata from the secondary pool. That tier does
// not expose direct URLs, so the format list is discovered separately with
// an extraction-tool probe; if the probe fails the secondary's own
// descriptor list is kept as-is.
func (r *Resolver) tryPipedMetadata(ctx context.Context, videoID string, url string, credential string) (*MediaInfo, error) {
	info, err := r.secondary.FetchStreams(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if probed, err := r.extractor.Probe(ctx, url, credential); err == nil && len(probed.Formats) > 0 {
		info.Formats = probed.Formats
	} else if err != nil {
		r.log.Debugw("format discovery probe failed, keeping secondary descriptors",
			"video_id", videoID, "error", err)
	}
	info.Platform = PlatformYouTube
	info.Source = SourcePipedMetadata
	info.NativeID = videoID
	return info, nil
}

// trySearchRecovery recovers a usable primary mirror by searching for the
// video's true title and confirming the hit's ID, then re-runs the direct
// fetch. It also returns whatever title it learned so the last tier can
// fall back to an identity-only result. Nothing in this tier is fatal.
func (r *Resolver) trySearchRecovery(ctx context.Context, videoID string, url string) (*MediaInfo, string, error) {
	title, err := r.extractor.ProbeTitle(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("title probe failed: %w", err)
	}
	if title == "" {
		return nil, "", errors.New("title probe returned an empty title")
	}
	hits, err := r.primary.Search(ctx, title)
	if err != nil {
		return nil, title, fmt.Errorf("search failed: %w", err)
	}
	for _, hit := range hits {
		if hit.VideoID != videoID {
			continue
		}
		info, err := r.primary.FetchVideo(ctx, videoID)
		if err != nil {
			return nil, title, fmt.Errorf("refetch after search hit failed: %w", err)
		}
		if !info.HasDirectFormats() {
			return nil, title, ErrNoFormats
		}
		info.Platform = PlatformYouTube
		info.Source = SourceInvidiousSearch
		info.NativeID = videoID
		return info, title, nil
	}
	return nil, title, fmt.Errorf("no search hit matched id %s", videoID)
}

// tryExtractor is the last tier: a full extraction-tool probe. When even
// that fails but an earlier tier already learned the true title, resolution
// degrades to an identity-only result that can still be downloaded through
// the tool.
func (r *Resolver) tryExtractor(ctx context.Context, url string, videoID string, knownTitle string, credential string) (*MediaInfo, error) {
	info, err := r.extractor.Probe(ctx, url, credential)
	if err == nil && info.Title != "" {
		info.Platform = PlatformYouTube
		info.Source = SourceExtractor
		info.NativeID = videoID
		return info, nil
	}
	if knownTitle != "" {
		r.log.Infow("full probe failed, degrading to identity-only result",
			"video_id", videoID, "error", err)
		return &MediaInfo{
			Title:    knownTitle,
			Platform: PlatformYouTube,
			Source:   SourceExtractorIDOnly,
			NativeID: videoID,
		}, nil
	}
	if err == nil {
		err = fmt.Errorf("probe returned no title")
	}
	return nil, err
}

// resolveViaExtractor handles every platform without a federated source:
// one extraction-tool attempt, no chain.
func (r *Resolver) resolveViaExtractor(ctx context.Context, url string, platform Platform, credential string) (*MediaInfo, error) {
	info, err := r.extractor.Probe(ctx, url, credential)
	if err != nil {
		r.log.Warnw("extraction probe failed", "platform", platform, "error", err)
		if authErr := asAuthRequired(err); authErr != nil {
			return nil, authErr
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, TruncateErrorText(err.Error()))
	}
	if info.Title == "" {
		return nil, ErrUpstreamUnavailable
	}
	info.Platform = platform
	info.Source = SourceExtractor
	return info, nil
}

// asAuthRequired unwraps an AuthRequiredError so it surfaces typed instead of
// being flattened into the generic terminal error. The credential hint it
// carries must reach the caller even when a whole fallback chain failed.
func asAuthRequired(err error) *AuthRequiredError {
	var authErr *AuthRequiredError
	if errors.As(err, &authErr) {
		return authErr
	}
	return nil
}

func (r *Resolver) resolveSpotify(ctx context.Context, url string) (*MediaInfo, error) {
	if r.music == nil {
		return nil, fmt.Errorf("%w: no music source configured", ErrUpstreamUnavailable)
	}
	info, err := r.music.Lookup(ctx, url)
	if err != nil {
		r.log.Warnw("spotify lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, TruncateErrorText(err.Error()))
	}
	info.Platform = PlatformSpotify
	info.Source = SourceSpotifyAPI
	return info, nil
}
