// Package invidious talks to a pool of interchangeable Invidious mirror
// instances. Mirrors are tried in order and the first one that answers with
// a parseable body wins; there is no quorum and no best-of-N, because a
// correct answer from any mirror is as good as from any other.
package invidious

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
)

type Client struct {
	mirrors []string
	timeout time.Duration
	http    *http.Client
	log     *zap.SugaredLogger

	mu       sync.Mutex
	lastGood int // index of the most recently successful mirror
}

func New(mirrors []string, timeout time.Duration) *Client {
	return &Client{
		mirrors: mirrors,
		timeout: timeout,
		http:    &http.Client{},
		log:     zap.S().Named("invidious"),
	}
}

// FetchVideo resolves metadata and direct stream URLs for a video ID.
func (c *Client) FetchVideo(ctx context.Context, videoID string) (*jaydl.MediaInfo, error) {
	var info *jaydl.MediaInfo
	err := c.tryMirrors(ctx, "/api/v1/videos/"+url.PathEscape(videoID), func(body []byte) error {
		var raw rawVideo
		if err := json.Unmarshal(body, &raw); err != nil {
			return err
		}
		if raw.Title == "" {
			return fmt.Errorf("response missing title")
		}
		info = raw.normalize()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Search queries the pool by title and returns video hits.
func (c *Client) Search(ctx context.Context, query string) ([]jaydl.SearchHit, error) {
	var hits []jaydl.SearchHit
	path := "/api/v1/search?type=video&q=" + url.QueryEscape(query)
	err := c.tryMirrors(ctx, path, func(body []byte) error {
		var raw []rawSearchHit
		if err := json.Unmarshal(body, &raw); err != nil {
			return err
		}
		hits = hits[:0]
		for _, h := range raw {
			if h.Type != "" && h.Type != "video" {
				continue
			}
			if h.VideoID == "" {
				continue
			}
			hits = append(hits, jaydl.SearchHit{
				VideoID:  h.VideoID,
				Title:    h.Title,
				Uploader: h.Author,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// tryMirrors walks the pool until parse accepts one mirror's body, starting
// at the most recently successful mirror so that a fetch issued right after
// a successful search lands on the same known-good instance instead of
// re-paying every dead mirror's timeout. Every per-mirror failure (timeout,
// connection error, non-200, bad body) is logged and accumulated, never
// surfaced individually.
func (c *Client) tryMirrors(ctx context.Context, path string, parse func([]byte) error) error {
	var failures error
	for _, i := range c.mirrorOrder() {
		mirror := c.mirrors[i]
		body, err := c.get(ctx, mirror+path)
		if err == nil {
			err = parse(body)
			if err == nil {
				c.markGood(i)
				return nil
			}
		}
		c.log.Debugw("mirror attempt failed", "mirror", mirror, "error", err)
		failures = multierror.Append(failures, multierror.Prefix(err, fmt.Sprintf("[%s]", mirror)))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", jaydl.ErrNoMirrors, failures)
}

// mirrorOrder is the configured order rotated to begin at the last mirror
// that answered successfully.
func (c *Client) mirrorOrder() []int {
	c.mu.Lock()
	start := c.lastGood
	c.mu.Unlock()
	order := make([]int, len(c.mirrors))
	for k := range order {
		order[k] = (start + k) % len(c.mirrors)
	}
	return order
}

func (c *Client) markGood(i int) {
	c.mu.Lock()
	c.lastGood = i
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
