// Package piped talks to a pool of interchangeable Piped API mirror
// instances, first responder wins, same contract as the invidious pool.
package piped

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
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
}

func New(mirrors []string, timeout time.Duration) *Client {
	return &Client{
		mirrors: mirrors,
		timeout: timeout,
		http:    &http.Client{},
		log:     zap.S().Named("piped"),
	}
}

// FetchStreams resolves metadata for a video ID.
func (c *Client) FetchStreams(ctx context.Context, videoID string) (*jaydl.MediaInfo, error) {
	var failures error
	for _, mirror := range c.mirrors {
		info, err := c.fetchOne(ctx, mirror, videoID)
		if err == nil {
			return info, nil
		}
		c.log.Debugw("mirror attempt failed", "mirror", mirror, "error", err)
		failures = multierror.Append(failures, multierror.Prefix(err, fmt.Sprintf("[%s]", mirror)))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", jaydl.ErrNoMirrors, failures)
}

func (c *Client) fetchOne(ctx context.Context, mirror string, videoID string) (*jaydl.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mirror+"/streams/"+url.PathEscape(videoID), nil)
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
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var raw rawStreams
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw.Title == "" {
		return nil, fmt.Errorf("response missing title")
	}
	return raw.normalize(), nil
}
