// Package spotify resolves metadata for music-streaming URLs through the
// public oEmbed endpoint. Track audio itself is fetched downstream by the
// extraction tool; this client only supplies title and artwork.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
)

const defaultEndpoint = "https://open.spotify.com/oembed"

type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	log      *zap.SugaredLogger
}

func New(timeout time.Duration) *Client {
	return &Client{
		endpoint: defaultEndpoint,
		timeout:  timeout,
		http:     &http.Client{},
		log:      zap.S().Named("spotify"),
	}
}

// WithEndpoint overrides the oEmbed endpoint; used by tests.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

type oembedResponse struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	ProviderName string `json:"provider_name"`
}

// Lookup fetches oEmbed metadata for a track/album/playlist URL.
func (c *Client) Lookup(ctx context.Context, rawURL string) (*jaydl.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed http status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var raw oembedResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("oembed response unparseable: %w", err)
	}
	if raw.Title == "" {
		return nil, fmt.Errorf("oembed response missing title")
	}
	return &jaydl.MediaInfo{
		Title:     raw.Title,
		Thumbnail: raw.ThumbnailURL,
		Uploader:  raw.ProviderName,
	}, nil
}
