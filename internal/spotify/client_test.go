package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	assert := assert_.New(t)

	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Query().Get("url")
		w.Write([]byte(`{"title": "Song Name", "thumbnail_url": "https://img/cover.jpg", "provider_name": "Spotify"}`))
	}))
	defer srv.Close()

	c := New(2 * time.Second).WithEndpoint(srv.URL)
	info, err := c.Lookup(context.Background(), "https://open.spotify.com/track/abc123")
	assert.NoError(err)
	assert.Equal("https://open.spotify.com/track/abc123", requested)
	assert.Equal("Song Name", info.Title)
	assert.Equal("https://img/cover.jpg", info.Thumbnail)
	assert.Equal("Spotify", info.Uploader)
}

func TestLookupUpstreamError(t *testing.T) {
	assert := assert_.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(2 * time.Second).WithEndpoint(srv.URL)
	_, err := c.Lookup(context.Background(), "https://open.spotify.com/track/gone")
	assert.Error(err)
	assert.Contains(err.Error(), "404")
}

func TestLookupMissingTitle(t *testing.T) {
	assert := assert_.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"provider_name": "Spotify"}`))
	}))
	defer srv.Close()

	c := New(2 * time.Second).WithEndpoint(srv.URL)
	_, err := c.Lookup(context.Background(), "https://open.spotify.com/track/abc")
	assert.Error(err)
}
