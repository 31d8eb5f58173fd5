package piped

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/jaydl/jaydl"
)

const streamsBody = `{
	"title": "Test Video",
	"uploader": "",
	"uploaderUrl": "/channel/UCtest",
	"duration": 180,
	"views": 4242,
	"thumbnailUrl": "https://img/thumb.jpg",
	"videoStreams": [
		{"quality": "1080p", "mimeType": "video/mp4", "format": "MPEG_4", "height": 1080, "contentLength": 9999},
		{"quality": "720p", "mimeType": "video/webm", "format": "WEBM"}
	],
	"audioStreams": [
		{"quality": "128 kbps", "mimeType": "audio/mp4", "format": "M4A", "contentLength": 1111}
	]
}`

func TestFetchStreams(t *testing.T) {
	assert := assert_.New(t)

	var hitPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitPath = r.URL.Path
		w.Write([]byte(streamsBody))
	}))
	defer srv.Close()

	c := New([]string{srv.URL}, 2*time.Second)
	info, err := c.FetchStreams(context.Background(), "dQw4w9WgXcQ")
	assert.NoError(err)
	assert.Equal("/streams/dQw4w9WgXcQ", hitPath)
	assert.Equal("Test Video", info.Title)
	assert.Equal("UCtest", info.Uploader)
	assert.Equal(180, info.Duration)
	assert.Equal(int64(4242), info.ViewCount)

	assert.Len(info.Formats, 3)
	assert.Equal(1080, info.Formats[0].Height)
	assert.Equal("mp4", info.Formats[0].Container)
	assert.Equal(720, info.Formats[1].Height)
	assert.Equal(jaydl.MediaAudio, info.Formats[2].Kind)
	assert.Equal(0, info.Formats[2].Height)

	// This tier never exposes direct stream URLs.
	assert.False(info.HasDirectFormats())
}

func TestFetchStreamsFirstMirrorWins(t *testing.T) {
	assert := assert_.New(t)

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(streamsBody))
	}))
	defer first.Close()
	secondHit := false
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit = true
		w.Write([]byte(streamsBody))
	}))
	defer second.Close()

	c := New([]string{first.URL, second.URL}, 2*time.Second)
	_, err := c.FetchStreams(context.Background(), "dQw4w9WgXcQ")
	assert.NoError(err)
	assert.False(secondHit)
}

func TestFetchStreamsAllMirrorsFail(t *testing.T) {
	assert := assert_.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New([]string{srv.URL, srv.URL}, 2*time.Second)
	_, err := c.FetchStreams(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(err, jaydl.ErrNoMirrors)
}
