package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/jaydl/jaydl"
)

type stubService struct {
	resolveFn  func(url string, credential string) (*jaydl.MediaInfo, error)
	downloadFn func(req jaydl.DownloadRequest) (*jaydl.DownloadResult, error)
}

func (s *stubService) Resolve(_ context.Context, url string, credential string) (*jaydl.MediaInfo, error) {
	return s.resolveFn(url, credential)
}

func (s *stubService) Download(_ context.Context, req jaydl.DownloadRequest) (*jaydl.DownloadResult, error) {
	return s.downloadFn(req)
}

func (s *stubService) SpotifyQuota() (bool, int, error) {
	return false, 20, nil
}

type stubHistory struct {
	rec        *jaydl.DownloadRecord
	recent     []jaydl.DownloadRecord
	recentArgs []int
}

func (s *stubHistory) GetByFilename(context.Context, string) (*jaydl.DownloadRecord, error) {
	return s.rec, nil
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]jaydl.DownloadRecord, error) {
	s.recentArgs = append(s.recentArgs, limit)
	return s.recent, nil
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	var decoded map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response not JSON: %v: %s", err, rr.Body.String())
		}
	}
	return rr, decoded
}

func TestAnalyze(t *testing.T) {
	assert := assert_.New(t)

	service := &stubService{resolveFn: func(url string, credential string) (*jaydl.MediaInfo, error) {
		assert.Equal("https://www.youtube.com/watch?v=dQw4w9WgXcQ", url)
		return &jaydl.MediaInfo{
			Title:    "Test Video",
			Duration: 212,
			Uploader: "Channel",
			Platform: jaydl.PlatformYouTube,
			Source:   jaydl.SourceInvidiousDirect,
			Formats: []jaydl.MediaFormat{
				{FormatID: "22", Kind: jaydl.MediaVideo, Height: 720, DirectURL: "https://cdn/22"},
				{FormatID: "140", Kind: jaydl.MediaAudio},
			},
		}, nil
	}}
	handler := NewServer(service, nil, t.TempDir()).Handler()

	rr, body := doJSON(t, handler, http.MethodPost, "/api/analyze",
		`{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`)
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal(true, body["success"])
	assert.Equal("Test Video", body["title"])
	assert.Equal("youtube", body["platform"])
	assert.Equal("invidious", body["source"])

	formats := body["formats"].([]any)
	assert.Len(formats, 2)
	first := formats[0].(map[string]any)
	assert.Equal("720p", first["resolution"])
	assert.Equal(true, first["has_url"])
	second := formats[1].(map[string]any)
	assert.Equal("Audio", second["resolution"])
	assert.Equal(false, second["has_url"])
}

func TestAnalyzeRequiresURL(t *testing.T) {
	assert := assert_.New(t)

	handler := NewServer(&stubService{}, nil, t.TempDir()).Handler()
	rr, body := doJSON(t, handler, http.MethodPost, "/api/analyze", `{}`)
	assert.Equal(http.StatusBadRequest, rr.Code)
	assert.Equal(false, body["success"])
}

func TestAnalyzeRejectsGet(t *testing.T) {
	assert := assert_.New(t)

	handler := NewServer(&stubService{}, nil, t.TempDir()).Handler()
	rr, _ := doJSON(t, handler, http.MethodGet, "/api/analyze", "")
	assert.Equal(http.StatusMethodNotAllowed, rr.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	assert := assert_.New(t)

	cases := []struct {
		err    error
		status int
	}{
		{jaydl.ErrInvalidURL, http.StatusBadRequest},
		{&jaydl.AuthRequiredError{Reason: "login required"}, http.StatusForbidden},
		{jaydl.ErrNoFormats, http.StatusBadGateway},
		{jaydl.ErrUpstreamUnavailable, http.StatusBadGateway},
		{os.ErrDeadlineExceeded, http.StatusInternalServerError},
	}
	for _, c := range cases {
		service := &stubService{resolveFn: func(string, string) (*jaydl.MediaInfo, error) {
			return nil, c.err
		}}
		handler := NewServer(service, nil, t.TempDir()).Handler()
		rr, body := doJSON(t, handler, http.MethodPost, "/api/analyze", `{"url": "https://x"}`)
		assert.Equal(c.status, rr.Code, "error: %v", c.err)
		assert.Equal(false, body["success"])
	}
}

func TestDownloadRateLimited(t *testing.T) {
	assert := assert_.New(t)

	reset := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	service := &stubService{downloadFn: func(jaydl.DownloadRequest) (*jaydl.DownloadResult, error) {
		return nil, &jaydl.RateLimitError{Remaining: 0, ResetAt: reset}
	}}
	handler := NewServer(service, nil, t.TempDir()).Handler()

	rr, body := doJSON(t, handler, http.MethodPost, "/api/download",
		`{"url": "https://open.spotify.com/track/abc"}`)
	assert.Equal(http.StatusTooManyRequests, rr.Code)
	assert.Equal(float64(0), body["remaining"])
	assert.Equal("2024-03-16T00:00:00Z", body["reset_at"])
}

func TestDownloadDirectResponse(t *testing.T) {
	assert := assert_.New(t)

	service := &stubService{downloadFn: func(req jaydl.DownloadRequest) (*jaydl.DownloadResult, error) {
		assert.Equal("best", req.Quality)
		assert.Equal(jaydl.MediaAudio, req.Kind)
		return &jaydl.DownloadResult{
			Title:     "Track",
			Platform:  jaydl.PlatformYouTube,
			Kind:      jaydl.MediaAudio,
			RemoteURL: "https://cdn/audio",
		}, nil
	}}
	handler := NewServer(service, nil, t.TempDir()).Handler()

	rr, body := doJSON(t, handler, http.MethodPost, "/api/download",
		`{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "media_type": "audio"}`)
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal("https://cdn/audio", body["download_url"])
	assert.Equal(true, body["direct"])
}

func TestDownloadLocalFileResponse(t *testing.T) {
	assert := assert_.New(t)

	service := &stubService{downloadFn: func(jaydl.DownloadRequest) (*jaydl.DownloadResult, error) {
		return &jaydl.DownloadResult{Title: "Clip", Filename: "Clip [best].mp4"}, nil
	}}
	handler := NewServer(service, nil, t.TempDir()).Handler()

	rr, body := doJSON(t, handler, http.MethodPost, "/api/download",
		`{"url": "https://www.tiktok.com/@u/video/1"}`)
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal("Clip [best].mp4", body["filename"])
	assert.Equal("/api/file/Clip [best].mp4", body["download_url"])
}

func TestDownloadUnlocatedFileResponse(t *testing.T) {
	assert := assert_.New(t)

	service := &stubService{downloadFn: func(jaydl.DownloadRequest) (*jaydl.DownloadResult, error) {
		return &jaydl.DownloadResult{Title: "Clip"}, nil
	}}
	handler := NewServer(service, nil, t.TempDir()).Handler()

	rr, body := doJSON(t, handler, http.MethodPost, "/api/download",
		`{"url": "https://www.tiktok.com/@u/video/1"}`)
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal(true, body["success"])
	assert.Equal("", body["filename"])
	assert.NotEmpty(body["note"])
}

func TestFileServing(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	assert.NoError(os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("media"), 0o644))
	history := &stubHistory{rec: &jaydl.DownloadRecord{Platform: jaydl.PlatformTikTok}}
	handler := NewServer(&stubService{}, history, dir).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/file/clip.mp4", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal("media", rr.Body.String())
	assert.Equal("tiktok", rr.Header().Get("X-Download-Platform"))
	assert.Contains(rr.Header().Get("Content-Disposition"), "attachment")
}

func TestFileServingRejectsTraversal(t *testing.T) {
	assert := assert_.New(t)

	// The mux would redirect dot-dot paths before the handler runs, so the
	// handler's own validation is exercised directly.
	server := NewServer(&stubService{}, nil, t.TempDir())
	for _, path := range []string{
		"/api/file/../secret.mp4",
		"/api/file/sub/clip.mp4",
		"/api/file/...",
		"/api/file/",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/file/x", nil)
		req.URL.Path = path
		rr := httptest.NewRecorder()
		server.handleFile(rr, req)
		assert.Equal(http.StatusBadRequest, rr.Code, "path: %s", path)
	}
}

func TestFileNotFound(t *testing.T) {
	assert := assert_.New(t)

	handler := NewServer(&stubService{}, nil, t.TempDir()).Handler()
	req := httptest.NewRequest(http.MethodGet, "/api/file/missing.mp4", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(http.StatusNotFound, rr.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	assert := assert_.New(t)

	history := &stubHistory{recent: []jaydl.DownloadRecord{
		{
			URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Platform:  jaydl.PlatformYouTube,
			Source:    jaydl.SourceExtractor,
			Kind:      jaydl.MediaVideo,
			Quality:   "720p",
			Filename:  "clip [720p].mp4",
			SizeBytes: 12345,
			CreatedAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		},
	}}
	handler := NewServer(&stubService{}, history, t.TempDir()).Handler()

	rr, body := doJSON(t, handler, http.MethodGet, "/api/history?limit=10", "")
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal([]int{10}, history.recentArgs)

	downloads := body["downloads"].([]any)
	assert.Len(downloads, 1)
	entry := downloads[0].(map[string]any)
	assert.Equal("clip [720p].mp4", entry["filename"])
	assert.Equal("youtube", entry["platform"])
	assert.Equal("2024-03-15T12:00:00Z", entry["created_at"])

	// An out-of-range limit falls back to the default.
	_, _ = doJSON(t, handler, http.MethodGet, "/api/history?limit=9999", "")
	assert.Equal([]int{10, 50}, history.recentArgs)
}

func TestHistoryEndpointWithoutStore(t *testing.T) {
	assert := assert_.New(t)

	handler := NewServer(&stubService{}, nil, t.TempDir()).Handler()
	rr, body := doJSON(t, handler, http.MethodGet, "/api/history", "")
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal(true, body["success"])
	assert.Len(body["downloads"].([]any), 0)
}

func TestCORSPreflight(t *testing.T) {
	assert := assert_.New(t)

	handler := NewServer(&stubService{}, nil, t.TempDir()).Handler()
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(http.StatusNoContent, rr.Code)
	assert.Equal("*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndPlatforms(t *testing.T) {
	assert := assert_.New(t)

	handler := NewServer(&stubService{}, nil, t.TempDir()).Handler()

	rr, body := doJSON(t, handler, http.MethodGet, "/api/health", "")
	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal("healthy", body["status"])

	rr, body = doJSON(t, handler, http.MethodGet, "/api/platforms", "")
	assert.Equal(http.StatusOK, rr.Code)
	assert.Len(body["platforms"].([]any), 5)
}
