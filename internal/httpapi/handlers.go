package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaydl/jaydl"
	"github.com/jaydl/jaydl/util"
)

type analyzeRequest struct {
	URL        string `json:"url"`
	Credential string `json:"credential,omitempty"`
}

type downloadRequest struct {
	URL        string `json:"url"`
	Quality    string `json:"quality"`
	MediaType  string `json:"media_type"`
	Credential string `json:"credential,omitempty"`
}

type formatJSON struct {
	FormatID   string `json:"format_id"`
	Resolution string `json:"resolution"`
	Height     int    `json:"height"`
	Filesize   int64  `json:"filesize,omitempty"`
	Type       string `json:"type"`
	HasURL     bool   `json:"has_url"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	s.log.Infow("analyzing URL", "url", req.URL)
	info, err := s.service.Resolve(r.Context(), req.URL, req.Credential)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	formats := make([]formatJSON, 0, len(info.Formats))
	for _, f := range info.Formats {
		formats = append(formats, formatJSON{
			FormatID:   f.FormatID,
			Resolution: resolutionLabel(f),
			Height:     f.Height,
			Filesize:   f.SizeBytes,
			Type:       string(f.Kind),
			HasURL:     f.DirectURL != "",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"title":      info.Title,
		"duration":   info.Duration,
		"thumbnail":  info.Thumbnail,
		"uploader":   info.Uploader,
		"view_count": info.ViewCount,
		"formats":    formats,
		"platform":   info.Platform,
		"source":     info.Source,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if req.Quality == "" {
		req.Quality = "best"
	}

	s.log.Infow("download requested", "url", req.URL, "quality", req.Quality, "media_type", req.MediaType)
	result, err := s.service.Download(r.Context(), jaydl.DownloadRequest{
		URL:        req.URL,
		Quality:    req.Quality,
		Kind:       jaydl.ParseMediaKind(req.MediaType),
		Credential: req.Credential,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := map[string]any{
		"success":    true,
		"title":      result.Title,
		"platform":   result.Platform,
		"media_type": result.Kind,
		"quality":    result.Quality,
		"file_size":  result.SizeBytes,
	}
	switch {
	case result.RemoteURL != "":
		resp["download_url"] = result.RemoteURL
		resp["direct"] = true
	case result.Filename != "":
		resp["filename"] = result.Filename
		resp["download_url"] = "/api/file/" + result.Filename
	default:
		// Fetch completed but the file could not be located.
		resp["filename"] = ""
		resp["note"] = "download completed but the file could not be located"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name, err := util.SafeBaseName(strings.TrimPrefix(r.URL.Path, "/api/file/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	path := filepath.Join(s.downloadDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if s.history != nil {
		if rec, err := s.history.GetByFilename(r.Context(), name); err == nil && rec != nil {
			w.Header().Set("X-Download-Platform", string(rec.Platform))
		}
	}
	s.log.Infow("serving file", "filename", name)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

type historyEntryJSON struct {
	URL       string `json:"url"`
	Platform  string `json:"platform"`
	Source    string `json:"source"`
	Kind      string `json:"media_type"`
	Quality   string `json:"quality"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"file_size"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "downloads": []historyEntryJSON{}})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.log.Errorw("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	entries := make([]historyEntryJSON, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, historyEntryJSON{
			URL:       rec.URL,
			Platform:  string(rec.Platform),
			Source:    string(rec.Source),
			Kind:      string(rec.Kind),
			Quality:   rec.Quality,
			Filename:  rec.Filename,
			SizeBytes: rec.SizeBytes,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "downloads": entries})
}

type platformJSON struct {
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"platforms": []platformJSON{
			{Name: "YouTube", Supported: true},
			{Name: "TikTok", Supported: true},
			{Name: "Instagram", Supported: true},
			{Name: "Twitter/X", Supported: true},
			{Name: "Spotify", Supported: true},
		},
	})
}

// writeServiceError maps the gateway's error taxonomy onto HTTP statuses.
// Internal detail stays in the logs; callers get the generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var rateErr *jaydl.RateLimitError
	var authErr *jaydl.AuthRequiredError
	switch {
	case errors.Is(err, jaydl.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rateErr):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"success":   false,
			"error":     rateErr.Error(),
			"remaining": rateErr.Remaining,
			"reset_at":  rateErr.ResetAt.Format(time.RFC3339),
		})
	case errors.As(err, &authErr):
		writeError(w, http.StatusForbidden, authErr.Error())
	case errors.Is(err, jaydl.ErrNoFormats):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, jaydl.ErrUpstreamUnavailable):
		s.log.Warnw("upstream failure", "error", err)
		writeError(w, http.StatusBadGateway, jaydl.ErrUpstreamUnavailable.Error())
	default:
		s.log.Errorw("unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func resolutionLabel(f jaydl.MediaFormat) string {
	if f.Kind == jaydl.MediaAudio {
		return "Audio"
	}
	if f.Height > 0 {
		return fmt.Sprintf("%dp", f.Height)
	}
	return "Best"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
