// Package httpapi is the thin serving layer over the gateway: request
// unmarshaling, error-to-status mapping, CORS, and file serving. No
// resolution logic lives here.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
)

// Service is the gateway surface the handlers consume.
type Service interface {
	Resolve(ctx context.Context, url string, credential string) (*jaydl.MediaInfo, error)
	Download(ctx context.Context, req jaydl.DownloadRequest) (*jaydl.DownloadResult, error)
	SpotifyQuota() (atLimit bool, remaining int, err error)
}

// HistoryReader serves download records to the file and history endpoints.
// May be nil.
type HistoryReader interface {
	GetByFilename(ctx context.Context, filename string) (*jaydl.DownloadRecord, error)
	Recent(ctx context.Context, limit int) ([]jaydl.DownloadRecord, error)
}

type Server struct {
	service     Service
	history     HistoryReader
	downloadDir string
	log         *zap.SugaredLogger
}

func NewServer(service Service, history HistoryReader, downloadDir string) *Server {
	return &Server{
		service:     service,
		history:     history,
		downloadDir: downloadDir,
		log:         zap.S().Named("httpapi"),
	}
}

// Handler returns the routed HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/file/", s.handleFile)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/platforms", s.handlePlatforms)
	mux.HandleFunc("/api/health", s.handleHealth)
	return withCORS(mux)
}

// withCORS allows the frontend to be served from any origin, matching the
// original deployment where frontend and backend run on different ports.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
