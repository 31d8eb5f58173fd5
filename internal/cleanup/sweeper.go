// Package cleanup deletes stale files from the download directory so
// served downloads do not accumulate forever.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewSweeper(dir string, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		log:      zap.S().Named("cleanup"),
	}
}

// Run sweeps on an interval until the context is cancelled. One sweep runs
// immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes regular files older than maxAge. Subdirectories are left
// alone; failures are logged and skipped since a file busy being served
// will be caught on a later pass.
func (s *Sweeper) Sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Debugw("cannot read download directory", "dir", s.dir, "error", err)
		return
	}
	cutoff := time.Now().Add(-s.maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warnw("failed to remove stale file", "path", path, "error", err)
			continue
		}
		s.log.Infow("removed stale file", "path", path)
	}
}
