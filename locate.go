package jaydl

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jaydl/jaydl/generic"
	"github.com/jaydl/jaydl/util"
)

var videoExtensions = generic.NewSet(".mp4", ".mkv", ".webm", ".m4v", ".mov")
var audioExtensions = generic.NewSet(".mp3", ".m4a", ".opus", ".ogg", ".aac", ".wav")

type locatedFile struct {
	path    string
	name    string
	modTime time.Time
}

// LocateDownload finds the file a just-finished extraction-tool fetch
// produced under dir. The tool names output files from its own template, so
// the exact final name cannot be predicted (title sanitization, extension
// negotiation); instead the search runs three heuristics of decreasing
// strictness:
//
//  1. newest file of the right extension whose name contains the
//     quality-derived suffix token, within a 5 minute window first, then
//     anything modified since the fetch started;
//  2. fuzzy filename-contains-title match over the same candidates;
//  3. newest file of the right extension modified within the last minute.
//
// Recency plus the suffix token is what disambiguates files written by
// concurrently-running downloads sharing the directory.
func LocateDownload(dir string, title string, token string, kind MediaKind, since time.Time) (string, bool) {
	candidates := scanDownloadDir(dir, kind)
	if len(candidates) == 0 {
		return "", false
	}
	now := time.Now()
	tokenNeedle := "[" + strings.ToLower(token) + "]"

	for _, window := range []time.Time{now.Add(-5 * time.Minute), since} {
		for _, c := range candidates {
			if c.modTime.Before(window) {
				continue
			}
			if strings.Contains(strings.ToLower(c.name), tokenNeedle) {
				return c.path, true
			}
		}
	}

	if needle := strings.ToLower(util.SanitizeTitle(title)); needle != "" {
		for _, c := range candidates {
			if c.modTime.Before(since) {
				continue
			}
			if strings.Contains(strings.ToLower(c.name), needle) {
				return c.path, true
			}
		}
	}

	if c := candidates[0]; c.modTime.After(now.Add(-60 * time.Second)) {
		return c.path, true
	}
	return "", false
}

// scanDownloadDir walks dir collecting files whose extension matches the
// media kind, newest first.
func scanDownloadDir(dir string, kind MediaKind) []locatedFile {
	exts := videoExtensions
	if kind == MediaAudio {
		exts = audioExtensions
	}
	var out []locatedFile
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !exts.Contains(strings.ToLower(filepath.Ext(d.Name()))) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, locatedFile{path: path, name: d.Name(), modTime: info.ModTime()})
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].modTime.After(out[j].modTime)
	})
	return out
}
