package jaydl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

func writeAged(t *testing.T, dir string, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocateDownloadByToken(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	writeAged(t, dir, "Old Thing [720p].mp4", 2*time.Hour)
	want := writeAged(t, dir, "Fresh Thing [720p].mp4", time.Minute)
	writeAged(t, dir, "Fresh But Audio [audio].mp3", time.Minute)

	path, found := LocateDownload(dir, "Fresh Thing", "720p", MediaVideo, time.Now().Add(-10*time.Minute))
	assert.True(found)
	assert.Equal(want, path)
}

func TestLocateDownloadTokenMatchOutsideFiveMinutes(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	// Older than the tight window but newer than the fetch start.
	want := writeAged(t, dir, "Slow Download [best].mkv", 8*time.Minute)

	path, found := LocateDownload(dir, "Slow Download", "best", MediaVideo, time.Now().Add(-20*time.Minute))
	assert.True(found)
	assert.Equal(want, path)
}

func TestLocateDownloadFuzzyTitleFallback(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	// No token in the name at all; the sanitized title still matches.
	want := writeAged(t, dir, "my great clip.webm", 4*time.Minute)
	writeAged(t, dir, "unrelated.mp4", 2*time.Hour)

	path, found := LocateDownload(dir, "My GREAT Clip!!", "1080p", MediaVideo, time.Now().Add(-10*time.Minute))
	assert.True(found)
	assert.Equal(want, path)
}

func TestLocateDownloadNewestRecentFallback(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	want := writeAged(t, dir, "renamed-beyond-recognition.mp4", 10*time.Second)

	path, found := LocateDownload(dir, "Completely Different Title", "720p", MediaVideo, time.Now().Add(-10*time.Minute))
	assert.True(found)
	assert.Equal(want, path)
}

func TestLocateDownloadMiss(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	writeAged(t, dir, "stale.mp4", 2*time.Hour)

	_, found := LocateDownload(dir, "Nothing Here", "best", MediaVideo, time.Now().Add(-10*time.Minute))
	assert.False(found)

	_, found = LocateDownload(t.TempDir(), "Empty Dir", "best", MediaVideo, time.Now())
	assert.False(found)
}

func TestLocateDownloadAudioKindFiltersExtensions(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	writeAged(t, dir, "Track [audio].mp4", time.Minute)
	want := writeAged(t, dir, "Track [audio].mp3", time.Minute)

	path, found := LocateDownload(dir, "Track", "best", MediaAudio, time.Now().Add(-10*time.Minute))
	assert.True(found)
	assert.Equal(want, path)
}
