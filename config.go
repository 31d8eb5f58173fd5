package jaydl

import "time"

// Config carries the tunables shared across the gateway. Zero values are
// not usable; start from DefaultConfig.
type Config struct {
	// InvidiousMirrors is the primary federated pool, tried in order.
	InvidiousMirrors []string
	// PipedMirrors is the secondary federated pool, tried in order.
	PipedMirrors []string
	// DownloadDir is where extraction-tool fetches land.
	DownloadDir string
	// YtDlpPath is the extraction tool binary. Empty means "yt-dlp" on PATH.
	YtDlpPath string

	MirrorTimeout time.Duration // per-mirror request budget
	ProbeTimeout  time.Duration // full extraction-tool probe
	TitleTimeout  time.Duration // title-only probe
	FetchTimeout  time.Duration // extraction-tool download

	// SpotifyQuotaPath is the persisted daily-counter file.
	SpotifyQuotaPath string
	SpotifyDailyCap  int
}

var DefaultConfig = Config{
	InvidiousMirrors: []string{
		"https://inv.nadeko.net",
		"https://invidious.nerdvpn.de",
		"https://yewtu.be",
		"https://invidious.f5.si",
	},
	PipedMirrors: []string{
		"https://pipedapi.kavin.rocks",
		"https://api.piped.yt",
		"https://pipedapi.adminforge.de",
	},
	DownloadDir:      "downloads",
	YtDlpPath:        "yt-dlp",
	MirrorTimeout:    8 * time.Second,
	ProbeTimeout:     20 * time.Second,
	TitleTimeout:     15 * time.Second,
	FetchTimeout:     600 * time.Second,
	SpotifyQuotaPath: "spotify_quota.json",
	SpotifyDailyCap:  20,
}
