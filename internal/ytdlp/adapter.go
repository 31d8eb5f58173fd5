// Package ytdlp invokes the yt-dlp binary as a bounded-timeout subprocess
// and parses its JSON output. A non-zero exit or an unparseable stdout is
// always a failure; there is no partial success.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
)

// Runner executes the tool. Abstracted so tests can capture argument sets
// without spawning processes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// userAgents is a small fixed pool rotated across unauthenticated calls.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

type Adapter struct {
	bin          string
	outputDir    string
	runner       Runner
	log          *zap.SugaredLogger
	uaCounter    atomic.Uint64
	probeTimeout time.Duration
	titleTimeout time.Duration
	fetchTimeout time.Duration
}

func New(cfg jaydl.Config) *Adapter {
	bin := cfg.YtDlpPath
	if bin == "" {
		bin = "yt-dlp"
	}
	return &Adapter{
		bin:          bin,
		outputDir:    cfg.DownloadDir,
		runner:       execRunner{},
		log:          zap.S().Named("ytdlp"),
		probeTimeout: cfg.ProbeTimeout,
		titleTimeout: cfg.TitleTimeout,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// WithRunner swaps the subprocess runner; used by tests.
func (a *Adapter) WithRunner(r Runner) *Adapter {
	a.runner = r
	return a
}

// Probe dumps full metadata for a URL.
func (a *Adapter) Probe(ctx context.Context, url string, credential string) (*jaydl.MediaInfo, error) {
	args := []string{"--dump-single-json", "--no-playlist", "--no-warnings"}
	args = append(args, a.commonArgs(url, credential)...)
	args = append(args, url)

	ctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()
	stdout, stderr, err := a.runner.Run(ctx, a.bin, args...)
	if err != nil {
		return nil, a.toolError("probe", stderr, credential, err)
	}
	raw, err := parseProbeOutput(stdout)
	if err != nil {
		return nil, fmt.Errorf("probe output unparseable: %w", err)
	}
	return raw.normalize(), nil
}

// ProbeTitle asks the tool only for the title, which is considerably
// faster than a full metadata dump.
func (a *Adapter) ProbeTitle(ctx context.Context, url string) (string, error) {
	args := []string{"--print", "title", "--skip-download", "--no-playlist", "--no-warnings"}
	args = append(args, a.commonArgs(url, "")...)
	args = append(args, url)

	ctx, cancel := context.WithTimeout(ctx, a.titleTimeout)
	defer cancel()
	stdout, stderr, err := a.runner.Run(ctx, a.bin, args...)
	if err != nil {
		return "", a.toolError("title probe", stderr, "", err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// Fetch downloads the media into the output directory. The output template
// embeds a quality-derived token so the produced file can be found again.
func (a *Adapter) Fetch(ctx context.Context, req jaydl.FetchRequest) error {
	token := jaydl.QualityToken(req.Quality, req.Kind)
	template := filepath.Join(a.outputDir, "%(title).150s ["+token+"].%(ext)s")

	args := []string{"--no-playlist", "--no-warnings", "-o", template}
	if req.Kind == jaydl.MediaAudio {
		args = append(args, "-x", "--audio-format", "mp3")
	} else {
		args = append(args, "--merge-output-format", "mp4")
		if h := jaydl.HeightFromQuality(req.Quality); h > 0 {
			args = append(args, "-f", fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", h, h))
		} else {
			args = append(args, "-f", "bestvideo+bestaudio/best")
		}
	}
	args = append(args, a.commonArgs(req.URL, req.Credential)...)
	args = append(args, req.URL)

	ctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()
	_, stderr, err := a.runner.Run(ctx, a.bin, args...)
	if err != nil {
		return a.toolError("fetch", stderr, req.Credential, err)
	}
	return nil
}

// commonArgs builds the blocking-avoidance argument set shared by every
// invocation: geo bypass, platform player-client hints, and either the
// caller's bearer credential or a rotated User-Agent.
func (a *Adapter) commonArgs(url string, credential string) []string {
	args := []string{"--geo-bypass"}
	if jaydl.ClassifyURL(url) == jaydl.PlatformYouTube {
		args = append(args, "--extractor-args", "youtube:player_client=android,web")
	}
	if credential != "" {
		args = append(args, "--add-header", "Authorization: Bearer "+credential)
	} else {
		n := a.uaCounter.Add(1)
		args = append(args, "--user-agent", userAgents[int(n)%len(userAgents)])
	}
	return args
}

// toolError turns a failed invocation into an error safe to propagate:
// stderr is truncated, credential values are scrubbed, and known
// sign-in/private/age-restriction phrasings map to AuthRequiredError.
func (a *Adapter) toolError(op string, stderr []byte, credential string, err error) error {
	detail := strings.TrimSpace(string(stderr))
	if credential != "" {
		detail = strings.ReplaceAll(detail, credential, "[redacted]")
	}
	detail = jaydl.TruncateErrorText(detail)
	a.log.Warnw("tool invocation failed", "op", op, "error", err, "stderr", detail)

	if reason, ok := classifyAuthFailure(detail); ok {
		return &jaydl.AuthRequiredError{Reason: reason}
	}
	if detail == "" {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return fmt.Errorf("%s failed: %s", op, detail)
}

var authPhrases = []string{
	"sign in to confirm",
	"private video",
	"members-only",
	"age-restricted",
	"age restricted",
	"login required",
	"this video is only available to",
}

func classifyAuthFailure(stderr string) (string, bool) {
	s := strings.ToLower(stderr)
	for _, phrase := range authPhrases {
		if strings.Contains(s, phrase) {
			return phrase, true
		}
	}
	return "", false
}
