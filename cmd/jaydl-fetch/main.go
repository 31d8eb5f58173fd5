package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
	"github.com/jaydl/jaydl/internal/invidious"
	"github.com/jaydl/jaydl/internal/piped"
	"github.com/jaydl/jaydl/internal/spotify"
	"github.com/jaydl/jaydl/internal/ytdlp"
	"github.com/jaydl/jaydl/util"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "jaydl-fetch",
		Usage: "download a single media URL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded media to `DIR`",
			},
			&cli.StringFlag{
				Name:  "quality",
				Value: "best",
				Usage: "requested quality `LABEL` (best, bestaudio, 720p, mp4, ...)",
			},
			&cli.StringFlag{
				Name:  "media-type",
				Value: "video",
				Usage: "video or audio",
			},
		},
		Action: func(c *cli.Context) error {
			for _, source := range c.Args().Slice() {
				if err := fetch(ctx, c, source); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err.Error())
	}
}

func fetch(ctx context.Context, c *cli.Context, source string) error {
	logger := zap.S()
	target := c.String("target")
	kind := jaydl.ParseMediaKind(c.String("media-type"))
	logger.Infof("Downloading from %s into %s", source, target)

	cfg := jaydl.DefaultConfig
	cfg.DownloadDir = target
	extractor := ytdlp.New(cfg)
	resolver := jaydl.NewResolver(
		invidious.New(cfg.InvidiousMirrors, cfg.MirrorTimeout),
		piped.New(cfg.PipedMirrors, cfg.MirrorTimeout),
		extractor,
		spotify.New(cfg.MirrorTimeout),
	)
	gateway := jaydl.NewGateway(cfg, resolver, extractor, nil, nil)

	info, err := gateway.Resolve(ctx, source, "")
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	logger.Infof("Resolved %q by %s via %s (%d formats)", info.Title, info.Uploader, info.Source, len(info.Formats))

	result, err := gateway.Download(ctx, jaydl.DownloadRequest{
		URL:     source,
		Quality: c.String("quality"),
		Kind:    kind,
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if result.RemoteURL != "" {
		path, err := saveRemote(ctx, result, target, kind)
		if err != nil {
			return err
		}
		logger.Infof("Saved to %s", path)
		return nil
	}
	if result.LocalPath != "" {
		logger.Infof("Saved to %s", result.LocalPath)
	} else {
		logger.Warn("Fetch completed but the output file could not be located")
	}
	return nil
}

// saveRemote streams a direct-tier URL to disk with a progress bar.
func saveRemote(ctx context.Context, result *jaydl.DownloadResult, target string, kind jaydl.MediaKind) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.RemoteURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stream request failed: http status %d", resp.StatusCode)
	}

	ext := ".mp4"
	if kind == jaydl.MediaAudio {
		ext = ".m4a"
	}
	name := fmt.Sprintf("%s [%s]%s", util.SanitizeTitle(result.Title), result.Quality, ext)
	path := filepath.Join(target, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	bar := progressbar.DefaultBytes(resp.ContentLength, "downloading")
	if _, err := io.Copy(io.MultiWriter(f, bar), resp.Body); err != nil {
		return "", fmt.Errorf("failed to save stream: %w", err)
	}
	return path, nil
}
