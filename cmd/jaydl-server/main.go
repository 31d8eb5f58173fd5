package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
	"github.com/jaydl/jaydl/internal/cleanup"
	"github.com/jaydl/jaydl/internal/history"
	"github.com/jaydl/jaydl/internal/httpapi"
	"github.com/jaydl/jaydl/internal/invidious"
	"github.com/jaydl/jaydl/internal/nativeyt"
	"github.com/jaydl/jaydl/internal/piped"
	"github.com/jaydl/jaydl/internal/ratelimit"
	"github.com/jaydl/jaydl/internal/spotify"
	"github.com/jaydl/jaydl/internal/ytdlp"
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
		Name:  "jaydl-server",
		Usage: "media retrieval gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Value: ":5000",
				Usage: "listen `ADDR` for the HTTP API",
			},
			&cli.StringFlag{
				Name:  "download-dir",
				Value: jaydl.DefaultConfig.DownloadDir,
				Usage: "save fetched files to `DIR`",
			},
			&cli.StringFlag{
				Name:  "ytdlp",
				Value: jaydl.DefaultConfig.YtDlpPath,
				Usage: "yt-dlp binary `PATH`; empty switches to the built-in YouTube client",
			},
			&cli.StringFlag{
				Name:  "quota-file",
				Value: jaydl.DefaultConfig.SpotifyQuotaPath,
				Usage: "Spotify daily-quota state `FILE`",
			},
			&cli.StringFlag{
				Name:  "quota-db",
				Usage: "keep the Spotify daily quota in a bbolt `FILE` instead of JSON",
			},
			&cli.StringFlag{
				Name:  "history-db",
				Value: "jaydl.sqlite3",
				Usage: "download history sqlite `FILE`",
			},
			&cli.DurationFlag{
				Name:  "retention",
				Value: time.Hour,
				Usage: "delete downloaded files older than `AGE`",
			},
		},
		Action: func(c *cli.Context) error {
			return serve(ctx, c)
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err.Error())
	}
}

func serve(ctx context.Context, c *cli.Context) error {
	logger := zap.S().Named("server")

	cfg := jaydl.DefaultConfig
	cfg.DownloadDir = c.String("download-dir")
	cfg.YtDlpPath = c.String("ytdlp")
	cfg.SpotifyQuotaPath = c.String("quota-file")

	if err := os.MkdirAll(cfg.DownloadDir, 0775); err != nil {
		return err
	}

	var extractor jaydl.Extractor
	if cfg.YtDlpPath == "" {
		logger.Info("no yt-dlp binary configured, using built-in YouTube client")
		extractor = nativeyt.New(cfg.DownloadDir)
	} else {
		extractor = ytdlp.New(cfg)
	}

	resolver := jaydl.NewResolver(
		invidious.New(cfg.InvidiousMirrors, cfg.MirrorTimeout),
		piped.New(cfg.PipedMirrors, cfg.MirrorTimeout),
		extractor,
		spotify.New(cfg.MirrorTimeout),
	)
	quotaStore, closeQuota, err := ratelimit.OpenStore(cfg.SpotifyQuotaPath, c.String("quota-db"))
	if err != nil {
		return err
	}
	defer closeQuota()
	quota := ratelimit.New(quotaStore, cfg.SpotifyDailyCap)

	store, err := history.NewStore(c.String("history-db"))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return err
	}

	gateway := jaydl.NewGateway(cfg, resolver, extractor, quota, store)

	sweeper := cleanup.NewSweeper(cfg.DownloadDir, c.Duration("retention"), 10*time.Minute)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:    c.String("listen"),
		Handler: httpapi.NewServer(gateway, store, cfg.DownloadDir).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Infof("listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
