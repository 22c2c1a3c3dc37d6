package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/v0xg/screenpilot/internal/analysis"
	"github.com/v0xg/screenpilot/internal/capture"
	"github.com/v0xg/screenpilot/internal/command"
	"github.com/v0xg/screenpilot/internal/config"
	"github.com/v0xg/screenpilot/internal/metrics"
	"github.com/v0xg/screenpilot/internal/playback"
	"github.com/v0xg/screenpilot/internal/recorder"
	"github.com/v0xg/screenpilot/internal/scheduler"
	"github.com/v0xg/screenpilot/internal/step"
	"github.com/v0xg/screenpilot/internal/store"
	"github.com/v0xg/screenpilot/internal/store/memory"
	"github.com/v0xg/screenpilot/internal/store/sqlite"
)

var (
	configPath  string
	provider    string
	model       string
	profileID   string
	genre       string
	notes       string
	storePath   string
	metricsAddr string
	recordPath  string
	width       int
	height      int
	profileDir  string
	debug       bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "screenpilot <url>",
		Short: "AI screen pilot that watches an application and drives gestures",
		Long: `screenpilot captures paired snapshots of a running application, asks an AI
vision service what to do next, and plays the returned gesture plan through
an animated virtual pointer.

Type "analyze" or "stop" on stdin to steer the pilot while it runs.

Example:
  screenpilot "https://game.example.com" --profile arcade --record session.gif`,
		Args: cobra.ExactArgs(1),
		RunE: runPilot,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to yaml config file")
	rootCmd.Flags().StringVar(&provider, "provider", "", "AI provider: claude, openai (default: from config or claude)")
	rootCmd.Flags().StringVar(&model, "model", "", "Specific model override")
	rootCmd.Flags().StringVar(&profileID, "profile", "", "Profile record ID passed to the analyzer")
	rootCmd.Flags().StringVar(&genre, "genre", "", "Profile genre saved before starting")
	rootCmd.Flags().StringVar(&notes, "notes", "", "Profile notes saved before starting")
	rootCmd.Flags().StringVar(&storePath, "store", "", "SQLite database path (default: in-memory stores)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve prometheus metrics on (e.g. :9090)")
	rootCmd.Flags().StringVar(&recordPath, "record", "", "Write a session GIF to this path on exit")
	rootCmd.Flags().IntVar(&width, "width", 0, "Viewport width")
	rootCmd.Flags().IntVar(&height, "height", 0, "Viewport height")
	rootCmd.Flags().StringVar(&profileDir, "profile-dir", "", "Chrome/Chromium profile directory for authenticated sessions")
	rootCmd.Flags().BoolVarP(&debug, "debug", "v", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPilot(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)

	level := slog.LevelInfo
	if debug || cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Stores: sqlite when a path is configured, in-memory otherwise.
	var profiles store.ProfileStore
	var logs store.LogStore
	var closeStore func() error
	if cfg.StorePath != "" {
		st, err := sqlite.Open(ctx, cfg.StorePath, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		profiles, logs = st, st
		closeStore = st.Close
		logger.Info("Using SQLite stores", "path", cfg.StorePath)
	} else {
		m := memory.New()
		profiles, logs = m, m
		logger.Info("Using in-memory stores")
	}
	defer func() {
		if closeStore != nil {
			_ = closeStore()
		}
	}()

	if cfg.ProfileID != "" && (genre != "" || notes != "") {
		err := profiles.Save(ctx, store.Profile{ID: cfg.ProfileID, Genre: genre, Notes: notes})
		if err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
	}

	var m *metrics.Metrics
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}

	var rec *recorder.Recorder
	var poseSink playback.PoseSink
	var frameSink func(capture.Frame)
	if cfg.RecordPath != "" {
		rec = recorder.New()
		poseSink = rec.OnPose
		frameSink = rec.OnFrame
	}

	engine := playback.NewEngine(playback.EngineOptions{Sink: poseSink, Logger: logger})
	controller := playback.NewController(playback.ControllerOptions{
		Engine: engine,
		OnStep: func(step.Step) { m.StepPlayed() },
		Logger: logger,
	})

	analyzer, err := analysis.NewAnalyzer(cfg.Provider, cfg.Model)
	if err != nil {
		return fmt.Errorf("analyzer init: %w", err)
	}

	source := capture.NewRodSource(capture.RodOptions{
		URL:        url,
		Width:      cfg.Viewport.Width,
		Height:     cfg.Viewport.Height,
		ProfileDir: cfg.ProfileDir,
	})

	sched := scheduler.New(scheduler.Options{
		Source:    source,
		Analyzer:  analyzer,
		Profiles:  profiles,
		Logs:      logs,
		Sink:      controller,
		ProfileID: cfg.ProfileID,
		OnFrame:   frameSink,
		Metrics:   m,
		Logger:    logger,
		OnState: func(st scheduler.State) {
			logger.Debug("Scheduler state",
				"mode", st.Mode,
				"pilot", st.PilotEnabled,
				"busy", st.Busy,
				"retryRemaining", st.RetryRemaining)
		},
	})

	if err := sched.StartLive(ctx); err != nil {
		return fmt.Errorf("start live: %w", err)
	}

	var g run.Group
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))
	{
		dctx, dcancel := context.WithCancel(context.Background())
		dispatcher := command.NewDispatcher(command.NewConsoleSource(cmd.InOrStdin()), sched, logger)
		g.Add(func() error { return dispatcher.Run(dctx) }, func(error) { dcancel() })
	}
	if metricsSrv != nil {
		g.Add(func() error { return metricsSrv.ListenAndServe() }, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Run()

	sched.StopLive()
	controller.Stop()

	if rec != nil {
		size, werr := rec.WriteGIF(cfg.RecordPath, recorder.GIFOptions{FPS: 20, MaxWidth: 800})
		if werr != nil {
			logger.Warn("Failed to write session GIF", "error", werr)
		} else if size > 0 {
			logger.Info("Session GIF written", "path", cfg.RecordPath, "bytes", size)
		}
	}

	var sigErr run.SignalError
	if errors.As(runErr, &sigErr) || errors.Is(runErr, context.Canceled) {
		logger.Info("Shut down")
		return nil
	}
	return runErr
}

// applyFlags overlays explicitly set flags onto the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Model = model
	}
	if profileID != "" {
		cfg.ProfileID = profileID
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if recordPath != "" {
		cfg.RecordPath = recordPath
	}
	if profileDir != "" {
		cfg.ProfileDir = profileDir
	}
	if cmd.Flags().Changed("width") && width > 0 {
		cfg.Viewport.Width = width
	}
	if cmd.Flags().Changed("height") && height > 0 {
		cfg.Viewport.Height = height
	}
}
