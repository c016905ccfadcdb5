package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/loqalabs/loqa-interview/internal/config"
	"github.com/loqalabs/loqa-interview/internal/interview"
	"github.com/loqalabs/loqa-interview/internal/runtime"
	"github.com/loqalabs/loqa-interview/internal/ui"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		showVersion bool
		headless    bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (defaults and LOQA_* env when empty)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&headless, "headless", false, "Answer every question with the configured recognizer and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if headless {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Telemetry.LogLevel)}))
		if err := runHeadless(ctx, cfg, logger); err != nil {
			logger.Error("headless run failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	logOut, closeLog, err := openLogFile(cfg.Telemetry.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: parseLevel(cfg.Telemetry.LogLevel)}))
	if err := runInteractive(ctx, cfg, logger); err != nil {
		logger.Error("interview exited with error", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInteractive(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt := runtime.New(cfg, logger)
	if err := rt.Setup(ctx); err != nil {
		return err
	}
	snapshots, unsubscribe := rt.Driver().Subscribe()
	defer unsubscribe()

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(ctx) }()

	model := ui.NewModel(ctx, snapshots, rt.Driver(), rt.Camera(), ui.Options{
		NoColor: cfg.UI.NoColor,
		Width:   cfg.UI.Width,
	})
	_, uiErr := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(uiErr, tea.ErrProgramKilled) {
		uiErr = nil
	}

	cancel()
	if err := <-runErr; err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return uiErr
}

func runHeadless(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt := runtime.New(cfg, logger)
	if err := rt.Setup(ctx); err != nil {
		return err
	}
	pilot := rt.EnableAutopilot()

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(ctx) }()

	select {
	case <-pilot.Done():
	case <-ctx.Done():
		logger.Warn("interrupted before the session completed")
	case err := <-runErr:
		return err
	}

	var snap interview.Snapshot
	callCtx, cancelCall := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCall()
	if err := rt.Driver().Call(callCtx, func(s *interview.Session) error {
		snap = s.Snapshot()
		return nil
	}); err != nil {
		snap = rt.Driver().Snapshot()
	}
	if snap.Complete {
		logger.Info("interview complete",
			slog.String("session_id", snap.SessionID),
			slog.Float64("final_score", snap.FinalScore),
			slog.String("tier", snap.Tier.String()),
			slog.String("feedback", snap.Feedback))
	}

	cancel()
	if err := <-runErr; err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func openLogFile(path string) (io.Writer, func(), error) {
	if strings.TrimSpace(path) == "" {
		return io.Discard, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
