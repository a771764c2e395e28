// STAC grid explorer entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
	"github.com/robert-malhotra/stac-grid-explorer/internal/command"
	"github.com/robert-malhotra/stac-grid-explorer/internal/config"
	"github.com/robert-malhotra/stac-grid-explorer/internal/grid"
	"github.com/robert-malhotra/stac-grid-explorer/internal/search"
	"github.com/robert-malhotra/stac-grid-explorer/internal/session"
	"github.com/robert-malhotra/stac-grid-explorer/internal/tui"
	"github.com/robert-malhotra/stac-grid-explorer/internal/viewport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The terminal owns stdout, so logs go to a file
	logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger := setupLogger(logFile, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting grid explorer",
		"search_url", cfg.Catalog.SearchURL,
		"page_size", cfg.Catalog.PageSize,
		"cell_size_deg", cfg.Grid.CellSizeDeg,
	)

	tiling, err := grid.NewTiling(cfg.Grid.CellSizeDeg)
	if err != nil {
		return fmt.Errorf("invalid grid: %w", err)
	}

	strategy, err := search.ParseStrategy(cfg.Grid.Strategy, cfg.Grid.BufferMeters)
	if err != nil {
		return fmt.Errorf("invalid grid strategy: %w", err)
	}

	convention, err := command.ParseConvention(cfg.Command.Convention)
	if err != nil {
		return fmt.Errorf("invalid command convention: %w", err)
	}

	sortby, err := catalog.ParseSortby(cfg.Catalog.Sort)
	if err != nil {
		return fmt.Errorf("invalid catalog sort: %w", err)
	}

	client := catalog.NewClient(cfg.Catalog.SearchURL, cfg.Catalog.Timeout).
		WithLogger(logger).
		WithRetries(cfg.Catalog.Retries).
		WithUserAgent(cfg.Catalog.UserAgent)

	coordinator := search.NewCoordinator(client).
		WithStrategy(strategy).
		WithPageSize(cfg.Catalog.PageSize).
		WithTimeout(cfg.Catalog.Timeout * time.Duration(cfg.Catalog.Retries+1)).
		WithLogger(logger)

	// A hash on the command line wins over VIEW_HASH
	hash := cfg.View.Hash
	if len(args) > 0 {
		hash = args[0]
	}
	hashes := viewport.NewMemoryHashStore(hash)

	bridge := &tui.Bridge{}
	ctrl, err := session.New(session.Options{
		Coordinator: coordinator,
		Tiling:      tiling,
		MinZoom:     cfg.Grid.MinZoom,
		Generator:   command.Generator{Profile: cfg.Command.Profile, Convention: convention},
		HashStore:   hashes,
		Default: viewport.Viewport{
			Zoom:      cfg.View.DefaultZoom,
			Latitude:  cfg.View.DefaultLat,
			Longitude: cfg.View.DefaultLon,
		},
		Sort:      sortby,
		Clipboard: systemClipboard{},
		Notifier:  bridge,
		Listener:  bridge.Listen,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	program := tea.NewProgram(tui.New(ctrl, tiling), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.SetProgram(program)
	defer bridge.Close()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal error: %w", err)
	}

	// Print the hash so the view can be reopened
	fmt.Println(hashes.Hash())
	logger.Info("explorer stopped", "hash", hashes.Hash())
	return nil
}

// systemClipboard writes to the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard not supported on this system")
	}
	return clipboard.WriteAll(text)
}

func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
