package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iconidentify/videosorter/internal/api"
	"github.com/iconidentify/videosorter/internal/api/handler"
	"github.com/iconidentify/videosorter/internal/config"
	"github.com/iconidentify/videosorter/internal/console"
	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/repository"
	"github.com/iconidentify/videosorter/internal/service"
	"github.com/iconidentify/videosorter/internal/session"
	"github.com/iconidentify/videosorter/pkg/drives"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	useConsole := flag.Bool("console", false, "Show the terminal dashboard")
	flag.Parse()

	if *showVersion {
		fmt.Printf("videosorter %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg.Log, *useConsole)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting videosorter",
		"version", Version,
		"build_time", BuildTime,
		"data_dir", cfg.Storage.DataDir,
	)

	if err := ensureLayout(cfg.Storage); err != nil {
		logger.Error("failed to create data directories", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	store := repository.NewMetadataStore(cfg.Storage.MetadataPath(), cfg.Storage.SaveDelay, logger)
	events := service.NewEventService(service.DefaultEventServiceConfig(), logger)

	gate := session.NewGate()
	if _, err := gate.Generate(); err != nil {
		logger.Error("failed to create session token", "error", err)
		os.Exit(1)
	}

	lister := drives.NewSystemLister(drives.Options{
		MediaRoots: cfg.Drives.MediaRoots,
		Logger:     logger,
	})
	monitor := drives.NewMonitor(lister, cfg.Drives.PollInterval, logger)
	monitor.OnChange(func(list []drives.Drive) {
		events.Publish(domain.EventDrivesChanged, domain.EventSeverityInfo,
			fmt.Sprintf("%d drive(s) detected", len(list)), map[string][]drives.Drive{"drives": list})
	})
	if cfg.Drives.Watch {
		roots := cfg.Drives.MediaRoots
		if len(roots) == 0 {
			roots = drives.DefaultMediaRoots
		}
		monitor.WatchRoots(roots...)
	}

	// Initialize services
	videoSvc := service.NewVideoService(store, events, logger)
	exporter := service.NewExporter(drives.OSSpace{}, logger)
	exportSvc := service.NewExportService(exporter, store, monitor, events, logger)

	server := api.NewServer(cfg.Server, logger)

	// Initialize handlers
	uploadHandler := handler.NewUploadHandler(handler.UploadConfig{
		Dir:         cfg.Storage.UploadDir(),
		MaxFileSize: cfg.Storage.MaxFileSize,
		MaxFiles:    cfg.Storage.MaxFiles,
	}, func(f domain.UploadedFile) error {
		_, err := videoSvc.HandleUpload(f)
		return err
	}, logger)

	router := api.NewRouter(api.Handlers{
		UI:     handler.NewUIHandler(),
		Upload: uploadHandler,
		Health: handler.NewHealthHandler(server),
		Server: handler.NewServerHandler(server, gate, cfg.QR.QRImageURL),
		Video:  handler.NewVideoHandler(videoSvc, logger),
		Drive:  handler.NewDriveHandler(monitor),
		Export: handler.NewExportHandler(exportSvc, logger),
		Event:  handler.NewEventHandler(events, logger),
	}, gate)
	server.SetHandler(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start drive detection
	if err := monitor.Start(ctx); err != nil {
		logger.Error("failed to start drive monitor", "error", err)
		os.Exit(1)
	}

	// Start upload server
	addr, err := server.Start()
	if err != nil {
		logger.Error("failed to start upload server", "error", err)
		os.Exit(1)
	}
	link := gate.UploadURL(addr.IP, addr.Port)
	events.Publish(domain.EventServerStarted, domain.EventSeveritySuccess,
		fmt.Sprintf("Upload server listening on %s:%d", addr.IP, addr.Port), addr)

	if *useConsole {
		app := console.New(console.Deps{
			Server:  server,
			Gate:    gate,
			QRImage: cfg.QR.QRImageURL,
			Videos:  videoSvc,
			Exports: exportSvc,
			Drives:  monitor,
			Events:  events,
			Logger:  logger,
		})
		if err := app.Run(ctx); err != nil {
			logger.Error("console error", "error", err)
		}
	} else {
		fmt.Printf("\nOpen this link on your phone to upload videos:\n\n  %s\n\nQR code: %s\n\n",
			link, cfg.QR.QRImageURL(link))
		<-ctx.Done()
	}

	logger.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	monitor.Stop()

	if exporter.Running() {
		logger.Info("aborting running export")
		exportSvc.Abort()
	}
	if err := exportSvc.Wait(30 * time.Second); err != nil {
		logger.Error("export shutdown error", "error", err)
	}

	if err := store.Close(); err != nil {
		logger.Error("failed to flush metadata", "error", err)
	}

	logger.Info("shutdown complete")
}

// newLogger builds the process logger. Text output is used on a terminal
// and JSON otherwise. With the console active, stdout belongs to the
// dashboard and records go only to the rotating file.
func newLogger(cfg config.LogConfig, consoleActive bool) (*slog.Logger, func()) {
	var writers []io.Writer
	closeFn := func() {}

	if !consoleActive {
		writers = append(writers, os.Stdout)
	}
	if cfg.ToFile && cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "log directory unavailable, file logging disabled: %v\n", err)
		} else {
			lj := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
			writers = append(writers, lj)
			closeFn = func() { lj.Close() }
		}
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if !consoleActive && term.IsTerminal(int(os.Stdout.Fd())) {
		return slog.New(slog.NewTextHandler(out, opts)), closeFn
	}
	return slog.New(slog.NewJSONHandler(out, opts)), closeFn
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureLayout creates the upload folder, one processed folder per
// category, and the log folder.
func ensureLayout(cfg config.StorageConfig) error {
	dirs := []string{
		cfg.DataDir,
		cfg.UploadDir(),
		filepath.Join(cfg.DataDir, "logs"),
	}
	for _, c := range domain.Categories() {
		dirs = append(dirs, filepath.Join(cfg.ProcessedDir(), string(c)))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
