// Notesd is the notes daemon: it serves the notes collection, settings and
// text enhancement over a local HTTP API.
//
// Configuration is loaded from ~/.config/notesd/config.yaml and environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (SQLite under ~/.local/share/notesd)
//	notesd
//
//	# Use a NATS JetStream bucket and another port
//	STORAGE_PROVIDER=nats SERVER_HTTP_PORT=9000 notesd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/fyrsmithlabs/notesd/internal/enhance"
	httpserver "github.com/fyrsmithlabs/notesd/internal/http"
	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/notes"
	"github.com/fyrsmithlabs/notesd/internal/settings"
	"github.com/fyrsmithlabs/notesd/internal/store"
	"github.com/fyrsmithlabs/notesd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/notesd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  notesd [--config path]   Start the notes daemon\n")
			fmt.Fprintf(os.Stderr, "  notesd version           Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("notesd: %v", err)
	}
}

func printVersion() {
	fmt.Printf("notesd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run loads configuration and serves until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return serve(ctx, cfg)
}

// serve wires every component and blocks until ctx is cancelled, then
// shuts down in reverse order:
//  1. HTTP server stops accepting requests
//  2. Notes session flushes its pending save
//  3. Store closes
//  4. Telemetry flushes and shuts down
func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	zl := logger.Underlying()
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting notesd",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.String("storage", cfg.Storage.Provider))

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version), zl)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			zl.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	st, err := store.New(ctx, cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			zl.Warn("store close failed", zap.Error(err))
		}
	}()

	session, err := initSession(ctx, cfg, st, zl)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		_ = session.Close(closeCtx)
	}()

	settingsSvc, err := settings.NewService(st, cfg.Enhance.APIKey, zl.Named("settings"))
	if err != nil {
		return fmt.Errorf("failed to create settings service: %w", err)
	}

	enhancer, err := enhance.NewClient(enhanceConfig(cfg), settingsSvc, zl.Named("enhance"))
	if err != nil {
		return fmt.Errorf("failed to create enhance client: %w", err)
	}

	srv, err := httpserver.NewServer(httpserver.Deps{
		Session:  session,
		Settings: settingsSvc,
		Enhancer: enhancer,
		Store:    st,
		Version:  version,
	}, zl.Named("http"), &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down notesd")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// initLogger builds the zap logger. With telemetry enabled, records are
// also bridged to the global OpenTelemetry log provider, which
// telemetry.New later points at the OTLP log exporter.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	lcfg, err := logging.FromAppConfig(cfg.Logging, cfg.Observability.ServiceName)
	if err != nil {
		return nil, err
	}
	if cfg.Observability.EnableTelemetry {
		lcfg.Output.OTEL = true
		return logging.NewLogger(lcfg, global.GetLoggerProvider())
	}
	return logging.NewLogger(lcfg, nil)
}

// initSession creates the notes session and loads the saved collection.
func initSession(ctx context.Context, cfg *config.Config, st store.Store, logger *zap.Logger) (*notes.Session, error) {
	repo, err := notes.NewRepository(st, logger.Named("notes"))
	if err != nil {
		return nil, fmt.Errorf("failed to create notes repository: %w", err)
	}
	session, err := notes.NewSession(&notes.Config{
		HistorySize:  cfg.Notes.HistorySize,
		SaveDebounce: cfg.Notes.SaveDebounce.Duration(),
		RecentLimit:  cfg.Notes.RecentLimit,
	}, repo, logger.Named("notes"))
	if err != nil {
		return nil, fmt.Errorf("failed to create notes session: %w", err)
	}
	if err := session.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	return session, nil
}

func enhanceConfig(cfg *config.Config) enhance.Config {
	return enhance.Config{
		BaseURL: cfg.Enhance.BaseURL,
		Model:   cfg.Enhance.Model,
		Timeout: cfg.Enhance.Timeout.Duration(),
		Retry: enhance.RetryConfig{
			MaxRetries:     cfg.Enhance.MaxRetries,
			InitialBackoff: cfg.Enhance.InitialBackoff.Duration(),
			MaxBackoff:     cfg.Enhance.MaxBackoff.Duration(),
		},
		RateLimit: cfg.Enhance.RateLimit,
		Burst:     cfg.Enhance.Burst,
	}
}
