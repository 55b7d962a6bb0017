package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/gcbaptista/go-geo-search/api"
	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/internal/engine"
	"github.com/gcbaptista/go-geo-search/internal/logging"
)

const version = "1.0.0"

func main() {
	var (
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
		port       = flag.Int("port", 8080, "Port to run the server on")
		dataDir    = flag.String("data-dir", "./search_data", "Directory to store index data")
		configPath = flag.String("config", "", "Optional config file (yaml, json or toml)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn or error")
	)

	flag.Parse()

	if *help {
		fmt.Printf("Go Geo Search - ranks documents by great-circle distance\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nEnvironment variables prefixed with %s_ (e.g. %s_PORT) override the config file.\n", config.EnvPrefix, config.EnvPrefix)
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                          # Start server on default port 8080\n", os.Args[0])
		fmt.Printf("  %s --port 9000              # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --config geosearch.yaml  # Load settings from a file\n", os.Args[0])
		return
	}

	if *showVer {
		fmt.Printf("Go Geo Search v%s\n", version)
		return
	}

	// A missing .env file is fine; variables may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly win over the config file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "data-dir":
			cfg.DataDir = *dataDir
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig, logger *slog.Logger) error {
	logger.Info("using data directory", "data_dir", cfg.DataDir)
	searchEngine := engine.NewEngine(cfg.DataDir, geospatial.NewRegistry(), logger)

	gin.SetMode(cfg.Mode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger),
		api.MetricsMiddleware(),
		api.CORSMiddleware(cfg.CORS.AllowOrigins),
		api.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)
	api.SetupRoutes(router, searchEngine, logger)
	if cfg.Metrics.Enabled {
		api.SetupMetricsRoute(router, cfg.Metrics.Path)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "indexes", len(searchEngine.ListIndexes()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, name := range searchEngine.ListIndexes() {
		if err := searchEngine.PersistIndexData(name); err != nil {
			logger.Error("failed to persist index on shutdown", "index", name, "error", err)
		}
	}
	logger.Info("server stopped")
	return nil
}
