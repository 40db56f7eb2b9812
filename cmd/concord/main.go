package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/Concord/internal/api"
	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/config"
	"github.com/MikeSquared-Agency/Concord/internal/hermes"
	"github.com/MikeSquared-Agency/Concord/internal/mcptools"
	"github.com/MikeSquared-Agency/Concord/internal/metrics"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	stdio := flag.Bool("stdio", false, "serve MCP tools over stdio instead of HTTP")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = newLogger(cfg.Logging, *stdio)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("store ready", "driver", cfg.Database.Driver)

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" && !*stdio {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	b := broker.New(db, hermesClient, m, cfg, logger)
	mcpServer := mcptools.NewServer(b)

	// Stdio mode runs only the tool surface; the broker loops stay off so a
	// desktop client does not auto-assign behind the user's back.
	if *stdio {
		logger.Info("serving MCP over stdio")
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error("stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	b.Start(ctx)
	defer b.Stop()
	logger.Info("broker started",
		"auto_assign", cfg.Assignment.AutoAssignEnabled,
		"tick_interval", cfg.TickInterval(),
		"strategy", cfg.Matching.DefaultStrategy,
	)

	// Subscribe to NATS task requests and progress reports
	b.SetupSubscriptions()

	var mount *api.MCPMount
	if cfg.MCP.Enabled {
		mount = &api.MCPMount{Path: cfg.MCP.Path, Handler: mcptools.NewHTTPHandler(mcpServer)}
		logger.Info("MCP endpoint enabled", "path", cfg.MCP.Path)
	}

	// API server
	router := api.NewRouter(b, m, mount, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, nil
	case config.DriverSQLite:
		return store.NewSQLiteStore(cfg.SQLitePath)
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// newLogger builds the process logger. Logs go to stderr so stdio mode keeps
// stdout for the MCP protocol.
func newLogger(cfg config.LoggingConfig, stdio bool) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" && !stdio {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
