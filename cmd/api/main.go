// Package main implements the DefectScope API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/defectscope/defectscope/engine/analyze"
	"github.com/defectscope/defectscope/engine/cache"
	"github.com/defectscope/defectscope/engine/nhtsa"
	"github.com/defectscope/defectscope/pkg/metrics"
	"github.com/defectscope/defectscope/pkg/mid"
	"golang.org/x/time/rate"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	CacheDir    string
	CORSOrigin  string
	Enrich      bool
	MaxEnrich   int
	Workers     int
	RatePerSec  float64
	HTTPTimeout time.Duration
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		CacheDir:    envOr("CACHE_DIR", ".defectscope-cache"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
		Enrich:      envOr("ENRICH", "true") == "true",
		MaxEnrich:   envInt("ENRICH_MAX", 150),
		Workers:     envInt("ENRICH_WORKERS", 6),
		RatePerSec:  envFloat("NHTSA_RATE", 10),
		HTTPTimeout: time.Duration(envInt("HTTP_TIMEOUT_SECONDS", 20)) * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Open the on-disk response cache ---
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	// --- Build the NHTSA client ---
	reg := metrics.New()
	app := metrics.NewApp(reg)

	clientCfg := nhtsa.Config{Timeout: cfg.HTTPTimeout}
	if cfg.RatePerSec > 0 {
		clientCfg.RateLimit = rate.Limit(cfg.RatePerSec)
	}
	client := nhtsa.New(store, clientCfg, reg, logger)

	// --- Build the analyzer ---
	opts := analyze.DefaultOptions()
	opts.Enrich = cfg.Enrich
	opts.MaxEnrich = cfg.MaxEnrich
	opts.Workers = cfg.Workers
	analyzer := analyze.New(client, opts, logger)

	// --- Build HTTP server ---
	srvHandlers := &server{
		analyzer: analyzer,
		client:   client,
		store:    store,
		app:      app,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("POST /api/analyze", srvHandlers.handleAnalyze)
	mux.HandleFunc("POST /api/search", srvHandlers.handleSearch)
	mux.HandleFunc("GET /api/makes", srvHandlers.handleMakes)
	mux.HandleFunc("GET /api/models", srvHandlers.handleModels)
	mux.HandleFunc("DELETE /api/cache", srvHandlers.handleCacheClear)

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("defectscope-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "cacheDir", cfg.CacheDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
