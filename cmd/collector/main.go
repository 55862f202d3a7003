package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/logtrail/logtrail/internal/collectorsvc"
	"github.com/logtrail/logtrail/internal/config"
	"github.com/logtrail/logtrail/internal/logger"
	"github.com/logtrail/logtrail/internal/monitoring"
	"github.com/logtrail/logtrail/internal/store"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	addr := flag.String("addr", "", "Override server.port as \":PORT\"")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	var log = newLogger(cfg)
	log.Info("starting log collector", "version", Version, "commit", Commit, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, pool); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("database migrations applied")
	}

	metrics := monitoring.New(cfg.Monitoring.PrometheusEnabled)

	handler := collectorsvc.New(pool, collectorsvc.Config{
		MaxBatchRows:       cfg.Ingest.MaxBatchRows,
		CORSOrigins:        cfg.Server.CORSOrigins,
		Logger:             log,
		Metrics:            metrics,
		AnalysisServiceURL: cfg.Ingest.AnalysisServiceURL,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler.Router())
	if cfg.Monitoring.PrometheusEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		log.Info("prometheus metrics enabled", "path", "/metrics")
	}

	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.Info("collector listening", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("collector server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down collector")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("collector forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("collector shutdown complete")
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Server.LoggingFormat == "json" {
		return logger.NewJSON(cfg.Server.LoggingLevel)
	}
	return logger.New(cfg.Server.LoggingLevel)
}
