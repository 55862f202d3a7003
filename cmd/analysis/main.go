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

	"github.com/logtrail/logtrail/internal/analysissvc"
	"github.com/logtrail/logtrail/internal/anomaly"
	"github.com/logtrail/logtrail/internal/cache"
	"github.com/logtrail/logtrail/internal/config"
	"github.com/logtrail/logtrail/internal/conversation"
	"github.com/logtrail/logtrail/internal/llm"
	"github.com/logtrail/logtrail/internal/logger"
	"github.com/logtrail/logtrail/internal/monitoring"
	"github.com/logtrail/logtrail/internal/store"
	"github.com/logtrail/logtrail/internal/stream"
	"github.com/logtrail/logtrail/internal/supervisor"
	"github.com/logtrail/logtrail/internal/workflow"
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

	log := newLogger(cfg)
	log.Info("starting log analysis engine", "version", Version, "commit", Commit, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	metrics := monitoring.New(cfg.Monitoring.PrometheusEnabled)

	llmClient, err := llm.New(cfg.LLM)
	if err != nil {
		log.Error("failed to build llm client", "error", err)
		os.Exit(1)
	}

	resultCache, err := cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL)
	if err != nil {
		log.Error("failed to build result cache", "error", err)
		os.Exit(1)
	}
	resultCache.WithMetrics(metrics)

	convStore := conversation.NewStore()
	schemaRepo := store.NewSchemaRepository(pool)
	queryRepo := store.NewQueryRepository(pool)
	logRepo := store.NewLogRepository(pool)

	graph := workflow.NewGraph(&workflow.Deps{
		LLM:               llmClient,
		ConversationStore: convStore,
		SchemaRepo:        schemaRepo,
		QueryRepo:         queryRepo,
		LogRepo:           logRepo,
	})

	hub := stream.NewHub(log)

	detector := anomaly.New(queryRepo, hub, anomaly.Thresholds{
		ErrorRateSpike:      cfg.Anomaly.ErrorSpikeRatio,
		SlowAPIThresholdMS:  cfg.Anomaly.SlowAPIMS,
		ServiceDownInterval: 5 * time.Minute,
	}, cfg.Anomaly.HistorySize).WithMetrics(metrics)

	go func() {
		err := supervisor.Run(ctx, "anomaly-detector", supervisor.Config{Logger: log}, func(ctx context.Context) error {
			return detector.Loop(ctx, cfg.Anomaly.CheckInterval)
		})
		if err != nil {
			log.Error("anomaly detector stopped permanently", "error", err)
		}
	}()

	handler := analysissvc.New(analysissvc.Config{
		StreamDeps: &stream.Deps{
			Graph:             graph,
			Cache:             resultCache,
			ConversationStore: convStore,
		},
		LLMClient:            llmClient,
		LogRepo:              logRepo,
		Detector:             detector,
		Hub:                  hub,
		CORSOrigins:          cfg.Server.CORSOrigins,
		Logger:               log,
		Metrics:              metrics,
		MaxConcurrentQueries: 8,
	})
	defer handler.Close()

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
		WriteTimeout: 10 * time.Minute, // long-poll-friendly for /ws/query
		IdleTimeout:  20 * time.Minute,
	}

	go func() {
		log.Info("analysis engine listening", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("analysis server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down analysis engine")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("analysis server forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("analysis engine shutdown complete")
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Server.LoggingFormat == "json" {
		return logger.NewJSON(cfg.Server.LoggingLevel)
	}
	return logger.New(cfg.Server.LoggingLevel)
}
