// Package collectorsvc implements the log-ingestion HTTP service: a
// single batch endpoint that decompresses, validates, coerces, and
// bulk-inserts incoming log records, plus a summary stats endpoint.
package collectorsvc

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/logtrail/logtrail/internal/model"
	"github.com/logtrail/logtrail/internal/monitoring"
	"github.com/logtrail/logtrail/internal/security"
	"github.com/logtrail/logtrail/internal/store"
)

// Handler serves the collector's routes. Querier is narrow enough to be
// satisfied by a pgxpool.Pool or a pgxmock pool in tests.
type Handler struct {
	db          store.Querier
	logRepo     *store.LogRepository
	validate    *validator.Validate
	maxBatch    int
	logger      *slog.Logger
	corsOrigins []string
	now         func() time.Time
	metrics     *monitoring.Metrics
	analysisURL string
	httpClient  *http.Client
}

// Config bounds a Handler's behavior.
type Config struct {
	MaxBatchRows int
	CORSOrigins  []string
	Logger       *slog.Logger
	Now          func() time.Time
	Metrics      *monitoring.Metrics
	// AnalysisServiceURL, if set, gets a best-effort POST /invalidate_cache
	// after every successfully inserted batch.
	AnalysisServiceURL string
	HTTPClient         *http.Client
}

func New(db store.Querier, cfg Config) *Handler {
	if cfg.MaxBatchRows <= 0 {
		cfg.MaxBatchRows = 10000
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = monitoring.New(false)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Handler{
		db:          db,
		logRepo:     store.NewLogRepository(db),
		validate:    validator.New(),
		maxBatch:    cfg.MaxBatchRows,
		logger:      cfg.Logger,
		corsOrigins: cfg.CORSOrigins,
		now:         cfg.Now,
		metrics:     cfg.Metrics,
		analysisURL: cfg.AnalysisServiceURL,
		httpClient:  cfg.HTTPClient,
	}
}

// Router builds the chi router exposing the collector's endpoints.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(h.metricsMiddleware)

	r.Get("/", h.handleRoot)
	r.Post("/logs", h.handleLogs)
	r.Get("/stats", h.handleStats)
	return r
}

// metricsMiddleware records request count and latency per route pattern.
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		h.metrics.RecordHTTPRequest(route, ww.Status(), time.Since(start))
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "log-server"})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to decompress gzip: "+err.Error())
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	logsRaw, ok := raw["logs"]
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing 'logs' field")
		return
	}

	var batch model.IngestBatch
	if err := json.Unmarshal(logsRaw, &batch.Logs); err != nil {
		writeError(w, http.StatusBadRequest, "'logs' must be an array")
		return
	}

	if len(batch.Logs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "count": 0})
		return
	}

	if len(batch.Logs) > h.maxBatch {
		writeError(w, http.StatusBadRequest, "'logs' exceeds maximum batch size")
		return
	}

	records := make([]model.LogRecord, 0, len(batch.Logs))
	for i, entry := range batch.Logs {
		if err := h.validate.Struct(entry); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid log entry at index "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		records = append(records, entry.Coerce(h.now()))
	}

	start := time.Now()
	count, err := store.InsertLogs(r.Context(), h.db, records)
	if err != nil {
		h.metrics.RecordIngestBatch("error", 0, time.Since(start))
		h.logger.Error("failed to insert log batch", "error", err)
		writeError(w, http.StatusInternalServerError, security.SanitizeErrorMessage(err.Error()))
		return
	}

	h.metrics.RecordIngestBatch("ok", int(count), time.Since(start))
	for _, rec := range records {
		h.metrics.RecordIngestRecord(rec.Service, string(rec.Level))
	}

	go h.invalidateAnalysisCache()

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "count": count})
}

// invalidateAnalysisCache best-effort notifies the analysis engine that
// fresh rows landed, matching spec's collector-invalidates-after-insert
// policy. Runs detached from the request so a slow or unreachable
// analysis service never adds latency to the ingest path.
func (h *Handler) invalidateAnalysisCache() {
	if h.analysisURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.analysisURL+"/invalidate_cache", nil)
	if err != nil {
		h.logger.Warn("failed to build cache invalidation request", "error", err)
		return
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn("failed to invalidate analysis cache", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("analysis cache invalidation returned non-200", "status", resp.StatusCode)
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logRepo.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to load stats", "error", err)
		writeError(w, http.StatusInternalServerError, security.SanitizeErrorMessage(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// readBody returns the request body, decompressing it first if
// Content-Encoding: gzip is set.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if r.Header.Get("Content-Encoding") != "gzip" {
		return body, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
