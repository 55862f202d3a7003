// Package analysissvc implements the analysis engine's HTTP and
// WebSocket surface: synchronous and streaming Text-to-SQL query
// execution, conversation summarization, service/stat listings, alert
// history, and cache invalidation.
package analysissvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/logtrail/logtrail/internal/anomaly"
	"github.com/logtrail/logtrail/internal/llm"
	"github.com/logtrail/logtrail/internal/model"
	"github.com/logtrail/logtrail/internal/monitoring"
	"github.com/logtrail/logtrail/internal/security"
	"github.com/logtrail/logtrail/internal/store"
	"github.com/logtrail/logtrail/internal/stream"
	"github.com/logtrail/logtrail/internal/worker"
)

// Handler serves the analysis engine's routes.
type Handler struct {
	streamDeps  *stream.Deps
	llmClient   llm.Client
	logRepo     *store.LogRepository
	detector    *anomaly.Detector
	hub         *stream.Hub
	upgrader    websocket.Upgrader
	logger      *slog.Logger
	corsOrigins []string
	metrics     *monitoring.Metrics
	jobQueue    chan worker.Job
	workerWG    *sync.WaitGroup
}

// Config bounds a Handler's behavior and wires its collaborators.
type Config struct {
	StreamDeps  *stream.Deps
	LLMClient   llm.Client
	LogRepo     *store.LogRepository
	Detector    *anomaly.Detector
	Hub         *stream.Hub
	CORSOrigins []string
	Logger      *slog.Logger
	Metrics     *monitoring.Metrics
	// MaxConcurrentQueries bounds the number of /query workflow runs
	// executing at once; /ws/query streams run outside this bound. 0 disables
	// the bound (queries run inline, unbounded) — used by tests that
	// don't care about backpressure.
	MaxConcurrentQueries int
}

func New(cfg Config) *Handler {
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = monitoring.New(false)
	}

	h := &Handler{
		streamDeps: cfg.StreamDeps,
		llmClient:  cfg.LLMClient,
		logRepo:    cfg.LogRepo,
		detector:   cfg.Detector,
		hub:        cfg.Hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:      cfg.Logger,
		corsOrigins: cfg.CORSOrigins,
		metrics:     cfg.Metrics,
	}

	if cfg.MaxConcurrentQueries > 0 {
		jobQueue := make(chan worker.Job, cfg.MaxConcurrentQueries)
		h.jobQueue = jobQueue
		h.workerWG = worker.SpawnWorkerPool(context.Background(), cfg.MaxConcurrentQueries, jobQueue, cfg.Logger)
	}

	return h
}

// Router builds the chi router exposing the analysis engine's endpoints.
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
	r.Post("/query", h.handleQuery)
	r.Post("/summarize", h.handleSummarize)
	r.Get("/services", h.handleServices)
	r.Get("/stats", h.handleStats)
	r.Post("/invalidate_cache", h.handleInvalidateCache)
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/history", h.handleAlertHistory)
		r.Post("/check", h.handleAlertCheck)
	})
	r.Get("/ws/query", h.handleWebSocket)
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

// Close stops the bounded query worker pool, if one was started, and
// waits for in-flight jobs to finish draining.
func (h *Handler) Close() {
	if h.jobQueue == nil {
		return
	}
	close(h.jobQueue)
	h.workerWG.Wait()
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "log-analysis-server"})
}

// queryRequest mirrors QueryRequest.
type queryRequest struct {
	Question   string `json:"question"`
	MaxResults int    `json:"max_results"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 100
	}

	ev := h.runQuery(r.Context(), stream.Request{
		Question:       req.Question,
		MaxResults:     req.MaxResults,
		ConversationID: "default",
	})

	if ev.Type == "error" {
		writeError(w, http.StatusBadRequest, dataString(ev.Data, "error"))
		return
	}

	writeJSON(w, http.StatusOK, ev.Data)
}

// conversationMessage/summarizeRequest mirror
// ConversationMessage/SummarizeRequest.
type conversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	SQL     string `json:"sql,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Insight string `json:"insight,omitempty"`
}

type summarizeRequest struct {
	Messages []conversationMessage `json:"messages"`
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.llmClient.Complete(r.Context(), buildSummarizePrompt(req.Messages))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "요약 실패: "+security.SanitizeErrorMessage(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.logRepo.GetServices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, security.SanitizeErrorMessage(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logRepo.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, security.SanitizeErrorMessage(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.streamDeps.Cache.InvalidateAll()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "cache_invalidated",
		"message": "모든 캐시가 무효화되었습니다",
	})
}

func (h *Handler) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": h.detector.History(limit)})
}

func (h *Handler) handleAlertCheck(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.detector.CheckAnomalies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, security.SanitizeErrorMessage(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// wsClientMessage mirrors the client→server {"action": ...} shape.
type wsClientMessage struct {
	Action              string          `json:"action"`
	Question            string          `json:"question"`
	MaxResults          int             `json:"max_results"`
	ConversationID      string          `json:"conversation_id"`
	TimeRangeStructured json.RawMessage `json:"time_range_structured"`
}

// handleWebSocket upgrades the connection and serves the bidirectional
// query protocol: one in-flight query at a time, a new "query" action
// cancelling whatever is currently running, matching
// websocket_query/stream_query's cancel-and-replace behavior.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.hub.Register(conn)
	h.metrics.SetWebSocketConnections(h.hub.Len())
	defer func() {
		h.hub.Unregister(conn)
		h.metrics.SetWebSocketConnections(h.hub.Len())
	}()

	var cancel context.CancelFunc
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Action {
		case "query":
			if cancel != nil {
				cancel()
			}
			if msg.MaxResults <= 0 {
				msg.MaxResults = 100
			}
			if msg.ConversationID == "" {
				msg.ConversationID = "default"
			}

			req := stream.Request{
				Question:       msg.Question,
				MaxResults:     msg.MaxResults,
				ConversationID: msg.ConversationID,
			}
			if tr, ok := decodeTimeRange(msg.TimeRangeStructured); ok {
				req.TimeRangeStructured = tr
				req.TimeRangeStructuredSet = true
			}

			var ctx context.Context
			ctx, cancel = context.WithCancel(r.Context())
			go h.runStream(ctx, conn, req)

		case "cancel":
			if cancel != nil {
				cancel()
			}
		}
	}
}

func (h *Handler) runStream(ctx context.Context, conn *websocket.Conn, req stream.Request) {
	for ev := range stream.Stream(ctx, h.streamDeps, req) {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func decodeTimeRange(raw json.RawMessage) (model.TimeRange, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return model.TimeRange{}, false
	}
	var tr model.TimeRange
	if err := json.Unmarshal(raw, &tr); err != nil {
		return model.TimeRange{}, false
	}
	return tr, true
}

func buildSummarizePrompt(messages []conversationMessage) string {
	var b []byte
	for i, msg := range messages {
		switch msg.Role {
		case "user":
			b = append(b, []byte(strconv.Itoa(i+1)+". Q: "+msg.Content+"\n")...)
		case "ai":
			resultInfo := "N/A"
			if msg.Count != nil {
				resultInfo = strconv.Itoa(*msg.Count) + "건"
			}
			b = append(b, []byte("   A: "+resultInfo+"\n")...)
			if msg.Insight != "" {
				insight := msg.Insight
				if len(insight) > 100 {
					insight = insight[:100]
				}
				b = append(b, []byte("   인사이트: "+insight+"...\n")...)
			}
		}
	}

	return "다음 대화 내용을 핵심만 간결하게 요약하세요.\n\n" +
		"# 대화 내용\n" + string(b) + "\n" +
		"# 요약 지침\n" +
		"- 주요 질문과 결과를 중심으로 요약\n" +
		"- 1-3문장으로 간결하게\n" +
		"- 서비스명, 에러 유형, 시간 범위 등 핵심 정보 포함\n" +
		"- \"사용자가 ~를 조회하여 ~건의 결과를 확인했습니다\" 형식\n\n" +
		"요약:"
}

func dataString(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
