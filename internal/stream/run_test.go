package stream

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logtrail/logtrail/internal/cache"
	"github.com/logtrail/logtrail/internal/conversation"
	"github.com/logtrail/logtrail/internal/store"
	"github.com/logtrail/logtrail/internal/workflow"
)

type fakeLLM struct {
	responses []string
	calls     int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if f.calls >= len(f.responses) {
		return "", nil
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func newHappyPathGraph(t *testing.T) *workflow.Graph {
	t.Helper()

	schemaMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { schemaMock.Close() })
	schemaMock.ExpectQuery("information_schema.columns").
		WillReturnRows(pgxmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("id", "bigint", "NO", nil))
	schemaMock.ExpectQuery("UNION ALL").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "level", "log_type", "service", "error_type", "message", "duration_ms", "path"}))

	queryMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { queryMock.Close() })
	queryMock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"id", "service"}).AddRow(int64(1), "payment-api"))

	logMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { logMock.Close() })

	client := &fakeLLM{responses: []string{
		"최근 에러 보여줘",
		`{"service": null, "time_range": {"type": null}, "confidence": 0.9}`,
		`{"has_service":false,"service_type":"none","mentioned_services":[],"is_aggregation":false,"is_filter_query":true,"has_time":true,"time_clarity":"clear","needs_service_clarification":false,"needs_time_clarification":false,"reasoning":"ok"}`,
		"```sql\nSELECT * FROM logs WHERE deleted = FALSE ORDER BY created_at DESC LIMIT 10;\n```",
		"요약: 정상입니다.",
	}}

	return workflow.NewGraph(&workflow.Deps{
		LLM:               client,
		ConversationStore: conversation.NewStore(),
		SchemaRepo:        store.NewSchemaRepository(schemaMock),
		QueryRepo:         store.NewQueryRepository(queryMock),
		LogRepo:           store.NewLogRepository(logMock),
		Now:               func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func TestStreamHappyPathEmitsNodeEventsThenComplete(t *testing.T) {
	graph := newHappyPathGraph(t)
	c, err := cache.New(10, time.Minute)
	require.NoError(t, err)

	deps := &Deps{Graph: graph, Cache: c, ConversationStore: conversation.NewStore()}
	events := drain(Stream(context.Background(), deps, Request{Question: "최근 에러 보여줘", MaxResults: 50, ConversationID: "s1"}))

	require.NotEmpty(t, events)
	assert.Equal(t, "node_start", events[0].Type)
	assert.Equal(t, "resolve_context", events[0].Node)

	final := events[len(events)-1]
	assert.Equal(t, "complete", final.Type)
	assert.NotEmpty(t, final.Data["sql"])
	assert.Equal(t, "요약: 정상입니다.", final.Data["insight"])
}

func TestStreamCachesSuccessfulCompletion(t *testing.T) {
	graph := newHappyPathGraph(t)
	c, err := cache.New(10, time.Minute)
	require.NoError(t, err)

	deps := &Deps{Graph: graph, Cache: c, ConversationStore: conversation.NewStore()}
	req := Request{Question: "최근 에러 보여줘", MaxResults: 50, ConversationID: "s1"}
	drain(Stream(context.Background(), deps, req))

	key := cache.Key(req.Question, req.MaxResults)
	_, ok := c.Get(key)
	assert.True(t, ok)
}

func TestStreamCacheHitShortCircuits(t *testing.T) {
	c, err := cache.New(10, time.Minute)
	require.NoError(t, err)
	key := cache.Key("에러 보여줘", 50)
	c.Set(key, map[string]any{"type": "complete", "sql": "SELECT 1", "insight": "cached"})

	deps := &Deps{
		Graph:             workflow.NewGraph(&workflow.Deps{LLM: &fakeLLM{}, ConversationStore: conversation.NewStore()}),
		Cache:             c,
		ConversationStore: conversation.NewStore(),
	}
	events := drain(Stream(context.Background(), deps, Request{Question: "에러 보여줘", MaxResults: 50}))

	require.Len(t, events, 2)
	assert.Equal(t, "cache_hit", events[0].Type)
	assert.Equal(t, "complete", events[1].Type)
	assert.Equal(t, true, events[1].Data["cache_hit"])
}

func TestStreamCancelledBetweenNodesEmitsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := cache.New(10, time.Minute)
	require.NoError(t, err)
	deps := &Deps{
		Graph:             workflow.NewGraph(&workflow.Deps{LLM: &fakeLLM{}, ConversationStore: conversation.NewStore()}),
		Cache:             c,
		ConversationStore: conversation.NewStore(),
	}

	events := drain(Stream(ctx, deps, Request{Question: "x", MaxResults: 10}))
	require.Len(t, events, 1)
	assert.Equal(t, "cancelled", events[0].Type)
}

func TestExecuteReturnsOnlyFinalEvent(t *testing.T) {
	graph := newHappyPathGraph(t)
	c, err := cache.New(10, time.Minute)
	require.NoError(t, err)

	deps := &Deps{Graph: graph, Cache: c, ConversationStore: conversation.NewStore()}
	final := Execute(context.Background(), deps, Request{Question: "최근 에러 보여줘", MaxResults: 50})
	assert.Equal(t, "complete", final.Type)
}
