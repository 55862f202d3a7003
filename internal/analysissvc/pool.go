package analysissvc

import (
	"context"

	"github.com/logtrail/logtrail/internal/stream"
	"github.com/logtrail/logtrail/internal/worker"
)

// queryJob bounds one /query Text-to-SQL workflow run to the handler's
// worker pool, adapting worker.Job/worker.Result to stream's request/event
// shape. /ws/query streams do not go through this pool.
type queryJob struct {
	ctx    context.Context
	deps   *stream.Deps
	req    stream.Request
	result chan queryResult
}

type queryResult struct {
	event stream.Event
}

func (r queryResult) Error() error { return nil }

// Execute runs on the job's own caller-supplied context rather than the
// pool worker's context, so a client disconnecting or timing out still
// cancels its own query even though the worker goroutine is shared.
func (j queryJob) Execute(_ context.Context) worker.Result {
	ev := stream.Execute(j.ctx, j.deps, j.req)
	r := queryResult{event: ev}
	j.result <- r
	return r
}

// runQuery submits req to the bounded worker pool and waits for its
// result, falling back to running inline if the pool was never started
// (jobQueue is nil, e.g. in tests that build a Handler directly).
func (h *Handler) runQuery(ctx context.Context, req stream.Request) stream.Event {
	if h.jobQueue == nil {
		return stream.Execute(ctx, h.streamDeps, req)
	}

	result := make(chan queryResult, 1)
	job := queryJob{ctx: ctx, deps: h.streamDeps, req: req, result: result}

	select {
	case h.jobQueue <- job:
	case <-ctx.Done():
		return stream.Event{Type: "error", Data: map[string]any{"error": ctx.Err().Error()}}
	}

	select {
	case r := <-result:
		return r.event
	case <-ctx.Done():
		return stream.Event{Type: "error", Data: map[string]any{"error": ctx.Err().Error()}}
	}
}
