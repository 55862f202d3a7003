package stream

import (
	"context"
	"time"

	"github.com/logtrail/logtrail/internal/cache"
	"github.com/logtrail/logtrail/internal/conversation"
	"github.com/logtrail/logtrail/internal/model"
	"github.com/logtrail/logtrail/internal/workflow"
)

// Deps wires a run to its graph, cache, and conversation store. Now
// defaults to time.Now when nil, matching workflow.Deps's own hook.
type Deps struct {
	Graph             *workflow.Graph
	Cache             *cache.Cache
	ConversationStore *conversation.Store
	Now               func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Request is one query's parameters, independent of transport.
type Request struct {
	Question               string
	MaxResults             int
	ConversationID         string
	TimeRangeStructured    model.TimeRange
	TimeRangeStructuredSet bool
}

// Stream runs a query through the graph and returns a channel of events:
// a cache_hit short-circuit, node_start/node_end pairs (node_end carrying
// whatever data the node's own last event produced) as the graph
// advances, and a final complete/error event. The channel is closed once
// the final event has been sent. Cancelling ctx stops the graph at its
// next stage boundary; Stream then sends a final cancelled event, which
// always lands when the channel's one-slot buffer is empty, and closes
// the channel. Other events sent after ctx is done may be dropped.
func Stream(ctx context.Context, deps *Deps, req Request) <-chan Event {
	out := make(chan Event, 1)

	go func() {
		defer close(out)

		send := func(e Event) {
			select {
			case out <- e:
			case <-ctx.Done():
			}
		}

		key := cache.Key(req.Question, req.MaxResults)
		if cached, ok := deps.Cache.Get(key); ok {
			send(Event{Type: "cache_hit", Message: "결과를 캐시에서 가져왔습니다", Data: map[string]any{"cache_key": key}})
			send(resultMapEvent(cached, true))
			return
		}

		state := &workflow.AgentState{
			Question:         req.Question,
			MaxResults:       req.MaxResults,
			ConversationID:   req.ConversationID,
			ResolvedQuestion: req.Question,
			CacheKey:         key,
		}
		if req.TimeRangeStructuredSet {
			state.TimeRangeStructured = req.TimeRangeStructured
			state.TimeRangeStructuredSet = true
		}

		forwarded := 0
		outcome := deps.Graph.Run(ctx, state, workflow.Hooks{
			OnNodeStart: func(node string) {
				send(Event{Type: "node_start", Node: node, Message: node + " 시작"})
			},
			OnNodeEnd: func(node string, s *workflow.AgentState) {
				var lastData map[string]any
				for _, ev := range s.Events[forwarded:] {
					send(transformEvent(ev))
					if ev.Data != nil {
						lastData = ev.Data
					}
				}
				forwarded = len(s.Events)
				send(Event{Type: "node_end", Node: node, Message: node + " 완료", Data: lastData})
			},
		})

		if outcome == workflow.OutcomeCancelled {
			// ctx is already done here, so send alone would race against
			// ctx.Done; the one-slot buffer takes the event when it is free.
			cancelled := Event{Type: "cancelled", Message: "Query cancelled"}
			select {
			case out <- cancelled:
			default:
				send(cancelled)
			}
			return
		}

		result := FormatFinalResult(state)

		if result.Type == "complete" {
			deps.ConversationStore.AddTurn(req.ConversationID, model.ConversationTurn{
				Question:         req.Question,
				ResolvedQuestion: state.ResolvedQuestion,
				SQL:              state.GeneratedSQL,
				ResultCount:      result.Count,
				Focus:            state.CurrentFocus,
				Timestamp:        deps.now(),
			})

			if len(state.ClarificationsNeeded) == 0 {
				deps.Cache.Set(key, resultToMap(result))
			}
		}

		send(eventFromResult(result))
	}()

	return out
}

// Execute runs Stream to completion and returns only the terminal event,
// for transports (plain REST) that don't forward progress events.
func Execute(ctx context.Context, deps *Deps, req Request) Event {
	var final Event
	for ev := range Stream(ctx, deps, req) {
		final = ev
	}
	return final
}

func eventFromResult(r Result) Event {
	data := map[string]any{
		"sql":               r.SQL,
		"results":           r.Results,
		"count":             r.Count,
		"displayed":         r.Displayed,
		"truncated":         r.Truncated,
		"execution_time_ms": r.ExecutionTimeMS,
		"insight":           r.Insight,
		"error":             r.Error,
	}
	return Event{Type: r.Type, Data: data}
}

func resultMapEvent(cached map[string]any, cacheHit bool) Event {
	data := make(map[string]any, len(cached)+1)
	for k, v := range cached {
		data[k] = v
	}
	data["cache_hit"] = cacheHit
	t, _ := data["type"].(string)
	if t == "" {
		t = "complete"
	}
	return Event{Type: t, Data: data}
}

func resultToMap(r Result) map[string]any {
	return map[string]any{
		"type":              r.Type,
		"sql":               r.SQL,
		"results":           r.Results,
		"count":             r.Count,
		"displayed":         r.Displayed,
		"truncated":         r.Truncated,
		"execution_time_ms": r.ExecutionTimeMS,
		"insight":           r.Insight,
		"error":             r.Error,
	}
}
