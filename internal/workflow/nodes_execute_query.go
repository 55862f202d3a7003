package workflow

import (
	"context"

	"github.com/logtrail/logtrail/internal/store"
)

// executeQueryNode delegates to the query repository and, on success,
// extracts focus entities from the executed SQL for the conversation
// store to carry into the next turn.
func executeQueryNode(ctx context.Context, queryRepo *store.QueryRepository, state *AgentState) error {
	sql := state.GeneratedSQL

	results, elapsedMS, err := queryRepo.ExecuteSQL(ctx, sql)
	if err != nil {
		state.ErrorMessage = err.Error()
		state.emit("execution_failed", "execute_query", map[string]any{
			"error": err.Error(),
		})
		return nil
	}

	state.QueryResults = results
	state.ExecutionTimeMS = elapsedMS
	state.FormattedResults = formatQueryResults(results, state.MaxResults)
	state.ErrorMessage = ""
	state.CurrentFocus = extractFocusEntities(sql)

	state.emit("node_complete", "execute_query", map[string]any{
		"result_count":      len(results),
		"execution_time_ms": elapsedMS,
	})
	return nil
}

// routeAfterExecution is execute_query's conditional edge.
func routeAfterExecution(state *AgentState) string {
	if state.ErrorMessage != "" {
		return "fail"
	}
	return "insight"
}
