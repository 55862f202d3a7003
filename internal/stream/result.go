package stream

import (
	"fmt"

	"github.com/logtrail/logtrail/internal/workflow"
)

// Result is the terminal payload sent to a client once a run finishes,
// whether it reached completion, failed, or stopped to ask for
// clarification (the clarification case still shapes as "complete" with
// empty SQL/results, since the clarification_needed event itself —
// already forwarded during the run — is what tells the client to ask).
type Result struct {
	Type            string           `json:"type"`
	SQL             string           `json:"sql,omitempty"`
	Results         []map[string]any `json:"results"`
	Count           int              `json:"count"`
	Displayed       int              `json:"displayed,omitempty"`
	Truncated       bool             `json:"truncated,omitempty"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
	Insight         string           `json:"insight,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// FormatFinalResult mirrors format_final_result: error_message wins
// first, then a retry-exhausted validation failure, else success.
func FormatFinalResult(state *workflow.AgentState) Result {
	if state.ErrorMessage != "" {
		return Result{
			Type:    "error",
			Error:   state.ErrorMessage,
			SQL:     state.GeneratedSQL,
			Results: []map[string]any{},
		}
	}

	if state.ValidationError != "" && state.RetryCount >= maxSQLRetriesExported {
		return Result{
			Type:    "error",
			Error:   fmt.Sprintf("SQL validation failed after %d retries: %s", maxSQLRetriesExported, state.ValidationError),
			SQL:     state.GeneratedSQL,
			Results: []map[string]any{},
		}
	}

	return Result{
		Type:            "complete",
		SQL:             state.GeneratedSQL,
		Results:         orEmpty(state.FormattedResults.Data),
		Count:           state.FormattedResults.Count,
		Displayed:       state.FormattedResults.Displayed,
		Truncated:       state.FormattedResults.Truncated,
		ExecutionTimeMS: state.ExecutionTimeMS,
		Insight:         state.Insight,
	}
}

// maxSQLRetriesExported mirrors workflow's unexported maxSQLRetries so
// this package's belt-and-suspenders check (redundant with the graph's
// own terminalOutcome, kept for parity with the ported source) doesn't
// need to reach into workflow internals.
const maxSQLRetriesExported = 3

func orEmpty(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}
