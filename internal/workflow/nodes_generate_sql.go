package workflow

import (
	"context"
	"errors"

	"github.com/logtrail/logtrail/internal/llm"
)

// generateSQLNode invokes the LLM to produce a candidate SQL statement.
// On a retry (state.RetryCount > 0, driven by validateSQLNode looping
// back) the same prompt is regenerated from the current state, letting
// the model see an unchanged schema/question on every attempt — the
// original carries no explicit "here's what was wrong last time"
// feedback into the retry prompt, and neither does this port.
func generateSQLNode(ctx context.Context, client llm.Client, state *AgentState) error {
	question := state.Question
	if state.ResolvedQuestion != "" {
		question = state.ResolvedQuestion
	}

	prompt := formatSQLGenerationPrompt(state.SchemaInfo, state.SampleData, state.MaxResults, question)

	response, err := client.Complete(ctx, prompt)
	if err != nil {
		var llmErr *llm.Error
		errors.As(err, &llmErr)
		state.ErrorMessage = err.Error()
		state.ValidationError = "LLM_TIMEOUT"
		state.RetryCount++
		state.emit("node_complete", "generate_sql", map[string]any{
			"error":      err.Error(),
			"error_type": "LLM_TIMEOUT",
		})
		return nil
	}

	sql := extractSQLFromResponse(response)
	state.GeneratedSQL = sql
	state.emit("node_complete", "generate_sql", map[string]any{
		"sql_generated": true,
		"sql_length":    len(sql),
	})
	return nil
}
