package workflow

import (
	"context"
	"encoding/json"

	"github.com/logtrail/logtrail/internal/llm"
)

const insightResultsPreviewLimit = 10

// generateInsightNode summarizes the executed query's results in Korean
// prose. Only the single-step path is implemented: a multi-step variant
// exists in the source this was ported from for a future step-chaining
// feature, but nothing in this workflow produces multiple steps, so
// there is nothing here to branch on.
func generateInsightNode(ctx context.Context, client llm.Client, state *AgentState) error {
	preview := state.QueryResults
	if len(preview) > insightResultsPreviewLimit {
		preview = preview[:insightResultsPreviewLimit]
	}

	previewJSON, err := json.Marshal(preview)
	if err != nil {
		previewJSON = []byte("[]")
	}

	prompt := formatInsightPrompt(state.Question, state.GeneratedSQL, string(previewJSON), len(state.QueryResults), state.ExecutionTimeMS)

	insight, err := client.Complete(ctx, prompt)
	if err != nil {
		state.Insight = "Error generating insight: " + err.Error()
		state.ErrorMessage = err.Error()
		state.emit("node_complete", "generate_insight", map[string]any{
			"error":      err.Error(),
			"error_type": "LLM_TIMEOUT",
		})
		return nil
	}

	state.Insight = insight
	state.emit("node_complete", "generate_insight", map[string]any{
		"insight_generated": true,
		"multi_step":        false,
	})
	return nil
}
