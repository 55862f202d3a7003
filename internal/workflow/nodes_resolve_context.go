package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/logtrail/logtrail/internal/conversation"
	"github.com/logtrail/logtrail/internal/llm"
	"github.com/logtrail/logtrail/internal/model"
)

// resolveContextNode always runs the LLM, asking it to rewrite the
// question with references to prior turns ("그 에러", "그 서비스", ...)
// replaced by their concrete referents from the conversation's history
// and current focus. There is no short-circuit on an absence of
// reference-like patterns: the contract is "always consult the LLM",
// matching the conversation-aware workflow's resolve_context stage.
func resolveContextNode(ctx context.Context, client llm.Client, store *conversation.Store, state *AgentState) error {
	conversationID := state.ConversationID
	if conversationID == "" {
		conversationID = "default"
	}

	summary := store.GetContext(conversationID)

	prompt := formatContextResolutionPrompt(
		formatHistory(summary.History),
		formatFocus(summary.Focus),
		state.Question,
	)

	resolved, err := client.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	resolved = strings.TrimSpace(resolved)

	resolutionNeeded := resolved != state.Question

	state.ResolvedQuestion = resolved
	state.CurrentFocus = summary.Focus

	data := map[string]any{
		"resolution_needed": resolutionNeeded,
		"original_question": state.Question,
		"focus":             summary.Focus,
	}
	if resolutionNeeded {
		data["resolved_question"] = resolved
	}
	state.emit("context_resolved", "resolve_context", data)

	return nil
}

func formatHistory(history []model.ContextSummaryTurn) string {
	if len(history) == 0 {
		return "No previous conversation"
	}
	lines := make([]string, 0, len(history))
	for i, turn := range history {
		lines = append(lines, fmt.Sprintf(
			"%d. Q: %s\n   SQL: %s\n   Results: %d건",
			i+1, turn.Question, turn.SQL, turn.Count,
		))
	}
	return strings.Join(lines, "\n")
}

func formatFocus(focus map[string]string) string {
	if len(focus) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(focus))
	for k, v := range focus {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
