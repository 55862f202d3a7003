package workflow

// validateSQLNode checks the generated SQL for safety then syntax. A
// failure of either increments RetryCount and records the reason;
// routeAfterValidation decides whether that means another pass through
// generateSQLNode or a terminal failure.
func validateSQLNode(state *AgentState) {
	sql := state.GeneratedSQL

	if safe, reason := validateSQLSafety(sql); !safe {
		state.ValidationError = reason
		state.RetryCount++
		state.emit("validation_failed", "validate_sql", map[string]any{
			"error":       reason,
			"retry_count": state.RetryCount,
		})
		return
	}

	if valid, reason := validateSQLSyntax(sql); !valid {
		state.ValidationError = reason
		state.RetryCount++
		state.emit("validation_failed", "validate_sql", map[string]any{
			"error":       reason,
			"retry_count": state.RetryCount,
		})
		return
	}

	state.ValidationError = ""
	state.emit("node_complete", "validate_sql", map[string]any{
		"validation_passed": true,
	})
}

// routeAfterValidation is validate_sql's conditional edge: regenerate on
// a recoverable failure, fail the run once retries are exhausted,
// otherwise proceed to execution.
func routeAfterValidation(state *AgentState) string {
	if state.ValidationError != "" {
		if state.RetryCount < maxSQLRetries {
			return "regenerate"
		}
		return "fail"
	}
	return "execute"
}
