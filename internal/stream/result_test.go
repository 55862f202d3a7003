package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logtrail/logtrail/internal/workflow"
)

func TestFormatFinalResultErrorMessageWins(t *testing.T) {
	state := &workflow.AgentState{ErrorMessage: "db unreachable", GeneratedSQL: "SELECT 1"}
	r := FormatFinalResult(state)
	assert.Equal(t, "error", r.Type)
	assert.Equal(t, "db unreachable", r.Error)
}

func TestFormatFinalResultValidationExhausted(t *testing.T) {
	state := &workflow.AgentState{ValidationError: "bad sql", RetryCount: 3}
	r := FormatFinalResult(state)
	assert.Equal(t, "error", r.Type)
	assert.Equal(t, "SQL validation failed after 3 retries: bad sql", r.Error)
}

func TestFormatFinalResultComplete(t *testing.T) {
	state := &workflow.AgentState{
		GeneratedSQL: "SELECT 1",
		Insight:      "요약",
		FormattedResults: workflow.FormattedResults{
			Count: 1, Displayed: 1, Data: []map[string]any{{"a": 1}},
		},
	}
	r := FormatFinalResult(state)
	assert.Equal(t, "complete", r.Type)
	assert.Equal(t, 1, r.Count)
	assert.Equal(t, "요약", r.Insight)
}
