package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logtrail/logtrail/internal/workflow"
)

func TestTransformEventValidationFailed(t *testing.T) {
	e := transformEvent(workflow.Event{Type: "validation_failed", Node: "validate_sql", Data: map[string]any{"error": "missing deleted filter"}})
	assert.Equal(t, "validation_failed", e.Type)
	assert.Contains(t, e.Message, "missing deleted filter")
}

func TestTransformEventFiltersExtractedWithBoth(t *testing.T) {
	e := transformEvent(workflow.Event{Type: "filters_extracted", Node: "extract_filters", Data: map[string]any{"service": "payment-api", "time_range": "최근 1시간"}})
	assert.Contains(t, e.Message, "서비스: payment-api")
	assert.Contains(t, e.Message, "시간: 최근 1시간")
}

func TestTransformEventFiltersExtractedNone(t *testing.T) {
	e := transformEvent(workflow.Event{Type: "filters_extracted", Node: "extract_filters", Data: map[string]any{}})
	assert.Equal(t, "필터 추출 실패", e.Message)
}

func TestTransformEventClarificationNeeded(t *testing.T) {
	e := transformEvent(workflow.Event{Type: "clarification_needed", Node: "clarifier", Data: map[string]any{"count": 2}})
	assert.Contains(t, e.Message, "2개")
}

func TestTransformEventPassesThroughUnknownType(t *testing.T) {
	e := transformEvent(workflow.Event{Type: "something_else", Node: "n", Data: map[string]any{"k": "v"}})
	assert.Equal(t, "something_else", e.Type)
	assert.Equal(t, "n", e.Node)
}
