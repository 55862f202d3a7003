// Package stream sits between the analysis workflow and its transports
// (WebSocket, REST): it runs a graph.Run, forwards the workflow's
// internal events as client-shaped ones, and formats the terminal state
// into the result payload both transports send back.
package stream

import (
	"fmt"

	"github.com/logtrail/logtrail/internal/workflow"
)

// Event is the client-facing shape every transport serializes to JSON.
// Different event types populate different subsets of these fields,
// mirroring the original's untyped dict-based event stream.
type Event struct {
	Type    string         `json:"type"`
	Node    string         `json:"node,omitempty"`
	Status  string         `json:"status,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// transformEvent turns a workflow-internal event into the client shape,
// attaching a Korean status message per event type. Unknown types pass
// through unchanged.
func transformEvent(e workflow.Event) Event {
	switch e.Type {
	case "node_complete":
		return Event{Type: "node_complete", Node: e.Node, Message: e.Node + " 완료", Data: e.Data}

	case "validation_failed":
		return Event{Type: "validation_failed", Node: e.Node,
			Message: fmt.Sprintf("SQL 검증 실패: %s", dataString(e.Data, "error", "Unknown error")),
			Data:    e.Data}

	case "execution_failed":
		return Event{Type: "execution_failed", Node: e.Node,
			Message: fmt.Sprintf("쿼리 실행 실패: %s", dataString(e.Data, "error", "Unknown error")),
			Data:    e.Data}

	case "filters_extracted":
		var parts []string
		if service := dataString(e.Data, "service", ""); service != "" {
			parts = append(parts, "서비스: "+service)
		}
		if tr := dataString(e.Data, "time_range", ""); tr != "" {
			parts = append(parts, "시간: "+tr)
		}
		message := "필터 추출 실패"
		if len(parts) > 0 {
			message = "필터 추출: " + joinComma(parts)
		}
		return Event{Type: "filters_extracted", Node: e.Node, Message: message, Data: e.Data}

	case "clarification_needed":
		count := 0
		if n, ok := e.Data["count"].(int); ok {
			count = n
		}
		return Event{Type: "clarification_needed", Node: e.Node,
			Message: fmt.Sprintf("추가 정보가 필요합니다 (%d개)", count), Data: e.Data}

	case "clarification_skipped":
		return Event{Type: "clarification_skipped", Node: e.Node,
			Message: dataString(e.Data, "message", "재질문 건너뜀"), Data: e.Data}

	default:
		return Event{Type: e.Type, Node: e.Node, Data: e.Data}
	}
}

func dataString(data map[string]any, key, fallback string) string {
	if data == nil {
		return fallback
	}
	if s, ok := data[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
