// Package workflow implements the text-to-SQL analysis pipeline: a
// directed sequence of stages that resolve conversational context,
// extract filters, optionally ask for clarification, generate and
// validate SQL against the log store, execute it, and summarize the
// results. Each stage updates the AgentState it is given in place and
// appends to its event log; stages do not return partial states.
package workflow

import (
	"time"

	"github.com/logtrail/logtrail/internal/model"
)

// Event is one entry in AgentState's append-only event log, consumed by
// the streaming facade to build its canonical event stream.
type Event struct {
	Type string         `json:"type"`
	Node string         `json:"node"`
	Data map[string]any `json:"data,omitempty"`
}

// AgentState carries a single query run through the stage graph. Each
// stage reads the fields it needs and writes its results directly into
// the same AgentState; Events is always appended to, never replaced.
type AgentState struct {
	// Input
	Question   string
	MaxResults int

	// Schema context
	SchemaInfo string
	SampleData string

	// SQL generation
	GeneratedSQL    string
	ValidationError string
	RetryCount      int

	// Execution
	QueryResults    []map[string]any
	ExecutionTimeMS float64
	ErrorMessage    string

	// Final output
	FormattedResults FormattedResults
	Insight          string

	Events []Event

	// Cache metadata
	CacheHit bool
	CacheKey string

	// Conversation context
	ConversationID   string
	ResolvedQuestion string
	CurrentFocus     map[string]string

	// LLM-extracted filters
	ExtractedService      string
	ExtractedTimeRange    model.TimeRange
	ExtractedTimeRangeSet bool
	ExtractionConfidence  float64

	// Structured input supplied explicitly by the caller (a UI picker)
	TimeRangeStructured    model.TimeRange
	TimeRangeStructuredSet bool

	// Clarification
	ClarificationsNeeded []Clarification
	UserClarifications   map[string]string
	ClarificationCount   int
	QueryAnalysis        QueryAnalysis

	CreatedAt time.Time
}

// Clarification is one pending re-ask surfaced to the caller when the
// clarifier stage cannot proceed confidently.
type Clarification struct {
	Type        string   `json:"type"`
	Field       string   `json:"field"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Required    bool     `json:"required"`
	AllowCustom bool     `json:"allow_custom,omitempty"`
}

// QueryAnalysis is the clarifier's structured read of the question,
// carried forward for inspection/debugging even when no clarification
// is needed.
type QueryAnalysis struct {
	HasService                bool     `json:"has_service"`
	ServiceType                string   `json:"service_type"`
	MentionedServices          []string `json:"mentioned_services,omitempty"`
	IsAggregation              bool     `json:"is_aggregation"`
	IsFilterQuery              bool     `json:"is_filter_query"`
	HasTime                    bool     `json:"has_time"`
	TimeClarity                string   `json:"time_clarity"`
	NeedsServiceClarification  bool     `json:"needs_service_clarification"`
	NeedsTimeClarification     bool     `json:"needs_time_clarification"`
	Reasoning                  string   `json:"reasoning"`
}

// emit appends an event to s's event log.
func (s *AgentState) emit(eventType, node string, data map[string]any) {
	s.Events = append(s.Events, Event{Type: eventType, Node: node, Data: data})
}

const maxClarificationAttempts = 2
const maxSQLRetries = 3
