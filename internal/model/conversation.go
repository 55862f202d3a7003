package model

import "time"

// MaxConversationTurns bounds a session's retained history (§4.4/C5).
const MaxConversationTurns = 10

// ConversationTurn is one resolved question/answer exchange.
type ConversationTurn struct {
	Question         string
	ResolvedQuestion string
	SQL              string
	ResultCount      int
	Focus            map[string]string
	Timestamp        time.Time
}

// ConversationSession is the per-conversation_id state: a bounded turn
// history plus the current focus map carried forward between turns.
type ConversationSession struct {
	ConversationID string
	Turns          []ConversationTurn
	CurrentFocus   map[string]string
	CreatedAt      time.Time
}

// AddTurn appends turn, overwrites CurrentFocus with turn's focus, and
// truncates history to the last MaxConversationTurns entries.
func (s *ConversationSession) AddTurn(turn ConversationTurn) {
	s.Turns = append(s.Turns, turn)
	if len(s.Turns) > MaxConversationTurns {
		s.Turns = s.Turns[len(s.Turns)-MaxConversationTurns:]
	}
	s.CurrentFocus = turn.Focus
}

// ContextSummaryTurn is the compact shape returned by GetContext, used to
// format history into an LLM prompt.
type ContextSummaryTurn struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
	Count    int    `json:"count"`
}

// ContextSummary is the last-3-turns view used by resolve_context and
// extract_filters.
type ContextSummary struct {
	Focus   map[string]string    `json:"focus"`
	History []ContextSummaryTurn `json:"history"`
}

// lastN returns the last n turns of s, or fewer if s has fewer.
func (s *ConversationSession) lastN(n int) []ConversationTurn {
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// GetContextSummary returns the last 3 turns and the current focus.
func (s *ConversationSession) GetContextSummary() ContextSummary {
	recent := s.lastN(3)
	history := make([]ContextSummaryTurn, 0, len(recent))
	for _, t := range recent {
		history = append(history, ContextSummaryTurn{
			Question: t.Question,
			SQL:      t.SQL,
			Count:    t.ResultCount,
		})
	}
	return ContextSummary{Focus: s.CurrentFocus, History: history}
}
