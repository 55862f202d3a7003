// Package conversation holds the per-session turn history and current
// focus the analysis workflow uses to resolve follow-up questions.
package conversation

import (
	"sync"
	"time"

	"github.com/logtrail/logtrail/internal/model"
)

// Store is an in-memory map of conversation_id to session state, guarded
// by a single mutex per spec's explicit-mutex shared-resource policy.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*model.ConversationSession
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*model.ConversationSession)}
}

// GetOrCreate returns the session for id, creating an empty one if absent.
func (s *Store) GetOrCreate(id string) *model.ConversationSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		session = &model.ConversationSession{
			ConversationID: id,
			CreatedAt:      time.Now(),
		}
		s.sessions[id] = session
	}
	return session
}

// AddTurn appends turn to id's session, creating the session if needed.
func (s *Store) AddTurn(id string, turn model.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		session = &model.ConversationSession{ConversationID: id, CreatedAt: time.Now()}
		s.sessions[id] = session
	}
	session.AddTurn(turn)
}

// GetContext returns the last-3-turns summary and current focus for id.
// A missing session returns a zero-value summary, not an error.
func (s *Store) GetContext(id string) model.ContextSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.ContextSummary{History: []model.ContextSummaryTurn{}}
	}
	return session.GetContextSummary()
}

// ClearSession removes id's session entirely.
func (s *Store) ClearSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
