package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logtrail/logtrail/internal/model"
)

func TestAddTurnOverwritesFocusAndCapsHistory(t *testing.T) {
	store := NewStore()
	const id = "conv-1"

	for i := 0; i < model.MaxConversationTurns+3; i++ {
		store.AddTurn(id, model.ConversationTurn{
			Question: fmt.Sprintf("question %d", i),
			Focus:    map[string]string{"service": fmt.Sprintf("svc-%d", i)},
		})
	}

	session := store.GetOrCreate(id)
	assert.Len(t, session.Turns, model.MaxConversationTurns)
	assert.Equal(t, "svc-12", session.CurrentFocus["service"])
	assert.Equal(t, "question 3", session.Turns[0].Question)
}

func TestGetContextReturnsLastThreeTurns(t *testing.T) {
	store := NewStore()
	const id = "conv-2"

	for i := 0; i < 5; i++ {
		store.AddTurn(id, model.ConversationTurn{
			Question:    fmt.Sprintf("q%d", i),
			ResultCount: i,
		})
	}

	summary := store.GetContext(id)
	assert.Len(t, summary.History, 3)
	assert.Equal(t, "q2", summary.History[0].Question)
	assert.Equal(t, "q4", summary.History[2].Question)
}

func TestGetContextForUnknownSessionIsEmpty(t *testing.T) {
	store := NewStore()
	summary := store.GetContext("nonexistent")
	assert.Empty(t, summary.History)
}

func TestClearSessionRemovesHistory(t *testing.T) {
	store := NewStore()
	store.AddTurn("conv-3", model.ConversationTurn{Question: "q"})
	store.ClearSession("conv-3")

	summary := store.GetContext("conv-3")
	assert.Empty(t, summary.History)
}
