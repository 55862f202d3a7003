package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/logtrail/logtrail/internal/model"
)

type fakeConn struct {
	fail    bool
	written []any
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.fail {
		return errors.New("write: broken pipe")
	}
	c.written = append(c.written, v)
	return nil
}

func TestHubBroadcastReachesAllRegistered(t *testing.T) {
	h := NewHub(nil)
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)

	h.Broadcast(model.Alert{Type: model.AlertErrorRateSpike, Severity: model.SeverityWarning, Message: "spike", Timestamp: time.Now()})

	assert.Len(t, a.written, 1)
	assert.Len(t, b.written, 1)
}

func TestHubBroadcastDropsDeadConnections(t *testing.T) {
	h := NewHub(nil)
	live, dead := &fakeConn{}, &fakeConn{fail: true}
	h.Register(live)
	h.Register(dead)

	h.Broadcast(model.Alert{Type: model.AlertServiceDown, Severity: model.SeverityCritical, Message: "down", Timestamp: time.Now()})

	h.mu.Lock()
	_, deadStillPresent := h.conns[dead]
	_, liveStillPresent := h.conns[live]
	h.mu.Unlock()

	assert.False(t, deadStillPresent)
	assert.True(t, liveStillPresent)
}

func TestHubUnregisterRemovesConnection(t *testing.T) {
	h := NewHub(nil)
	c := &fakeConn{}
	h.Register(c)
	h.Unregister(c)

	h.mu.Lock()
	_, present := h.conns[c]
	h.mu.Unlock()
	assert.False(t, present)
}
