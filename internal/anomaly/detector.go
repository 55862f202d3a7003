// Package anomaly runs the three automatic anomaly checks against the
// log store — error-rate spikes, slow APIs, and services that have
// stopped logging — on a fixed interval, broadcasting anything found to
// subscribed query-stream clients and retaining a bounded history.
package anomaly

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/logtrail/logtrail/internal/model"
	"github.com/logtrail/logtrail/internal/monitoring"
	"github.com/logtrail/logtrail/internal/store"
	"github.com/logtrail/logtrail/internal/stream"
)

// Thresholds mirrors the original's _thresholds dict.
type Thresholds struct {
	ErrorRateSpike      float64       // fraction increase that counts as a spike; default 0.1
	SlowAPIThresholdMS  float64       // default 2000
	ServiceDownInterval time.Duration // default 5 minutes
}

func (t *Thresholds) setDefaults() {
	if t.ErrorRateSpike <= 0 {
		t.ErrorRateSpike = 0.1
	}
	if t.SlowAPIThresholdMS <= 0 {
		t.SlowAPIThresholdMS = 2000
	}
	if t.ServiceDownInterval <= 0 {
		t.ServiceDownInterval = 5 * time.Minute
	}
}

const defaultMaxAlertHistory = 100

// Detector holds the query repository it checks against, the hub it
// broadcasts findings to, and a bounded, mutex-guarded alert history.
type Detector struct {
	queryRepo  *store.QueryRepository
	hub        *stream.Hub
	thresholds Thresholds
	historyCap int
	metrics    *monitoring.Metrics

	mu      sync.Mutex
	history []model.Alert
}

// New builds a Detector. historyCap defaults to 100 (config's
// anomaly.history_size) if non-positive.
func New(queryRepo *store.QueryRepository, hub *stream.Hub, thresholds Thresholds, historyCap int) *Detector {
	thresholds.setDefaults()
	if historyCap <= 0 {
		historyCap = defaultMaxAlertHistory
	}
	return &Detector{queryRepo: queryRepo, hub: hub, thresholds: thresholds, historyCap: historyCap, metrics: monitoring.New(false)}
}

// WithMetrics attaches a metrics recorder, returning d for chaining.
func (d *Detector) WithMetrics(m *monitoring.Metrics) *Detector {
	d.metrics = m
	return d
}

// CheckAnomalies runs all three checks and records anything found.
func (d *Detector) CheckAnomalies(ctx context.Context) ([]model.Alert, error) {
	var alerts []model.Alert

	if a, err := d.checkErrorRateSpike(ctx); err != nil {
		return nil, fmt.Errorf("checking error rate spike: %w", err)
	} else if a != nil {
		alerts = append(alerts, *a)
	}

	if a, err := d.checkSlowAPIs(ctx); err != nil {
		return nil, fmt.Errorf("checking slow apis: %w", err)
	} else if a != nil {
		alerts = append(alerts, *a)
	}

	if a, err := d.checkServiceDown(ctx); err != nil {
		return nil, fmt.Errorf("checking service down: %w", err)
	} else if a != nil {
		alerts = append(alerts, *a)
	}

	d.record(alerts)
	return alerts, nil
}

func (d *Detector) record(alerts []model.Alert) {
	if len(alerts) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history, alerts...)
	if len(d.history) > d.historyCap {
		d.history = d.history[len(d.history)-d.historyCap:]
	}

	for _, a := range alerts {
		d.metrics.RecordAnomalyAlert(string(a.Type), string(a.Severity))
	}
}

// History returns the most recent limit alerts (all of them if limit<=0
// or exceeds the retained count).
func (d *Detector) History(limit int) []model.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limit <= 0 || limit > len(d.history) {
		limit = len(d.history)
	}
	out := make([]model.Alert, limit)
	copy(out, d.history[len(d.history)-limit:])
	return out
}

// Loop runs CheckAnomalies every interval, broadcasting whatever it
// finds through the hub, until ctx is cancelled. It is meant to be
// driven by internal/supervisor.Run so a panic or stuck query doesn't
// silently end background alerting.
func (d *Detector) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			alerts, err := d.CheckAnomalies(ctx)
			if err != nil {
				return err
			}
			for _, a := range alerts {
				d.hub.Broadcast(a)
			}
		}
	}
}
