package model

import "time"

// AlertSeverity is the closed set of anomaly-detector severities.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType enumerates the three anomaly checks (§4.8).
type AlertType string

const (
	AlertErrorRateSpike AlertType = "error_rate_spike"
	AlertSlowAPI        AlertType = "slow_api"
	AlertServiceDown    AlertType = "service_down"
)

// Alert is one anomaly-detector finding, broadcast to stream subscribers
// and retained in a bounded history.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  AlertSeverity  `json:"severity"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
