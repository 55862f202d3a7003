package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/logtrail/logtrail/internal/model"
)

const sqlErrorCountCurrent = `
SELECT COUNT(*) as error_count
FROM logs
WHERE level = 'ERROR'
  AND created_at > NOW() - INTERVAL '5 minutes'
  AND deleted = FALSE
`

const sqlErrorCountBaseline = `
SELECT COUNT(*) as error_count
FROM logs
WHERE level = 'ERROR'
  AND created_at BETWEEN NOW() - INTERVAL '35 minutes' AND NOW() - INTERVAL '30 minutes'
  AND deleted = FALSE
`

// checkErrorRateSpike compares the error count in the last 5 minutes
// against the count from 30-35 minutes ago.
func (d *Detector) checkErrorRateSpike(ctx context.Context) (*model.Alert, error) {
	currentRows, _, err := d.queryRepo.ExecuteSQL(ctx, sqlErrorCountCurrent)
	if err != nil {
		return nil, err
	}
	currentCount := countFrom(currentRows)

	baselineRows, _, err := d.queryRepo.ExecuteSQL(ctx, sqlErrorCountBaseline)
	if err != nil {
		return nil, err
	}
	baselineCount := countFrom(baselineRows)

	if baselineCount <= 0 {
		return nil, nil
	}

	spikeRatio := float64(currentCount-baselineCount) / float64(baselineCount)
	if spikeRatio <= d.thresholds.ErrorRateSpike {
		return nil, nil
	}

	severity := model.SeverityWarning
	if spikeRatio > 0.5 {
		severity = model.SeverityCritical
	}

	return &model.Alert{
		Type:     model.AlertErrorRateSpike,
		Severity: severity,
		Message:  fmt.Sprintf("에러율 %.1f%% 증가 감지 (최근 5분)", spikeRatio*100),
		Data: map[string]any{
			"current_count":     currentCount,
			"baseline_count":    baselineCount,
			"spike_percentage":  roundTo1(spikeRatio * 100),
		},
		Timestamp: time.Now(),
	}, nil
}

const sqlSlowAPIs = `
SELECT path, service, AVG(duration_ms) as avg_duration, COUNT(*) as count
FROM logs
WHERE duration_ms > $1
  AND path IS NOT NULL
  AND created_at > NOW() - INTERVAL '10 minutes'
  AND deleted = FALSE
GROUP BY path, service
HAVING COUNT(*) >= 3
ORDER BY avg_duration DESC
LIMIT 5
`

// checkSlowAPIs flags (path, service) groups with at least 3 requests
// slower than SlowAPIThresholdMS in the last 10 minutes, listing up to 5
// groups by average duration of those slow requests.
func (d *Detector) checkSlowAPIs(ctx context.Context) (*model.Alert, error) {
	rows, _, err := d.queryRepo.ExecuteSQL(ctx, sqlSlowAPIs, d.thresholds.SlowAPIThresholdMS)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return &model.Alert{
		Type:      model.AlertSlowAPI,
		Severity:  model.SeverityWarning,
		Message:   fmt.Sprintf("%d개 느린 API 감지 (>2초)", len(rows)),
		Data:      map[string]any{"slow_apis": rows},
		Timestamp: time.Now(),
	}, nil
}

const sqlActiveServices = `
SELECT DISTINCT service
FROM logs
WHERE created_at > NOW() - INTERVAL '1 hour'
  AND deleted = FALSE
`

// sqlRecentLogsForService is parameterized on both the service name and
// the lookback window — the original interpolated the service name
// directly into the SQL string here, which is a SQL-injection hole for
// any service value an attacker can get stored in the log table itself;
// this port parameterizes both instead.
const sqlRecentLogsForService = `
SELECT COUNT(*) as count
FROM logs
WHERE service = $1
  AND created_at > NOW() - ($2 * INTERVAL '1 minute')
  AND deleted = FALSE
`

// checkServiceDown flags any service that logged in the last hour but
// has produced nothing in the last ServiceDownInterval.
func (d *Detector) checkServiceDown(ctx context.Context) (*model.Alert, error) {
	activeRows, _, err := d.queryRepo.ExecuteSQL(ctx, sqlActiveServices)
	if err != nil {
		return nil, err
	}

	var downServices []string
	minutes := d.thresholds.ServiceDownInterval.Minutes()

	for _, row := range activeRows {
		service, _ := row["service"].(string)
		if service == "" {
			continue
		}

		recentRows, _, err := d.queryRepo.ExecuteSQL(ctx, sqlRecentLogsForService, service, minutes)
		if err != nil {
			return nil, err
		}
		if countFrom(recentRows) == 0 {
			downServices = append(downServices, service)
		}
	}

	if len(downServices) == 0 {
		return nil, nil
	}

	return &model.Alert{
		Type:     model.AlertServiceDown,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("%d개 서비스 로그 없음 (%d분)", len(downServices), int(minutes)),
		Data:     map[string]any{"services": downServices},
		Timestamp: time.Now(),
	}, nil
}

func countFrom(rows []map[string]any) int {
	if len(rows) == 0 {
		return 0
	}
	switch v := rows[0]["error_count"].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case int:
		return v
	}
	switch v := rows[0]["count"].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func roundTo1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
