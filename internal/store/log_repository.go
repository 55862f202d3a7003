package store

import (
	"context"
	"fmt"
)

// ServiceSummary is one row of GetServices: a service name and its
// non-deleted log count.
type ServiceSummary struct {
	Name     string `json:"name"`
	LogCount int64  `json:"log_count"`
}

// Stats is the canned aggregate block served by GET /stats on both
// the collector and analysis services.
type Stats struct {
	TotalCount          int64            `json:"total_count"`
	LevelDistribution   map[string]int64 `json:"level_distribution"`
	ServiceDistribution map[string]int64 `json:"service_distribution"`
	RecentErrors1h      int64            `json:"recent_errors_1h"`
}

// LogRepository answers aggregate questions over the logs table that
// don't need LLM-generated SQL: service lists and summary stats.
type LogRepository struct {
	db Querier
}

func NewLogRepository(db Querier) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) GetServices(ctx context.Context) ([]ServiceSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT service AS name, COUNT(*) AS log_count
		FROM logs
		WHERE deleted = FALSE
		GROUP BY service
		ORDER BY service
	`)
	if err != nil {
		return nil, fmt.Errorf("querying services: %w", err)
	}
	defer rows.Close()

	var out []ServiceSummary
	for rows.Next() {
		var s ServiceSummary
		if err := rows.Scan(&s.Name, &s.LogCount); err != nil {
			return nil, fmt.Errorf("scanning service row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *LogRepository) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{
		LevelDistribution:   map[string]int64{},
		ServiceDistribution: map[string]int64{},
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM logs WHERE deleted = FALSE`).Scan(&stats.TotalCount); err != nil {
		return stats, fmt.Errorf("counting total: %w", err)
	}

	levelRows, err := r.db.Query(ctx, `
		SELECT level, COUNT(*) FROM logs WHERE deleted = FALSE GROUP BY level
	`)
	if err != nil {
		return stats, fmt.Errorf("querying level distribution: %w", err)
	}
	for levelRows.Next() {
		var level string
		var count int64
		if err := levelRows.Scan(&level, &count); err != nil {
			levelRows.Close()
			return stats, fmt.Errorf("scanning level row: %w", err)
		}
		stats.LevelDistribution[level] = count
	}
	levelRows.Close()
	if err := levelRows.Err(); err != nil {
		return stats, fmt.Errorf("iterating level rows: %w", err)
	}

	serviceRows, err := r.db.Query(ctx, `
		SELECT service, COUNT(*) AS count FROM logs
		WHERE deleted = FALSE
		GROUP BY service
		ORDER BY count DESC
		LIMIT 10
	`)
	if err != nil {
		return stats, fmt.Errorf("querying service distribution: %w", err)
	}
	for serviceRows.Next() {
		var service string
		var count int64
		if err := serviceRows.Scan(&service, &count); err != nil {
			serviceRows.Close()
			return stats, fmt.Errorf("scanning service row: %w", err)
		}
		stats.ServiceDistribution[service] = count
	}
	serviceRows.Close()
	if err := serviceRows.Err(); err != nil {
		return stats, fmt.Errorf("iterating service rows: %w", err)
	}

	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM logs
		WHERE level = 'ERROR' AND deleted = FALSE AND created_at > NOW() - INTERVAL '1 hour'
	`).Scan(&stats.RecentErrors1h); err != nil {
		return stats, fmt.Errorf("counting recent errors: %w", err)
	}

	return stats, nil
}
