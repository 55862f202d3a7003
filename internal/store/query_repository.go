package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// QueryRepository executes the LLM-generated SQL and coerces results into
// JSON-friendly values: timestamps to RFC3339, NUMERIC values to float64.
// Other values, integers included, are returned as pgx decodes them.
type QueryRepository struct {
	db Querier
}

func NewQueryRepository(db Querier) *QueryRepository {
	return &QueryRepository{db: db}
}

// ExecuteSQL runs sql and returns the rows as maps keyed by column name,
// plus the elapsed time in milliseconds rounded to two decimals.
func (r *QueryRepository) ExecuteSQL(ctx context.Context, sql string, args ...any) ([]map[string]any, float64, error) {
	start := time.Now()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := make([]map[string]any, 0)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, 0, fmt.Errorf("reading row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = coerceValue(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rows: %w", err)
	}

	elapsedMS := math.Round(time.Since(start).Seconds()*1000*100) / 100
	return results, elapsedMS, nil
}

// coerceValue mirrors the original's datetime->isoformat and
// Decimal->float conversions so results marshal cleanly to JSON.
func coerceValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err == nil && f.Valid {
			return f.Float64
		}
		return nil
	default:
		return v
	}
}
