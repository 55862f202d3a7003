package store

import (
	"context"
	"fmt"
	"strings"
)

// SchemaRepository answers the analysis workflow's "what does the logs
// table look like" questions: column shape and a diverse sample of rows.
type SchemaRepository struct {
	db Querier
}

func NewSchemaRepository(db Querier) *SchemaRepository {
	return &SchemaRepository{db: db}
}

type columnInfo struct {
	name     string
	dataType string
	nullable string
	def      *string
}

// GetTableSchema renders the logs table's information_schema shape as a
// single descriptive block suitable for embedding in an LLM prompt.
func (r *SchemaRepository) GetTableSchema(ctx context.Context, table string) (string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return "", fmt.Errorf("querying table schema: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\nColumns:\n", table)
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.name, &c.dataType, &c.nullable, &c.def); err != nil {
			return "", fmt.Errorf("scanning column: %w", err)
		}
		nullability := "NOT NULL"
		if c.nullable == "YES" {
			nullability = "NULL"
		}
		line := fmt.Sprintf("  - %s: %s %s", c.name, c.dataType, nullability)
		if c.def != nil {
			line += fmt.Sprintf(" DEFAULT %s", *c.def)
		}
		b.WriteString(line + "\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating columns: %w", err)
	}
	return b.String(), nil
}

const sampleDataQuery = `
	(SELECT id, created_at, level, log_type, service, error_type, message, duration_ms, path
	 FROM logs WHERE level = 'ERROR' AND deleted = FALSE ORDER BY created_at DESC LIMIT 3)
	UNION ALL
	(SELECT id, created_at, level, log_type, service, error_type, message, duration_ms, path
	 FROM logs WHERE duration_ms > 1000 AND deleted = FALSE ORDER BY duration_ms DESC LIMIT 3)
	UNION ALL
	(SELECT id, created_at, level, log_type, service, error_type, message, duration_ms, path
	 FROM (
	     SELECT DISTINCT ON (service) id, created_at, level, log_type, service, error_type, message, duration_ms, path
	     FROM logs WHERE deleted = FALSE ORDER BY service, created_at DESC
	 ) distinct_services
	 LIMIT 4)
`

// GetSampleData returns a diverse 10-row sample (recent errors, slow
// calls, one row per distinct service) formatted for an LLM prompt.
func (r *SchemaRepository) GetSampleData(ctx context.Context) (string, error) {
	rows, err := r.db.Query(ctx, sampleDataQuery)
	if err != nil {
		return "", fmt.Errorf("querying sample data: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString("Sample Data (Diverse 10 logs):\n")
	for rows.Next() {
		var (
			id                       int64
			createdAt                any
			level, logType, service  string
			errorType, message, path *string
			durationMS               *float64
		)
		if err := rows.Scan(&id, &createdAt, &level, &logType, &service, &errorType, &message, &durationMS, &path); err != nil {
			return "", fmt.Errorf("scanning sample row: %w", err)
		}
		b.WriteString("  - " + formatSampleRow(level, service, errorType, path, message, durationMS) + "\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating sample rows: %w", err)
	}
	return b.String(), nil
}

func formatSampleRow(level, service string, errorType, path *string, message *string, durationMS *float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, service)
	if durationMS != nil {
		fmt.Fprintf(&b, ", %.0fms", *durationMS)
	}
	if errorType != nil {
		fmt.Fprintf(&b, ", %s", *errorType)
	}
	if path != nil {
		fmt.Fprintf(&b, " %s", *path)
	}
	b.WriteString(": ")
	b.WriteString(truncate(derefString(message), 40))
	return b.String()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
