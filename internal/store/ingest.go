package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/logtrail/logtrail/internal/model"
)

// InsertLogs bulk-loads records into the logs table via COPY, mirroring
// the collector's original asyncpg copy_records_to_table call.
func InsertLogs(ctx context.Context, db Querier, records []model.LogRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	n, err := db.CopyFrom(ctx, pgx.Identifier{"logs"}, model.Columns(), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copying logs: %w", err)
	}
	return n, nil
}
