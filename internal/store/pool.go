// Package store holds the pgx-backed persistence layer: pool
// construction and the schema/query/log repositories the analysis
// workflow and collector depend on.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logtrail/logtrail/internal/config"
	"github.com/logtrail/logtrail/internal/supervisor"
)

// NewPool builds a pgxpool.Pool from cfg, retrying the initial connect
// per cfg.ConnectRetries with the supervisor's bounded-retry helper
// before giving up.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)

	var pool *pgxpool.Pool
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	err = supervisor.RetryInit(connectCtx, cfg.ConnectRetries, supervisor.Config{Logger: logger}, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database after %d attempts: %w", cfg.ConnectRetries, err)
	}
	return pool, nil
}
