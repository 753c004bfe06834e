package db

import (
	"context"
	"time"

	"github.com/geocoder89/timeledger/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool builds the process-wide pool. It is created once before serving and
// closed on shutdown.
func NewPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = config.PoolMaxConns

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
