package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/m3rciful/datepoll/core/logger"
)

const (
	connectTimeout = 5 * time.Second
	waitInterval   = 2 * time.Second
)

// Connect opens the database connection, configures the pool, and verifies connectivity.
// Postgres is retried until ready or ctx is done, since it usually starts alongside the bot.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	start := time.Now()
	db, err := open(ctx, cfg)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", cfg.Driver),
			slog.String("target", cfg.Target()),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	logger.DB.Debug("db pool configured",
		slog.String("event", "db.pool"),
		slog.Int("pool_open", cfg.MaxConnections),
	)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", cfg.Driver),
		slog.String("target", cfg.Target()),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return db, nil
}

func open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.Driver != DriverPostgres {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return sqlx.ConnectContext(pingCtx, cfg.Driver, cfg.DSN())
	}
	return waitForPostgres(ctx, cfg.DSN())
}

// waitForPostgres tries to connect until the server accepts connections or ctx ends.
func waitForPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	for {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		db, err := sqlx.ConnectContext(pingCtx, DriverPostgres, dsn)
		cancel()
		if err == nil {
			return db, nil
		}
		logger.DB.Debug("db not ready",
			slog.String("event", "db.wait"),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-time.After(waitInterval):
		}
	}
}
