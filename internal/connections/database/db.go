package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schema string

const (
	maxRetries = 10
	retryDelay = 2 * time.Second
	pingTTL    = 5 * time.Second
)

// ConnectDB opens a pgx-backed *sql.DB and retries until Postgres answers a ping.
func ConnectDB(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err := sql.Open("pgx", cfg.DSN())
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = db.PingContext(pctx)
			cancel()
			if err == nil {
				db.SetMaxOpenConns(20)
				db.SetConnMaxIdleTime(5 * time.Minute)
				log.Info("db_connected", map[string]any{"host": cfg.Host, "attempt": attempt})
				return db, nil
			}
			_ = db.Close()
		}
		lastErr = err
		log.Warn("db_connect_retry", map[string]any{"attempt": attempt, "error": err.Error()})

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, lastErr)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
