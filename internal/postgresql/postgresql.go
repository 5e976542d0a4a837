package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Русский комментарий: этот пакет инкапсулирует работу с PostgreSQL.
// Подключение с учётом контекста и ретраи пинга при старте.

// ConnectToBase — подключение к базе по DSN.
func ConnectToBase(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// PingWithRetry пингует базу с ретраями.
// Русский комментарий: Используется при старте для гарантии что PostgreSQL доступен —
// в docker-compose база может подниматься дольше бота.
func PingWithRetry(ctx context.Context, db *sql.DB, maxRetries int, delay time.Duration, logger *zap.Logger) error {
	for i := 0; i < maxRetries; i++ {
		err := db.PingContext(ctx)
		if err == nil {
			logger.Info("postgres connection established")
			return nil
		}

		logger.Warn("failed to ping postgres, retrying...",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to ping postgres after %d retries", maxRetries)
}
