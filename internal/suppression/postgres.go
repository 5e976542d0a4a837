package suppression

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresLedger хранит ключи подавления в таблице suppression_keys.
// Русский комментарий: Ledger общий для bot и sender (разные процессы),
// поэтому in-memory варианта в проде недостаточно. Атомарность TryAcquire
// обеспечивается единственным INSERT ... ON CONFLICT.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// TryAcquire — атомарный create-if-absent.
// Истёкший ключ считается отсутствующим и перехватывается этим же запросом:
// ON CONFLICT DO UPDATE срабатывает только когда старое окно уже истекло,
// иначе запрос не затрагивает ни одной строки и захват не удаётся.
func (l *PostgresLedger) TryAcquire(ctx context.Context, key Key, ttl time.Duration) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO suppression_keys (key, expires_at)
		VALUES ($1, NOW() + $2 * INTERVAL '1 second')
		ON CONFLICT (key) DO UPDATE
		SET expires_at = EXCLUDED.expires_at, created_at = NOW()
		WHERE suppression_keys.expires_at <= NOW()
	`, key.String(), ttl.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to acquire suppression key %s: %w", key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for key %s: %w", key, err)
	}
	return rows == 1, nil
}

// HasAny проверяет существование хотя бы одного неистёкшего ключа.
func (l *PostgresLedger) HasAny(ctx context.Context, keys ...Key) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}

	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = k.String()
	}

	var exists bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM suppression_keys
			WHERE key = ANY($1) AND expires_at > NOW()
		)
	`, pq.Array(raw)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check suppression keys: %w", err)
	}
	return exists, nil
}

// Put безусловно записывает или продлевает ключ.
func (l *PostgresLedger) Put(ctx context.Context, key Key, ttl time.Duration) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO suppression_keys (key, expires_at)
		VALUES ($1, NOW() + $2 * INTERVAL '1 second')
		ON CONFLICT (key) DO UPDATE
		SET expires_at = EXCLUDED.expires_at, created_at = NOW()
	`, key.String(), ttl.Seconds())
	if err != nil {
		return fmt.Errorf("failed to put suppression key %s: %w", key, err)
	}
	return nil
}

// PurgeExpired удаляет истёкшие строки (вызывается maintenance по расписанию).
func (l *PostgresLedger) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM suppression_keys WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired suppression keys: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}
