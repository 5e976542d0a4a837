package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EventRepository пишет события модулей в event_log для аудита.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Log записывает одно событие.
func (r *EventRepository) Log(ctx context.Context, chatID, userID int64, moduleName, eventType, details string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO event_log (chat_id, user_id, module_name, event_type, details)
		VALUES ($1, $2, $3, $4, $5)
	`, chatID, userID, moduleName, eventType, details)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

// PruneOlderThan удаляет события старше retention (вызывается maintenance).
func (r *EventRepository) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM event_log WHERE created_at < NOW() - $1 * INTERVAL '1 second'
	`, retention.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to prune event log: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}
