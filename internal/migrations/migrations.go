// Package migrations обеспечивает автоматическое создание и валидацию схемы БД
// при запуске приложения. Гарантирует совместимость схемы или останавливает запуск.
package migrations

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

//go:embed 001_initial_schema.sql
var initialSchema string

// ExpectedTable описывает ожидаемую структуру таблицы для валидации
type ExpectedTable struct {
	Name    string
	Columns []string // Список обязательных колонок
}

// ExpectedSchema содержит описание всех таблиц которые должны существовать
// Русский комментарий: В режиме горячей разработки мы всегда используем
// только 001_initial_schema.sql. Когда появятся боевые данные — добавятся 002, 003 и т.д.
var ExpectedSchema = []ExpectedTable{
	{Name: "chats", Columns: []string{"chat_id", "chat_type", "title", "is_active"}},
	{Name: "chat_keywords", Columns: []string{"id", "chat_id", "keyword", "target", "operation", "data", "is_active"}},
	{Name: "suppression_keys", Columns: []string{"key", "expires_at"}},
	{Name: "event_log", Columns: []string{"id", "chat_id", "user_id", "module_name", "event_type"}},
}

// RunMigrationsIfNeeded применяет начальную схему если таблиц нет,
// иначе валидирует что существующая схема совместима.
func RunMigrationsIfNeeded(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	exists, err := tableExists(ctx, db, "chat_keywords")
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	if !exists {
		logger.Info("schema not found, applying initial migration")
		if _, err := db.ExecContext(ctx, initialSchema); err != nil {
			return fmt.Errorf("failed to apply initial schema: %w", err)
		}
		logger.Info("initial schema applied")
		return nil
	}

	logger.Info("schema found, validating")
	return validateSchema(ctx, db, logger)
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, name).Scan(&exists)
	return exists, err
}

// validateSchema проверяет что все ожидаемые таблицы и колонки присутствуют.
func validateSchema(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	var problems []string

	for _, table := range ExpectedSchema {
		exists, err := tableExists(ctx, db, table.Name)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table.Name, err)
		}
		if !exists {
			problems = append(problems, fmt.Sprintf("missing table %s", table.Name))
			continue
		}

		rows, err := db.QueryContext(ctx, `
			SELECT column_name FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
		`, table.Name)
		if err != nil {
			return fmt.Errorf("failed to read columns of %s: %w", table.Name, err)
		}

		present := make(map[string]bool)
		for rows.Next() {
			var col string
			if err := rows.Scan(&col); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan column name: %w", err)
			}
			present[col] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate columns of %s: %w", table.Name, err)
		}

		for _, col := range table.Columns {
			if !present[col] {
				problems = append(problems, fmt.Sprintf("table %s missing column %s", table.Name, col))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("schema validation failed: %s", strings.Join(problems, "; "))
	}

	logger.Info("schema validation passed", zap.Int("tables", len(ExpectedSchema)))
	return nil
}
