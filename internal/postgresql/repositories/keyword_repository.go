package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flybasist/keywarden/internal/keyword"
)

// cacheTTL — срок жизни per-chat кэша правил.
// Русский комментарий: Контракт движка требует стабильного порядка правил между
// повторными вызовами в коротком окне — кэш это гарантирует заодно с разгрузкой БД.
const cacheTTL = 5 * time.Minute

type cachedRules struct {
	rules    []keyword.Rule
	loadedAt time.Time
}

// KeywordRepository — RuleStore поверх таблицы chat_keywords.
type KeywordRepository struct {
	db     *sql.DB
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[int64]cachedRules
}

func NewKeywordRepository(db *sql.DB, logger *zap.Logger) *KeywordRepository {
	return &KeywordRepository{
		db:     db,
		logger: logger,
		cache:  make(map[int64]cachedRules),
	}
}

// GetKeywords возвращает активные правила чата в стабильном порядке (ORDER BY id).
func (r *KeywordRepository) GetKeywords(ctx context.Context, chatID int64) ([]keyword.Rule, error) {
	r.mu.RLock()
	cached, ok := r.cache[chatID]
	r.mu.RUnlock()
	if ok && time.Since(cached.loadedAt) < cacheTTL {
		return cached.rules, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, keyword, target, operation, data
		FROM chat_keywords
		WHERE chat_id = $1 AND is_active = true
		ORDER BY id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer rows.Close()

	var rules []keyword.Rule
	for rows.Next() {
		var (
			rule    keyword.Rule
			rawData []byte
		)
		if err := rows.Scan(&rule.ID, &rule.ChatID, &rule.Keyword, (*string)(&rule.Target), (*string)(&rule.Operation), &rawData); err != nil {
			r.logger.Error("failed to scan keyword rule", zap.Error(err))
			continue
		}
		if len(rawData) > 0 {
			if err := json.Unmarshal(rawData, &rule.Data); err != nil {
				// Кривой data не валит весь список: правило остаётся с пустыми параметрами.
				r.logger.Warn("failed to decode rule data",
					zap.Int64("rule_id", rule.ID),
					zap.Error(err))
			}
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keywords: %w", err)
	}

	r.mu.Lock()
	r.cache[chatID] = cachedRules{rules: rules, loadedAt: time.Now()}
	r.mu.Unlock()
	return rules, nil
}

// Add создаёт новое правило и сбрасывает кэш чата.
func (r *KeywordRepository) Add(ctx context.Context, chatID int64, kw string, target keyword.Target, operation keyword.Operation, data keyword.ActionData) (int64, error) {
	rawData, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal rule data: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO chat_keywords (chat_id, keyword, target, operation, data, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (chat_id, keyword, target, operation) DO UPDATE
		SET data = EXCLUDED.data, is_active = true
		RETURNING id
	`, chatID, kw, string(target), string(operation), rawData).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add keyword rule: %w", err)
	}

	r.invalidate(chatID)
	return id, nil
}

// Delete удаляет правило чата по id.
func (r *KeywordRepository) Delete(ctx context.Context, chatID, ruleID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_keywords WHERE chat_id = $1 AND id = $2
	`, chatID, ruleID)
	if err != nil {
		return false, fmt.Errorf("failed to delete keyword rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	r.invalidate(chatID)
	return rows > 0, nil
}

// List возвращает все правила чата, включая неактивные (для админ-команд).
func (r *KeywordRepository) List(ctx context.Context, chatID int64) ([]keyword.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, keyword, target, operation, data
		FROM chat_keywords
		WHERE chat_id = $1
		ORDER BY id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var rules []keyword.Rule
	for rows.Next() {
		var (
			rule    keyword.Rule
			rawData []byte
		)
		if err := rows.Scan(&rule.ID, &rule.ChatID, &rule.Keyword, (*string)(&rule.Target), (*string)(&rule.Operation), &rawData); err != nil {
			return nil, fmt.Errorf("failed to scan keyword rule: %w", err)
		}
		if len(rawData) > 0 {
			_ = json.Unmarshal(rawData, &rule.Data)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *KeywordRepository) invalidate(chatID int64) {
	r.mu.Lock()
	delete(r.cache, chatID)
	r.mu.Unlock()
}
