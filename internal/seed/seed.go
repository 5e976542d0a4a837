// Package seed загружает начальный набор правил из YAML-файла.
// Русский комментарий: Удобно для чистого развёртывания — базовые правила
// чатов версионируются рядом с конфигами, а не вбиваются командами вручную.
package seed

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flybasist/keywarden/internal/actionqueue"
	"github.com/flybasist/keywarden/internal/keyword"
	"github.com/flybasist/keywarden/internal/postgresql/repositories"
)

// Entry — одно правило из seed-файла.
type Entry struct {
	ChatID    int64  `yaml:"chat_id"`
	Keyword   string `yaml:"keyword"`
	Target    string `yaml:"target"`
	Operation string `yaml:"operation"`
	Data      Data   `yaml:"data"`
}

// Data — параметры операции в seed-файле.
type Data struct {
	ChatID  int64      `yaml:"chat_id"`
	Type    string     `yaml:"type"`
	Text    string     `yaml:"text"`
	Sticker string     `yaml:"sticker"`
	Button  [][]Button `yaml:"button"`
}

type Button struct {
	Text string `yaml:"text"`
	URL  string `yaml:"url"`
}

// Load читает и разбирает seed-файл.
func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, e := range entries {
		if e.ChatID == 0 || e.Keyword == "" || e.Target == "" || e.Operation == "" {
			return nil, fmt.Errorf("seed entry %d: chat_id, keyword, target and operation are required", i)
		}
	}
	return entries, nil
}

// Ensure применяет seed-файл идемпотентно: существующие правила обновляются,
// новые создаются (upsert по chat_id+keyword+target+operation).
func Ensure(ctx context.Context, repo *repositories.KeywordRepository, path string, logger *zap.Logger) error {
	entries, err := Load(path)
	if err != nil {
		return err
	}

	for _, e := range entries {
		data := keyword.ActionData{
			ChatID:  e.Data.ChatID,
			Type:    e.Data.Type,
			Text:    e.Data.Text,
			Sticker: e.Data.Sticker,
		}
		for _, row := range e.Data.Button {
			var buttons []actionqueue.Button
			for _, btn := range row {
				buttons = append(buttons, actionqueue.Button{Text: btn.Text, URL: btn.URL})
			}
			data.Button = append(data.Button, buttons)
		}

		id, err := repo.Add(ctx, e.ChatID, e.Keyword, keyword.Target(e.Target), keyword.Operation(e.Operation), data)
		if err != nil {
			return fmt.Errorf("failed to seed rule for chat %d: %w", e.ChatID, err)
		}
		logger.Debug("seed rule ensured",
			zap.Int64("chat_id", e.ChatID),
			zap.Int64("rule_id", id),
			zap.String("keyword", e.Keyword))
	}

	logger.Info("seed rules loaded", zap.String("path", path), zap.Int("count", len(entries)))
	return nil
}
