// Package maintenance выполняет фоновую уборку по расписанию:
// чистит истёкшие ключи подавления и старые записи event_log.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/flybasist/keywarden/internal/postgresql/repositories"
	"github.com/flybasist/keywarden/internal/suppression"
)

type Maintenance struct {
	ledger    *suppression.PostgresLedger
	eventRepo *repositories.EventRepository
	retention time.Duration
	logger    *zap.Logger
	cron      *cron.Cron
}

func New(ledger *suppression.PostgresLedger, eventRepo *repositories.EventRepository, retention time.Duration, logger *zap.Logger) *Maintenance {
	return &Maintenance{
		ledger:    ledger,
		eventRepo: eventRepo,
		retention: retention,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start регистрирует задачи и запускает планировщик.
func (m *Maintenance) Start() error {
	// Истёкшие ключи подавления и так невидимы для запросов,
	// уборка нужна только чтобы таблица не росла бесконечно.
	if _, err := m.cron.AddFunc("@every 10m", m.purgeSuppression); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc("@daily", m.pruneEvents); err != nil {
		return err
	}

	m.cron.Start()
	m.logger.Info("maintenance started",
		zap.Duration("event_retention", m.retention))
	return nil
}

// Shutdown останавливает планировщик и дожидается завершения текущих задач.
func (m *Maintenance) Shutdown() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("maintenance stopped")
}

func (m *Maintenance) purgeSuppression() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := m.ledger.PurgeExpired(ctx)
	if err != nil {
		m.logger.Error("failed to purge suppression keys", zap.Error(err))
		return
	}
	if purged > 0 {
		m.logger.Info("expired suppression keys purged", zap.Int64("count", purged))
	}
}

func (m *Maintenance) pruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := m.eventRepo.PruneOlderThan(ctx, m.retention)
	if err != nil {
		m.logger.Error("failed to prune event log", zap.Error(err))
		return
	}
	if pruned > 0 {
		m.logger.Info("old events pruned", zap.Int64("count", pruned))
	}
}
