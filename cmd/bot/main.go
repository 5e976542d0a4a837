package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/flybasist/keywarden/internal/actionqueue"
	"github.com/flybasist/keywarden/internal/audit"
	"github.com/flybasist/keywarden/internal/config"
	"github.com/flybasist/keywarden/internal/keyword"
	"github.com/flybasist/keywarden/internal/listener"
	"github.com/flybasist/keywarden/internal/logx"
	"github.com/flybasist/keywarden/internal/maintenance"
	"github.com/flybasist/keywarden/internal/migrations"
	"github.com/flybasist/keywarden/internal/moderation"
	"github.com/flybasist/keywarden/internal/postgresql"
	"github.com/flybasist/keywarden/internal/postgresql/repositories"
	"github.com/flybasist/keywarden/internal/seed"
	"github.com/flybasist/keywarden/internal/suppression"
)

func main() {
	// Русский комментарий: Главная точка входа бота.
	// 1. Загружаем конфиг
	// 2. Инициализируем логгер
	// 3. Подключаемся к PostgreSQL и применяем миграции
	// 4. Загружаем seed-правила (если указан SEED_RULES_PATH)
	// 5. Создаём telebot.v3 бота с Long Polling
	// 6. Собираем движок правил: журнал подавления + очередь действий
	// 7. Регистрируем listener и команды модерации
	// 8. Запускаем фоновую уборку по расписанию
	// 9. Ждём SIGINT/SIGTERM для graceful shutdown

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logx.NewLogger(cfg.LogLevel, cfg.LogPretty, logx.LogRotationConfig{})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting keywarden bot",
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("log_pretty", cfg.LogPretty),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Int("polling_timeout", cfg.PollingTimeout),
		zap.Int("concurrency", cfg.Concurrency),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgresql.ConnectToBase(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	if err := postgresql.PingWithRetry(ctx, db, 10, 2*time.Second, logger); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	logger.Info("connected to postgresql")

	if err := migrations.RunMigrationsIfNeeded(ctx, db, logger); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logger.Info("database schema ready")

	keywordRepo := repositories.NewKeywordRepository(db, logger)
	chatRepo := repositories.NewChatRepository(db)
	eventRepo := repositories.NewEventRepository(db)

	if cfg.SeedRulesPath != "" {
		if err := seed.Ensure(ctx, keywordRepo, cfg.SeedRulesPath, logger); err != nil {
			return fmt.Errorf("failed to apply seed rules: %w", err)
		}
	}

	pref := tele.Settings{
		Token:  cfg.TelegramBotToken,
		Poller: &tele.LongPoller{Timeout: time.Duration(cfg.PollingTimeout) * time.Second},
	}
	bot, err := tele.NewBot(pref)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("bot created successfully",
		zap.String("bot_username", bot.Me.Username),
		zap.Int64("bot_id", bot.Me.ID),
	)

	ledger := suppression.NewPostgresLedger(db)
	queue := actionqueue.NewKafkaQueue(cfg.KafkaBrokers)
	defer queue.Close()

	dispatcher := keyword.NewDispatcher(ledger, queue, logger)
	engine := keyword.NewEngine(keywordRepo, dispatcher, logger)

	// Опциональный контур аудита: без RABBIT_URL бот работает как обычно.
	var auditPub *audit.Publisher
	if cfg.RabbitURL != "" {
		auditPub, err = audit.NewPublisher(cfg.RabbitURL)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer auditPub.Close()
		logger.Info("audit publisher connected")
	}

	lst := listener.New(bot, engine, chatRepo, keywordRepo, auditPub, logger, cfg.Concurrency)
	lst.Register(ctx)

	mod := moderation.New(bot, ledger, queue, eventRepo, logger, cfg.WarnTTL, cfg.RestrictTTL, cfg.BanTTL)
	mod.RegisterAdminCommands(bot)

	maint := maintenance.New(ledger, eventRepo, cfg.EventRetention, logger)
	if err := maint.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("bot started, polling for updates...")
		bot.Start()
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down bot...")
	bot.Stop()
	cancel()

	logger.Info("shutting down maintenance...")
	maint.Shutdown()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout exceeded")
	default:
		logger.Info("bot shutdown complete")
		return nil
	}
}
