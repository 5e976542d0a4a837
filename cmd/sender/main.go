package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/flybasist/keywarden/internal/config"
	"github.com/flybasist/keywarden/internal/logx"
	"github.com/flybasist/keywarden/internal/sender"
)

func main() {
	// Русский комментарий: Точка входа воркера доставки.
	// Читает действия из Kafka (telegram-send, telegram-delete) и выполняет
	// их через Telegram API. Запускается отдельно от бота, чтобы лимиты
	// Telegram не тормозили приём апдейтов.

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

	logger, err := logx.NewLogger(cfg.LogLevel, cfg.LogPretty, logx.LogRotationConfig{
		Filename: "logs/keywarden-sender.log",
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting keywarden sender",
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("group_sender", cfg.KafkaGroupSender),
		zap.String("group_delete", cfg.KafkaGroupDelete),
	)

	// Poller не нужен: воркер только отправляет, апдейты не читает.
	bot, err := tele.NewBot(tele.Settings{Token: cfg.TelegramBotToken})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("bot API client ready", zap.String("bot_username", bot.Me.Username))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	worker := sender.New(bot, cfg.KafkaBrokers, cfg.KafkaGroupSender, cfg.KafkaGroupDelete, logger)
	worker.Run(ctx)

	logger.Info("sender shutdown complete")
	return nil
}
