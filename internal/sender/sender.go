// Package sender — воркер доставки: читает действия из Kafka и выполняет их
// через Telegram API. Доставка at-least-once: offset коммитится только после
// успешной обработки, ретраи с backoff ограничены числом попыток.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/flybasist/keywarden/internal/actionqueue"
)

const maxAttempts = 3

type Worker struct {
	bot          *tele.Bot
	sendReader   *kafka.Reader
	deleteReader *kafka.Reader
	logger       *zap.Logger
}

func New(bot *tele.Bot, brokers []string, groupSender, groupDelete string, logger *zap.Logger) *Worker {
	return &Worker{
		bot:          bot,
		sendReader:   actionqueue.NewReader(brokers, actionqueue.TopicSend, groupSender),
		deleteReader: actionqueue.NewReader(brokers, actionqueue.TopicDelete, groupDelete),
		logger:       logger,
	}
}

// Run запускает оба цикла потребления и блокируется до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.consume(ctx, w.sendReader, "send", w.handleSend)
	}()
	go func() {
		defer wg.Done()
		w.consume(ctx, w.deleteReader, "delete", w.handleDelete)
	}()
	wg.Wait()

	w.sendReader.Close()
	w.deleteReader.Close()
}

// consume — общий цикл: FetchMessage без автокоммита, явный commit после обработки.
func (w *Worker) consume(ctx context.Context, reader *kafka.Reader, name string, handle func(context.Context, []byte) error) {
	log := w.logger.Named("sender." + name)
	log.Info("kafka reader started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("context canceled, stopping consumer")
				return
			}
			log.Warn("failed to fetch message", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		start := time.Now()
		if err := handle(ctx, msg.Value); err != nil {
			// Исчерпали ретраи — коммитим и идём дальше, иначе одно ядовитое
			// сообщение остановит всю партицию. В будущем: DLQ.
			log.Error("failed to handle message after retries",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
			continue
		}
		log.Debug("message processed",
			zap.Int64("offset", msg.Offset),
			zap.Duration("latency", time.Since(start)))
	}
}

func (w *Worker) handleSend(ctx context.Context, raw []byte) error {
	var req actionqueue.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse action request: %w", err)
	}

	// Отложенная доставка: ждём запрошенную задержку перед отправкой.
	if req.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(req.Delay) * time.Second):
		}
	}

	switch req.Kind {
	case actionqueue.KindText:
		return w.withRetry(ctx, func() error { return w.sendText(req) })
	case actionqueue.KindSticker:
		return w.withRetry(ctx, func() error {
			sticker := &tele.Sticker{File: tele.File{FileID: req.Sticker}}
			_, err := w.bot.Send(tele.ChatID(req.ChatID), sticker)
			return err
		})
	case actionqueue.KindBan:
		return w.withRetry(ctx, func() error {
			member := &tele.ChatMember{
				User:            &tele.User{ID: req.UserID},
				RestrictedUntil: req.Until,
			}
			return w.bot.Ban(&tele.Chat{ID: req.ChatID}, member)
		})
	case actionqueue.KindRestrict:
		return w.withRetry(ctx, func() error {
			member := &tele.ChatMember{
				User:            &tele.User{ID: req.UserID},
				Rights:          tele.NoRights(),
				RestrictedUntil: req.Until,
			}
			return w.bot.Restrict(&tele.Chat{ID: req.ChatID}, member)
		})
	default:
		w.logger.Warn("unknown action kind, dropping", zap.String("kind", req.Kind))
		return nil
	}
}

func (w *Worker) sendText(req actionqueue.Request) error {
	opts := &tele.SendOptions{
		ParseMode: req.ParseMode,
		Protected: req.Protect,
	}
	if req.ReplyTo != 0 {
		opts.ReplyTo = &tele.Message{ID: req.ReplyTo, Chat: &tele.Chat{ID: req.ChatID}}
	}
	if len(req.Buttons) > 0 {
		markup := &tele.ReplyMarkup{}
		for _, row := range req.Buttons {
			var line []tele.InlineButton
			for _, btn := range row {
				line = append(line, tele.InlineButton{Text: btn.Text, URL: btn.URL})
			}
			markup.InlineKeyboard = append(markup.InlineKeyboard, line)
		}
		opts.ReplyMarkup = markup
	}

	_, err := w.bot.Send(tele.ChatID(req.ChatID), req.Text, opts)
	return err
}

func (w *Worker) handleDelete(ctx context.Context, raw []byte) error {
	var req actionqueue.DeleteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse delete request: %w", err)
	}

	return w.withRetry(ctx, func() error {
		return w.bot.Delete(&tele.StoredMessage{
			MessageID: fmt.Sprint(req.MessageID),
			ChatID:    req.ChatID,
		})
	})
}

// withRetry выполняет вызов Telegram API с ограниченными ретраями.
// FloodError уважает retry_after от Telegram вместо обычного backoff.
func (w *Worker) withRetry(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = call()
		if lastErr == nil {
			return nil
		}

		wait := time.Duration(attempt) * time.Second
		var flood tele.FloodError
		if errors.As(lastErr, &flood) {
			wait = time.Duration(flood.RetryAfter) * time.Second
		}

		w.logger.Warn("telegram call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", maxAttempts, lastErr)
}
