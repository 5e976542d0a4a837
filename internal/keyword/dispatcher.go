package keyword

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/flybasist/keywarden/internal/actionqueue"
	"github.com/flybasist/keywarden/internal/suppression"
)

// ActionDispatcher превращает декларативное действие сработавшего правила
// в отправку в очередь действий.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, rule Rule, m *tele.Message) (Result, error)
}

// Dispatcher — боевая реализация ActionDispatcher.
// Перед каждой отправкой сверяется с журналом подавления: действия не
// выполняются для пользователей под WARN/RESTRICT/BAN, для уже удалённых
// сообщений, и не дублируются в пределах минутного окна.
type Dispatcher struct {
	ledger suppression.Ledger
	queue  actionqueue.Queue
	logger *zap.Logger
}

func NewDispatcher(ledger suppression.Ledger, queue actionqueue.Queue, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		ledger: ledger,
		queue:  queue,
		logger: logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, rule Rule, m *tele.Message) (Result, error) {
	switch rule.Operation {
	case OperationForward:
		return d.forward(ctx, rule, m)
	case OperationReply:
		return d.reply(ctx, rule, m)
	default:
		// Неизвестная операция — no-op.
		return Continue, nil
	}
}

// moderationGate проверяет, не находится ли пользователь/сообщение под
// действием модерации. Ошибка журнала всплывает наружу: fail-open здесь
// пропустил бы дубликаты действий.
func (d *Dispatcher) moderationGate(ctx context.Context, m *tele.Message) (bool, error) {
	return d.ledger.HasAny(ctx,
		suppression.UserKey(suppression.PurposeWarn, m.Chat.ID, m.Sender.ID),
		suppression.UserKey(suppression.PurposeRestrict, m.Chat.ID, m.Sender.ID),
		suppression.UserKey(suppression.PurposeBan, m.Chat.ID, m.Sender.ID),
		suppression.MessageKey(suppression.PurposeDelete, m.Chat.ID, m.Sender.ID, m.ID),
	)
}

func (d *Dispatcher) forward(ctx context.Context, rule Rule, m *tele.Message) (Result, error) {
	gated, err := d.moderationGate(ctx, m)
	if err != nil {
		return Continue, fmt.Errorf("suppression lookup: %w", err)
	}
	if gated {
		return Continue, nil
	}

	// Ключ дедупликации захватывается до отправки, чтобы закрыть гонку
	// между двумя почти одновременными одинаковыми сообщениями.
	key := suppression.MessageKey(suppression.PurposeForward, m.Chat.ID, m.Sender.ID, m.ID)
	acquired, err := d.ledger.TryAcquire(ctx, key, suppression.DedupTTL)
	if err != nil {
		return Continue, fmt.Errorf("suppression acquire: %w", err)
	}
	if !acquired {
		return Continue, nil
	}

	if rule.Data.ChatID == 0 {
		// Правило без адресата пересылки — пересылать некуда.
		d.logger.Debug("forward rule has no destination chat, skipping",
			zap.Int64("chat_id", m.Chat.ID),
			zap.Int64("rule_id", rule.ID))
		return Continue, nil
	}

	req := actionqueue.Request{
		Kind:      actionqueue.KindText,
		ChatID:    rule.Data.ChatID,
		Text:      buildForwardBody(rule.Data, m),
		ParseMode: tele.ModeHTML,
	}
	if err := d.queue.Submit(ctx, req, 0); err != nil {
		return Continue, fmt.Errorf("enqueue forward: %w", err)
	}

	d.logger.Info("keyword forward dispatched",
		zap.Int64("chat_id", m.Chat.ID),
		zap.Int64("user_id", m.Sender.ID),
		zap.Int("message_id", m.ID),
		zap.Int64("rule_id", rule.ID),
		zap.Int64("dest_chat_id", rule.Data.ChatID))
	return Continue, nil
}

// buildForwardBody собирает текст пересылаемого конверта.
// Оригинальный текст длиннее 32 символов обрезается до 64 с многоточием.
func buildForwardBody(data ActionData, m *tele.Message) string {
	var b strings.Builder
	b.WriteString("Forwarded Message:\n\n")
	if data.Text != "" {
		b.WriteString(data.Text)
		b.WriteString("\n\n")
	}

	original := m.Text
	if original == "" {
		original = m.Caption
	}
	runes := []rune(original)
	if len(runes) > 32 {
		if len(runes) > 64 {
			runes = runes[:64]
		}
		b.WriteString(string(runes))
		b.WriteString("...")
	} else {
		b.WriteString(original)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Message ID: <code>%d</code>\n", m.ID)
	fmt.Fprintf(&b, "From Chat: <code>%d</code>\n", m.Chat.ID)
	fmt.Fprintf(&b, "From User: <a href='tg://user?id=%d'>%d</a>\n", m.Sender.ID, m.Sender.ID)

	cid := strings.ReplaceAll(strconv.FormatInt(m.Chat.ID, 10), "-100", "")
	fmt.Fprintf(&b, "Message Link: https://t.me/c/%s/%d", cid, m.ID)
	return b.String()
}

func (d *Dispatcher) reply(ctx context.Context, rule Rule, m *tele.Message) (Result, error) {
	gated, err := d.moderationGate(ctx, m)
	if err != nil {
		return Continue, fmt.Errorf("suppression lookup: %w", err)
	}
	if gated {
		return Continue, nil
	}

	key := suppression.MessageKey(suppression.PurposeReply, m.Chat.ID, m.Sender.ID, m.ID)
	acquired, err := d.ledger.TryAcquire(ctx, key, suppression.DedupTTL)
	if err != nil {
		return Continue, fmt.Errorf("suppression acquire: %w", err)
	}
	if !acquired {
		return Continue, nil
	}

	switch rule.Data.Type {
	case "text":
		if rule.Data.Text == "" {
			return Continue, nil
		}
		req := actionqueue.Request{
			Kind:    actionqueue.KindText,
			ChatID:  m.Chat.ID,
			ReplyTo: m.ID,
			Text:    rule.Data.Text,
			Buttons: rule.Data.Button,
		}
		if err := d.queue.Submit(ctx, req, 0); err != nil {
			return Continue, fmt.Errorf("enqueue reply: %w", err)
		}
		d.logger.Info("keyword reply dispatched",
			zap.Int64("chat_id", m.Chat.ID),
			zap.Int64("user_id", m.Sender.ID),
			zap.Int("message_id", m.ID),
			zap.Int64("rule_id", rule.ID))
	case "sticker":
		// Ответ стикером пока не реализован: запрос молча отбрасывается.
	}
	return Continue, nil
}
