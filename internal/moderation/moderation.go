// Package moderation реализует админ-команды /warn, /restrict, /ban, /wipe.
// Этот модуль — единственный владелец окон WARN/RESTRICT/BAN/DELETE в журнале
// подавления: движок ключевых слов их только читает.
package moderation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/flybasist/keywarden/internal/actionqueue"
	"github.com/flybasist/keywarden/internal/postgresql/repositories"
	"github.com/flybasist/keywarden/internal/suppression"
)

// deleteTTL — окно, в течение которого удалённое сообщение блокирует
// forward/reply по этому же сообщению.
const deleteTTL = 24 * time.Hour

type Module struct {
	bot         *tele.Bot
	ledger      suppression.Ledger
	queue       actionqueue.Queue
	eventRepo   *repositories.EventRepository
	logger      *zap.Logger
	warnTTL     time.Duration
	restrictTTL time.Duration
	banTTL      time.Duration
}

func New(
	bot *tele.Bot,
	ledger suppression.Ledger,
	queue actionqueue.Queue,
	eventRepo *repositories.EventRepository,
	logger *zap.Logger,
	warnTTL, restrictTTL, banTTL time.Duration,
) *Module {
	return &Module{
		bot:         bot,
		ledger:      ledger,
		queue:       queue,
		eventRepo:   eventRepo,
		logger:      logger,
		warnTTL:     warnTTL,
		restrictTTL: restrictTTL,
		banTTL:      banTTL,
	}
}

// RegisterAdminCommands регистрирует команды модерации.
func (m *Module) RegisterAdminCommands(bot *tele.Bot) {
	bot.Handle("/warn", m.handleWarn)
	bot.Handle("/restrict", m.handleRestrict)
	bot.Handle("/ban", m.handleBan)
	bot.Handle("/wipe", m.handleWipe)
}

// replyTarget валидирует команду: только админ, только ответом на сообщение.
// Опциональный аргумент — длительность окна в минутах.
func (m *Module) replyTarget(c tele.Context, def time.Duration) (*tele.Message, time.Duration, error) {
	ok, err := isChatAdmin(m.bot, c.Chat(), c.Sender().ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to check admin rights: %w", err)
	}
	if !ok {
		return nil, 0, errNotAdmin
	}

	target := c.Message().ReplyTo
	if target == nil || target.Sender == nil {
		return nil, 0, errNoReply
	}

	ttl := def
	if args := c.Args(); len(args) > 0 {
		minutes, err := strconv.Atoi(args[0])
		if err != nil || minutes <= 0 {
			return nil, 0, errBadDuration
		}
		ttl = time.Duration(minutes) * time.Minute
	}
	return target, ttl, nil
}

var (
	errNotAdmin    = fmt.Errorf("not admin")
	errNoReply     = fmt.Errorf("no reply target")
	errBadDuration = fmt.Errorf("bad duration")
)

func (m *Module) replyUsage(c tele.Context, err error, usage string) error {
	switch err {
	case errNotAdmin:
		return c.Send("❌ Команда доступна только администраторам")
	case errNoReply:
		return c.Send("❌ Ответьте этой командой на сообщение пользователя")
	case errBadDuration:
		return c.Send("Использование: " + usage)
	default:
		m.logger.Error("moderation command failed", zap.Error(err))
		return c.Send("❌ Не удалось выполнить команду")
	}
}

func (m *Module) handleWarn(c tele.Context) error {
	target, ttl, err := m.replyTarget(c, m.warnTTL)
	if err != nil {
		return m.replyUsage(c, err, "/warn [минуты]")
	}

	ctx := context.Background()
	key := suppression.UserKey(suppression.PurposeWarn, c.Chat().ID, target.Sender.ID)
	if err := m.ledger.Put(ctx, key, ttl); err != nil {
		return m.replyUsage(c, err, "")
	}

	m.logEvent(ctx, c, target, "warn", ttl)
	return c.Send(fmt.Sprintf("⚠️ Пользователь %d предупреждён на %s", target.Sender.ID, ttl))
}

func (m *Module) handleRestrict(c tele.Context) error {
	target, ttl, err := m.replyTarget(c, m.restrictTTL)
	if err != nil {
		return m.replyUsage(c, err, "/restrict [минуты]")
	}

	ctx := context.Background()
	key := suppression.UserKey(suppression.PurposeRestrict, c.Chat().ID, target.Sender.ID)
	if err := m.ledger.Put(ctx, key, ttl); err != nil {
		return m.replyUsage(c, err, "")
	}

	req := actionqueue.Request{
		Kind:   actionqueue.KindRestrict,
		ChatID: c.Chat().ID,
		UserID: target.Sender.ID,
		Until:  time.Now().Add(ttl).Unix(),
	}
	if err := m.queue.Submit(ctx, req, 0); err != nil {
		return m.replyUsage(c, err, "")
	}

	m.logEvent(ctx, c, target, "restrict", ttl)
	return c.Send(fmt.Sprintf("🔇 Пользователь %d ограничен на %s", target.Sender.ID, ttl))
}

func (m *Module) handleBan(c tele.Context) error {
	target, ttl, err := m.replyTarget(c, m.banTTL)
	if err != nil {
		return m.replyUsage(c, err, "/ban [минуты]")
	}

	ctx := context.Background()
	key := suppression.UserKey(suppression.PurposeBan, c.Chat().ID, target.Sender.ID)
	if err := m.ledger.Put(ctx, key, ttl); err != nil {
		return m.replyUsage(c, err, "")
	}

	req := actionqueue.Request{
		Kind:   actionqueue.KindBan,
		ChatID: c.Chat().ID,
		UserID: target.Sender.ID,
		Until:  time.Now().Add(ttl).Unix(),
	}
	if err := m.queue.Submit(ctx, req, 0); err != nil {
		return m.replyUsage(c, err, "")
	}

	m.logEvent(ctx, c, target, "ban", ttl)
	return c.Send(fmt.Sprintf("🚫 Пользователь %d забанен на %s", target.Sender.ID, ttl))
}

// handleWipe удаляет сообщение и записывает окно DELETE, чтобы движок
// не пересылал и не отвечал на уже удалённое сообщение.
func (m *Module) handleWipe(c tele.Context) error {
	target, _, err := m.replyTarget(c, deleteTTL)
	if err != nil {
		return m.replyUsage(c, err, "/wipe")
	}

	ctx := context.Background()
	key := suppression.MessageKey(suppression.PurposeDelete, c.Chat().ID, target.Sender.ID, target.ID)
	if err := m.ledger.Put(ctx, key, deleteTTL); err != nil {
		return m.replyUsage(c, err, "")
	}

	req := actionqueue.DeleteRequest{ChatID: c.Chat().ID, MessageID: target.ID}
	if err := m.queue.SubmitDelete(ctx, req); err != nil {
		return m.replyUsage(c, err, "")
	}

	m.logEvent(ctx, c, target, "wipe", deleteTTL)
	return c.Send("🗑 Сообщение поставлено на удаление")
}

func (m *Module) logEvent(ctx context.Context, c tele.Context, target *tele.Message, eventType string, ttl time.Duration) {
	details := fmt.Sprintf("by=%d target_message=%d ttl=%s", c.Sender().ID, target.ID, ttl)
	if err := m.eventRepo.Log(ctx, c.Chat().ID, target.Sender.ID, "moderation", eventType, details); err != nil {
		m.logger.Error("failed to log moderation event", zap.Error(err))
	}
}

// isChatAdmin проверяет, является ли пользователь админом или владельцем чата.
func isChatAdmin(bot *tele.Bot, chat *tele.Chat, userID int64) (bool, error) {
	if chat.Type != tele.ChatGroup && chat.Type != tele.ChatSuperGroup {
		// В приватных чатах никто не считается админом
		return false, nil
	}
	admins, err := bot.AdminsOf(chat)
	if err != nil {
		return false, err
	}
	for _, admin := range admins {
		if admin.User.ID == userID {
			return true, nil
		}
	}
	return false, nil
}
