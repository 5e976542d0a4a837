// Package listener принимает апдейты Telegram и гонит сообщения через движок
// правил. Здесь же живут админ-команды управления правилами чата.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/flybasist/keywarden/internal/audit"
	"github.com/flybasist/keywarden/internal/keyword"
	"github.com/flybasist/keywarden/internal/postgresql/repositories"
)

const version = "1.0.0"

type Listener struct {
	bot         *tele.Bot
	engine      *keyword.Engine
	chatRepo    *repositories.ChatRepository
	keywordRepo *repositories.KeywordRepository
	auditPub    *audit.Publisher // nil — зеркалирование выключено
	logger      *zap.Logger
	sem         chan struct{}
}

func New(
	bot *tele.Bot,
	engine *keyword.Engine,
	chatRepo *repositories.ChatRepository,
	keywordRepo *repositories.KeywordRepository,
	auditPub *audit.Publisher,
	logger *zap.Logger,
	concurrency int,
) *Listener {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Listener{
		bot:         bot,
		engine:      engine,
		chatRepo:    chatRepo,
		keywordRepo: keywordRepo,
		auditPub:    auditPub,
		logger:      logger,
		sem:         make(chan struct{}, concurrency),
	}
}

// Register навешивает middleware, команды и общий обработчик контента.
func (l *Listener) Register(ctx context.Context) {
	l.bot.Use(LoggerMiddleware(l.logger), PanicRecoveryMiddleware(l.logger))

	l.bot.Handle("/start", l.handleStart)
	l.bot.Handle("/help", l.handleHelp)
	l.bot.Handle("/version", func(c tele.Context) error {
		return c.Send("keywarden " + version)
	})

	l.bot.Handle("/addkeyword", l.handleAddKeyword)
	l.bot.Handle("/listkeywords", l.handleListKeywords)
	l.bot.Handle("/delkeyword", l.handleDelKeyword)

	// Движок должен видеть любой контент, по которому есть фасеты:
	// текст, подписи к медиа, стикеры, кости и пересланные сообщения.
	events := []string{
		tele.OnText, tele.OnPhoto, tele.OnVideo, tele.OnDocument,
		tele.OnAnimation, tele.OnVoice, tele.OnAudio,
		tele.OnSticker, tele.OnDice,
	}
	for _, event := range events {
		l.bot.Handle(event, l.handleContent(ctx))
	}
}

func (l *Listener) handleStart(c tele.Context) error {
	return c.Send("👋 Привет! Я слежу за ключевыми словами в этом чате.\nСписок команд: /help")
}

func (l *Listener) handleHelp(c tele.Context) error {
	return c.Send(`📖 Команды keywarden:

/addkeyword <слово> <target> <operation> [параметр] — добавить правило
  target: chatid, userid, name, fromname, title, text, dice, sticker
  operation: forward (параметр — chat_id назначения)
             reply (параметр — текст ответа)
/listkeywords — список правил чата
/delkeyword <id> — удалить правило

Модерация (только админы, ответом на сообщение):
/warn [минуты] — предупреждение
/restrict [минуты] — ограничение
/ban [минуты] — бан
/wipe — удалить сообщение`)
}

// handleContent возвращает хендлер, прогоняющий сообщение через движок.
// Обработка уходит в горутину под семафором, чтобы медленный чат
// не задерживал long polling.
func (l *Listener) handleContent(ctx context.Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg := c.Message()
		if msg == nil || strings.HasPrefix(msg.Text, "/") {
			return nil
		}

		if err := l.chatRepo.GetOrCreate(ctx, msg.Chat.ID, string(msg.Chat.Type), msg.Chat.Title, msg.Chat.Username); err != nil {
			l.logger.Error("failed to upsert chat", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		}

		l.mirrorUpdate(c)

		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}
		go func() {
			defer func() { <-l.sem }()
			if err := l.engine.Process(ctx, msg); err != nil {
				l.logger.Error("keyword engine failed",
					zap.Int64("chat_id", msg.Chat.ID),
					zap.Int("message_id", msg.ID),
					zap.Error(err))
			}
		}()
		return nil
	}
}

// mirrorUpdate публикует сырой апдейт в RabbitMQ для контура аудита.
func (l *Listener) mirrorUpdate(c tele.Context) {
	if l.auditPub == nil {
		return
	}
	raw, err := json.Marshal(c.Update())
	if err != nil {
		l.logger.Error("failed to marshal update for audit", zap.Error(err))
		return
	}
	if err := l.auditPub.Publish(raw); err != nil {
		l.logger.Error("failed to publish update to audit queue", zap.Error(err))
	}
}

func (l *Listener) handleAddKeyword(c tele.Context) error {
	ok, err := isChatAdmin(l.bot, c.Chat(), c.Sender().ID)
	if err != nil {
		l.logger.Error("failed to check admin rights", zap.Error(err))
		return c.Send("❌ Не удалось проверить права")
	}
	if !ok {
		return c.Send("❌ Команда доступна только администраторам")
	}

	usage := "Использование: /addkeyword <слово> <target> <operation> [параметр]\n" +
		"Пример: /addkeyword spam text forward -1001234567890\n" +
		"Пример: /addkeyword привет text reply Добро пожаловать!"

	args := strings.SplitN(c.Text(), " ", 5)
	if len(args) < 4 {
		return c.Send(usage)
	}

	kw := args[1]
	target := keyword.Target(strings.ToLower(args[2]))
	operation := keyword.Operation(strings.ToLower(args[3]))
	param := ""
	if len(args) == 5 {
		param = args[4]
	}

	if !validTarget(target) {
		return c.Send("❌ Неизвестный target: " + string(target))
	}

	var data keyword.ActionData
	switch operation {
	case keyword.OperationForward:
		destID, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			return c.Send("❌ Для forward укажите chat_id назначения\n" + usage)
		}
		data.ChatID = destID
	case keyword.OperationReply:
		if param == "" {
			return c.Send("❌ Для reply укажите текст ответа\n" + usage)
		}
		data.Type = "text"
		data.Text = param
	default:
		return c.Send("❌ Operation должна быть: forward или reply")
	}

	ctx := context.Background()
	id, err := l.keywordRepo.Add(ctx, c.Chat().ID, kw, target, operation, data)
	if err != nil {
		l.logger.Error("failed to add keyword rule", zap.Error(err))
		return c.Send("❌ Не удалось добавить правило")
	}

	return c.Send(fmt.Sprintf("✅ Правило #%d добавлено\n\nСлово: %s\nTarget: %s\nOperation: %s", id, kw, target, operation))
}

func (l *Listener) handleListKeywords(c tele.Context) error {
	ok, err := isChatAdmin(l.bot, c.Chat(), c.Sender().ID)
	if err != nil || !ok {
		return c.Send("❌ Команда доступна только администраторам")
	}

	rules, err := l.keywordRepo.List(context.Background(), c.Chat().ID)
	if err != nil {
		l.logger.Error("failed to list keyword rules", zap.Error(err))
		return c.Send("❌ Не удалось получить список")
	}

	if len(rules) == 0 {
		return c.Send("ℹ️ В этом чате нет правил")
	}

	text := "🔑 *Правила чата:*\n\n"
	for i, r := range rules {
		text += fmt.Sprintf("%d. ID: %d\n   Слово: `%s`\n   Target: %s, operation: %s\n\n",
			i+1, r.ID, r.Keyword, r.Target, r.Operation)
	}
	return c.Send(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
}

func (l *Listener) handleDelKeyword(c tele.Context) error {
	ok, err := isChatAdmin(l.bot, c.Chat(), c.Sender().ID)
	if err != nil || !ok {
		return c.Send("❌ Команда доступна только администраторам")
	}

	args := strings.Fields(c.Text())
	if len(args) != 2 {
		return c.Send("Использование: /delkeyword <id>\nПример: /delkeyword 3")
	}

	ruleID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Send("❌ ID должен быть числом")
	}

	deleted, err := l.keywordRepo.Delete(context.Background(), c.Chat().ID, ruleID)
	if err != nil {
		l.logger.Error("failed to delete keyword rule", zap.Error(err))
		return c.Send("❌ Не удалось удалить")
	}
	if !deleted {
		return c.Send("ℹ️ Правило не найдено")
	}
	return c.Send(fmt.Sprintf("✅ Правило #%d удалено", ruleID))
}

func validTarget(t keyword.Target) bool {
	switch t {
	case keyword.TargetChatID, keyword.TargetUserID, keyword.TargetName,
		keyword.TargetFromName, keyword.TargetTitle, keyword.TargetText,
		keyword.TargetDice, keyword.TargetSticker:
		return true
	}
	return false
}

// isChatAdmin проверяет, является ли пользователь админом чата.
func isChatAdmin(bot *tele.Bot, chat *tele.Chat, userID int64) (bool, error) {
	if chat.Type != tele.ChatGroup && chat.Type != tele.ChatSuperGroup {
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
