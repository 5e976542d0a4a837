package keyword

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Engine — оркестратор прохода по правилам чата.
// Русский комментарий: Один инстанс обслуживает конкурентные проходы по разным
// сообщениям, но внутри одного сообщения правила оцениваются строго по порядку —
// поздние правила могут зависеть от окон подавления, выставленных ранними.
type Engine struct {
	store      RuleStore
	dispatcher ActionDispatcher
	logger     *zap.Logger
}

func NewEngine(store RuleStore, dispatcher ActionDispatcher, logger *zap.Logger) *Engine {
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Process выполняет один проход правил чата по одному сообщению.
// Ошибка одного правила логируется и не прерывает оценку остальных.
func (e *Engine) Process(ctx context.Context, m *tele.Message) error {
	if m == nil || m.Chat == nil || m.Sender == nil {
		return nil
	}

	rules, err := e.store.GetKeywords(ctx, m.Chat.ID)
	if err != nil {
		return fmt.Errorf("load keywords for chat %d: %w", m.Chat.ID, err)
	}

	for _, rule := range rules {
		if !Matches(rule, m) {
			continue
		}

		result, err := e.dispatcher.Dispatch(ctx, rule, m)
		if err != nil {
			e.logger.Error("keyword rule failed",
				zap.Int64("chat_id", m.Chat.ID),
				zap.Int("message_id", m.ID),
				zap.Int64("rule_id", rule.ID),
				zap.String("operation", string(rule.Operation)),
				zap.Error(err))
			continue
		}
		if result == StopPass {
			break
		}
	}
	return nil
}
