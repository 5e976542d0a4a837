// Package keyword реализует движок чат-правил: сопоставление входящих
// сообщений с ключевыми словами и постановку действий (forward/reply)
// в очередь доставки с окнами подавления дубликатов.
package keyword

import (
	"context"

	"github.com/flybasist/keywarden/internal/actionqueue"
)

// Target — фасет сообщения, с которым сравнивается ключевое слово.
type Target string

const (
	TargetChatID   Target = "chatid"
	TargetUserID   Target = "userid"
	TargetName     Target = "name"
	TargetFromName Target = "fromname"
	TargetTitle    Target = "title"
	TargetText     Target = "text"
	TargetDice     Target = "dice"
	TargetSticker  Target = "sticker"
)

// Operation — действие сработавшего правила.
type Operation string

const (
	OperationForward Operation = "forward"
	OperationReply   Operation = "reply"
)

// ActionData — параметры операции правила (колонка data, JSONB).
// Для forward используется ChatID (куда пересылать) и опциональный Text (шапка).
// Для reply — Type ("text"/"sticker"), Text, Sticker и Button.
type ActionData struct {
	ChatID  int64                   `json:"chat_id,omitempty"`
	Type    string                  `json:"type,omitempty"`
	Text    string                  `json:"text,omitempty"`
	Sticker string                  `json:"sticker,omitempty"`
	Button  [][]actionqueue.Button  `json:"button,omitempty"`
}

// Rule — правило чата. Для движка правила read-only: владение и мутации
// целиком в репозитории. Порядок правил внутри чата стабилен (ORDER BY id)
// и определяет порядок прохода.
type Rule struct {
	ID        int64
	ChatID    int64
	Keyword   string
	Target    Target
	Operation Operation
	Data      ActionData
}

// RuleStore отдаёт упорядоченный список активных правил чата.
type RuleStore interface {
	GetKeywords(ctx context.Context, chatID int64) ([]Rule, error)
}

// Result — исход обработки одного правила.
// Русский комментарий: Явный результат вместо мутабельного флага stop внутри
// движка — один инстанс движка обслуживает конкурентные проходы.
type Result int

const (
	// Continue — проход продолжается со следующего правила.
	Continue Result = iota
	// StopPass — правило запросило эксклюзивную обработку, проход завершается.
	// Сейчас ни одна операция его не возвращает, но хук сохранён намеренно.
	StopPass
)
