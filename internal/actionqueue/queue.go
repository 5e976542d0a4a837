package actionqueue

import "context"

// Kind — тип исходящего действия для sender.
const (
	KindText     = "text"
	KindSticker  = "sticker"
	KindBan      = "ban"
	KindRestrict = "restrict"
)

// Button — кнопка inline-клавиатуры (подпись + ссылка).
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Request — исходящее действие, сериализуемое в Kafka.
// Порядок рядов и кнопок в Buttons сохраняется как есть.
type Request struct {
	Kind      string     `json:"kind"`
	ChatID    int64      `json:"chat_id"`
	ReplyTo   int        `json:"reply_to_message_id,omitempty"`
	Text      string     `json:"text,omitempty"`
	Sticker   string     `json:"sticker,omitempty"`
	ParseMode string     `json:"parse_mode,omitempty"`
	Buttons   [][]Button `json:"buttons,omitempty"`
	Protect   bool       `json:"protect_content,omitempty"`
	UserID    int64      `json:"user_id,omitempty"`    // для ban/restrict
	Until     int64      `json:"until_date,omitempty"` // unix, для ban/restrict
	Delay     int        `json:"delay_seconds,omitempty"`
}

// DeleteRequest — команда удаления сообщения.
type DeleteRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Queue — асинхронная очередь исходящих действий.
// Русский комментарий: Submit не ждёт доставки — retry и backoff целиком
// на стороне sender. Синхронная ошибка означает проблему постановки в очередь
// (недоступный брокер, кривой запрос), а не сбой доставки.
type Queue interface {
	Submit(ctx context.Context, req Request, delaySeconds int) error
	SubmitDelete(ctx context.Context, req DeleteRequest) error
}
