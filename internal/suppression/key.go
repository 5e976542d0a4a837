package suppression

import (
	"fmt"
	"time"
)

// Purpose — вид окна подавления.
// Русский комментарий: WARN/RESTRICT/BAN/DELETE пишет модуль модерации,
// FORWARD/REPLY — сам движок ключевых слов (дедупликация действий).
type Purpose string

const (
	PurposeWarn     Purpose = "WARN"
	PurposeRestrict Purpose = "RESTRICT"
	PurposeBan      Purpose = "BAN"
	PurposeDelete   Purpose = "DELETE"
	PurposeForward  Purpose = "FORWARD"
	PurposeReply    Purpose = "REPLY"
)

// DedupTTL — фиксированное окно дедупликации для действий движка (FORWARD/REPLY).
const DedupTTL = time.Minute

// Key — составной ключ подавления.
// Формат строки: Keyword::<PURPOSE>::<chat>::<user>[::<message>].
type Key struct {
	Purpose    Purpose
	ChatID     int64
	UserID     int64
	MessageID  int
	hasMessage bool
}

// UserKey строит ключ области "чат + пользователь" (WARN, RESTRICT, BAN).
func UserKey(p Purpose, chatID, userID int64) Key {
	return Key{Purpose: p, ChatID: chatID, UserID: userID}
}

// MessageKey строит ключ области "чат + пользователь + сообщение" (DELETE, FORWARD, REPLY).
func MessageKey(p Purpose, chatID, userID int64, messageID int) Key {
	return Key{Purpose: p, ChatID: chatID, UserID: userID, MessageID: messageID, hasMessage: true}
}

func (k Key) String() string {
	if k.hasMessage {
		return fmt.Sprintf("Keyword::%s::%d::%d::%d", k.Purpose, k.ChatID, k.UserID, k.MessageID)
	}
	return fmt.Sprintf("Keyword::%s::%d::%d", k.Purpose, k.ChatID, k.UserID)
}
