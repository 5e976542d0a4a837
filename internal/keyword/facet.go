package keyword

import (
	"encoding/hex"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// ExtractFacet возвращает сравнимое значение фасета для target.
// Чистая функция: отсутствие поля (нет forward-отправителя, нет стикера)
// моделируется вторым возвращаемым значением false, а не ошибкой —
// отсутствующий фасет не совпадает ни с каким ключевым словом.
func ExtractFacet(m *tele.Message, target Target) (string, bool) {
	switch target {
	case TargetChatID:
		if m.Chat == nil {
			return "", false
		}
		return strconv.FormatInt(m.Chat.ID, 10), true
	case TargetUserID:
		if m.Sender == nil {
			return "", false
		}
		return strconv.FormatInt(m.Sender.ID, 10), true
	case TargetName:
		if m.Sender == nil {
			return "", false
		}
		return strings.ToUpper(m.Sender.FirstName + m.Sender.LastName), true
	case TargetFromName:
		if m.OriginalSender == nil {
			return "", false
		}
		return strings.ToUpper(m.OriginalSender.FirstName + m.OriginalSender.LastName), true
	case TargetTitle:
		if m.OriginalChat == nil {
			return "", false
		}
		return strings.ToUpper(m.OriginalChat.Title), true
	case TargetText:
		text := m.Text
		if text == "" {
			text = m.Caption
		}
		return strings.ToUpper(text), true
	case TargetDice:
		if m.Dice == nil {
			return "", false
		}
		return strings.ToUpper(hex.EncodeToString([]byte(m.Dice.Type))), true
	case TargetSticker:
		if m.Sticker == nil {
			return "", false
		}
		return m.Sticker.UniqueID, true
	}
	return "", false
}
