package keyword

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Matches проверяет, срабатывает ли правило на сообщении.
// Никогда не возвращает ошибку: кривое ключевое слово (нечисловое для
// chatid/userid) — это просто "не совпало".
func Matches(rule Rule, m *tele.Message) bool {
	facet, ok := ExtractFacet(m, rule.Target)
	if !ok {
		return false
	}

	switch rule.Target {
	case TargetChatID, TargetUserID:
		want, err := strconv.ParseInt(strings.TrimSpace(rule.Keyword), 10, 64)
		if err != nil {
			return false
		}
		got, err := strconv.ParseInt(facet, 10, 64)
		if err != nil {
			return false
		}
		return got == want
	case TargetName, TargetFromName, TargetTitle, TargetText:
		return strings.Contains(facet, strings.ToUpper(rule.Keyword))
	case TargetDice:
		return facet == strings.ToUpper(rule.Keyword)
	case TargetSticker:
		// Уникальные file id стикеров регистрозависимы.
		return facet == rule.Keyword
	}
	return false
}
