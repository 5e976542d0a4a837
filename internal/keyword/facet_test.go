package keyword

import (
	"testing"

	tele "gopkg.in/telebot.v3"
)

func msg(chatID, userID int64) *tele.Message {
	return &tele.Message{
		ID:     1,
		Chat:   &tele.Chat{ID: chatID},
		Sender: &tele.User{ID: userID},
	}
}

func TestExtractFacetText(t *testing.T) {
	m := msg(100, 42)
	m.Text = "Привет, мир"

	facet, ok := ExtractFacet(m, TargetText)
	if !ok {
		t.Fatal("Expected text facet to be present")
	}
	if facet != "ПРИВЕТ, МИР" {
		t.Errorf("Expected uppercased text, got '%s'", facet)
	}
}

// TestExtractFacetCaption: подпись к медиа заменяет текст
func TestExtractFacetCaption(t *testing.T) {
	m := msg(100, 42)
	m.Caption = "photo caption"

	facet, ok := ExtractFacet(m, TargetText)
	if !ok {
		t.Fatal("Expected caption facet to be present")
	}
	if facet != "PHOTO CAPTION" {
		t.Errorf("Expected 'PHOTO CAPTION', got '%s'", facet)
	}
}

func TestExtractFacetIDs(t *testing.T) {
	m := msg(-1001234, 42)

	facet, ok := ExtractFacet(m, TargetChatID)
	if !ok || facet != "-1001234" {
		t.Errorf("Expected chatid facet '-1001234', got '%s' (ok=%v)", facet, ok)
	}

	facet, ok = ExtractFacet(m, TargetUserID)
	if !ok || facet != "42" {
		t.Errorf("Expected userid facet '42', got '%s' (ok=%v)", facet, ok)
	}
}

func TestExtractFacetName(t *testing.T) {
	m := msg(100, 42)
	m.Sender.FirstName = "Иван"
	m.Sender.LastName = "Петров"

	facet, ok := ExtractFacet(m, TargetName)
	if !ok || facet != "ИВАНПЕТРОВ" {
		t.Errorf("Expected 'ИВАНПЕТРОВ', got '%s' (ok=%v)", facet, ok)
	}
}

// TestExtractFacetForwardAbsent: фасеты пересылки отсутствуют у обычного сообщения
func TestExtractFacetForwardAbsent(t *testing.T) {
	m := msg(100, 42)
	m.Text = "regular message"

	if _, ok := ExtractFacet(m, TargetFromName); ok {
		t.Error("Expected fromname facet to be absent for non-forwarded message")
	}
	if _, ok := ExtractFacet(m, TargetTitle); ok {
		t.Error("Expected title facet to be absent for non-forwarded message")
	}
	if _, ok := ExtractFacet(m, TargetSticker); ok {
		t.Error("Expected sticker facet to be absent for text message")
	}
	if _, ok := ExtractFacet(m, TargetDice); ok {
		t.Error("Expected dice facet to be absent for text message")
	}
}

func TestExtractFacetForwarded(t *testing.T) {
	m := msg(100, 42)
	m.OriginalSender = &tele.User{FirstName: "Old", LastName: "Author"}
	m.OriginalChat = &tele.Chat{Title: "Source Channel"}

	facet, ok := ExtractFacet(m, TargetFromName)
	if !ok || facet != "OLDAUTHOR" {
		t.Errorf("Expected 'OLDAUTHOR', got '%s' (ok=%v)", facet, ok)
	}

	facet, ok = ExtractFacet(m, TargetTitle)
	if !ok || facet != "SOURCE CHANNEL" {
		t.Errorf("Expected 'SOURCE CHANNEL', got '%s' (ok=%v)", facet, ok)
	}
}

// TestExtractFacetDice: значение — hex-код эмодзи в верхнем регистре
func TestExtractFacetDice(t *testing.T) {
	m := msg(100, 42)
	m.Dice = &tele.Dice{Type: "🎲"}

	facet, ok := ExtractFacet(m, TargetDice)
	if !ok {
		t.Fatal("Expected dice facet to be present")
	}
	if facet != "F09F8EB2" {
		t.Errorf("Expected 'F09F8EB2', got '%s'", facet)
	}
}

func TestMatchesSubstring(t *testing.T) {
	m := msg(100, 42)
	m.Text = "this is SpAm indeed"

	rule := Rule{Keyword: "spam", Target: TargetText, Operation: OperationForward}
	if !Matches(rule, m) {
		t.Error("Expected case-insensitive substring match")
	}

	rule.Keyword = "absent"
	if Matches(rule, m) {
		t.Error("Expected no match for missing substring")
	}
}

func TestMatchesNumeric(t *testing.T) {
	m := msg(-1001234, 42)

	rule := Rule{Keyword: "42", Target: TargetUserID}
	if !Matches(rule, m) {
		t.Error("Expected userid 42 to match")
	}

	rule.Keyword = " 42 "
	if !Matches(rule, m) {
		t.Error("Expected numeric keyword with spaces to match after trim")
	}

	rule.Keyword = "43"
	if Matches(rule, m) {
		t.Error("Expected userid 43 not to match")
	}

	// Нечисловое ключевое слово для числового фасета — не совпадение, не ошибка
	rule.Keyword = "abc"
	if Matches(rule, m) {
		t.Error("Expected malformed numeric keyword not to match")
	}

	rule = Rule{Keyword: "-1001234", Target: TargetChatID}
	if !Matches(rule, m) {
		t.Error("Expected chatid to match")
	}
}

func TestMatchesSticker(t *testing.T) {
	m := msg(100, 42)
	m.Sticker = &tele.Sticker{File: tele.File{UniqueID: "AgADcQsAAuCjggc"}}

	rule := Rule{Keyword: "AgADcQsAAuCjggc", Target: TargetSticker}
	if !Matches(rule, m) {
		t.Error("Expected exact sticker id to match")
	}

	// Идентификаторы стикеров регистрозависимы
	rule.Keyword = "agadcqsaaucjggc"
	if Matches(rule, m) {
		t.Error("Expected sticker match to be case-sensitive")
	}
}

func TestMatchesDice(t *testing.T) {
	m := msg(100, 42)
	m.Dice = &tele.Dice{Type: "🎲"}

	rule := Rule{Keyword: "f09f8eb2", Target: TargetDice}
	if !Matches(rule, m) {
		t.Error("Expected dice hex keyword to match case-insensitively")
	}

	rule.Keyword = "F09F8EB2"
	if !Matches(rule, m) {
		t.Error("Expected uppercase dice hex keyword to match")
	}

	rule.Keyword = "F09F8EB200"
	if Matches(rule, m) {
		t.Error("Expected different dice hex not to match")
	}
}
