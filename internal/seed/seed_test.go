package seed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeSeedFile(t, `
- chat_id: -1001234
  keyword: spam
  target: text
  operation: forward
  data:
    chat_id: 999
- chat_id: -1001234
  keyword: привет
  target: text
  operation: reply
  data:
    type: text
    text: Добро пожаловать!
    button:
      - - text: Правила
          url: https://example.com/rules
`)

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].Keyword != "spam" || entries[0].Operation != "forward" || entries[0].Data.ChatID != 999 {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Data.Type != "text" || entries[1].Data.Text != "Добро пожаловать!" {
		t.Errorf("Unexpected second entry data: %+v", entries[1].Data)
	}
	if len(entries[1].Data.Button) != 1 || entries[1].Data.Button[0][0].URL != "https://example.com/rules" {
		t.Errorf("Expected inline button to parse, got %+v", entries[1].Data.Button)
	}
}

// TestLoadMissingFields: запись без обязательных полей отклоняется
func TestLoadMissingFields(t *testing.T) {
	path := writeSeedFile(t, `
- chat_id: -1001234
  keyword: spam
`)
	if _, err := Load(path); err == nil {
		t.Error("Expected error for entry without target and operation")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
