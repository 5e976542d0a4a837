package keyword

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// fakeStore отдаёт фиксированный список правил
type fakeStore struct {
	rules []Rule
	err   error
}

func (s *fakeStore) GetKeywords(_ context.Context, _ int64) ([]Rule, error) {
	return s.rules, s.err
}

// fakeDispatcher записывает порядок обработанных правил
type fakeDispatcher struct {
	dispatched []int64
	results    map[int64]Result
	errs       map[int64]error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, rule Rule, _ *tele.Message) (Result, error) {
	d.dispatched = append(d.dispatched, rule.ID)
	if err, ok := d.errs[rule.ID]; ok {
		return Continue, err
	}
	if r, ok := d.results[rule.ID]; ok {
		return r, nil
	}
	return Continue, nil
}

func textRule(id int64, kw string) Rule {
	return Rule{ID: id, ChatID: 100, Keyword: kw, Target: TargetText, Operation: OperationReply, Data: ActionData{Type: "text", Text: "x"}}
}

func TestEngineOrderedPass(t *testing.T) {
	store := &fakeStore{rules: []Rule{
		textRule(1, "spam"),
		textRule(2, "nomatch"),
		textRule(3, "spam"),
	}}
	disp := &fakeDispatcher{}
	engine := NewEngine(store, disp, zap.NewNop())

	m := msg(100, 42)
	m.Text = "this is SPAM"
	if err := engine.Process(context.Background(), m); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if len(disp.dispatched) != 2 || disp.dispatched[0] != 1 || disp.dispatched[1] != 3 {
		t.Errorf("Expected rules [1 3] dispatched in order, got %v", disp.dispatched)
	}
}

// TestEngineFaultIsolation: ошибка одного правила не прерывает проход
func TestEngineFaultIsolation(t *testing.T) {
	store := &fakeStore{rules: []Rule{
		textRule(1, "spam"),
		textRule(2, "spam"),
	}}
	disp := &fakeDispatcher{errs: map[int64]error{1: errors.New("queue unavailable")}}
	engine := NewEngine(store, disp, zap.NewNop())

	m := msg(100, 42)
	m.Text = "spam"
	if err := engine.Process(context.Background(), m); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if len(disp.dispatched) != 2 {
		t.Errorf("Expected both rules dispatched despite error, got %v", disp.dispatched)
	}
}

// TestEngineStopPass: StopPass завершает проход досрочно
func TestEngineStopPass(t *testing.T) {
	store := &fakeStore{rules: []Rule{
		textRule(1, "spam"),
		textRule(2, "spam"),
	}}
	disp := &fakeDispatcher{results: map[int64]Result{1: StopPass}}
	engine := NewEngine(store, disp, zap.NewNop())

	m := msg(100, 42)
	m.Text = "spam"
	if err := engine.Process(context.Background(), m); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if len(disp.dispatched) != 1 || disp.dispatched[0] != 1 {
		t.Errorf("Expected only rule 1 dispatched, got %v", disp.dispatched)
	}
}

// TestEngineStoreError: ошибка загрузки правил всплывает наружу
func TestEngineStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	disp := &fakeDispatcher{}
	engine := NewEngine(store, disp, zap.NewNop())

	m := msg(100, 42)
	m.Text = "spam"
	if err := engine.Process(context.Background(), m); err == nil {
		t.Error("Expected store error to surface")
	}
	if len(disp.dispatched) != 0 {
		t.Errorf("Expected no dispatches on store error, got %v", disp.dispatched)
	}
}

// TestEngineNilGuards: сообщения без чата или отправителя игнорируются
func TestEngineNilGuards(t *testing.T) {
	store := &fakeStore{rules: []Rule{textRule(1, "spam")}}
	disp := &fakeDispatcher{}
	engine := NewEngine(store, disp, zap.NewNop())

	if err := engine.Process(context.Background(), nil); err != nil {
		t.Errorf("Process(nil) failed: %v", err)
	}
	if err := engine.Process(context.Background(), &tele.Message{Chat: &tele.Chat{ID: 100}}); err != nil {
		t.Errorf("Process(no sender) failed: %v", err)
	}
	if len(disp.dispatched) != 0 {
		t.Errorf("Expected no dispatches, got %v", disp.dispatched)
	}
}

// TestEngineScenario: сквозной проход с боевым Dispatcher —
// сообщение задевает и текстовое правило (forward), и правило по userid (reply)
func TestEngineScenario(t *testing.T) {
	d, queue, _ := newTestDispatcher()
	store := &fakeStore{rules: []Rule{
		{ID: 1, ChatID: 100, Keyword: "SPAM", Target: TargetText, Operation: OperationForward, Data: ActionData{ChatID: 999}},
		{ID: 2, ChatID: 100, Keyword: "42", Target: TargetUserID, Operation: OperationReply, Data: ActionData{Type: "text", Text: "hi"}},
	}}
	engine := NewEngine(store, d, zap.NewNop())

	m := msg(100, 42)
	m.Text = "this is SPAM"
	if err := engine.Process(context.Background(), m); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if len(queue.sent) != 2 {
		t.Fatalf("Expected 2 actions (forward + reply), got %d", len(queue.sent))
	}
	if queue.sent[0].ChatID != 999 {
		t.Errorf("Expected first action forwarded to 999, got %d", queue.sent[0].ChatID)
	}
	if queue.sent[1].ChatID != 100 || queue.sent[1].ReplyTo != m.ID {
		t.Errorf("Expected second action to reply in chat 100, got %+v", queue.sent[1])
	}

	// Повторный проход того же сообщения полностью подавлен дедупликацией
	if err := engine.Process(context.Background(), m); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if len(queue.sent) != 2 {
		t.Errorf("Expected no new actions on repeated pass, got %d", len(queue.sent))
	}
}
