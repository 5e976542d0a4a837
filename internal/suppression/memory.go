package suppression

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger — in-process реализация Ledger.
// Русский комментарий: Используется в тестах и в режиме одного бинаря.
// Истёкшие записи лениво перезаписываются при захвате и пропускаются при чтении.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time // ключ -> момент истечения
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLedger) TryAcquire(_ context.Context, key Key, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.entries[key.String()]; ok && exp.After(now) {
		return false, nil
	}
	l.entries[key.String()] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLedger) HasAny(_ context.Context, keys ...Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, k := range keys {
		if exp, ok := l.entries[k.String()]; ok && exp.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (l *MemoryLedger) Put(_ context.Context, key Key, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[key.String()] = l.now().Add(ttl)
	return nil
}
