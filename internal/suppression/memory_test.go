package suppression

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestKeyString проверяет формат составного ключа
func TestKeyString(t *testing.T) {
	userKey := UserKey(PurposeWarn, -1001234, 42)
	if got := userKey.String(); got != "Keyword::WARN::-1001234::42" {
		t.Errorf("Expected 'Keyword::WARN::-1001234::42', got '%s'", got)
	}

	msgKey := MessageKey(PurposeForward, -1001234, 42, 777)
	if got := msgKey.String(); got != "Keyword::FORWARD::-1001234::42::777" {
		t.Errorf("Expected 'Keyword::FORWARD::-1001234::42::777', got '%s'", got)
	}
}

// TestKeyStringScopes проверяет, что ключи user- и message-области не пересекаются
func TestKeyStringScopes(t *testing.T) {
	user := UserKey(PurposeDelete, 1, 2)
	msg := MessageKey(PurposeDelete, 1, 2, 3)
	if user.String() == msg.String() {
		t.Errorf("User and message keys must differ, both are '%s'", user.String())
	}
}

func TestTryAcquire(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	key := MessageKey(PurposeForward, 100, 42, 1)

	ok, err := ledger.TryAcquire(ctx, key, DedupTTL)
	if err != nil {
		t.Fatalf("TryAcquire() failed: %v", err)
	}
	if !ok {
		t.Error("Expected first TryAcquire to succeed")
	}

	ok, err = ledger.TryAcquire(ctx, key, DedupTTL)
	if err != nil {
		t.Fatalf("TryAcquire() failed: %v", err)
	}
	if ok {
		t.Error("Expected second TryAcquire within TTL to fail")
	}
}

// TestTryAcquireConcurrent: при N конкурентных захватах одного ключа
// выигрывает ровно один
func TestTryAcquireConcurrent(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	key := MessageKey(PurposeReply, 100, 42, 1)

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.TryAcquire(ctx, key, DedupTTL)
			if err != nil {
				t.Errorf("TryAcquire() failed: %v", err)
				return
			}
			if ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 winner, got %d", count)
	}
}

// TestTryAcquireAfterExpiry проверяет повторный захват после истечения окна
func TestTryAcquireAfterExpiry(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	key := MessageKey(PurposeForward, 100, 42, 1)

	base := time.Now()
	ledger.now = func() time.Time { return base }

	if ok, _ := ledger.TryAcquire(ctx, key, time.Minute); !ok {
		t.Fatal("Expected first TryAcquire to succeed")
	}

	// Через 30 секунд окно ещё действует
	ledger.now = func() time.Time { return base.Add(30 * time.Second) }
	if ok, _ := ledger.TryAcquire(ctx, key, time.Minute); ok {
		t.Error("Expected TryAcquire within TTL to fail")
	}

	// Через 61 секунду окно истекло
	ledger.now = func() time.Time { return base.Add(61 * time.Second) }
	if ok, _ := ledger.TryAcquire(ctx, key, time.Minute); !ok {
		t.Error("Expected TryAcquire after expiry to succeed")
	}
}

func TestHasAny(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	warn := UserKey(PurposeWarn, 100, 42)
	ban := UserKey(PurposeBan, 100, 42)

	if err := ledger.Put(ctx, warn, time.Minute); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	found, err := ledger.HasAny(ctx, ban, warn)
	if err != nil {
		t.Fatalf("HasAny() failed: %v", err)
	}
	if !found {
		t.Error("Expected HasAny to find active WARN window")
	}

	found, err = ledger.HasAny(ctx, UserKey(PurposeWarn, 100, 99))
	if err != nil {
		t.Fatalf("HasAny() failed: %v", err)
	}
	if found {
		t.Error("Expected HasAny for another user to return false")
	}
}

// TestHasAnyExpired: истёкшее окно не считается активным
func TestHasAnyExpired(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	key := UserKey(PurposeRestrict, 100, 42)

	base := time.Now()
	ledger.now = func() time.Time { return base }
	if err := ledger.Put(ctx, key, time.Minute); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	ledger.now = func() time.Time { return base.Add(2 * time.Minute) }
	found, err := ledger.HasAny(ctx, key)
	if err != nil {
		t.Fatalf("HasAny() failed: %v", err)
	}
	if found {
		t.Error("Expected expired window to be invisible")
	}
}

// TestPutExtends: Put продлевает окно безусловно, в отличие от TryAcquire
func TestPutExtends(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	key := UserKey(PurposeBan, 100, 42)

	base := time.Now()
	ledger.now = func() time.Time { return base }
	if err := ledger.Put(ctx, key, time.Minute); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := ledger.Put(ctx, key, time.Hour); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	ledger.now = func() time.Time { return base.Add(30 * time.Minute) }
	found, err := ledger.HasAny(ctx, key)
	if err != nil {
		t.Fatalf("HasAny() failed: %v", err)
	}
	if !found {
		t.Error("Expected extended window to still be active")
	}
}
