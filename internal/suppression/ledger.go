package suppression

import (
	"context"
	"time"
)

// Ledger — журнал окон подавления с TTL.
// Русский комментарий: Значения не читаются, важен только факт существования ключа.
// Ключи никогда не удаляются досрочно — только истекают по времени.
//
// Ошибки backing-store обязаны всплывать наружу: fail-open здесь означал бы
// дубликаты действий модерации, поэтому вызывающий при ошибке пропускает
// действие и продолжает проход.
type Ledger interface {
	// TryAcquire атомарно создаёт ключ с TTL если его нет.
	// true — ключ создан, вызывающий может продолжать.
	// false — ключ уже существует, действие подавлено.
	TryAcquire(ctx context.Context, key Key, ttl time.Duration) (bool, error)

	// HasAny проверяет существование хотя бы одного из ключей.
	HasAny(ctx context.Context, keys ...Key) (bool, error)

	// Put безусловно записывает ключ с TTL (модуль модерации владеет
	// окнами WARN/RESTRICT/BAN/DELETE и продлевает их повторными командами).
	Put(ctx context.Context, key Key, ttl time.Duration) error
}
