// Package lock выдаёт эксклюзивные блокировки на заказ: в процессе и через Redis.
package lock

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type keyedSlot struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex — блокировка по ключу внутри одного процесса. Ожидание прерывается ctx.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*keyedSlot
}

// NewKeyedMutex создаёт пустой набор блокировок.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*keyedSlot)}
}

// Lock ждёт освобождения key и возвращает функцию unlock. Повторный вызов unlock безопасен.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	slot, ok := m.slots[key]
	if !ok {
		slot = &keyedSlot{ch: make(chan struct{}, 1)}
		m.slots[key] = slot
	}
	slot.refs++
	m.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			m.release(key, slot)
		})
	}, nil
}

// release убирает слот, когда на него больше никто не ссылается.
func (m *KeyedMutex) release(key string, slot *keyedSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(m.slots, key)
	}
}

// size возвращает число живых слотов (для тестов).
func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

var _ domain.OrderLocker = (*KeyedMutex)(nil)
