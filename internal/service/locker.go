package service

import (
	"sync"

	"github.com/google/uuid"
)

// subscriptionLocks - мьютекс на каждую подписку.
// Запись удаляется, когда ее больше никто не держит и не ждет.
type subscriptionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSubscriptionLocks() *subscriptionLocks {
	return &subscriptionLocks{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock захватывает мьютекс подписки и возвращает функцию освобождения
func (l *subscriptionLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// size количество активных записей
func (l *subscriptionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
