package app

import "sync"

// KeyLimiter не даёт одновременно выполнять две операции с одним ключом
// (например, две материализации одного класса из соседних вкладок).
type KeyLimiter struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
}

func NewKeyLimiter() *KeyLimiter {
	return &KeyLimiter{byID: make(map[int64]*sync.Mutex)}
}

func (l *KeyLimiter) lock(id int64) func() {
	l.mu.Lock()
	m, ok := l.byID[id]
	if !ok {
		m = &sync.Mutex{}
		l.byID[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() { m.Unlock() }
}
