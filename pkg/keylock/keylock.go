// Package keylock provides reader/writer locks keyed by string, created on
// demand and released when no holder or waiter remains.
package keylock

import "sync"

type entry struct {
	mu   sync.RWMutex
	refs int
}

// Map hands out one RWMutex per key.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

func (m *Map) acquire(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *Map) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// Lock takes the exclusive lock for key and returns its release func.
func (m *Map) Lock(key string) func() {
	e := m.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.release(key, e)
	}
}

// RLock takes the shared lock for key and returns its release func.
func (m *Map) RLock(key string) func() {
	e := m.acquire(key)
	e.mu.RLock()
	return func() {
		e.mu.RUnlock()
		m.release(key, e)
	}
}

// Len reports how many keys currently have holders or waiters.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
