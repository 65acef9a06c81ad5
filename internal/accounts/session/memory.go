package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values     map[string]string
	lastAccess time.Time
}

// MemoryStore keeps sessions in process. Sessions are lost on restart and
// not shared between instances.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*memoryEntry
	idleTimeout time.Duration
	now         func() time.Time
}

func NewMemoryStore(idleTimeout time.Duration) *MemoryStore {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &MemoryStore{
		sessions:    make(map[string]*memoryEntry),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// entry returns the live entry for id, dropping it if idle. Callers hold mu.
func (m *MemoryStore) entry(id string, create bool) *memoryEntry {
	now := m.now()
	e, ok := m.sessions[id]
	if ok && now.Sub(e.lastAccess) > m.idleTimeout {
		delete(m.sessions, id)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		e = &memoryEntry{values: make(map[string]string)}
		m.sessions[id] = e
	}
	e.lastAccess = now
	return e
}

func (m *MemoryStore) Get(_ context.Context, id, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(id, false)
	if e == nil {
		return "", false, nil
	}
	v, ok := e.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, id, key, value string) error {
	if id == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entry(id, true).values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.entry(id, false); e != nil {
		delete(e.values, key)
	}
	return nil
}

func (m *MemoryStore) Take(_ context.Context, id, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(id, false)
	if e == nil {
		return "", false, nil
	}
	v, ok := e.values[key]
	delete(e.values, key)
	return v, ok, nil
}

func (m *MemoryStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// Sweep drops idle sessions and reports how many went.
func (m *MemoryStore) Sweep() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastAccess) > m.idleTimeout {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
