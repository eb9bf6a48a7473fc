package repository

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/domain"
	"github.com/jaakkos/helmpanel/internal/repository/sqlite"
)

// NewViewStore returns a ViewStore for sessionID. path is typically from
// policy.SessionFile() (default ~/.config/helmpanel/session.sqlite); "none"
// or "" keeps state in memory for the life of the process.
func NewViewStore(path, sessionID string) (app.ViewStore, error) {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "", "none", "off":
		return NewMemoryViewStore(), nil
	}
	return sqlite.New(path, sessionID)
}

// MemoryViewStore is an app.ViewStore held in process memory.
type MemoryViewStore struct {
	mu     sync.Mutex
	states map[string]domain.ViewState
}

// NewMemoryViewStore returns an empty in-memory store.
func NewMemoryViewStore() *MemoryViewStore {
	return &MemoryViewStore{states: make(map[string]domain.ViewState)}
}

func (m *MemoryViewStore) Get(subsystem string) (domain.ViewState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.states[subsystem]
	if !ok {
		return domain.NewViewState(), false, nil
	}
	return v, true, nil
}

func (m *MemoryViewStore) GetField(subsystem, key string) (bool, error) {
	v, _, _ := m.Get(subsystem)
	got, ok := v.Field(key)
	if !ok {
		return false, fmt.Errorf("get view state field: unknown key %q", key)
	}
	return got, nil
}

func (m *MemoryViewStore) Put(subsystem string, v domain.ViewState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[subsystem] = v
	return nil
}

func (m *MemoryViewStore) Close() error { return nil }
