package quota

import (
	"context"
	"sync"
	"time"

	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

// MemoryStore - in-memory реализация Store для тестов и работы без БД
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]domain.QuotaState

	SaveCalls int
	SaveErr   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]domain.QuotaState)}
}

func (m *MemoryStore) Load(_ context.Context, service string) (*domain.QuotaState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[service]
	if !ok {
		return nil, nil
	}
	clone := state
	clone.History = append([]time.Time(nil), state.History...)
	return &clone, nil
}

func (m *MemoryStore) Save(_ context.Context, state *domain.QuotaState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}

	clone := *state
	clone.History = append([]time.Time(nil), state.History...)
	m.states[state.Service] = clone
	return nil
}

// Preload подсовывает состояние напрямую (для тестов)
func (m *MemoryStore) Preload(state domain.QuotaState) {
	m.mu.Lock()
	m.states[state.Service] = state
	m.mu.Unlock()
}
