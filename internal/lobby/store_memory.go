package lobby

import (
	"context"
	"strings"
	"sync"

	"github.com/park285/ek-server/pkg/ekdto"
)

// MemoryDirectory is used when no Redis is configured.
type MemoryDirectory struct {
	mu    sync.RWMutex
	games map[string]ekdto.GameSummary
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{games: make(map[string]ekdto.GameSummary)}
}

func (m *MemoryDirectory) Publish(_ context.Context, s ekdto.GameSummary) error {
	if strings.TrimSpace(s.ID) == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[s.ID] = s
	return nil
}

func (m *MemoryDirectory) Remove(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	return nil
}

func (m *MemoryDirectory) Get(_ context.Context, gameID string) (ekdto.GameSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.games[gameID]
	if !ok {
		return ekdto.GameSummary{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryDirectory) List(_ context.Context) ([]ekdto.GameSummary, error) {
	m.mu.RLock()
	out := make([]ekdto.GameSummary, 0, len(m.games))
	for _, s := range m.games {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sortSummaries(out)
	return out, nil
}
