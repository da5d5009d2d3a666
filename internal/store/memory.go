package store

import (
	"context"
	"sort"
	"sync"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

// Memory is a process-local Store.
type Memory struct {
	mu     sync.RWMutex
	latest map[string]domain.Observation
}

func NewMemory() *Memory {
	return &Memory{latest: make(map[string]domain.Observation)}
}

func (m *Memory) Put(_ context.Context, obs domain.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[obs.Station] = obs
	return nil
}

func (m *Memory) PutAll(ctx context.Context, obs []domain.Observation) error {
	return putEach(ctx, obs, m.Put)
}

func (m *Memory) GetLatest(_ context.Context, station string) (domain.Observation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obs, ok := m.latest[station]
	return obs, ok, nil
}

func (m *Memory) ListLatest(_ context.Context) ([]domain.Observation, error) {
	m.mu.RLock()
	out := make([]domain.Observation, 0, len(m.latest))
	for _, obs := range m.latest {
		out = append(out, obs)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Station < out[j].Station })
	return out, nil
}

func (m *Memory) Close() error { return nil }
