package db

import (
	"context"
	"sort"
	"sync"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// MemoryStore keeps state in process memory. It does not survive restarts and
// is meant for tests and throwaway runs.
type MemoryStore struct {
	mu       sync.Mutex
	screen   *model.Screen
	replicas map[string]model.Replica

	// SaveErr, when set, is returned by every SaveScreen call.
	SaveErr error
	saves   int
}

var (
	_ ScreenStore  = (*MemoryStore)(nil)
	_ ReplicaStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{replicas: make(map[string]model.Replica)}
}

func (m *MemoryStore) GetScreen(_ context.Context) (model.Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.screen == nil {
		return model.Screen{}, model.ErrNotFound
	}
	return m.screen.Clone(), nil
}

func (m *MemoryStore) SaveScreen(_ context.Context, screen model.Screen) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	c := screen.Clone()
	m.screen = &c
	m.saves++
	return nil
}

// Saves counts successful SaveScreen calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveErr = err
}

func (m *MemoryStore) UpsertReplica(_ context.Context, replica model.Replica) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.replicas[replica.ScreenID]; ok && replica.Name == nil {
		replica.Name = existing.Name
	}
	m.replicas[replica.ScreenID] = replica
	return nil
}

func (m *MemoryStore) GetReplica(_ context.Context, screenID string) (model.Replica, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.replicas[screenID]
	if !ok {
		return model.Replica{}, model.ErrScreenNotFound
	}
	return r, nil
}

func (m *MemoryStore) ListReplicas(_ context.Context) ([]model.Replica, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Replica, 0, len(m.replicas))
	for _, r := range m.replicas {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimedAt.Before(out[j].ClaimedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteReplica(_ context.Context, screenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.replicas[screenID]; !ok {
		return model.ErrScreenNotFound
	}
	delete(m.replicas, screenID)
	return nil
}
