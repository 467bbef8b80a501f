package store

import (
	"context"
	"sync"
	"time"

	"coppit-server/internal/game"
)

// MemStore keeps rooms in process memory. It honors the same TTL contract
// as the Redis store so the janitor and tests behave identically.
type MemStore struct {
	mu      sync.RWMutex
	rooms   map[string]memEntry
	players map[string]string
	now     func() time.Time
}

type memEntry struct {
	state   *game.State
	expires time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		rooms:   make(map[string]memEntry),
		players: make(map[string]string),
		now:     time.Now,
	}
}

func (m *MemStore) Save(_ context.Context, s *game.State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[s.RoomID] = memEntry{state: s.Clone(), expires: m.now().Add(ttl)}
	return nil
}

func (m *MemStore) Load(_ context.Context, roomID string) (*game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rooms[roomID]
	if !ok || m.now().After(e.expires) {
		return nil, ErrNotFound
	}
	return e.state.Clone(), nil
}

func (m *MemStore) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

func (m *MemStore) SetPlayerRoom(_ context.Context, playerID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[playerID] = roomID
	return nil
}

func (m *MemStore) PlayerRoom(_ context.Context, playerID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.players[playerID]
	if !ok {
		return "", ErrNotFound
	}
	return roomID, nil
}

func (m *MemStore) ClearPlayerRoom(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, playerID)
	return nil
}

func (m *MemStore) ActiveRooms(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make([]string, 0, len(m.rooms))
	for id, e := range m.rooms {
		if now.Before(e.expires) {
			out = append(out, id)
		}
	}
	return out, nil
}
