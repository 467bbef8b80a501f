package store

import (
	"context"
	"errors"
	"time"

	"coppit-server/internal/game"
)

// ErrNotFound is returned when a room or player index entry is absent or
// has expired.
var ErrNotFound = errors.New("not found")

// DefaultTTL is how long an untouched room survives. Every save refreshes
// the clock.
const DefaultTTL = time.Hour

// Store persists room state between actions and indexes players to their
// room. The board is not serialized; callers reattach it after Load.
type Store interface {
	Save(ctx context.Context, s *game.State, ttl time.Duration) error
	Load(ctx context.Context, roomID string) (*game.State, error)
	Delete(ctx context.Context, roomID string) error

	SetPlayerRoom(ctx context.Context, playerID, roomID string) error
	PlayerRoom(ctx context.Context, playerID string) (string, error)
	ClearPlayerRoom(ctx context.Context, playerID string) error

	ActiveRooms(ctx context.Context) ([]string, error)
}
