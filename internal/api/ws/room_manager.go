package ws

import (
	"context"

	"coppit-server/internal/game"
	"coppit-server/internal/room"
)

// RoomManager is the slice of the room coordinator the hub needs.
type RoomManager interface {
	HandleAction(ctx context.Context, roomID, playerID string, act room.ClientAction) error
	SetConnected(ctx context.Context, roomID, playerID string, connected bool) error
	State(ctx context.Context, roomID string) (*game.State, error)
}
