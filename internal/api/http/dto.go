package http

import "coppit-server/internal/game"

// CreateRoomRequest is the payload for POST /rooms.
type CreateRoomRequest struct {
	PlayerName string       `json:"player_name"`
	Color      string       `json:"color,omitempty"` // empty = auto-assign
	Rules      *game.Config `json:"rules,omitempty"` // nil = server defaults
	Seed       int64        `json:"seed,omitempty"`  // 0 = random stream
}

// JoinRoomRequest is the payload for POST /rooms/:id/join.
type JoinRoomRequest struct {
	PlayerName string `json:"player_name"`
	Color      string `json:"color,omitempty"`
}

// StartGameRequest is the payload for POST /rooms/:id/start.
type StartGameRequest struct {
	PlayerID string `json:"player_id"`
	FillBots bool   `json:"fill_bots"`
}

// WeightsRequest updates the heuristic bot weights at runtime.
type WeightsRequest struct {
	Capture *float64 `json:"capture,omitempty"`
	Bank    *float64 `json:"bank,omitempty"`
	Return  *float64 `json:"return,omitempty"`
	Safe    *float64 `json:"safe,omitempty"`
	Deploy  *float64 `json:"deploy,omitempty"`
	Danger  *float64 `json:"danger,omitempty"`
}
