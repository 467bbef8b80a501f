package room

import (
	"coppit-server/internal/game"
)

// Client action types accepted over the wire.
const (
	ActionStartGame         = "start_game"
	ActionRollDice          = "roll_dice"
	ActionSelectPiece       = "select_piece"
	ActionSelectDirection   = "select_direction"
	ActionSelectDestination = "select_destination"
	ActionPass              = "pass"
	ActionResetGame         = "reset_game"
	ActionChat              = "chat"
)

// ClientAction is the flat wire form of every player action. Type decides
// which fields matter; unknown types are rejected per sender.
type ClientAction struct {
	Type      string `json:"type"`
	StackID   string `json:"stack_id,omitempty"`
	Direction string `json:"direction,omitempty"`
	Target    string `json:"target,omitempty"`
	Text      string `json:"text,omitempty"`
	FillBots  bool   `json:"fill_bots,omitempty"`
}

// Event types fanned out to clients.
const (
	EventState             = "state_update"
	EventTurnStart         = "turn_start"
	EventDiceRolled        = "dice_rolled"
	EventLegalPieces       = "legal_pieces"
	EventLegalDirections   = "legal_directions"
	EventLegalDestinations = "legal_destinations"
	EventMoveApplied       = "move_applied"
	EventGameOver          = "game_over"
	EventChat              = "chat"
	EventError             = "error"
)

// Event is one server-to-client message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func stateEvent(s *game.State) Event {
	return Event{Type: EventState, Payload: s}
}

func turnStartEvent(s *game.State) Event {
	return Event{Type: EventTurnStart, Payload: map[string]any{
		"player_id": s.CurrentPlayerID(),
		"turn":      s.TurnCount,
	}}
}

func diceRolledEvent(playerID string, value int) Event {
	return Event{Type: EventDiceRolled, Payload: map[string]any{
		"player_id": playerID,
		"value":     value,
	}}
}

func legalPiecesEvent(playerID string, stacks []*game.Stack) Event {
	ids := make([]string, 0, len(stacks))
	for _, st := range stacks {
		ids = append(ids, st.ID)
	}
	return Event{Type: EventLegalPieces, Payload: map[string]any{
		"player_id": playerID,
		"stack_ids": ids,
	}}
}

func legalMovesEvent(s *game.State, st *game.Stack) []Event {
	dirs := game.LegalDirections(s, st)
	dests := game.LegalDestinations(s, st)
	return []Event{
		{Type: EventLegalDirections, Payload: map[string]any{
			"stack_id":   st.ID,
			"directions": dirs,
		}},
		{Type: EventLegalDestinations, Payload: map[string]any{
			"stack_id":     st.ID,
			"destinations": dests,
		}},
	}
}

func moveAppliedEvent(playerID string, res *game.MoveResult) Event {
	return Event{Type: EventMoveApplied, Payload: map[string]any{
		"player_id": playerID,
		"result":    res,
	}}
}

func gameOverEvent(s *game.State) Event {
	scores := make(map[string]map[string]int, len(s.Players))
	for id, p := range s.Players {
		scores[id] = map[string]int{"score": p.Score(), "points": p.Points()}
	}
	return Event{Type: EventGameOver, Payload: map[string]any{
		"winner": s.Winner,
		"turns":  s.TurnCount,
		"scores": scores,
	}}
}

func chatEvent(playerID, name, text string) Event {
	return Event{Type: EventChat, Payload: map[string]any{
		"player_id": playerID,
		"name":      name,
		"text":      text,
	}}
}

func errorEvent(err error) Event {
	return Event{Type: EventError, Payload: map[string]any{"message": err.Error()}}
}

// Broadcaster fans events out to a room or to one player in it. The ws
// hub implements it; tests plug in a recorder.
type Broadcaster interface {
	Broadcast(roomID string, ev Event)
	SendTo(roomID, playerID string, ev Event)
}
