package game

import (
	"errors"
	"fmt"
	"time"

	"coppit-server/internal/board"
)

// Rule errors. Every one of these is recoverable: the action is rejected,
// the state is untouched and only the sender is told.
var (
	ErrIllegalAction    = errors.New("illegal action")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrDuplicateColor   = errors.New("color already taken")
	ErrRoomFull         = errors.New("room is full")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrNoPath           = errors.New("no path")
)

// ErrConservation marks a broken piece-count invariant. Unlike the rule
// errors it is unrecoverable: the room must stop mutating.
var ErrConservation = errors.New("piece conservation violated")

// Phase is the turn state machine position.
type Phase string

const (
	PhaseWaiting         Phase = "WAITING"
	PhaseRoll            Phase = "ROLL"
	PhaseSelectPiece     Phase = "SELECT_PIECE"
	PhaseSelectDirection Phase = "SELECT_DIRECTION"
	PhaseResolve         Phase = "RESOLVE"
	PhaseGameOver        Phase = "GAME_OVER"
)

// Hat is a single playing piece. Color never changes after creation.
type Hat struct {
	ID    string      `json:"id"`
	Color board.Color `json:"color"`
	Owner board.Color `json:"owner"`
	// Returned is set when the hat has come home once. With
	// allow_respawn=false such a hat scores but cannot redeploy.
	Returned bool `json:"returned,omitempty"`
}

// NewHat builds the n-th hat of a color, ids like "red_1".
func NewHat(c board.Color, n int) Hat {
	return Hat{ID: fmt.Sprintf("%s_%d", lower(c), n), Color: c, Owner: c}
}

// InitialHats builds a color's full starting set.
func InitialHats(c board.Color, count int) []Hat {
	hats := make([]Hat, 0, count)
	for i := 1; i <= count; i++ {
		hats = append(hats, NewHat(c, i))
	}
	return hats
}

// Stack is an ordered pile of hats on one node. Index 0 is the bottom,
// the last index is the top and controls the stack.
type Stack struct {
	ID     string `json:"id"`
	NodeID string `json:"node_id"`
	Pieces []Hat  `json:"pieces"`
	// Box marks the presentation mirror of a player's box contents. A
	// mirror never moves, is never captured and is not counted by
	// conservation; a stack invading a foreign box node is a regular
	// stack and carries no flag.
	Box bool `json:"box,omitempty"`
}

// Controller returns the color of the top piece, or "" for an empty stack
// (which must not exist on the board).
func (s *Stack) Controller() board.Color {
	if len(s.Pieces) == 0 {
		return ""
	}
	return s.Pieces[len(s.Pieces)-1].Color
}

func (s *Stack) Size() int { return len(s.Pieces) }

// Captives returns every piece below the top.
func (s *Stack) Captives() []Hat {
	if len(s.Pieces) <= 1 {
		return nil
	}
	return s.Pieces[:len(s.Pieces)-1]
}

// HasCaptives reports whether pieces below the top belong to other colors.
func (s *Stack) HasCaptives() bool {
	c := s.Controller()
	for _, h := range s.Captives() {
		if h.Color != c {
			return true
		}
	}
	return false
}

// Player is one seat in the room.
type Player struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Color      board.Color `json:"color"`
	IsBot      bool        `json:"is_bot"`
	Connected  bool        `json:"connected"`
	BoxHats    []Hat       `json:"box_hats"`
	BankedHats []Hat       `json:"banked_hats"`
}

// Score counts the player's own-color hats currently home in the box.
func (p *Player) Score() int {
	n := 0
	for _, h := range p.BoxHats {
		if h.Color == p.Color {
			n++
		}
	}
	return n
}

// Points counts banked enemy hats.
func (p *Player) Points() int {
	n := 0
	for _, h := range p.BankedHats {
		if h.Color != p.Color {
			n++
		}
	}
	return n
}

// DeployableHats returns the box hats the player may still send out.
func (p *Player) DeployableHats(allowRespawn bool) []Hat {
	out := make([]Hat, 0, len(p.BoxHats))
	for _, h := range p.BoxHats {
		if h.Color != p.Color {
			continue // unbanked captives never redeploy
		}
		if h.Returned && !allowRespawn {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Config is the rule set fixed at room creation.
type Config struct {
	MaxPlayers           int    `json:"max_players"`
	HatsPerPlayer        int    `json:"hats_per_player"`
	Require6ToDeploy     bool   `json:"require_6_to_deploy"`
	ExtraRollOn6         bool   `json:"extra_roll_on_6"`
	CaptureOnPass        bool   `json:"capture_on_pass"`
	SafeByColor          bool   `json:"safe_by_color"`
	SafeByGray           bool   `json:"safe_by_gray"`
	AllowBoxInvasion     bool   `json:"allow_box_invasion"`
	AutoBankOnReturn     bool   `json:"auto_bank_on_return"`
	AllowRespawn         bool   `json:"allow_respawn"`
	WinMode              string `json:"win_mode"`
	MaxTurns             int    `json:"max_turns"` // 0 = unlimited
	AllowBackward        bool   `json:"allow_backward"`
	DirectionLock        bool   `json:"direction_lock"`
	BoxExitBidirectional bool   `json:"box_exit_bidirectional"`
	MaxStackHeight       int    `json:"max_stack_height"` // 0 = unlimited
	TurnOrderMethod      string `json:"turn_order_method"`
	BotDifficulty        string `json:"bot_difficulty"`
}

// DefaultConfig mirrors the classic 4-player rule set.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:           4,
		HatsPerPlayer:        6,
		Require6ToDeploy:     false,
		ExtraRollOn6:         true,
		CaptureOnPass:        false,
		SafeByColor:          true,
		SafeByGray:           true,
		AllowBoxInvasion:     false,
		AutoBankOnReturn:     true,
		AllowRespawn:         false,
		WinMode:              "box_count",
		MaxTurns:             0,
		AllowBackward:        true,
		DirectionLock:        true,
		BoxExitBidirectional: true,
		MaxStackHeight:       0,
		TurnOrderMethod:      "fixed",
		BotDifficulty:        "heuristic",
	}
}

// LogEntry is one line of the append-only action log.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Turn      int            `json:"turn"`
	PlayerID  string         `json:"player_id"`
	Action    string         `json:"action_type"`
	Details   map[string]any `json:"details,omitempty"`
}

// State is the full game state of one room. The engine never mutates a
// State it received: operations clone first and return the clone. The
// board is shared read-only and excluded from serialization; the owner
// reattaches it after a load.
type State struct {
	RoomID            string             `json:"room_id"`
	Config            Config             `json:"config"`
	Board             *board.Board       `json:"-"`
	Players           map[string]*Player `json:"players"`
	TurnOrder         []string           `json:"turn_order"`
	CurrentTurnIndex  int                `json:"current_turn_index"`
	Phase             Phase              `json:"phase"`
	DiceValue         *int               `json:"dice_value,omitempty"`
	SelectedStack     string             `json:"selected_stack,omitempty"`
	SelectedDirection *board.Direction   `json:"selected_direction,omitempty"`
	Stacks            []*Stack           `json:"stacks"`
	Logs              []LogEntry         `json:"logs"`
	Winner            []string           `json:"winner,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	RandomSeed        int64              `json:"random_seed"`
	RollCount         int                `json:"roll_count"`
	TurnCount         int                `json:"turn_count"`
	StackSeq          int                `json:"stack_seq"`
}

// CurrentPlayerID returns the id of the player to act, or "".
func (s *State) CurrentPlayerID() string {
	if len(s.TurnOrder) == 0 {
		return ""
	}
	return s.TurnOrder[s.CurrentTurnIndex%len(s.TurnOrder)]
}

// CurrentPlayer returns the player to act, or nil.
func (s *State) CurrentPlayer() *Player {
	return s.Players[s.CurrentPlayerID()]
}

// StackByID finds an on-board stack.
func (s *State) StackByID(id string) *Stack {
	for _, st := range s.Stacks {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// StacksAt lists the stacks sitting on a node.
func (s *State) StacksAt(nodeID string) []*Stack {
	var out []*Stack
	for _, st := range s.Stacks {
		if st.NodeID == nodeID {
			out = append(out, st)
		}
	}
	return out
}

// PlayerByColor finds the seat holding a color, or nil.
func (s *State) PlayerByColor(c board.Color) *Player {
	for _, p := range s.Players {
		if p.Color == c {
			return p
		}
	}
	return nil
}

// ColorsOnBoard returns the colors with at least one hat outside every
// box, the quantity the box_count win mode watches. Invaders parked on a
// foreign box node are on the board.
func (s *State) ColorsOnBoard() map[board.Color]bool {
	out := make(map[board.Color]bool)
	for _, st := range s.Stacks {
		if st.Box {
			continue
		}
		for _, h := range st.Pieces {
			out[h.Color] = true
		}
	}
	return out
}

// AddLog appends one action log entry.
func (s *State) AddLog(playerID, action string, details map[string]any) {
	s.Logs = append(s.Logs, LogEntry{
		Timestamp: time.Now().UTC(),
		Turn:      s.TurnCount,
		PlayerID:  playerID,
		Action:    action,
		Details:   details,
	})
}

// Clone deep-copies the state. The board pointer is shared: it is
// immutable by construction.
func (s *State) Clone() *State {
	cp := *s
	cp.Players = make(map[string]*Player, len(s.Players))
	for id, p := range s.Players {
		pc := *p
		pc.BoxHats = append([]Hat(nil), p.BoxHats...)
		pc.BankedHats = append([]Hat(nil), p.BankedHats...)
		cp.Players[id] = &pc
	}
	cp.TurnOrder = append([]string(nil), s.TurnOrder...)
	cp.Stacks = make([]*Stack, 0, len(s.Stacks))
	for _, st := range s.Stacks {
		sc := *st
		sc.Pieces = append([]Hat(nil), st.Pieces...)
		cp.Stacks = append(cp.Stacks, &sc)
	}
	cp.Logs = append([]LogEntry(nil), s.Logs...)
	cp.Winner = append([]string(nil), s.Winner...)
	if s.DiceValue != nil {
		v := *s.DiceValue
		cp.DiceValue = &v
	}
	if s.SelectedDirection != nil {
		d := *s.SelectedDirection
		cp.SelectedDirection = &d
	}
	return &cp
}

func lower(c board.Color) string {
	switch c {
	case board.Red:
		return "red"
	case board.Green:
		return "green"
	case board.Blue:
		return "blue"
	default:
		return "yellow"
	}
}
