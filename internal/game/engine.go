package game

import (
	"fmt"
	"math/rand"
	"time"

	"coppit-server/internal/board"
)

// InitGame builds a fresh waiting-room state on a shared board. The seed
// fixes the dice stream; pass 0 to draw one from the clock.
func InitGame(roomID string, b *board.Board, cfg Config, seed int64) *State {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &State{
		RoomID:     roomID,
		Config:     cfg,
		Board:      b,
		Players:    make(map[string]*Player),
		Phase:      PhaseWaiting,
		CreatedAt:  time.Now().UTC(),
		RandomSeed: seed,
	}
}

// AddPlayer seats a player. An empty color requests auto-assignment of the
// first free one. The input state is not mutated.
func AddPlayer(s *State, id, name string, color board.Color, isBot bool) (*State, error) {
	if s.Phase != PhaseWaiting {
		return nil, fmt.Errorf("%w: game already started", ErrIllegalAction)
	}
	if len(s.Players) >= s.Config.MaxPlayers {
		return nil, ErrRoomFull
	}
	if _, taken := s.Players[id]; taken {
		return nil, fmt.Errorf("%w: player %s already seated", ErrIllegalAction, id)
	}

	used := make(map[board.Color]bool, len(s.Players))
	for _, p := range s.Players {
		used[p.Color] = true
	}
	if color == "" {
		for _, c := range board.AllColors {
			if !used[c] {
				color = c
				break
			}
		}
	} else if used[color] {
		return nil, ErrDuplicateColor
	}
	if _, ok := s.Board.BoxNode(color); !ok {
		return nil, fmt.Errorf("%w: board has no box for color %s", ErrInvalidTarget, color)
	}

	ns := s.Clone()
	p := &Player{
		ID:        id,
		Name:      name,
		Color:     color,
		IsBot:     isBot,
		Connected: true,
		BoxHats:   InitialHats(color, ns.Config.HatsPerPlayer),
	}
	ns.Players[id] = p
	ns.TurnOrder = append(ns.TurnOrder, id)
	syncBoxStack(ns, p)
	ns.AddLog(id, "join", map[string]any{"name": name, "color": string(color), "is_bot": isBot})
	return ns, nil
}

// RemovePlayer unseats a player. Only legal before the game starts; a
// running game marks leavers disconnected instead.
func RemovePlayer(s *State, id string) (*State, error) {
	if s.Phase != PhaseWaiting {
		return nil, fmt.Errorf("%w: game already started", ErrIllegalAction)
	}
	p, ok := s.Players[id]
	if !ok {
		return nil, fmt.Errorf("%w: player %s not seated", ErrInvalidTarget, id)
	}
	ns := s.Clone()
	np := ns.Players[id]
	np.BoxHats = nil
	syncBoxStack(ns, np)
	delete(ns.Players, id)
	for i, pid := range ns.TurnOrder {
		if pid == id {
			ns.TurnOrder = append(ns.TurnOrder[:i], ns.TurnOrder[i+1:]...)
			break
		}
	}
	ns.AddLog(id, "leave", map[string]any{"color": string(p.Color)})
	return ns, nil
}

// StartGame moves WAITING to ROLL for the first player in turn order.
// Seat filling (bots for empty chairs) is the coordinator's business and
// happens before this call.
func StartGame(s *State) (*State, error) {
	if s.Phase != PhaseWaiting {
		return nil, fmt.Errorf("%w: game already started", ErrIllegalAction)
	}
	if len(s.Players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	ns := s.Clone()
	if ns.Config.TurnOrderMethod == "random" {
		rng := rand.New(rand.NewSource(ns.RandomSeed))
		rng.Shuffle(len(ns.TurnOrder), func(i, j int) {
			ns.TurnOrder[i], ns.TurnOrder[j] = ns.TurnOrder[j], ns.TurnOrder[i]
		})
	}
	ns.CurrentTurnIndex = 0
	ns.Phase = PhaseRoll
	ns.AddLog("system", "start", map[string]any{"turn_order": ns.TurnOrder})
	return ns, nil
}

// RollDice draws the next die value from the state's seeded stream and
// moves the machine to SELECT_PIECE. The same seed and the same call
// sequence always reproduce the same values.
func RollDice(s *State) (*State, int, error) {
	if s.Phase != PhaseRoll {
		return nil, 0, fmt.Errorf("%w: phase is %s, not %s", ErrIllegalAction, s.Phase, PhaseRoll)
	}
	ns := s.Clone()
	v := nextDie(ns)
	ns.DiceValue = &v
	ns.SelectedStack = ""
	ns.SelectedDirection = nil
	ns.Phase = PhaseSelectPiece
	ns.AddLog(ns.CurrentPlayerID(), "roll", map[string]any{"value": v})
	return ns, v, nil
}

// nextDie replays the seeded stream up to the current roll count. Linear
// in the number of rolls, which stays tiny for a board game.
func nextDie(s *State) int {
	rng := rand.New(rand.NewSource(s.RandomSeed))
	v := 0
	for i := 0; i <= s.RollCount; i++ {
		v = rng.Intn(6) + 1
	}
	s.RollCount++
	return v
}

// AdvanceTurn hands the turn to the next player who is a bot or still
// connected, resets the per-turn selection and re-enters ROLL. Turn
// limits are enforced here so a max_turns game ends even on a pass.
func AdvanceTurn(s *State) *State {
	ns := s.Clone()
	advanceTurnInPlace(ns)
	return ns
}

func advanceTurnInPlace(s *State) {
	if s.Phase == PhaseGameOver || len(s.TurnOrder) == 0 {
		return
	}
	s.TurnCount++
	s.DiceValue = nil
	s.SelectedStack = ""
	s.SelectedDirection = nil
	for i := 0; i < len(s.TurnOrder); i++ {
		s.CurrentTurnIndex = (s.CurrentTurnIndex + 1) % len(s.TurnOrder)
		p := s.CurrentPlayer()
		if p != nil && (p.IsBot || p.Connected) {
			break
		}
	}
	s.Phase = PhaseRoll
	checkGameOverInPlace(s)
}

// SkipTurn is the synthetic directive external timeout policy injects for
// a stalled player. It is only legal for the current player's turn.
func SkipTurn(s *State, playerID string) (*State, error) {
	if s.Phase == PhaseWaiting || s.Phase == PhaseGameOver {
		return nil, fmt.Errorf("%w: nothing to skip in phase %s", ErrIllegalAction, s.Phase)
	}
	if s.CurrentPlayerID() != playerID {
		return nil, fmt.Errorf("%w: not %s's turn", ErrIllegalAction, playerID)
	}
	ns := s.Clone()
	ns.AddLog(playerID, "skip", nil)
	advanceTurnInPlace(ns)
	return ns, nil
}

// SetConnected flips a seat's connectivity flag. It never cancels an
// in-flight action; it only feeds future turn-skip decisions.
func SetConnected(s *State, playerID string, connected bool) *State {
	ns := s.Clone()
	if p, ok := ns.Players[playerID]; ok {
		p.Connected = connected
	}
	return ns
}

// syncBoxStack keeps the presentation stack on a player's box node in
// step with the box contents. An empty box keeps no stack.
func syncBoxStack(s *State, p *Player) {
	boxID, ok := s.Board.BoxNode(p.Color)
	if !ok {
		return
	}
	for i, st := range s.Stacks {
		if st.Box && st.NodeID == boxID {
			if len(p.BoxHats) == 0 {
				s.Stacks = append(s.Stacks[:i], s.Stacks[i+1:]...)
			} else {
				st.Pieces = append([]Hat(nil), p.BoxHats...)
			}
			return
		}
	}
	if len(p.BoxHats) > 0 {
		s.Stacks = append(s.Stacks, &Stack{
			ID:     newStackID(s),
			NodeID: boxID,
			Pieces: append([]Hat(nil), p.BoxHats...),
			Box:    true,
		})
	}
}

func newStackID(s *State) string {
	s.StackSeq++
	return fmt.Sprintf("st_%d", s.StackSeq)
}

// CheckConservation verifies that no hat was created or destroyed: per
// color, hats in live stacks plus box and bank contents must equal the
// initial count. Mirror stacks restate the box contents and are not
// counted twice; invader stacks parked on a foreign box node are live
// and do count.
func CheckConservation(s *State) error {
	counts := make(map[board.Color]int)
	for _, st := range s.Stacks {
		if st.Box {
			continue
		}
		if len(st.Pieces) == 0 {
			return fmt.Errorf("%w: empty stack %s on node %s", ErrConservation, st.ID, st.NodeID)
		}
		for _, h := range st.Pieces {
			counts[h.Color]++
		}
	}
	for _, p := range s.Players {
		for _, h := range p.BoxHats {
			counts[h.Color]++
		}
		for _, h := range p.BankedHats {
			counts[h.Color]++
		}
	}
	for _, p := range s.Players {
		if got := counts[p.Color]; got != s.Config.HatsPerPlayer {
			return fmt.Errorf("%w: color %s has %d hats, want %d", ErrConservation, p.Color, got, s.Config.HatsPerPlayer)
		}
	}
	return nil
}
