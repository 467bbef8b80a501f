package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coppit-server/internal/archive"
	"coppit-server/internal/board"
	"coppit-server/internal/bot"
	"coppit-server/internal/game"
	"coppit-server/internal/store"
)

// ErrRoomNotFound is returned for unknown or expired room ids.
var ErrRoomNotFound = errors.New("room not found")

// ErrRoomCorrupted marks a room whose state failed an integrity check.
// The room refuses every further action; only reads keep working.
var ErrRoomCorrupted = errors.New("room state corrupted")

// driveLimit bounds the automatic action loop of one handled action: bot
// turns, forced passes and single-option commits. A full 4-bot game fits
// comfortably; hitting the cap means a logic bug, not a long game.
const driveLimit = 4096

var botNames = []string{"Capper", "Hattrick", "Tricorn", "Bowler"}

// Manager owns every live room: it validates actors, applies actions
// through the rule engine, persists each accepted transition and fans out
// events. All actions on one room run under that room's lock, bot
// continuations included.
type Manager struct {
	mu    sync.Mutex
	rooms map[string]*liveRoom

	board   *board.Board
	store   store.Store
	arch    *archive.Archive // optional
	bc      Broadcaster
	log     *zap.Logger
	weights bot.Weights
}

type liveRoom struct {
	mu        sync.Mutex
	state     *game.State
	bots      map[string]bot.Policy
	corrupted bool
	archived  bool
}

func NewManager(b *board.Board, st store.Store, arch *archive.Archive, bc Broadcaster, log *zap.Logger, w bot.Weights) *Manager {
	return &Manager{
		rooms:   make(map[string]*liveRoom),
		board:   b,
		store:   st,
		arch:    arch,
		bc:      bc,
		log:     log,
		weights: w,
	}
}

// Weights returns the current bot weights.
func (m *Manager) Weights() bot.Weights {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weights
}

// SetWeights swaps the bot weights. Existing rooms keep the policies they
// already built; new bots pick the change up.
func (m *Manager) SetWeights(w bot.Weights) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = w
}

// CreateRoom opens a room with the host already seated and returns the
// initial state.
func (m *Manager) CreateRoom(ctx context.Context, hostID, hostName string, color board.Color, cfg game.Config, seed int64) (*game.State, error) {
	roomID := uuid.NewString()
	s := game.InitGame(roomID, m.board, cfg, seed)
	s, err := game.AddPlayer(s, hostID, hostName, color, false)
	if err != nil {
		return nil, err
	}
	lr := &liveRoom{state: s, bots: make(map[string]bot.Policy)}

	m.mu.Lock()
	m.rooms[roomID] = lr
	m.mu.Unlock()

	m.persist(ctx, s)
	if err := m.store.SetPlayerRoom(ctx, hostID, roomID); err != nil {
		m.log.Warn("player index save failed", zap.String("player_id", hostID), zap.Error(err))
	}
	m.log.Info("room created",
		zap.String("room_id", roomID),
		zap.String("host_id", hostID),
		zap.String("color", string(s.Players[hostID].Color)))
	return s, nil
}

// JoinRoom seats a player in the waiting room.
func (m *Manager) JoinRoom(ctx context.Context, roomID, playerID, name string, color board.Color) (*game.State, error) {
	lr, err := m.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.corrupted {
		return nil, ErrRoomCorrupted
	}
	ns, err := game.AddPlayer(lr.state, playerID, name, color, false)
	if err != nil {
		return nil, err
	}
	lr.state = ns
	m.persist(ctx, ns)
	if err := m.store.SetPlayerRoom(ctx, playerID, roomID); err != nil {
		m.log.Warn("player index save failed", zap.String("player_id", playerID), zap.Error(err))
	}
	m.bc.Broadcast(roomID, stateEvent(ns))
	return ns, nil
}

// LeaveRoom removes a player from a waiting room, or marks the seat
// disconnected once the game runs (the turn loop then skips it).
func (m *Manager) LeaveRoom(ctx context.Context, roomID, playerID string) error {
	lr, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.state.Phase == game.PhaseWaiting {
		ns, err := game.RemovePlayer(lr.state, playerID)
		if err != nil {
			return err
		}
		lr.state = ns
	} else {
		lr.state = game.SetConnected(lr.state, playerID, false)
	}
	_ = m.store.ClearPlayerRoom(ctx, playerID)
	m.persist(ctx, lr.state)
	m.bc.Broadcast(roomID, stateEvent(lr.state))
	return nil
}

// SetConnected flips a seat's liveness, typically from the ws hub on
// connect and disconnect.
func (m *Manager) SetConnected(ctx context.Context, roomID, playerID string, connected bool) error {
	lr, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.state = game.SetConnected(lr.state, playerID, connected)
	m.persist(ctx, lr.state)
	m.bc.Broadcast(roomID, stateEvent(lr.state))
	return nil
}

// State returns a snapshot of the room.
func (m *Manager) State(ctx context.Context, roomID string) (*game.State, error) {
	lr, err := m.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.state.Clone(), nil
}

// PlayerRoom resolves which room a player currently sits in.
func (m *Manager) PlayerRoom(ctx context.Context, playerID string) (string, error) {
	roomID, err := m.store.PlayerRoom(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrRoomNotFound
	}
	return roomID, err
}

// HandleAction is the single entry point for player actions. Rule
// violations never mutate anything: the sender alone gets an error event
// and everyone else sees nothing.
func (m *Manager) HandleAction(ctx context.Context, roomID, playerID string, act ClientAction) error {
	lr, err := m.room(ctx, roomID)
	if err != nil {
		m.bc.SendTo(roomID, playerID, errorEvent(err))
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.corrupted {
		m.bc.SendTo(roomID, playerID, errorEvent(ErrRoomCorrupted))
		return ErrRoomCorrupted
	}

	prev := lr.state
	var events []Event
	err = m.apply(lr, playerID, act, &events)
	if err == nil {
		err = m.drive(lr, &events)
	}
	if err != nil {
		if errors.Is(err, game.ErrConservation) {
			lr.corrupted = true
			m.log.Error("room halted on integrity failure",
				zap.String("room_id", roomID), zap.Error(err))
			m.bc.Broadcast(roomID, errorEvent(ErrRoomCorrupted))
			return err
		}
		// Clients never saw the partial transition; drop it.
		lr.state = prev
		m.bc.SendTo(roomID, playerID, errorEvent(err))
		return err
	}

	m.persist(ctx, lr.state)
	for _, ev := range events {
		m.bc.Broadcast(roomID, ev)
	}
	m.finishIfOver(lr, roomID)
	return nil
}

// ForcePass skips a stalled player's turn. External timeout policy calls
// it; the engine still validates that it targets the current player.
func (m *Manager) ForcePass(ctx context.Context, roomID, playerID string) error {
	lr, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.corrupted {
		return ErrRoomCorrupted
	}
	prev := lr.state
	ns, err := game.SkipTurn(lr.state, playerID)
	if err != nil {
		return err
	}
	lr.state = ns
	events := []Event{stateEvent(ns)}
	appendTurnStart(ns, &events)
	if err := m.drive(lr, &events); err != nil {
		if errors.Is(err, game.ErrConservation) {
			lr.corrupted = true
			m.log.Error("room halted on integrity failure",
				zap.String("room_id", roomID), zap.Error(err))
			m.bc.Broadcast(roomID, errorEvent(ErrRoomCorrupted))
			return err
		}
		lr.state = prev
		return err
	}
	m.persist(ctx, lr.state)
	for _, ev := range events {
		m.bc.Broadcast(roomID, ev)
	}
	m.finishIfOver(lr, roomID)
	return nil
}

// apply executes one explicit player action.
func (m *Manager) apply(lr *liveRoom, playerID string, act ClientAction, events *[]Event) error {
	s := lr.state
	switch act.Type {
	case ActionStartGame:
		if _, ok := s.Players[playerID]; !ok {
			return fmt.Errorf("%w: not seated in this room", game.ErrIllegalAction)
		}
		ns := s
		if act.FillBots {
			var err error
			ns, err = m.fillBots(lr, ns)
			if err != nil {
				return err
			}
		}
		ns, err := game.StartGame(ns)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, stateEvent(ns), turnStartEvent(ns))
		return nil

	case ActionRollDice:
		if s.CurrentPlayerID() != playerID {
			return fmt.Errorf("%w: not your turn", game.ErrIllegalAction)
		}
		ns, v, err := game.RollDice(s)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, diceRolledEvent(playerID, v), stateEvent(ns))
		if legal := game.LegalStacks(ns, playerID); len(legal) > 0 {
			*events = append(*events, legalPiecesEvent(playerID, legal))
		}
		return nil

	case ActionSelectPiece:
		ns, err := game.SelectStack(s, playerID, act.StackID)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, stateEvent(ns))
		if st := ns.StackByID(act.StackID); st != nil {
			*events = append(*events, legalMovesEvent(ns, st)...)
		}
		return nil

	case ActionSelectDirection:
		d := board.Direction(strings.ToUpper(act.Direction))
		ns, res, err := game.SelectDirection(s, playerID, d)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, moveAppliedEvent(playerID, res), stateEvent(ns))
		appendTurnStart(ns, events)
		return nil

	case ActionSelectDestination:
		ns, res, err := game.SelectDestination(s, playerID, act.StackID, act.Target)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, moveAppliedEvent(playerID, res), stateEvent(ns))
		appendTurnStart(ns, events)
		return nil

	case ActionPass:
		ns, err := game.Pass(s, playerID)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, stateEvent(ns))
		appendTurnStart(ns, events)
		return nil

	case ActionResetGame:
		return m.reset(lr, playerID, events)

	case ActionChat:
		p, ok := s.Players[playerID]
		if !ok {
			return fmt.Errorf("%w: not seated in this room", game.ErrIllegalAction)
		}
		if strings.TrimSpace(act.Text) == "" {
			return fmt.Errorf("%w: empty chat message", game.ErrIllegalAction)
		}
		*events = append(*events, chatEvent(playerID, p.Name, act.Text))
		return nil
	}
	return fmt.Errorf("%w: unknown action %q", game.ErrIllegalAction, act.Type)
}

// drive runs every transition that needs no human input: forced passes on
// an empty legal set, the single-option move commit and whole bot turns.
// It stops when the machine waits for a human or the game ends.
func (m *Manager) drive(lr *liveRoom, events *[]Event) error {
	for i := 0; i < driveLimit; i++ {
		s := lr.state
		if s.Phase == game.PhaseWaiting || s.Phase == game.PhaseGameOver {
			return nil
		}
		pid := s.CurrentPlayerID()
		p := s.CurrentPlayer()
		if p == nil {
			return nil
		}

		switch s.Phase {
		case game.PhaseSelectPiece:
			if legal := game.LegalStacks(s, pid); len(legal) == 0 {
				*events = append(*events, legalPiecesEvent(pid, nil))
				ns, err := game.Pass(s, pid)
				if err != nil {
					return err
				}
				lr.state = ns
				*events = append(*events, stateEvent(ns))
				appendTurnStart(ns, events)
				continue
			}
		case game.PhaseSelectDirection:
			st := s.StackByID(s.SelectedStack)
			if st != nil {
				dirs := game.LegalDirections(s, st)
				dests := game.LegalDestinations(s, st)
				// Only commit when there is genuinely no choice left: a
				// lone direction can still compete with a box return.
				if len(dirs) == 1 && len(dests) == 1 {
					ns, res, err := game.SelectDirection(s, pid, dirs[0])
					if err != nil {
						return err
					}
					lr.state = ns
					*events = append(*events, moveAppliedEvent(pid, res), stateEvent(ns))
					appendTurnStart(ns, events)
					continue
				}
			}
		}

		if !p.IsBot {
			return nil
		}
		if err := m.botStep(lr, pid, events); err != nil {
			return err
		}
	}
	return fmt.Errorf("action loop did not settle in room %s", lr.state.RoomID)
}

// botStep asks the seat's policy for one action and applies it.
func (m *Manager) botStep(lr *liveRoom, pid string, events *[]Event) error {
	policy, ok := lr.bots[pid]
	if !ok {
		policy = bot.New(lr.state.Config.BotDifficulty, m.Weights(), botSeed(lr.state, pid))
		lr.bots[pid] = policy
	}
	act, err := policy.Decide(lr.state, pid)
	if err != nil {
		return err
	}
	switch act.Type {
	case "roll":
		ns, v, err := game.RollDice(lr.state)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, diceRolledEvent(pid, v), stateEvent(ns))
	case "select_destination":
		ns, res, err := game.SelectDestination(lr.state, pid, act.StackID, act.Target)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, moveAppliedEvent(pid, res), stateEvent(ns))
		appendTurnStart(ns, events)
	case "pass":
		ns, err := game.Pass(lr.state, pid)
		if err != nil {
			return err
		}
		lr.state = ns
		*events = append(*events, stateEvent(ns))
		appendTurnStart(ns, events)
	default:
		return fmt.Errorf("bot %s emitted unknown action %q", pid, act.Type)
	}
	return nil
}

// fillBots seats bots on every empty chair.
func (m *Manager) fillBots(lr *liveRoom, s *game.State) (*game.State, error) {
	i := 0
	for len(s.Players) < s.Config.MaxPlayers {
		name := botNames[i%len(botNames)]
		id := "bot_" + uuid.NewString()[:8]
		ns, err := game.AddPlayer(s, id, name, "", true)
		if err != nil {
			return nil, err
		}
		lr.bots[id] = bot.New(ns.Config.BotDifficulty, m.Weights(), botSeed(ns, id))
		s = ns
		i++
	}
	return s, nil
}

// reset rebuilds a finished room with the same seats and rules but a
// fresh dice stream, back in the waiting phase.
func (m *Manager) reset(lr *liveRoom, playerID string, events *[]Event) error {
	s := lr.state
	if s.Phase != game.PhaseGameOver {
		return fmt.Errorf("%w: game still running", game.ErrIllegalAction)
	}
	if _, ok := s.Players[playerID]; !ok {
		return fmt.Errorf("%w: not seated in this room", game.ErrIllegalAction)
	}
	ns := game.InitGame(s.RoomID, m.board, s.Config, 0)
	for _, pid := range s.TurnOrder {
		p := s.Players[pid]
		var err error
		ns, err = game.AddPlayer(ns, p.ID, p.Name, p.Color, p.IsBot)
		if err != nil {
			return err
		}
	}
	lr.state = ns
	lr.archived = false
	*events = append(*events, stateEvent(ns))
	return nil
}

// finishIfOver archives a game exactly once after it ends and announces
// the result.
func (m *Manager) finishIfOver(lr *liveRoom, roomID string) {
	if lr.state.Phase != game.PhaseGameOver || lr.archived {
		return
	}
	lr.archived = true
	m.bc.Broadcast(roomID, gameOverEvent(lr.state))
	if m.arch != nil {
		if err := m.arch.Record(lr.state); err != nil {
			m.log.Warn("match archive failed", zap.String("room_id", roomID), zap.Error(err))
		}
	}
	m.log.Info("game finished",
		zap.String("room_id", roomID),
		zap.Strings("winner", lr.state.Winner),
		zap.Int("turns", lr.state.TurnCount))
}

// room resolves a live room, reloading it from the store after a restart.
func (m *Manager) room(ctx context.Context, roomID string) (*liveRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lr, ok := m.rooms[roomID]; ok {
		return lr, nil
	}
	s, err := m.store.Load(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Board = m.board
	lr := &liveRoom{state: s, bots: make(map[string]bot.Policy)}
	m.rooms[roomID] = lr
	return lr, nil
}

func (m *Manager) persist(ctx context.Context, s *game.State) {
	if err := m.store.Save(ctx, s, store.DefaultTTL); err != nil {
		m.log.Warn("room save failed", zap.String("room_id", s.RoomID), zap.Error(err))
	}
}

// botSeed derives a per-seat seed from the room seed and the seat's
// turn-order index, so recreated policies land on the same stream after
// a manager restart.
func botSeed(s *game.State, pid string) int64 {
	for i, id := range s.TurnOrder {
		if id == pid {
			return s.RandomSeed + int64(i) + 1
		}
	}
	return s.RandomSeed
}

func appendTurnStart(s *game.State, events *[]Event) {
	if s.Phase == game.PhaseRoll {
		*events = append(*events, turnStartEvent(s))
	}
}
