package room

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"coppit-server/internal/board"
	"coppit-server/internal/bot"
	"coppit-server/internal/game"
	"coppit-server/internal/store"
)

type recorder struct {
	mu         sync.Mutex
	broadcasts []Event
	sent       map[string][]Event
}

func newRecorder() *recorder {
	return &recorder{sent: make(map[string][]Event)}
}

func (r *recorder) Broadcast(_ string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, ev)
}

func (r *recorder) SendTo(_ string, playerID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[playerID] = append(r.sent[playerID], ev)
}

func (r *recorder) broadcastTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.broadcasts))
	for _, ev := range r.broadcasts {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) hasBroadcast(eventType string) bool {
	for _, t := range r.broadcastTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

func newTestManager(t *testing.T) (*Manager, *recorder, *store.MemStore) {
	t.Helper()
	rec := newRecorder()
	st := store.NewMemStore()
	m := NewManager(board.BuildDefault(), st, nil, rec, zap.NewNop(), bot.DefaultWeights())
	return m, rec, st
}

func TestCreateAndJoinRoom(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	s, err := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Players) != 1 || s.Phase != game.PhaseWaiting {
		t.Fatalf("state = %+v", s)
	}

	s2, err := m.JoinRoom(ctx, s.RoomID, "p2", "Ben", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(s2.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(s2.Players))
	}
	roomID, err := m.PlayerRoom(ctx, "p2")
	if err != nil || roomID != s.RoomID {
		t.Fatalf("player room = %q err = %v", roomID, err)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.JoinRoom(context.Background(), "nope", "p1", "Ana", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestRoomSurvivesManagerRestart(t *testing.T) {
	m1, _, st := newTestManager(t)
	ctx := context.Background()
	s, err := m1.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	if err != nil {
		t.Fatal(err)
	}

	m2 := NewManager(board.BuildDefault(), st, nil, newRecorder(), zap.NewNop(), bot.DefaultWeights())
	got, err := m2.State(ctx, s.RoomID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RoomID != s.RoomID || got.Board == nil {
		t.Fatalf("reloaded state = %+v", got)
	}
}

func TestStartGameFillsBots(t *testing.T) {
	m, rec, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)

	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionStartGame, FillBots: true}); err != nil {
		t.Fatal(err)
	}
	got, _ := m.State(ctx, s.RoomID)
	if len(got.Players) != got.Config.MaxPlayers {
		t.Fatalf("players = %d, want %d", len(got.Players), got.Config.MaxPlayers)
	}
	bots := 0
	for _, p := range got.Players {
		if p.IsBot {
			bots++
		}
	}
	if bots != 3 {
		t.Fatalf("bots = %d, want 3", bots)
	}
	if got.Phase != game.PhaseRoll {
		t.Fatalf("phase = %s, want ROLL", got.Phase)
	}
	if !rec.hasBroadcast(EventTurnStart) {
		t.Fatalf("events = %v, want a turn_start", rec.broadcastTypes())
	}
}

func TestIllegalActionOnlyTellsSender(t *testing.T) {
	m, rec, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	_, _ = m.JoinRoom(ctx, s.RoomID, "p2", "Ben", "")
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionStartGame}); err != nil {
		t.Fatal(err)
	}
	before := len(rec.broadcastTypes())

	// p2 rolls out of turn.
	err := m.HandleAction(ctx, s.RoomID, "p2", ClientAction{Type: ActionRollDice})
	if !errors.Is(err, game.ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction", err)
	}
	if len(rec.broadcastTypes()) != before {
		t.Fatal("illegal action leaked a broadcast")
	}
	evs := rec.sent["p2"]
	if len(evs) != 1 || evs[0].Type != EventError {
		t.Fatalf("sender events = %v, want one error", evs)
	}
	got, _ := m.State(ctx, s.RoomID)
	if got.Phase != game.PhaseRoll {
		t.Fatalf("phase = %s, state must be untouched", got.Phase)
	}
}

// Whatever the human does, control must come back in a state that waits
// for a human: the bot continuation runs inside the same action.
func TestBotsActWithinHumanAction(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionStartGame, FillBots: true}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 40; i++ {
		got, err := m.State(ctx, s.RoomID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Phase == game.PhaseGameOver {
			return
		}
		cur := got.CurrentPlayer()
		if cur == nil || cur.IsBot {
			t.Fatalf("step %d: settled on a bot turn (phase %s)", i, got.Phase)
		}
		switch got.Phase {
		case game.PhaseRoll:
			if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionRollDice}); err != nil {
				t.Fatal(err)
			}
		case game.PhaseSelectPiece:
			legal := game.LegalStacks(got, "p1")
			if len(legal) == 0 {
				t.Fatal("empty legal set not auto-passed")
			}
			dests := game.LegalDestinations(got, legal[0])
			err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{
				Type: ActionSelectDestination, StackID: legal[0].ID, Target: dests[0],
			})
			if err != nil {
				t.Fatal(err)
			}
		case game.PhaseSelectDirection:
			st := got.StackByID(got.SelectedStack)
			dests := game.LegalDestinations(got, st)
			err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{
				Type: ActionSelectDestination, Target: dests[0],
			})
			if err != nil {
				t.Fatal(err)
			}
		default:
			t.Fatalf("step %d: unexpected phase %s", i, got.Phase)
		}
	}
}

func TestChatBroadcastsWithoutStateChange(t *testing.T) {
	m, rec, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)

	before, _ := m.State(ctx, s.RoomID)
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionChat, Text: "hello"}); err != nil {
		t.Fatal(err)
	}
	if !rec.hasBroadcast(EventChat) {
		t.Fatalf("events = %v, want a chat", rec.broadcastTypes())
	}
	after, _ := m.State(ctx, s.RoomID)
	if len(after.Logs) != len(before.Logs) || after.Phase != before.Phase {
		t.Fatal("chat changed game state")
	}
}

func TestResetOnlyAfterGameOver(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	_, _ = m.JoinRoom(ctx, s.RoomID, "p2", "Ben", "")
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionStartGame}); err != nil {
		t.Fatal(err)
	}

	err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionResetGame})
	if !errors.Is(err, game.ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction while running", err)
	}

	// Force the end, then reset.
	lr, err := m.room(ctx, s.RoomID)
	if err != nil {
		t.Fatal(err)
	}
	lr.mu.Lock()
	ns := lr.state.Clone()
	ns.Phase = game.PhaseGameOver
	ns.Winner = []string{"p1"}
	lr.state = ns
	lr.mu.Unlock()

	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionResetGame}); err != nil {
		t.Fatal(err)
	}
	got, _ := m.State(ctx, s.RoomID)
	if got.Phase != game.PhaseWaiting || len(got.Players) != 2 || got.Winner != nil {
		t.Fatalf("reset state = %+v", got)
	}
}

func TestGameOverBroadcastsOnce(t *testing.T) {
	m, rec, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	_, _ = m.JoinRoom(ctx, s.RoomID, "p2", "Ben", "")
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionStartGame}); err != nil {
		t.Fatal(err)
	}

	// Craft an endgame: red's final live hat two steps from home, all
	// other hats home and done.
	lr, err := m.room(ctx, s.RoomID)
	if err != nil {
		t.Fatal(err)
	}
	lr.mu.Lock()
	ns := lr.state.Clone()
	for _, p := range ns.Players {
		for i := range p.BoxHats {
			p.BoxHats[i].Returned = true
		}
	}
	p1 := ns.Players["p1"]
	hat := p1.BoxHats[0]
	p1.BoxHats = p1.BoxHats[1:]
	ns.Stacks = append(ns.Stacks, &game.Stack{ID: "st_end", NodeID: "outer_5", Pieces: []game.Hat{hat}})
	dice := 2
	ns.DiceValue = &dice
	ns.Phase = game.PhaseSelectPiece
	lr.state = ns
	lr.mu.Unlock()

	boxID, _ := s.Board.BoxNode(board.Red)
	err = m.HandleAction(ctx, s.RoomID, "p1", ClientAction{
		Type: ActionSelectDestination, StackID: "st_end", Target: boxID,
	})
	if err != nil {
		t.Fatal(err)
	}

	overs := 0
	for _, ty := range rec.broadcastTypes() {
		if ty == EventGameOver {
			overs++
		}
	}
	if overs != 1 {
		t.Fatalf("game_over broadcast %d times, want 1", overs)
	}
	got, _ := m.State(ctx, s.RoomID)
	if got.Phase != game.PhaseGameOver {
		t.Fatalf("phase = %s, want GAME_OVER", got.Phase)
	}
}

func TestForcePassAdvancesStalledTurn(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	_, _ = m.JoinRoom(ctx, s.RoomID, "p2", "Ben", "")
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionStartGame}); err != nil {
		t.Fatal(err)
	}

	if err := m.ForcePass(ctx, s.RoomID, "p1"); err != nil {
		t.Fatal(err)
	}
	got, _ := m.State(ctx, s.RoomID)
	if got.CurrentPlayerID() != "p2" {
		t.Fatalf("current = %s, want p2", got.CurrentPlayerID())
	}
	if err := m.ForcePass(ctx, s.RoomID, "p1"); !errors.Is(err, game.ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction for wrong player", err)
	}
}

func TestLeaveWaitingRoomRemovesSeat(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	_, _ = m.JoinRoom(ctx, s.RoomID, "p2", "Ben", "")

	if err := m.LeaveRoom(ctx, s.RoomID, "p2"); err != nil {
		t.Fatal(err)
	}
	got, _ := m.State(ctx, s.RoomID)
	if len(got.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(got.Players))
	}
	if _, err := m.PlayerRoom(ctx, "p2"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want cleared player index", err)
	}
}

// Bot ids all have the same length, so the seed must come from the seat,
// not the id.
func TestBotSeedsDifferPerSeat(t *testing.T) {
	s := game.InitGame("r", board.BuildDefault(), game.DefaultConfig(), 99)
	var err error
	for _, id := range []string{"bot_aaaaaaaa", "bot_bbbbbbbb", "bot_cccccccc"} {
		s, err = game.AddPlayer(s, id, "B", "", true)
		if err != nil {
			t.Fatal(err)
		}
	}
	seen := make(map[int64]bool)
	for _, pid := range s.TurnOrder {
		sd := botSeed(s, pid)
		if seen[sd] {
			t.Fatalf("seed %d shared between seats", sd)
		}
		seen[sd] = true
	}
}

type noopPolicy struct{}

func (noopPolicy) Decide(*game.State, string) (bot.Action, error) {
	return bot.Action{Type: "noop"}, nil
}

// A transition that fails midway must not leave the room on a state the
// clients never received.
func TestFailedActionRestoresState(t *testing.T) {
	m, rec, _ := newTestManager(t)
	ctx := context.Background()
	s, _ := m.CreateRoom(ctx, "p1", "Ana", board.Red, game.DefaultConfig(), 42)
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionStartGame, FillBots: true}); err != nil {
		t.Fatal(err)
	}

	// Strand the human on a roll that allows nothing, with bots that will
	// derail the continuation.
	lr, err := m.room(ctx, s.RoomID)
	if err != nil {
		t.Fatal(err)
	}
	lr.mu.Lock()
	ns := lr.state.Clone()
	ns.Config.Require6ToDeploy = true
	dice := 3
	ns.DiceValue = &dice
	ns.Phase = game.PhaseSelectPiece
	lr.state = ns
	for pid := range lr.bots {
		lr.bots[pid] = noopPolicy{}
	}
	lr.mu.Unlock()

	before := len(rec.broadcastTypes())
	if err := m.HandleAction(ctx, s.RoomID, "p1", ClientAction{Type: ActionPass}); err == nil {
		t.Fatal("derailed continuation must surface an error")
	}
	got, _ := m.State(ctx, s.RoomID)
	if got.Phase != game.PhaseSelectPiece || got.CurrentPlayerID() != "p1" {
		t.Fatalf("phase=%s current=%s, want the pre-action state back", got.Phase, got.CurrentPlayerID())
	}
	if got.DiceValue == nil || *got.DiceValue != 3 {
		t.Fatalf("dice = %v, want the stranded 3", got.DiceValue)
	}
	if len(rec.broadcastTypes()) != before {
		t.Fatal("failed action leaked a broadcast")
	}
}
