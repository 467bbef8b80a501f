package archive

import (
	"testing"

	"coppit-server/internal/board"
	"coppit-server/internal/game"
)

func finishedState(t *testing.T) *game.State {
	t.Helper()
	s := game.InitGame("r1", board.BuildDefault(), game.DefaultConfig(), 1)
	s, err := game.AddPlayer(s, "p1", "Ana", board.Red, false)
	if err != nil {
		t.Fatal(err)
	}
	s, err = game.AddPlayer(s, "p2", "Ben", board.Green, true)
	if err != nil {
		t.Fatal(err)
	}
	s, err = game.StartGame(s)
	if err != nil {
		t.Fatal(err)
	}
	s.Phase = game.PhaseGameOver
	s.Winner = []string{"p1"}
	s.TurnCount = 12
	return s
}

func TestRecordAndQuery(t *testing.T) {
	a, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Record(finishedState(t)); err != nil {
		t.Fatal(err)
	}

	matches, err := a.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.RoomID != "r1" || m.Turns != 12 {
		t.Fatalf("match = %+v", m)
	}
	players, err := m.Players()
	if err != nil {
		t.Fatal(err)
	}
	if len(players) != 2 {
		t.Fatalf("players = %v, want 2 seats", players)
	}

	byRoom, err := a.ByRoom("r1")
	if err != nil || len(byRoom) != 1 {
		t.Fatalf("byRoom = %v err = %v", byRoom, err)
	}
}

func TestRecordIgnoresLiveGames(t *testing.T) {
	a, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	s := finishedState(t)
	s.Phase = game.PhaseRoll
	if err := a.Record(s); err != nil {
		t.Fatal(err)
	}
	matches, _ := a.Recent(10)
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want 0", len(matches))
	}
}
