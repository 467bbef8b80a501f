package game

import (
	"sort"

	"coppit-server/internal/board"
)

// CheckGameOver evaluates the end condition and returns the winners, or
// false while the game is still live. A color stays alive as long as it
// has hats on the board (captive ones included, they can change hands
// again) or hats it may still deploy.
func CheckGameOver(s *State) ([]string, bool) {
	if s.Phase == PhaseWaiting || len(s.Players) < 2 {
		return nil, false
	}
	if s.Config.MaxTurns > 0 && s.TurnCount >= s.Config.MaxTurns {
		return winners(s), true
	}
	alive := make(map[board.Color]bool)
	for _, st := range s.Stacks {
		if st.Box {
			continue
		}
		for _, h := range st.Pieces {
			alive[h.Color] = true
		}
	}
	for _, p := range s.Players {
		if len(p.DeployableHats(s.Config.AllowRespawn)) > 0 {
			alive[p.Color] = true
		}
	}
	if len(alive) > 1 {
		return nil, false
	}
	// In box_count the last color standing takes the game outright; every
	// other ending ranks by score.
	if s.Config.WinMode == "box_count" && len(alive) == 1 {
		for c := range alive {
			if p := s.PlayerByColor(c); p != nil {
				return []string{p.ID}, true
			}
		}
	}
	return winners(s), true
}

// winners ranks the seats by the configured win mode. box_count scores by
// own hats safely home, points by banked enemy hats; the other quantity
// breaks ties. Several players can share the top rank.
func winners(s *State) []string {
	type ranked struct {
		id             string
		primary, minor int
	}
	rs := make([]ranked, 0, len(s.Players))
	for id, p := range s.Players {
		r := ranked{id: id}
		if s.Config.WinMode == "points" {
			r.primary, r.minor = p.Points(), p.Score()
		} else {
			r.primary, r.minor = p.Score(), p.Points()
		}
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].primary != rs[j].primary {
			return rs[i].primary > rs[j].primary
		}
		if rs[i].minor != rs[j].minor {
			return rs[i].minor > rs[j].minor
		}
		return rs[i].id < rs[j].id
	})
	var out []string
	for _, r := range rs {
		if r.primary == rs[0].primary && r.minor == rs[0].minor {
			out = append(out, r.id)
		}
	}
	return out
}

func checkGameOverInPlace(s *State) {
	if s.Phase == PhaseGameOver {
		return
	}
	w, over := CheckGameOver(s)
	if !over {
		return
	}
	s.Winner = w
	s.Phase = PhaseGameOver
	s.DiceValue = nil
	s.SelectedStack = ""
	s.SelectedDirection = nil
	s.AddLog("system", "game_over", map[string]any{"winner": w, "turns": s.TurnCount})
}
