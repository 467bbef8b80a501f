package bot

import (
	"fmt"
	"math/rand"

	"coppit-server/internal/game"
)

// Action is one decision a policy emits. The room coordinator feeds it
// back through the same engine entry points a human action takes.
type Action struct {
	Type    string `json:"type"` // roll, select_destination, pass
	StackID string `json:"stack_id,omitempty"`
	Target  string `json:"target,omitempty"`
}

// Policy decides the next action for a bot seat. Implementations must be
// pure: same state, same rng stream, same answer.
type Policy interface {
	Decide(s *game.State, playerID string) (Action, error)
}

// Weights tunes the heuristic policy. Positive pulls toward, negative
// pushes away; Danger is subtracted per threatening enemy stack.
type Weights struct {
	Capture float64
	Bank    float64
	Return  float64
	Safe    float64
	Deploy  float64
	Danger  float64
}

// DefaultWeights plays a greedy but not suicidal game.
func DefaultWeights() Weights {
	return Weights{
		Capture: 10,
		Bank:    14,
		Return:  6,
		Safe:    3,
		Deploy:  2,
		Danger:  1.5,
	}
}

// New builds a policy by difficulty name. Unknown names fall back to the
// heuristic player.
func New(difficulty string, w Weights, seed int64) Policy {
	rng := rand.New(rand.NewSource(seed))
	if difficulty == "random" {
		return &randomPolicy{rng: rng}
	}
	return &heuristicPolicy{rng: rng, w: w}
}

type randomPolicy struct {
	rng *rand.Rand
}

func (r *randomPolicy) Decide(s *game.State, playerID string) (Action, error) {
	switch s.Phase {
	case game.PhaseRoll:
		return Action{Type: "roll"}, nil
	case game.PhaseSelectPiece:
		legal := game.LegalStacks(s, playerID)
		if len(legal) == 0 {
			return Action{Type: "pass"}, nil
		}
		st := legal[r.rng.Intn(len(legal))]
		dests := game.LegalDestinations(s, st)
		if len(dests) == 0 {
			return Action{Type: "pass"}, nil
		}
		return Action{Type: "select_destination", StackID: st.ID, Target: dests[r.rng.Intn(len(dests))]}, nil
	case game.PhaseSelectDirection:
		st := s.StackByID(s.SelectedStack)
		if st == nil {
			return Action{}, fmt.Errorf("bot %s: selected stack vanished", playerID)
		}
		dests := game.LegalDestinations(s, st)
		if len(dests) == 0 {
			return Action{Type: "pass"}, nil
		}
		return Action{Type: "select_destination", Target: dests[r.rng.Intn(len(dests))]}, nil
	}
	return Action{}, fmt.Errorf("bot %s: nothing to do in phase %s", playerID, s.Phase)
}

type heuristicPolicy struct {
	rng *rand.Rand
	w   Weights
}

func (h *heuristicPolicy) Decide(s *game.State, playerID string) (Action, error) {
	switch s.Phase {
	case game.PhaseRoll:
		return Action{Type: "roll"}, nil
	case game.PhaseSelectPiece:
		st, target, ok := h.bestMove(s, playerID, game.LegalStacks(s, playerID))
		if !ok {
			return Action{Type: "pass"}, nil
		}
		return Action{Type: "select_destination", StackID: st.ID, Target: target}, nil
	case game.PhaseSelectDirection:
		st := s.StackByID(s.SelectedStack)
		if st == nil {
			return Action{}, fmt.Errorf("bot %s: selected stack vanished", playerID)
		}
		_, target, ok := h.bestMove(s, playerID, []*game.Stack{st})
		if !ok {
			return Action{Type: "pass"}, nil
		}
		return Action{Type: "select_destination", Target: target}, nil
	}
	return Action{}, fmt.Errorf("bot %s: nothing to do in phase %s", playerID, s.Phase)
}

func (h *heuristicPolicy) bestMove(s *game.State, playerID string, stacks []*game.Stack) (*game.Stack, string, bool) {
	p := s.Players[playerID]
	if p == nil {
		return nil, "", false
	}
	var (
		bestStack  *game.Stack
		bestTarget string
		bestScore  float64
		found      bool
	)
	for _, st := range stacks {
		for _, dest := range game.LegalDestinations(s, st) {
			score := h.score(s, p, st, dest)
			// Small jitter keeps equal-score games from looping.
			score += h.rng.Float64() * 0.01
			if !found || score > bestScore {
				bestStack, bestTarget, bestScore, found = st, dest, score, true
			}
		}
	}
	return bestStack, bestTarget, found
}

// score rates a landing square without simulating the full move: captures
// and bankings by inspection of the destination, risk by counting enemy
// stacks within one die throw of it.
func (h *heuristicPolicy) score(s *game.State, p *game.Player, st *game.Stack, dest string) float64 {
	node, ok := s.Board.Node(dest)
	if !ok {
		return 0
	}
	fromBox := st.Box

	var score float64
	if node.IsBox() && node.Color == p.Color {
		score += h.w.Return
		for _, hat := range st.Pieces {
			if hat.Color != p.Color {
				score += h.w.Bank
			}
		}
		return score // home is home, no danger there
	}

	for _, resident := range s.StacksAt(dest) {
		if resident.Box || resident.Controller() == p.Color {
			continue
		}
		score += h.w.Capture * float64(resident.Size())
	}
	if fromBox {
		score += h.w.Deploy
	}

	probe := &game.Stack{NodeID: dest, Pieces: st.Pieces}
	if game.IsSafe(s, dest, probe) {
		score += h.w.Safe
	} else {
		score -= h.w.Danger * float64(threats(s, p, dest))
	}
	return score
}

// threats counts enemy-controlled stacks within six squares of the node.
func threats(s *game.State, p *game.Player, nodeID string) int {
	depth := map[string]int{nodeID: 0}
	queue := []string{nodeID}
	count := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] > 0 {
			for _, st := range s.StacksAt(cur) {
				if n, ok := s.Board.Node(cur); ok && n.IsBox() {
					continue
				}
				if st.Controller() != p.Color {
					count++
				}
			}
		}
		if depth[cur] == 6 {
			continue
		}
		for _, nb := range s.Board.Neighbors(cur) {
			if _, seen := depth[nb]; seen {
				continue
			}
			if n, ok := s.Board.Node(nb); ok && n.IsBox() {
				continue
			}
			depth[nb] = depth[cur] + 1
			queue = append(queue, nb)
		}
	}
	return count
}
