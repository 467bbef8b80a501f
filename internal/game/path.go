package game

import (
	"sort"

	"coppit-server/internal/board"
)

// CalculatePath walks exactly dist edges from a node, committing to one
// direction for the whole move (direction lock). The walk is a graph
// traversal, not index arithmetic: the ring and the center cross meet at
// junctions where the direction map decides the next edge. ErrNoPath is
// returned when the direction dead-ends before the distance is spent.
func CalculatePath(s *State, from string, d board.Direction, dist int) ([]string, error) {
	path := make([]string, 0, dist+1)
	path = append(path, from)
	cur := from
	for i := 0; i < dist; i++ {
		next, ok := s.Board.Step(cur, d)
		if !ok {
			return nil, ErrNoPath
		}
		path = append(path, next)
		cur = next
	}
	return path, nil
}

// LegalStacks returns every stack the player may act on for the current
// die: own-controlled board stacks with at least one legal destination,
// plus the box stack when deployment is allowed and lands somewhere. An
// empty result is a valid outcome and forces a pass.
func LegalStacks(s *State, playerID string) []*Stack {
	p, ok := s.Players[playerID]
	if !ok || s.DiceValue == nil {
		return nil
	}
	dice := *s.DiceValue
	var legal []*Stack

	canDeploy := len(p.DeployableHats(s.Config.AllowRespawn)) > 0 &&
		(!s.Config.Require6ToDeploy || dice == 6)
	if canDeploy {
		if boxID, ok := s.Board.BoxNode(p.Color); ok {
			for _, st := range s.StacksAt(boxID) {
				if st.Box && len(deployDestinations(s, p)) > 0 {
					legal = append(legal, st)
				}
			}
		}
	}

	for _, st := range s.Stacks {
		if st.Box {
			continue
		}
		if st.Controller() != p.Color {
			continue
		}
		if len(LegalDestinations(s, st)) > 0 {
			legal = append(legal, st)
		}
	}
	return legal
}

// LegalDirections returns the directions that sustain a full move of the
// current die from the stack's node and land legally. Ties between
// equally valid directions are never auto-resolved here; the actor picks.
func LegalDirections(s *State, st *Stack) []board.Direction {
	if s.DiceValue == nil {
		return nil
	}
	node, ok := s.Board.Node(st.NodeID)
	if !ok {
		return nil
	}

	// Any stack on a box node leaves through that box's exit: the mirror
	// by deploying a fresh hat, an invader by walking the pile out.
	if node.IsBox() {
		dirs := []board.Direction{board.CW}
		if s.Config.BoxExitBidirectional {
			dirs = append(dirs, board.CCW)
		}
		probe := st
		if st.Box {
			probe = &Stack{Pieces: []Hat{NewHat(node.Color, 0)}}
		}
		var out []board.Direction
		for _, d := range dirs {
			if len(exitEndpoints(s, node.Color, probe, d)) > 0 {
				out = append(out, d)
			}
		}
		return out
	}

	dice := *s.DiceValue
	var out []board.Direction
	for _, d := range s.Board.Directions(st.NodeID) {
		if d == board.CCW && !s.Config.AllowBackward {
			continue
		}
		path, err := CalculatePath(s, st.NodeID, d, dice)
		if err != nil {
			continue
		}
		if canLand(s, path[len(path)-1], st) {
			out = append(out, d)
		}
	}
	return out
}

// LegalDestinations enumerates every node the stack may finish on with
// the current die, deduplicated and sorted for stable wire output. With
// direction_lock each destination is the end of one committed direction;
// without it the walker may re-choose at every junction but never
// reverses the edge it just came by. Exact-distance box returns are
// always included when a path of exactly the die length exists.
func LegalDestinations(s *State, st *Stack) []string {
	if s.DiceValue == nil {
		return nil
	}
	node, ok := s.Board.Node(st.NodeID)
	if !ok {
		return nil
	}
	if st.Box {
		p := s.PlayerByColor(node.Color)
		if p == nil {
			return nil
		}
		return deployDestinations(s, p)
	}

	dice := *s.DiceValue
	set := make(map[string]bool)
	switch {
	case node.IsBox():
		// An invader exits through the box it sits on.
		for _, d := range LegalDirections(s, st) {
			for _, dest := range exitEndpoints(s, node.Color, st, d) {
				set[dest] = true
			}
		}
		if !s.Config.DirectionLock {
			for _, path := range allPaths(s, st.NodeID, dice) {
				if canLand(s, path[len(path)-1], st) {
					set[path[len(path)-1]] = true
				}
			}
		}
	case s.Config.DirectionLock:
		for _, d := range LegalDirections(s, st) {
			if path, err := CalculatePath(s, st.NodeID, d, dice); err == nil {
				set[path[len(path)-1]] = true
			}
		}
	default:
		for _, path := range allPaths(s, st.NodeID, dice) {
			if canLand(s, path[len(path)-1], st) {
				set[path[len(path)-1]] = true
			}
		}
	}

	// Box returns: own box always a candidate, foreign boxes only when
	// invasion is enabled.
	for _, c := range board.AllColors {
		if c != st.Controller() && !s.Config.AllowBoxInvasion {
			continue
		}
		boxID, ok := s.Board.BoxNode(c)
		if !ok {
			continue
		}
		if PathToBox(s, st.NodeID, boxID, dice) != nil {
			set[boxID] = true
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FindPathTo resolves the concrete path a stack takes to reach target,
// used by the destination-first action flow. The returned direction is
// the committed one, or nil for a box return or an unlocked free walk.
func FindPathTo(s *State, st *Stack, target string) ([]string, *board.Direction, error) {
	if s.DiceValue == nil {
		return nil, nil, ErrIllegalAction
	}
	dice := *s.DiceValue
	if node, ok := s.Board.Node(target); ok && node.IsBox() {
		if path := PathToBox(s, st.NodeID, target, dice); path != nil {
			return path, nil, nil
		}
		return nil, nil, ErrNoPath
	}
	if node, ok := s.Board.Node(st.NodeID); ok && node.IsBox() {
		// Invader exit: box -> entry counts as the first step.
		if path, dir, err := exitPathTo(s, node.Color, target); err == nil {
			return append([]string{st.NodeID}, path...), dir, nil
		}
		if !s.Config.DirectionLock {
			for _, path := range allPaths(s, st.NodeID, dice) {
				if path[len(path)-1] == target {
					return path, nil, nil
				}
			}
		}
		return nil, nil, ErrNoPath
	}
	for _, d := range LegalDirections(s, st) {
		path, err := CalculatePath(s, st.NodeID, d, dice)
		if err == nil && path[len(path)-1] == target {
			dir := d
			return path, &dir, nil
		}
	}
	if !s.Config.DirectionLock {
		for _, path := range allPaths(s, st.NodeID, dice) {
			if path[len(path)-1] == target {
				return path, nil, nil
			}
		}
	}
	return nil, nil, ErrNoPath
}

// PathToBox searches for a walk of exactly dist edges ending on the box
// node, never touching any box square before the final step. With
// direction_lock the walk may not reverse mid-move; without it
// back-and-forth parity walks are admitted, matching the free-walk
// destination flow. Returns nil when no such path exists.
func PathToBox(s *State, from, boxID string, dist int) []string {
	if from == boxID || dist <= 0 {
		return nil
	}
	// Cheap prune on the precomputed shortest distance.
	if node, ok := s.Board.Node(boxID); ok {
		if min, ok := s.Board.DistanceToBox(node.Color, from); ok && min > dist {
			return nil
		}
	}
	noReverse := s.Config.DirectionLock
	var found []string
	var walk func(cur, prev string, left int, path []string)
	walk = func(cur, prev string, left int, path []string) {
		if found != nil {
			return
		}
		if left == 0 {
			if cur == boxID {
				found = append([]string(nil), path...)
			}
			return
		}
		for _, nb := range s.Board.Neighbors(cur) {
			if noReverse && nb == prev {
				continue
			}
			node, ok := s.Board.Node(nb)
			if !ok {
				continue
			}
			if node.IsBox() {
				if nb == boxID && left == 1 {
					walk(nb, cur, 0, append(path, nb))
				}
				continue
			}
			walk(nb, cur, left-1, append(path, nb))
		}
	}
	walk(from, "", dist, []string{from})
	return found
}

// allPaths explores every walk of exactly dist edges with free branch
// choice and no immediate reversal. Box squares are not walkable here;
// they are reachable only through PathToBox.
func allPaths(s *State, from string, dist int) [][]string {
	var out [][]string
	var walk func(cur, prev string, left int, path []string)
	walk = func(cur, prev string, left int, path []string) {
		if left == 0 {
			out = append(out, append([]string(nil), path...))
			return
		}
		for _, nb := range s.Board.Neighbors(cur) {
			if nb == prev {
				continue
			}
			if node, ok := s.Board.Node(nb); !ok || node.IsBox() {
				continue
			}
			walk(nb, cur, left-1, append(path, nb))
		}
	}
	walk(from, "", dist, []string{from})
	return out
}

// deployDestinations lists the landing squares of a box deployment for
// the current die: die 1 places on the entry square, die n walks n-1
// further ring steps in each permitted exit direction.
func deployDestinations(s *State, p *Player) []string {
	set := make(map[string]bool)
	dirs := []board.Direction{board.CW}
	if s.Config.BoxExitBidirectional {
		dirs = append(dirs, board.CCW)
	}
	for _, d := range dirs {
		for _, dest := range deployEndpoints(s, p.Color, d) {
			set[dest] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func deployEndpoints(s *State, c board.Color, d board.Direction) []string {
	return exitEndpoints(s, c, &Stack{Pieces: []Hat{NewHat(c, 0)}}, d)
}

// exitEndpoints computes where a walk out of color c's box ends for the
// current die: the entry square on a 1, otherwise entry plus dice-1 ring
// steps. The probe stack supplies controller and height for the landing
// check.
func exitEndpoints(s *State, c board.Color, probe *Stack, d board.Direction) []string {
	if s.DiceValue == nil {
		return nil
	}
	entry, ok := s.Board.EntryNode(c)
	if !ok {
		return nil
	}
	dice := *s.DiceValue
	if dice == 1 {
		if canLand(s, entry, probe) {
			return []string{entry}
		}
		return nil
	}
	path, err := CalculatePath(s, entry, d, dice-1)
	if err != nil {
		return nil
	}
	dest := path[len(path)-1]
	if !canLand(s, dest, probe) {
		return nil
	}
	return []string{dest}
}

// canLand decides whether the moving stack may finish on the node:
// resident stacks are merged (captured) unless safe, and the optional
// stack-height cap bounds the merged pile.
func canLand(s *State, nodeID string, mover *Stack) bool {
	node, ok := s.Board.Node(nodeID)
	if !ok {
		return false
	}
	if node.IsBox() && node.Color != mover.Controller() && !s.Config.AllowBoxInvasion {
		return false
	}
	height := mover.Size()
	for _, resident := range s.StacksAt(nodeID) {
		if resident.Box {
			continue // box mirrors are never merge targets
		}
		if resident.Controller() != mover.Controller() && IsSafe(s, nodeID, resident) {
			return false
		}
		height += resident.Size()
	}
	if s.Config.MaxStackHeight > 0 && height > s.Config.MaxStackHeight {
		return false
	}
	return true
}
