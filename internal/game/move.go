package game

import (
	"fmt"

	"coppit-server/internal/board"
)

// MoveResult describes what one resolved move did, for event fan-out.
type MoveResult struct {
	StackID   string           `json:"stack_id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Path      []string         `json:"path"`
	Direction *board.Direction `json:"direction,omitempty"`
	Deployed  bool             `json:"deployed"`
	Captured  []Hat            `json:"captured,omitempty"`
	Banked    []Hat            `json:"banked,omitempty"`
	Returned  []Hat            `json:"returned,omitempty"`
	ExtraRoll bool             `json:"extra_roll"`
	GameOver  bool             `json:"game_over"`
}

// IsSafe reports whether a stack on the node is protected from capture:
// its own box, a gray safe square, or a safe square of its own color,
// each subject to the matching rule toggle.
func IsSafe(s *State, nodeID string, st *Stack) bool {
	node, ok := s.Board.Node(nodeID)
	if !ok {
		return false
	}
	c := st.Controller()
	if node.IsBox() && node.Color == c {
		return true
	}
	if s.Config.SafeByGray && node.HasTag(board.TagSafeGray) {
		return true
	}
	if s.Config.SafeByColor && node.HasTag(board.TagSafeColor) && node.Color == c {
		return true
	}
	return false
}

// SelectStack commits the current player to a stack for this turn's move
// and enters SELECT_DIRECTION. The stack must be in the legal set; the
// caller decides whether to auto-commit when only one direction remains.
func SelectStack(s *State, playerID, stackID string) (*State, error) {
	if s.Phase != PhaseSelectPiece {
		return nil, fmt.Errorf("%w: phase is %s, not %s", ErrIllegalAction, s.Phase, PhaseSelectPiece)
	}
	if s.CurrentPlayerID() != playerID {
		return nil, fmt.Errorf("%w: not %s's turn", ErrIllegalAction, playerID)
	}
	legal := LegalStacks(s, playerID)
	found := false
	for _, st := range legal {
		if st.ID == stackID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: stack %s is not selectable", ErrInvalidTarget, stackID)
	}
	ns := s.Clone()
	ns.SelectedStack = stackID
	ns.Phase = PhaseSelectDirection
	ns.AddLog(playerID, "select_piece", map[string]any{"stack_id": stackID})
	return ns, nil
}

// SelectDirection commits the move direction for the selected stack and
// resolves the move immediately.
func SelectDirection(s *State, playerID string, d board.Direction) (*State, *MoveResult, error) {
	st, err := selectedStack(s, playerID)
	if err != nil {
		return nil, nil, err
	}
	legal := LegalDirections(s, st)
	ok := false
	for _, ld := range legal {
		if ld == d {
			ok = true
			break
		}
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: direction %s is not legal for stack %s", ErrInvalidTarget, d, st.ID)
	}

	node, _ := s.Board.Node(st.NodeID)
	dice := *s.DiceValue
	var path []string
	if node.IsBox() {
		entry, _ := s.Board.EntryNode(node.Color)
		if dice == 1 {
			path = []string{entry}
		} else {
			path, err = CalculatePath(s, entry, d, dice-1)
			if err != nil {
				return nil, nil, err
			}
		}
		if !st.Box {
			// Invader exit: the walk starts on the box node itself.
			path = append([]string{st.NodeID}, path...)
		}
	} else {
		path, err = CalculatePath(s, st.NodeID, d, dice)
		if err != nil {
			return nil, nil, err
		}
	}

	ns := s.Clone()
	ns.SelectedDirection = &d
	ns.AddLog(playerID, "select_direction", map[string]any{"direction": string(d)})
	dir := d
	res, err := resolveMove(ns, ns.StackByID(st.ID), path, &dir, st.Box)
	if err != nil {
		return nil, nil, err
	}
	return ns, res, nil
}

// SelectDestination is the destination-first flow: the client names the
// landing square and the engine finds a path. Legal in SELECT_DIRECTION,
// and in SELECT_PIECE when a stack id is supplied alongside the target.
func SelectDestination(s *State, playerID, stackID, target string) (*State, *MoveResult, error) {
	cur := s
	if cur.Phase == PhaseSelectPiece && stackID != "" {
		ns, err := SelectStack(cur, playerID, stackID)
		if err != nil {
			return nil, nil, err
		}
		cur = ns
	}
	st, err := selectedStack(cur, playerID)
	if err != nil {
		return nil, nil, err
	}
	legal := LegalDestinations(cur, st)
	ok := false
	for _, id := range legal {
		if id == target {
			ok = true
			break
		}
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not a legal destination for stack %s", ErrInvalidTarget, target, st.ID)
	}

	var path []string
	var dir *board.Direction
	if st.Box {
		node, _ := cur.Board.Node(st.NodeID)
		path, dir, err = exitPathTo(cur, node.Color, target)
	} else {
		path, dir, err = FindPathTo(cur, st, target)
	}
	if err != nil {
		return nil, nil, err
	}

	ns := cur.Clone()
	ns.SelectedDirection = dir
	ns.AddLog(playerID, "select_destination", map[string]any{"target": target})
	res, err := resolveMove(ns, ns.StackByID(st.ID), path, dir, st.Box)
	if err != nil {
		return nil, nil, err
	}
	return ns, res, nil
}

// Pass ends the turn of a player whose legal set is empty. It is illegal
// while a move is still available.
func Pass(s *State, playerID string) (*State, error) {
	if s.Phase != PhaseSelectPiece {
		return nil, fmt.Errorf("%w: phase is %s, not %s", ErrIllegalAction, s.Phase, PhaseSelectPiece)
	}
	if s.CurrentPlayerID() != playerID {
		return nil, fmt.Errorf("%w: not %s's turn", ErrIllegalAction, playerID)
	}
	if len(LegalStacks(s, playerID)) > 0 {
		return nil, fmt.Errorf("%w: moves are available, cannot pass", ErrIllegalAction)
	}
	ns := s.Clone()
	ns.AddLog(playerID, "pass", map[string]any{"dice": derefDice(ns)})
	advanceTurnInPlace(ns)
	return ns, nil
}

func selectedStack(s *State, playerID string) (*Stack, error) {
	if s.Phase != PhaseSelectDirection {
		return nil, fmt.Errorf("%w: phase is %s, not %s", ErrIllegalAction, s.Phase, PhaseSelectDirection)
	}
	if s.CurrentPlayerID() != playerID {
		return nil, fmt.Errorf("%w: not %s's turn", ErrIllegalAction, playerID)
	}
	st := s.StackByID(s.SelectedStack)
	if st == nil || s.DiceValue == nil {
		return nil, fmt.Errorf("%w: no stack selected", ErrIllegalAction)
	}
	return st, nil
}

// exitPathTo reconstructs the walk out of color c's box that ends on
// target. Deploys and invader exits share the arithmetic: die 1 is the
// entry square, die n is entry plus n-1 ring steps.
func exitPathTo(s *State, c board.Color, target string) ([]string, *board.Direction, error) {
	entry, ok := s.Board.EntryNode(c)
	if !ok {
		return nil, nil, ErrNoPath
	}
	dice := *s.DiceValue
	if dice == 1 {
		if entry == target {
			return []string{entry}, nil, nil
		}
		return nil, nil, ErrNoPath
	}
	dirs := []board.Direction{board.CW}
	if s.Config.BoxExitBidirectional {
		dirs = append(dirs, board.CCW)
	}
	for _, d := range dirs {
		path, err := CalculatePath(s, entry, d, dice-1)
		if err == nil && path[len(path)-1] == target {
			dir := d
			return path, &dir, nil
		}
	}
	return nil, nil, ErrNoPath
}

// resolveMove mutates ns in place: it executes the walk, resolves captures
// and returns, then either grants the six re-roll or advances the turn.
// The mover stack pointer must belong to ns.
func resolveMove(ns *State, mover *Stack, path []string, dir *board.Direction, deploy bool) (*MoveResult, error) {
	ns.Phase = PhaseResolve
	playerID := ns.CurrentPlayerID()
	p := ns.CurrentPlayer()
	dice := *ns.DiceValue

	res := &MoveResult{
		From:      path[0],
		To:        path[len(path)-1],
		Path:      path,
		Direction: dir,
		Deployed:  deploy,
	}

	if deploy {
		hats := p.DeployableHats(ns.Config.AllowRespawn)
		if len(hats) == 0 {
			return nil, fmt.Errorf("%w: nothing to deploy", ErrIllegalAction)
		}
		hat := hats[0]
		removeHat(&p.BoxHats, hat.ID)
		mover = &Stack{ID: newStackID(ns), NodeID: path[0], Pieces: []Hat{hat}}
		ns.Stacks = append(ns.Stacks, mover)
		syncBoxStack(ns, p)
		res.From, _ = ns.Board.BoxNode(p.Color)
	}
	res.StackID = mover.ID

	// Pieces picked up on the way, when capture_on_pass is enabled. The
	// deploy walk passes its entry square; a board move starts occupying
	// its own first square.
	passed := path[:len(path)-1]
	if !deploy && len(passed) > 0 {
		passed = passed[1:]
	}
	if ns.Config.CaptureOnPass {
		for _, nodeID := range passed {
			absorbResidents(ns, mover, nodeID, res)
		}
	}

	dest := path[len(path)-1]
	destNode, _ := ns.Board.Node(dest)
	if destNode.IsBox() && destNode.Color == mover.Controller() {
		bankReturn(ns, p, mover, res)
	} else {
		absorbResidents(ns, mover, dest, res)
		mover.NodeID = dest
	}

	ns.AddLog(playerID, "move", map[string]any{
		"stack_id": res.StackID,
		"from":     res.From,
		"to":       res.To,
		"captured": len(res.Captured),
		"banked":   len(res.Banked),
		"deployed": deploy,
	})

	if err := CheckConservation(ns); err != nil {
		return nil, err
	}

	checkGameOverInPlace(ns)
	res.GameOver = ns.Phase == PhaseGameOver
	if res.GameOver {
		return res, nil
	}

	if dice == 6 && ns.Config.ExtraRollOn6 {
		res.ExtraRoll = true
		ns.DiceValue = nil
		ns.SelectedStack = ""
		ns.SelectedDirection = nil
		ns.Phase = PhaseRoll
		return res, nil
	}
	advanceTurnInPlace(ns)
	return res, nil
}

// absorbResidents merges every capturable stack on the node under the
// mover. Safe stacks stay put; the mover slides past them.
func absorbResidents(ns *State, mover *Stack, nodeID string, res *MoveResult) {
	for _, resident := range ns.StacksAt(nodeID) {
		if resident == mover || resident.Box {
			continue
		}
		if resident.Controller() != mover.Controller() && IsSafe(ns, nodeID, resident) {
			continue
		}
		for _, h := range resident.Pieces {
			if h.Color != mover.Controller() {
				res.Captured = append(res.Captured, h)
			}
		}
		// Captured pieces go beneath; the mover keeps the top.
		mover.Pieces = append(append([]Hat(nil), resident.Pieces...), mover.Pieces...)
		removeStack(ns, resident.ID)
	}
}

// bankReturn dissolves a stack arriving in its controller's box: own hats
// come home and score, enemy captives are banked for points (or held
// unbanked in the box when auto banking is off).
func bankReturn(ns *State, p *Player, mover *Stack, res *MoveResult) {
	for _, h := range mover.Pieces {
		if h.Color == p.Color {
			h.Returned = true
			p.BoxHats = append(p.BoxHats, h)
			res.Returned = append(res.Returned, h)
		} else if ns.Config.AutoBankOnReturn {
			p.BankedHats = append(p.BankedHats, h)
			res.Banked = append(res.Banked, h)
		} else {
			p.BoxHats = append(p.BoxHats, h)
			res.Captured = append(res.Captured, h)
		}
	}
	removeStack(ns, mover.ID)
	syncBoxStack(ns, p)
}

func removeStack(ns *State, id string) {
	for i, st := range ns.Stacks {
		if st.ID == id {
			ns.Stacks = append(ns.Stacks[:i], ns.Stacks[i+1:]...)
			return
		}
	}
}

func removeHat(hats *[]Hat, id string) {
	for i, h := range *hats {
		if h.ID == id {
			*hats = append((*hats)[:i], (*hats)[i+1:]...)
			return
		}
	}
}

func derefDice(s *State) int {
	if s.DiceValue == nil {
		return 0
	}
	return *s.DiceValue
}
