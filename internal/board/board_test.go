package board

import (
	"testing"
)

func TestBuildDefaultShape(t *testing.T) {
	b := BuildDefault()

	// 48 ring + 4 arms of 2 + center + 4 boxes
	if got, want := len(b.Nodes()), 48+4*2+1+4; got != want {
		t.Fatalf("node count = %d, want %d", got, want)
	}
	for _, c := range AllColors {
		boxID, ok := b.BoxNode(c)
		if !ok {
			t.Fatalf("no box for %s", c)
		}
		entry, ok := b.EntryNode(c)
		if !ok {
			t.Fatalf("no entry for %s", c)
		}
		node, _ := b.Node(boxID)
		if node.Neighbors[0] != entry {
			t.Errorf("%s entry = %s, want first box neighbor %s", c, entry, node.Neighbors[0])
		}
	}
}

func TestRingStepWraps(t *testing.T) {
	b := BuildDefault()

	next, ok := b.Step("outer_47", CW)
	if !ok || next != "outer_0" {
		t.Fatalf("CW from outer_47 = %q, want outer_0", next)
	}
	next, ok = b.Step("outer_0", CCW)
	if !ok || next != "outer_47" {
		t.Fatalf("CCW from outer_0 = %q, want outer_47", next)
	}
}

func TestJunctionOpensIntoArm(t *testing.T) {
	b := BuildDefault()

	// The north junction sits at outer_0; heading south walks the arm,
	// through the center, down the south arm and onto outer_24.
	cur := "outer_0"
	want := []string{"cross_north_1", "cross_north_2", "center", "cross_south_2", "cross_south_1", "outer_24"}
	for i, w := range want {
		next, ok := b.Step(cur, South)
		if !ok {
			t.Fatalf("step %d: no SOUTH exit from %s", i, cur)
		}
		if next != w {
			t.Fatalf("step %d: SOUTH from %s = %s, want %s", i, cur, next, w)
		}
		cur = next
	}
}

func TestBoxHasNoDirections(t *testing.T) {
	b := BuildDefault()
	boxID, _ := b.BoxNode(Red)
	if dirs := b.Directions(boxID); len(dirs) != 0 {
		t.Fatalf("box %s has directions %v, want none", boxID, dirs)
	}
	for _, d := range AllDirections {
		for _, n := range b.Nodes() {
			if next, ok := b.Step(n.ID, d); ok {
				if tgt, _ := b.Node(next); tgt.IsBox() {
					t.Fatalf("direction %s from %s leads into box %s", d, n.ID, next)
				}
			}
		}
	}
}

func TestDistanceToBox(t *testing.T) {
	b := BuildDefault()
	// Red entry is outer_6, one step from the box.
	if d, ok := b.DistanceToBox(Red, "outer_6"); !ok || d != 1 {
		t.Fatalf("distance(outer_6, red box) = %d, want 1", d)
	}
	if d, ok := b.DistanceToBox(Red, "outer_4"); !ok || d != 3 {
		t.Fatalf("distance(outer_4, red box) = %d, want 3", d)
	}
}

func TestFromNodesRejectsDanglingNeighbor(t *testing.T) {
	nodes := []*Node{
		{ID: "a", Neighbors: []string{"b", "ghost"}},
		{ID: "b", Neighbors: []string{"a"}},
	}
	if _, err := FromNodes(nil, nodes); err == nil {
		t.Fatal("expected error for dangling neighbor")
	}
}

func TestFromNodesRejectsBoxWithoutColor(t *testing.T) {
	nodes := []*Node{
		{ID: "a", Neighbors: []string{"box"}},
		{ID: "box", Neighbors: []string{"a"}, Tags: []Tag{TagBox}},
	}
	if _, err := FromNodes(nil, nodes); err == nil {
		t.Fatal("expected error for box without owner color")
	}
}

func TestFromNodesRejectsDuplicateBox(t *testing.T) {
	nodes := []*Node{
		{ID: "a", Neighbors: []string{"box1", "box2"}},
		{ID: "box1", Neighbors: []string{"a"}, Tags: []Tag{TagBox}, Color: Red},
		{ID: "box2", Neighbors: []string{"a"}, Tags: []Tag{TagBox}, Color: Red},
	}
	if _, err := FromNodes(nil, nodes); err == nil {
		t.Fatal("expected error for two red boxes")
	}
}

func TestFromNodesRejectsDisconnectedGraph(t *testing.T) {
	nodes := []*Node{
		{ID: "a", Neighbors: []string{"b"}},
		{ID: "b", Neighbors: []string{"a"}},
		{ID: "c"},
	}
	if _, err := FromNodes(nil, nodes); err == nil {
		t.Fatal("expected error for disconnected graph")
	}
}
