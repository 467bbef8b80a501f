package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedBoard is returned for any board definition that fails
// validation at load time. It is fatal: a room is never created on a
// board that did not validate.
var ErrMalformedBoard = errors.New("malformed board")

// Color identifies one of the four player colors. Box and safe-square
// ownership is expressed in the same domain.
type Color string

const (
	Red    Color = "RED"
	Green  Color = "GREEN"
	Blue   Color = "BLUE"
	Yellow Color = "YELLOW"
)

// AllColors is the seating order used when colors are auto-assigned.
var AllColors = []Color{Red, Green, Blue, Yellow}

// Direction is a committed movement direction. CW/CCW apply on the outer
// ring, the compass directions apply on the center cross.
type Direction string

const (
	CW    Direction = "CW"
	CCW   Direction = "CCW"
	North Direction = "NORTH"
	East  Direction = "EAST"
	South Direction = "SOUTH"
	West  Direction = "WEST"
)

// AllDirections lists every direction a client may submit.
var AllDirections = []Direction{CW, CCW, North, East, South, West}

// Tag classifies a node.
type Tag string

const (
	TagNormal    Tag = "NORMAL"
	TagBox       Tag = "BOX"
	TagSafeColor Tag = "SAFE_COLOR"
	TagSafeGray  Tag = "SAFE_GRAY"
	TagCross     Tag = "CROSS"
	TagJunction  Tag = "JUNCTION"
	TagCenter    Tag = "CENTER"
)

// Node is one square of the board. X/Y are presentation hints only and
// never participate in rules.
type Node struct {
	ID        string   `json:"id"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Neighbors []string `json:"neighbors"`
	Tags      []Tag    `json:"tags"`
	Color     Color    `json:"color,omitempty"`

	// dirs maps a committed direction to the next node, derived once at
	// load time. Box nodes are deliberately absent from every dirs map:
	// a box is only ever entered through an exact-distance return.
	dirs map[Direction]string
}

// HasTag reports whether the node carries the given tag.
func (n *Node) HasTag(t Tag) bool {
	for _, tag := range n.Tags {
		if tag == t {
			return true
		}
	}
	return false
}

func (n *Node) IsBox() bool      { return n.HasTag(TagBox) }
func (n *Node) IsJunction() bool { return n.HasTag(TagJunction) }
func (n *Node) IsCenter() bool   { return n.HasTag(TagCenter) }

// Board is the immutable topology shared read-only by every room that
// plays the same layout.
type Board struct {
	Meta  map[string]any `json:"meta"`
	nodes map[string]*Node

	boxes   map[Color]string // color -> box node
	entries map[Color]string // color -> deployment node (first box neighbor)
	toBox   map[Color]map[string]int
}

type boardFile struct {
	Meta  map[string]any `json:"meta"`
	Nodes []*Node        `json:"nodes"`
}

// Load reads a board definition from a JSON file.
func Load(path string) (*Board, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board file %s: %w", path, err)
	}
	var bf boardFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrMalformedBoard, path, err)
	}
	return FromNodes(bf.Meta, bf.Nodes)
}

// FromNodes validates a node set and assembles a Board. Dangling neighbor
// references, boxes without an owning color, duplicate boxes per color and
// disconnected graphs are all rejected.
func FromNodes(meta map[string]any, nodes []*Node) (*Board, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrMalformedBoard)
	}
	b := &Board{
		Meta:    meta,
		nodes:   make(map[string]*Node, len(nodes)),
		boxes:   make(map[Color]string),
		entries: make(map[Color]string),
		toBox:   make(map[Color]map[string]int),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node with empty id", ErrMalformedBoard)
		}
		if _, dup := b.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrMalformedBoard, n.ID)
		}
		b.nodes[n.ID] = n
	}
	for _, n := range nodes {
		for _, nb := range n.Neighbors {
			if _, ok := b.nodes[nb]; !ok {
				return nil, fmt.Errorf("%w: node %q references missing neighbor %q", ErrMalformedBoard, n.ID, nb)
			}
		}
		if n.HasTag(TagBox) || n.HasTag(TagSafeColor) {
			if n.Color == "" {
				return nil, fmt.Errorf("%w: node %q tagged %v without owner color", ErrMalformedBoard, n.ID, n.Tags)
			}
		}
		if n.IsBox() {
			if prev, dup := b.boxes[n.Color]; dup {
				return nil, fmt.Errorf("%w: colors may own one box, %s owns %q and %q", ErrMalformedBoard, n.Color, prev, n.ID)
			}
			if len(n.Neighbors) == 0 {
				return nil, fmt.Errorf("%w: box %q has no entry node", ErrMalformedBoard, n.ID)
			}
			b.boxes[n.Color] = n.ID
			b.entries[n.Color] = n.Neighbors[0]
		}
	}
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	b.deriveDirections()
	for color, boxID := range b.boxes {
		b.toBox[color] = b.distancesTo(boxID)
	}
	return b, nil
}

// Node looks a node up by id.
func (b *Board) Node(id string) (*Node, bool) {
	n, ok := b.nodes[id]
	return n, ok
}

// Neighbors returns the adjacency list of a node, or nil for unknown ids.
func (b *Board) Neighbors(id string) []string {
	if n, ok := b.nodes[id]; ok {
		return n.Neighbors
	}
	return nil
}

// Nodes returns every node, for serialization to clients.
func (b *Board) Nodes() []*Node {
	out := make([]*Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		out = append(out, n)
	}
	return out
}

// BoxNode returns the box node id of a color.
func (b *Board) BoxNode(c Color) (string, bool) {
	id, ok := b.boxes[c]
	return id, ok
}

// EntryNode returns the deployment node of a color: the square a hat
// leaving the box steps onto first.
func (b *Board) EntryNode(c Color) (string, bool) {
	id, ok := b.entries[c]
	return id, ok
}

// Step resolves one move along a committed direction. The second return is
// false at a dead end (the direction cannot be sustained from this node).
func (b *Board) Step(from string, d Direction) (string, bool) {
	n, ok := b.nodes[from]
	if !ok {
		return "", false
	}
	next, ok := n.dirs[d]
	return next, ok
}

// Directions lists the directions that have at least one outgoing edge
// from the node. It says nothing about whether a full move fits.
func (b *Board) Directions(from string) []Direction {
	n, ok := b.nodes[from]
	if !ok {
		return nil
	}
	out := make([]Direction, 0, len(n.dirs))
	for _, d := range AllDirections {
		if _, ok := n.dirs[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// DistanceToBox returns the precomputed shortest distance from a node to
// the color's box, used for exact-return pruning.
func (b *Board) DistanceToBox(c Color, from string) (int, bool) {
	dist, ok := b.toBox[c]
	if !ok {
		return 0, false
	}
	d, ok := dist[from]
	return d, ok
}

func (b *Board) checkConnected() error {
	var start string
	for id := range b.nodes {
		start = id
		break
	}
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range b.nodes[cur].Neighbors {
			if !seen[nb] {
				seen[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	if len(seen) != len(b.nodes) {
		return fmt.Errorf("%w: graph is not connected (%d of %d nodes reachable)", ErrMalformedBoard, len(seen), len(b.nodes))
	}
	return nil
}

// distancesTo runs a BFS toward the target over the undirected graph.
func (b *Board) distancesTo(target string) map[string]int {
	dist := map[string]int{target: 0}
	queue := []string{target}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range b.nodes[cur].Neighbors {
			if _, ok := dist[nb]; !ok {
				dist[nb] = dist[cur] + 1
				queue = append(queue, nb)
			}
		}
	}
	return dist
}

// deriveDirections builds the per-node direction maps from the node id
// conventions shared with the board data files: outer ring squares are
// "outer_<n>" with CW meaning increasing n, cross arms are
// "cross_<compass>_<k>" with k growing toward the center, and the center
// node is tagged CENTER. Box nodes never appear as a direction target.
func (b *Board) deriveDirections() {
	ringSize := 0
	for id := range b.nodes {
		if strings.HasPrefix(id, "outer_") {
			ringSize++
		}
	}
	for id, n := range b.nodes {
		n.dirs = make(map[Direction]string)
		switch {
		case strings.HasPrefix(id, "outer_"):
			num, err := strconv.Atoi(strings.TrimPrefix(id, "outer_"))
			if err != nil || ringSize == 0 {
				continue
			}
			cw := fmt.Sprintf("outer_%d", (num+1)%ringSize)
			ccw := fmt.Sprintf("outer_%d", (num-1+ringSize)%ringSize)
			if b.hasNeighbor(n, cw) {
				n.dirs[CW] = cw
			}
			if b.hasNeighbor(n, ccw) {
				n.dirs[CCW] = ccw
			}
			// A junction additionally opens into its cross arm; heading
			// into the arm means moving opposite the arm's compass
			// position (the north arm is entered heading south).
			for _, nb := range n.Neighbors {
				if arm, k, ok := parseCrossID(nb); ok && k == 1 {
					n.dirs[opposite(compassOf(arm))] = nb
				}
			}
		case strings.HasPrefix(id, "cross_"):
			arm, k, ok := parseCrossID(id)
			if !ok {
				continue
			}
			outward := compassOf(arm) // toward the ring
			inward := opposite(outward)
			for _, nb := range n.Neighbors {
				switch {
				case strings.HasPrefix(nb, "outer_"):
					n.dirs[outward] = nb
				case nb == b.centerID():
					n.dirs[inward] = nb
				default:
					if _, nk, ok := parseCrossID(nb); ok {
						if nk > k {
							n.dirs[inward] = nb
						} else {
							n.dirs[outward] = nb
						}
					}
				}
			}
		case n.IsCenter():
			for _, nb := range n.Neighbors {
				if arm, _, ok := parseCrossID(nb); ok {
					n.dirs[compassOf(arm)] = nb
				}
			}
		}
	}
}

func (b *Board) hasNeighbor(n *Node, id string) bool {
	for _, nb := range n.Neighbors {
		if nb == id {
			return true
		}
	}
	return false
}

func (b *Board) centerID() string {
	for id, n := range b.nodes {
		if n.IsCenter() {
			return id
		}
	}
	return ""
}

func parseCrossID(id string) (arm string, k int, ok bool) {
	if !strings.HasPrefix(id, "cross_") {
		return "", 0, false
	}
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return "", 0, false
	}
	k, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return parts[1], k, true
}

func compassOf(arm string) Direction {
	switch arm {
	case "north":
		return North
	case "east":
		return East
	case "south":
		return South
	default:
		return West
	}
}

func opposite(d Direction) Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case CW:
		return CCW
	default:
		return CW
	}
}
