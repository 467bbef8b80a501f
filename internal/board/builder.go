package board

import (
	"fmt"
	"math"
)

const (
	ringSize  = 48
	armLength = 2 // cross squares per arm, center excluded
)

// Positions of the special squares on the default board, expressed as
// outer ring indices.
var (
	junctionIndex = map[string]int{"north": 0, "east": 12, "south": 24, "west": 36}
	entryIndex    = map[Color]int{Red: 6, Green: 18, Blue: 30, Yellow: 42}
	safeIndex     = map[Color]int{Red: 9, Green: 21, Blue: 33, Yellow: 45}
)

// BuildDefault assembles the standard 4-player layout: a 48-square outer
// ring, a 4-arm cross meeting in a gray-safe center, one box per color
// hanging off the ring, and one colored safe square per color. The result
// always validates; a failure here is a programming error.
func BuildDefault() *Board {
	nodes := make([]*Node, 0, ringSize+4*armLength+1+4)

	const cx, cy, radius = 250.0, 250.0, 200.0

	// Outer ring. Index 0 sits at the top (north) and CW increases the
	// index.
	for i := 0; i < ringSize; i++ {
		angle := 2*math.Pi*float64(i)/ringSize - math.Pi/2
		n := &Node{
			ID:        fmt.Sprintf("outer_%d", i),
			X:         cx + radius*math.Cos(angle),
			Y:         cy + radius*math.Sin(angle),
			Neighbors: []string{ringID(i + 1), ringID(i - 1)},
			Tags:      []Tag{TagNormal},
		}
		nodes = append(nodes, n)
	}
	byID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	// Center cross: four arms of two squares each plus the center.
	center := &Node{
		ID:   "center",
		X:    cx,
		Y:    cy,
		Tags: []Tag{TagCross, TagCenter, TagSafeGray},
	}
	for arm, idx := range junctionIndex {
		junction := byID[ringID(idx)]
		junction.Tags = append(junction.Tags, TagJunction)

		prev := junction.ID
		for k := 1; k <= armLength; k++ {
			id := fmt.Sprintf("cross_%s_%d", arm, k)
			frac := float64(k) / float64(armLength+1)
			n := &Node{
				ID:        id,
				X:         junction.X + (cx-junction.X)*frac,
				Y:         junction.Y + (cy-junction.Y)*frac,
				Neighbors: []string{prev},
				Tags:      []Tag{TagCross},
			}
			byID[prev].Neighbors = append(byID[prev].Neighbors, id)
			nodes = append(nodes, n)
			byID[id] = n
			prev = id
		}
		byID[prev].Neighbors = append(byID[prev].Neighbors, center.ID)
		center.Neighbors = append(center.Neighbors, prev)
	}
	nodes = append(nodes, center)
	byID[center.ID] = center

	// Boxes and colored safe squares.
	for _, color := range AllColors {
		entry := byID[ringID(entryIndex[color])]
		boxID := fmt.Sprintf("box_%s", lowerColor(color))
		box := &Node{
			ID: boxID,
			X:  cx + (entry.X-cx)*1.22,
			Y:  cy + (entry.Y-cy)*1.22,
			// The entry square must come first: it defines where a
			// deployed hat steps onto the ring.
			Neighbors: []string{entry.ID},
			Tags:      []Tag{TagBox},
			Color:     color,
		}
		entry.Neighbors = append(entry.Neighbors, boxID)
		nodes = append(nodes, box)
		byID[boxID] = box

		safe := byID[ringID(safeIndex[color])]
		safe.Tags = append(safe.Tags, TagSafeColor)
		safe.Color = color
	}

	b, err := FromNodes(map[string]any{"name": "coppit_4p", "ring_size": ringSize}, nodes)
	if err != nil {
		panic(err)
	}
	return b
}

func ringID(i int) string {
	return fmt.Sprintf("outer_%d", ((i%ringSize)+ringSize)%ringSize)
}

func lowerColor(c Color) string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return "yellow"
	}
}
