// Package spatial provides the bounded world and its proximity index.
package spatial

import (
	"math"
	"slices"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/entity"
)

// Entry is one indexed entity as of the last rebuild.
type Entry struct {
	ID       entity.ID
	Kind     components.Kind
	Position components.Position
}

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	Entry
	DX, DY float64 // Delta from query origin
	DistSq float64 // Squared distance
}

// Grid is a uniform cell index over the world rectangle [0,W]x[0,H].
// The world does not wrap.
type Grid struct {
	cellSize float64
	cols     int
	rows     int
	width    float64
	height   float64
	cells    [][]Entry
	size     int
}

// NewGrid creates a grid covering the given world size.
func NewGrid(width, height, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]Entry, cols*rows)
	for i := range cells {
		cells[i] = make([]Entry, 0, 8)
	}

	return &Grid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Width returns the world width.
func (g *Grid) Width() float64 { return g.width }

// Height returns the world height.
func (g *Grid) Height() float64 { return g.height }

// CellSize returns the cell edge length.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Len returns the number of indexed entries.
func (g *Grid) Len() int { return g.size }

// Clear removes all entries.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.size = 0
}

// Rebuild replaces the index contents with entries.
// Entries are expected in ascending ID order; each cell keeps that order.
func (g *Grid) Rebuild(entries []Entry) {
	g.Clear()
	for _, e := range entries {
		idx := g.cellIndex(e.Position.X, e.Position.Y)
		g.cells[idx] = append(g.cells[idx], e)
	}
	g.size = len(entries)
}

// Nearby returns entries of the given kinds within radius of p, ordered by
// ascending ID.
func (g *Grid) Nearby(p components.Position, radius float64, kinds components.KindMask) []Neighbor {
	return g.NearbyInto(nil, p, radius, kinds)
}

// NearbyInto is Nearby appending into dst. Reuse dst across calls to avoid
// allocations.
func (g *Grid) NearbyInto(dst []Neighbor, p components.Position, radius float64, kinds components.KindMask) []Neighbor {
	if radius < 0 {
		return dst
	}
	start := len(dst)
	radiusSq := radius * radius

	c0, r0 := g.cellCoord(p.X-radius, p.Y-radius)
	c1, r1 := g.cellCoord(p.X+radius, p.Y+radius)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				if !kinds.Has(e.Kind) {
					continue
				}
				dx := e.Position.X - p.X
				dy := e.Position.Y - p.Y
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{Entry: e, DX: dx, DY: dy, DistSq: distSq})
				}
			}
		}
	}

	slices.SortFunc(dst[start:], func(a, b Neighbor) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return dst
}

// Nearest returns the closest entry of the given kinds within radius,
// skipping exclude. Ties go to the lower ID.
func (g *Grid) Nearest(p components.Position, radius float64, kinds components.KindMask, exclude entity.ID) (Neighbor, bool) {
	var best Neighbor
	found := false
	for _, n := range g.Nearby(p, radius, kinds) {
		if n.ID == exclude {
			continue
		}
		// Nearby is ID ordered, so strict less keeps the lower ID on ties.
		if !found || n.DistSq < best.DistSq {
			best = n
			found = true
		}
	}
	return best, found
}

// IsWithinBounds reports whether p lies inside the world rectangle.
func (g *Grid) IsWithinBounds(p components.Position) bool {
	return p.X >= 0 && p.X <= g.width && p.Y >= 0 && p.Y <= g.height
}

// ClampToBounds returns p moved onto the nearest point inside the world.
func (g *Grid) ClampToBounds(p components.Position) components.Position {
	return components.Position{
		X: math.Max(0, math.Min(g.width, p.X)),
		Y: math.Max(0, math.Min(g.height, p.Y)),
	}
}

// cellCoord returns the clamped column and row containing (x, y).
func (g *Grid) cellCoord(x, y float64) (int, int) {
	col := int(math.Floor(x / g.cellSize))
	row := int(math.Floor(y / g.cellSize))

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *Grid) cellIndex(x, y float64) int {
	col, row := g.cellCoord(x, y)
	return row*g.cols + col
}
