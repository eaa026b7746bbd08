// Package world provides the toroidal grid that persons and events occupy.
// Coordinates wrap in both axes, so every cell has a full Moore neighborhood.
package world

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrNotOccupant is returned when relocating an occupant from a cell it is not in.
var ErrNotOccupant = errors.New("occupant not in cell")

// Coord is a cell position. Values outside [0,W)×[0,H) are wrapped by the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// OccupantID identifies an agent held by the grid.
type OccupantID uint32

// Kind distinguishes the three classes of occupant.
type Kind uint8

const (
	KindPerson        Kind = iota // Wealth-bearing, never moves
	KindPositiveEvent             // Lucky event marker
	KindNegativeEvent             // Unlucky event marker
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPerson:
		return "person"
	case KindPositiveEvent:
		return "positive_event"
	case KindNegativeEvent:
		return "negative_event"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Occupant is a grid entry: which agent and what kind it is.
type Occupant struct {
	ID   OccupantID
	Kind Kind
}

// MooreOffsets are the eight neighbor offsets around a cell.
var MooreOffsets = [8]Coord{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// Grid is a W×H torus. Each cell holds an unordered set of occupants with no
// capacity limit. The grid only stores identifiers; agents keep their own
// position and go through Place/Relocate to change it.
type Grid struct {
	Width  int
	Height int

	cells []map[OccupantID]Kind // indexed by y*Width + x
	count int
}

// NewGrid creates an empty grid. Width and height must be positive.
func NewGrid(width, height int) *Grid {
	cells := make([]map[OccupantID]Kind, width*height)
	for i := range cells {
		cells[i] = make(map[OccupantID]Kind)
	}
	return &Grid{
		Width:  width,
		Height: height,
		cells:  cells,
	}
}

// Wrap maps any coordinate onto the torus.
func (g *Grid) Wrap(c Coord) Coord {
	return Coord{X: mod(c.X, g.Width), Y: mod(c.Y, g.Height)}
}

func (g *Grid) index(c Coord) int {
	c = g.Wrap(c)
	return c.Y*g.Width + c.X
}

func (g *Grid) coord(i int) Coord {
	return Coord{X: i % g.Width, Y: i / g.Width}
}

// CellCount returns W×H.
func (g *Grid) CellCount() int {
	return len(g.cells)
}

// OccupantCount returns the number of occupants across all cells.
func (g *Grid) OccupantCount() int {
	return g.count
}

// Place adds an occupant to the cell at c and returns the wrapped position.
func (g *Grid) Place(o Occupant, c Coord) Coord {
	cell := g.cells[g.index(c)]
	if _, ok := cell[o.ID]; !ok {
		g.count++
	}
	cell[o.ID] = o.Kind
	return g.Wrap(c)
}

// Relocate moves an occupant from one cell to another and returns the
// wrapped destination.
func (g *Grid) Relocate(o Occupant, from, to Coord) (Coord, error) {
	src := g.cells[g.index(from)]
	if _, ok := src[o.ID]; !ok {
		return from, fmt.Errorf("relocate %s %d from %v: %w", o.Kind, o.ID, from, ErrNotOccupant)
	}
	delete(src, o.ID)
	g.cells[g.index(to)][o.ID] = o.Kind
	return g.Wrap(to), nil
}

// At returns the occupants of one cell.
func (g *Grid) At(c Coord) []Occupant {
	cell := g.cells[g.index(c)]
	out := make([]Occupant, 0, len(cell))
	for id, k := range cell {
		out = append(out, Occupant{ID: id, Kind: k})
	}
	return out
}

// IsEmpty reports whether the cell holds no occupants.
func (g *Grid) IsEmpty(c Coord) bool {
	return len(g.cells[g.index(c)]) == 0
}

// neighborhood returns the distinct cell indices of the Moore neighborhood.
// Grids narrower than three cells fold neighbors onto each other; each cell
// is still listed once.
func (g *Grid) neighborhood(c Coord, includeCenter bool) []int {
	c = g.Wrap(c)
	idx := make([]int, 0, 9)
	seen := make(map[int]bool, 9)
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	if includeCenter {
		add(g.index(c))
	}
	center := g.index(c)
	for _, d := range MooreOffsets {
		i := g.index(Coord{X: c.X + d.X, Y: c.Y + d.Y})
		if i == center && !includeCenter {
			continue
		}
		add(i)
	}
	return idx
}

// NeighborCells returns the coordinates of the Moore neighborhood of c.
func (g *Grid) NeighborCells(c Coord, includeCenter bool) []Coord {
	idx := g.neighborhood(c, includeCenter)
	out := make([]Coord, len(idx))
	for i, j := range idx {
		out[i] = g.coord(j)
	}
	return out
}

// Neighbors returns every occupant in the Moore neighborhood of c.
func (g *Grid) Neighbors(c Coord, includeCenter bool) []Occupant {
	var out []Occupant
	for _, i := range g.neighborhood(c, includeCenter) {
		for id, k := range g.cells[i] {
			out = append(out, Occupant{ID: id, Kind: k})
		}
	}
	return out
}

// NeighborhoodHas reports whether any occupant of the given kind sits in the
// 3×3 block centered on c (center included).
func (g *Grid) NeighborhoodHas(c Coord, kind Kind) bool {
	for _, i := range g.neighborhood(c, true) {
		for _, k := range g.cells[i] {
			if k == kind {
				return true
			}
		}
	}
	return false
}

// EmptyCells returns all unoccupied cells in row-major order.
func (g *Grid) EmptyCells() []Coord {
	var out []Coord
	for i, cell := range g.cells {
		if len(cell) == 0 {
			out = append(out, g.coord(i))
		}
	}
	return out
}

// RandomCell draws a cell uniformly from the whole grid.
func (g *Grid) RandomCell(rng *rand.Rand) Coord {
	return g.coord(rng.Intn(len(g.cells)))
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, occupants=%d)", g.Width, g.Height, g.count)
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
