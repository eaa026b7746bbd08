// Package agents provides the person and event data model and their per-tick
// behaviors.
package agents

import (
	"math/rand"

	"github.com/talgya/luck-talent/internal/world"
)

// Actor is anything that occupies a grid cell and acts once per tick.
// The set of implementations is closed: *Person and *Event.
type Actor interface {
	Occupant() world.Occupant
	Pos() world.Coord
	Act(g *world.Grid, rng *rand.Rand) error
}

// Person is a wealth-bearing agent. Persons never move after placement.
// Talent is nominally in [0,1] and capital nominally non-negative, but
// neither is clamped: out-of-range draws propagate as sampled.
type Person struct {
	ID       world.OccupantID `json:"id"`
	Talent   float64          `json:"talent"`
	Capital  float64          `json:"capital"`
	Lucky    int              `json:"lucky_events"`
	Unlucky  int              `json:"unlucky_events"`
	Position world.Coord      `json:"position"`
}

// Occupant returns the grid entry for p.
func (p *Person) Occupant() world.Occupant {
	return world.Occupant{ID: p.ID, Kind: world.KindPerson}
}

// Pos returns where p lives.
func (p *Person) Pos() world.Coord {
	return p.Position
}

// Act runs Live.
func (p *Person) Act(g *world.Grid, rng *rand.Rand) error {
	p.Live(g, rng)
	return nil
}

// Event is a lucky or unlucky marker that jumps to a random cell every tick.
type Event struct {
	ID       world.OccupantID `json:"id"`
	Kind     world.Kind       `json:"kind"` // KindPositiveEvent or KindNegativeEvent
	Position world.Coord      `json:"position"`
}

// Occupant returns the grid entry for e.
func (e *Event) Occupant() world.Occupant {
	return world.Occupant{ID: e.ID, Kind: e.Kind}
}

// Pos returns the event's current cell.
func (e *Event) Pos() world.Coord {
	return e.Position
}

// Act runs Move.
func (e *Event) Act(g *world.Grid, rng *rand.Rand) error {
	return e.Move(g, rng)
}

// Positive reports whether e is a lucky event.
func (e *Event) Positive() bool {
	return e.Kind == world.KindPositiveEvent
}
