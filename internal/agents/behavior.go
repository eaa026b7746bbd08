package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/luck-talent/internal/entropy"
	"github.com/talgya/luck-talent/internal/world"
)

// Live applies this tick's encounters to p. The 3×3 block around p (own cell
// included) is checked for the presence of each event kind; counts do not
// matter. A positive event doubles capital when a single draw falls below
// talent. A negative event halves capital unconditionally. Both can apply in
// the same tick, positive first.
//
// The draw is taken only when a positive event is present.
func (p *Person) Live(g *world.Grid, rng entropy.Float) {
	if g.NeighborhoodHas(p.Position, world.KindPositiveEvent) {
		if rng.Float64() < p.Talent {
			p.Capital *= 2
			p.Lucky++
		}
	}

	if g.NeighborhoodHas(p.Position, world.KindNegativeEvent) {
		p.Capital *= 0.5
		p.Unlucky++
	}
}

// Move relocates e to a cell drawn uniformly from the whole grid.
func (e *Event) Move(g *world.Grid, rng *rand.Rand) error {
	to, err := g.Relocate(e.Occupant(), e.Position, g.RandomCell(rng))
	if err != nil {
		return fmt.Errorf("move event %d: %w", e.ID, err)
	}
	e.Position = to
	return nil
}
