// Agent spawning — creates the initial population and event set from a
// run configuration.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/luck-talent/internal/config"
	"github.com/talgya/luck-talent/internal/world"
)

// Population is every agent placed on the grid at the start of a run.
type Population struct {
	Persons  []*Person
	Positive []*Event
	Negative []*Event
}

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID world.OccupantID
}

// NewSpawner creates a spawner drawing from rng. The same rng is later used
// for ticks, so spawning order is part of the reproducible sequence.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{
		rng:    rng,
		nextID: 1,
	}
}

// Populate places cfg.NActors persons on distinct empty cells, then the
// positive and negative events on uniformly drawn cells (which may coincide
// with anything).
func (s *Spawner) Populate(cfg config.Config, g *world.Grid) (*Population, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	empties := g.EmptyCells()
	if cfg.NActors > len(empties) {
		return nil, fmt.Errorf("%w (%d actors, %d empty cells)", config.ErrTooManyActors, cfg.NActors, len(empties))
	}

	pop := &Population{
		Persons:  make([]*Person, 0, cfg.NActors),
		Positive: make([]*Event, 0, cfg.PositiveEvents()),
		Negative: make([]*Event, 0, cfg.NegativeEvents()),
	}

	for i := 0; i < cfg.NActors; i++ {
		talent := cfg.MeanTalent + s.rng.NormFloat64()*cfg.SDTalent
		capital := cfg.MeanStartCapital + s.rng.NormFloat64()*cfg.SDStartCapital

		// Draw without replacement: swap the chosen cell out of the pool.
		j := s.rng.Intn(len(empties))
		cell := empties[j]
		last := len(empties) - 1
		empties[j] = empties[last]
		empties = empties[:last]

		p := &Person{
			ID:      s.issueID(),
			Talent:  talent,
			Capital: capital,
		}
		p.Position = g.Place(p.Occupant(), cell)
		pop.Persons = append(pop.Persons, p)
	}

	for i := 0; i < cfg.PositiveEvents(); i++ {
		pop.Positive = append(pop.Positive, s.spawnEvent(g, world.KindPositiveEvent))
	}
	for i := 0; i < cfg.NegativeEvents(); i++ {
		pop.Negative = append(pop.Negative, s.spawnEvent(g, world.KindNegativeEvent))
	}

	return pop, nil
}

func (s *Spawner) spawnEvent(g *world.Grid, kind world.Kind) *Event {
	e := &Event{ID: s.issueID(), Kind: kind}
	e.Position = g.Place(e.Occupant(), g.RandomCell(s.rng))
	return e
}

func (s *Spawner) issueID() world.OccupantID {
	id := s.nextID
	s.nextID++
	return id
}
