// Simulation ties the grid, persons and events together and runs the
// three-phase tick.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/luck-talent/internal/agents"
	"github.com/talgya/luck-talent/internal/config"
	"github.com/talgya/luck-talent/internal/entropy"
	"github.com/talgya/luck-talent/internal/metrics"
	"github.com/talgya/luck-talent/internal/world"
)

// ErrTerminated is returned by Step once the run has finished.
var ErrTerminated = errors.New("simulation terminated")

// Simulation holds the complete state of one run. It owns the grid; agents
// only remember their position.
type Simulation struct {
	Config config.Config
	Seed   int64 // Resolved seed, including one drawn when Config.Seed is nil

	Grid     *world.Grid
	Persons  []*agents.Person
	Positive []*agents.Event
	Negative []*agents.Event

	Tick    int     // Ticks completed
	Years   float64 // Simulated years elapsed
	Running bool

	rng  *rand.Rand
	last *Snapshot
}

// Initialize validates cfg, seeds the random source and places the initial
// population. The tick-0 snapshot is available from Latest.
func Initialize(cfg config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := entropy.ResolveSeed(cfg.Seed)
	rng := entropy.NewSource(seed)
	grid := world.NewGrid(cfg.Width, cfg.Height)

	pop, err := agents.NewSpawner(rng).Populate(cfg, grid)
	if err != nil {
		return nil, fmt.Errorf("populate: %w", err)
	}

	s := &Simulation{
		Config:   cfg,
		Seed:     seed,
		Grid:     grid,
		Persons:  pop.Persons,
		Positive: pop.Positive,
		Negative: pop.Negative,
		Running:  true,
		rng:      rng,
	}
	s.last = s.snapshot()

	slog.Info("simulation initialized",
		"seed", seed,
		"grid", grid.String(),
		"persons", len(s.Persons),
		"positive_events", len(s.Positive),
		"negative_events", len(s.Negative),
	)
	return s, nil
}

// IsRunning reports whether another tick may be taken.
func (s *Simulation) IsRunning() bool {
	return s.Running
}

// Latest returns the most recent snapshot (tick 0 before any step).
func (s *Simulation) Latest() *Snapshot {
	return s.last
}

// Step advances exactly one tick:
//
//  1. every person lives against the grid as it stood at the start of the tick
//  2. every negative event moves
//  3. every positive event moves
//
// Each phase finishes before the next starts. Afterwards the clock advances
// and a snapshot is produced. The run stops once LifespanYears is reached.
// An undefined metric is recorded on the snapshot and does not fail the step.
func (s *Simulation) Step() (*Snapshot, error) {
	if !s.Running {
		return nil, ErrTerminated
	}

	if err := runPhase(s.Grid, s.rng, s.Persons); err != nil {
		return nil, fmt.Errorf("tick %d persons: %w", s.Tick+1, err)
	}
	if err := runPhase(s.Grid, s.rng, s.Negative); err != nil {
		return nil, fmt.Errorf("tick %d negative events: %w", s.Tick+1, err)
	}
	if err := runPhase(s.Grid, s.rng, s.Positive); err != nil {
		return nil, fmt.Errorf("tick %d positive events: %w", s.Tick+1, err)
	}

	s.Tick++
	s.Years += s.Config.YearsPerTick

	s.last = s.snapshot()
	if s.last.MetricErr != nil {
		slog.Warn("metric undefined", "tick", s.Tick, "error", s.last.MetricErr)
	}

	if s.Years >= s.Config.LifespanYears {
		s.Running = false
		slog.Info("simulation finished", "tick", s.Tick, "years", s.Years)
	}
	return s.last, nil
}

// runPhase gives every actor of one kind exactly one turn.
func runPhase[T agents.Actor](g *world.Grid, rng *rand.Rand, actors []T) error {
	for _, a := range actors {
		if err := a.Act(g, rng); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) snapshot() *Snapshot {
	snap := &Snapshot{
		Tick:    s.Tick,
		Years:   s.Years,
		Persons: make([]PersonRecord, len(s.Persons)),
	}
	for i, p := range s.Persons {
		snap.Persons[i] = PersonRecord{
			ID:      uint32(p.ID),
			Capital: p.Capital,
			Talent:  p.Talent,
			Lucky:   p.Lucky,
			Unlucky: p.Unlucky,
		}
	}

	capitals := snap.Capitals()
	if g, err := metrics.Gini(capitals); err != nil {
		snap.MetricErr = err
	} else {
		snap.Model.Gini = &g
	}
	if lo, hi, err := metrics.MinMax(capitals); err != nil {
		snap.MetricErr = errors.Join(snap.MetricErr, err)
	} else {
		snap.Model.Min, snap.Model.Max = lo, hi
	}
	return snap
}
