// Package engine provides the tick-based simulation loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine drives a Simulation to completion and hands every snapshot to the
// reporter. It is the only writer of the simulation; other goroutines read
// through Latest.
type Engine struct {
	Sim      *Simulation
	Reporter Reporter      // May be nil
	Interval time.Duration // Wall-clock time per tick; 0 runs as fast as possible

	// OnTick is called after each snapshot has been reported.
	OnTick func(snap *Snapshot)

	stopped atomic.Bool

	mu     sync.RWMutex
	latest *Snapshot
}

// NewEngine creates an engine for sim with no pacing.
func NewEngine(sim *Simulation, rep Reporter) *Engine {
	return &Engine{
		Sim:      sim,
		Reporter: rep,
		latest:   sim.Latest(),
	}
}

// Run reports the tick-0 snapshot, then steps until the simulation
// terminates, Stop is called, or ctx is cancelled. A reporter error aborts
// the run.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.Sim.Tick, "interval", e.Interval)

	if e.Sim.Tick == 0 {
		if err := e.publish(e.Sim.Latest()); err != nil {
			return err
		}
	}

	for e.Sim.IsRunning() {
		if e.stopped.Load() {
			slog.Info("simulation engine stopped", "tick", e.Sim.Tick)
			return nil
		}
		if err := ctx.Err(); err != nil {
			slog.Info("simulation engine cancelled", "tick", e.Sim.Tick)
			return err
		}

		start := time.Now()

		snap, err := e.Sim.Step()
		if err != nil {
			return err
		}
		if err := e.publish(snap); err != nil {
			return err
		}

		// Sleep for the remainder of the tick interval.
		if e.Interval > 0 {
			if wait := e.Interval - time.Since(start); wait > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(wait):
				}
			}
		}
	}

	slog.Info("simulation engine finished", "tick", e.Sim.Tick, "years", e.Sim.Years)
	return nil
}

// Stop halts the loop before the next tick.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// Latest returns the last published snapshot. Safe for concurrent use.
func (e *Engine) Latest() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

func (e *Engine) publish(snap *Snapshot) error {
	e.mu.Lock()
	e.latest = snap
	e.mu.Unlock()

	if e.Reporter != nil {
		if err := e.Reporter.Report(snap); err != nil {
			return fmt.Errorf("report tick %d: %w", snap.Tick, err)
		}
	}
	if e.OnTick != nil {
		e.OnTick(snap)
	}
	return nil
}

// SimTime returns a human-readable simulation time for a year count.
func SimTime(years float64) string {
	whole := int(years)
	if years-float64(whole) >= 0.5 {
		return fmt.Sprintf("Year %d, second half", whole+1)
	}
	return fmt.Sprintf("Year %d, first half", whole+1)
}
