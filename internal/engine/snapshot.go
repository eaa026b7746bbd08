package engine

import (
	"errors"

	"github.com/talgya/luck-talent/internal/metrics"
)

// PersonRecord is one person's state at the end of a tick.
type PersonRecord struct {
	ID      uint32  `json:"id" db:"person_id"`
	Capital float64 `json:"capital" db:"capital"`
	Talent  float64 `json:"talent" db:"talent"`
	Lucky   int     `json:"lucky_events" db:"lucky"`
	Unlucky int     `json:"unlucky_events" db:"unlucky"`
}

// ModelRecord holds the population-level metrics of a tick. Gini is nil when
// it is undefined for the tick's capitals.
type ModelRecord struct {
	Gini *float64 `json:"gini" db:"gini"`
	Min  float64  `json:"min" db:"min_capital"`
	Max  float64  `json:"max" db:"max_capital"`
}

// Snapshot is the immutable report produced after a tick. Tick 0 is the
// state right after initialization.
type Snapshot struct {
	Tick    int            `json:"tick"`
	Years   float64        `json:"years"`
	Model   ModelRecord    `json:"model"`
	Persons []PersonRecord `json:"persons"`

	// MetricErr wraps metrics.ErrUndefinedMetric when a statistic could not
	// be computed this tick.
	MetricErr error `json:"-"`
}

// Capitals returns the per-person capital values in person order.
func (s *Snapshot) Capitals() []float64 {
	out := make([]float64, len(s.Persons))
	for i, p := range s.Persons {
		out[i] = p.Capital
	}
	return out
}

// Undefined reports whether some metric of this tick could not be computed.
func (s *Snapshot) Undefined() bool {
	return errors.Is(s.MetricErr, metrics.ErrUndefinedMetric)
}

// Reporter consumes one snapshot per tick. It owns persistence and rendering;
// the engine never formats output itself.
type Reporter interface {
	Report(snap *Snapshot) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(snap *Snapshot) error

// Report calls f.
func (f ReporterFunc) Report(snap *Snapshot) error {
	return f(snap)
}

// MultiReporter fans a snapshot out to several reporters in order, stopping
// at the first error.
type MultiReporter []Reporter

// Report delivers snap to every reporter.
func (m MultiReporter) Report(snap *Snapshot) error {
	for _, r := range m {
		if err := r.Report(snap); err != nil {
			return err
		}
	}
	return nil
}
