// Package config holds the immutable run parameters for a luck/talent simulation.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned for any parameter outside its allowed range.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrTooManyActors means the grid cannot host every person in a distinct cell.
	ErrTooManyActors = fmt.Errorf("%w: more actors than grid cells", ErrInvalidConfig)
)

// Config controls grid size, population and sampling distributions.
type Config struct {
	Height int `yaml:"height" json:"height"`
	Width  int `yaml:"width" json:"width"`

	NActors   int     `yaml:"n_actors" json:"n_actors"`
	NEvents   int     `yaml:"n_events" json:"n_events"`
	PropLucky float64 `yaml:"prop_lucky" json:"prop_lucky"` // Fraction of events that are positive

	MeanTalent       float64 `yaml:"mean_talent" json:"mean_talent"`
	SDTalent         float64 `yaml:"sd_talent" json:"sd_talent"`
	MeanStartCapital float64 `yaml:"mean_start_capital" json:"mean_start_capital"`
	SDStartCapital   float64 `yaml:"sd_start_capital" json:"sd_start_capital"`

	// Seed is nil when the run should pick its own seed.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	LifespanYears float64 `yaml:"lifespan_years" json:"lifespan_years"`
	YearsPerTick  float64 `yaml:"years_per_tick" json:"years_per_tick"`
}

// Default returns the standard 20×20 world with 100 people and 10 events.
func Default() Config {
	return Config{
		Height:           20,
		Width:            20,
		NActors:          100,
		NEvents:          10,
		PropLucky:        0.5,
		MeanTalent:       0.5,
		SDTalent:         0.1,
		MeanStartCapital: 10,
		SDStartCapital:   0,
		LifespanYears:    40,
		YearsPerTick:     0.5,
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Cells returns the number of grid cells.
func (c Config) Cells() int {
	return c.Height * c.Width
}

// PositiveEvents returns floor(PropLucky × NEvents).
func (c Config) PositiveEvents() int {
	return int(c.PropLucky * float64(c.NEvents))
}

// NegativeEvents returns the events that are not positive.
func (c Config) NegativeEvents() int {
	return c.NEvents - c.PositiveEvents()
}

// Ticks returns the number of ticks until LifespanYears is reached.
func (c Config) Ticks() int {
	n := 0
	for years := 0.0; years < c.LifespanYears; years += c.YearsPerTick {
		n++
	}
	return n
}

// Validate checks every parameter constraint. Talent and capital draws are
// deliberately not bounded here.
func (c Config) Validate() error {
	switch {
	case c.Height <= 0:
		return fmt.Errorf("%w: height must be positive, got %d", ErrInvalidConfig, c.Height)
	case c.Width <= 0:
		return fmt.Errorf("%w: width must be positive, got %d", ErrInvalidConfig, c.Width)
	case c.NActors <= 0:
		return fmt.Errorf("%w: n_actors must be positive, got %d", ErrInvalidConfig, c.NActors)
	case c.NActors > c.Cells():
		return fmt.Errorf("%w (%d actors, %d cells)", ErrTooManyActors, c.NActors, c.Cells())
	case c.NEvents < 0:
		return fmt.Errorf("%w: n_events must not be negative, got %d", ErrInvalidConfig, c.NEvents)
	case c.PropLucky < 0 || c.PropLucky > 1:
		return fmt.Errorf("%w: prop_lucky must be in [0,1], got %g", ErrInvalidConfig, c.PropLucky)
	case c.SDTalent < 0:
		return fmt.Errorf("%w: sd_talent must not be negative, got %g", ErrInvalidConfig, c.SDTalent)
	case c.SDStartCapital < 0:
		return fmt.Errorf("%w: sd_start_capital must not be negative, got %g", ErrInvalidConfig, c.SDStartCapital)
	case c.LifespanYears <= 0:
		return fmt.Errorf("%w: lifespan_years must be positive, got %g", ErrInvalidConfig, c.LifespanYears)
	case c.YearsPerTick <= 0:
		return fmt.Errorf("%w: years_per_tick must be positive, got %g", ErrInvalidConfig, c.YearsPerTick)
	}
	return nil
}
