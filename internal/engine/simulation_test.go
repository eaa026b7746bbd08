package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/luck-talent/internal/agents"
	"github.com/talgya/luck-talent/internal/config"
	"github.com/talgya/luck-talent/internal/metrics"
	"github.com/talgya/luck-talent/internal/world"
)

func seeded(seed int64) config.Config {
	cfg := config.Default()
	cfg.Seed = &seed
	return cfg
}

func runAll(t *testing.T, sim *Simulation) []*Snapshot {
	t.Helper()
	snaps := []*Snapshot{sim.Latest()}
	for sim.IsRunning() {
		snap, err := sim.Step()
		require.NoError(t, err)
		snaps = append(snaps, snap)
	}
	return snaps
}

func TestInitializeTickZero(t *testing.T) {
	sim, err := Initialize(seeded(42))
	require.NoError(t, err)

	assert.True(t, sim.IsRunning())
	assert.Equal(t, int64(42), sim.Seed)
	snap := sim.Latest()
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.Tick)
	assert.Zero(t, snap.Years)
	assert.Len(t, snap.Persons, 100)

	// Equal starting capital: Gini is zero.
	require.NotNil(t, snap.Model.Gini)
	assert.InDelta(t, 0, *snap.Model.Gini, 1e-12)
	assert.Equal(t, 10.0, snap.Model.Min)
	assert.Equal(t, 10.0, snap.Model.Max)
}

func TestInitializeTooManyActors(t *testing.T) {
	cfg := seeded(1)
	cfg.NActors = 401

	sim, err := Initialize(cfg)
	assert.Nil(t, sim)
	assert.ErrorIs(t, err, config.ErrTooManyActors)
}

func TestInitializeWithoutSeed(t *testing.T) {
	sim, err := Initialize(config.Default())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sim.Seed, int64(0))
}

func TestTerminatesAfterEightyTicks(t *testing.T) {
	sim, err := Initialize(seeded(7))
	require.NoError(t, err)

	for i := 1; i <= 80; i++ {
		require.True(t, sim.IsRunning(), "stopped early before tick %d", i)
		snap, err := sim.Step()
		require.NoError(t, err)
		assert.Equal(t, i, snap.Tick)
		assert.Equal(t, float64(i)*0.5, snap.Years)
	}
	assert.False(t, sim.IsRunning())
	assert.Equal(t, 40.0, sim.Years)

	_, err = sim.Step()
	assert.ErrorIs(t, err, ErrTerminated)
	assert.Equal(t, 80, sim.Tick)
}

func TestDeterministicSeries(t *testing.T) {
	a, err := Initialize(seeded(2024))
	require.NoError(t, err)
	b, err := Initialize(seeded(2024))
	require.NoError(t, err)

	sa, sb := runAll(t, a), runAll(t, b)
	require.Len(t, sa, 81)
	require.Len(t, sb, 81)
	for i := range sa {
		assert.Equal(t, sa[i].Model, sb[i].Model, "tick %d", i)
		assert.Equal(t, sa[i].Persons, sb[i].Persons, "tick %d", i)
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a, err := Initialize(seeded(1))
	require.NoError(t, err)
	b, err := Initialize(seeded(2))
	require.NoError(t, err)

	sa, sb := runAll(t, a), runAll(t, b)
	assert.NotEqual(t, sa[80].Persons, sb[80].Persons)
}

func TestPopulationConserved(t *testing.T) {
	cfg := seeded(5)
	cfg.NEvents = 9
	cfg.PropLucky = 0.4
	sim, err := Initialize(cfg)
	require.NoError(t, err)

	for sim.IsRunning() {
		_, err := sim.Step()
		require.NoError(t, err)

		assert.Len(t, sim.Persons, 100)
		assert.Len(t, sim.Positive, 3)
		assert.Len(t, sim.Negative, 6)
		assert.Equal(t, 109, sim.Grid.OccupantCount())
	}
}

func TestPersonsNeverMove(t *testing.T) {
	sim, err := Initialize(seeded(8))
	require.NoError(t, err)

	start := make(map[world.OccupantID]world.Coord)
	for _, p := range sim.Persons {
		start[p.ID] = p.Position
	}
	runAll(t, sim)
	for _, p := range sim.Persons {
		assert.Equal(t, start[p.ID], p.Position)
		assert.Contains(t, sim.Grid.At(p.Position), p.Occupant())
	}
}

func TestEventPositionsMatchGrid(t *testing.T) {
	sim, err := Initialize(seeded(13))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := sim.Step()
		require.NoError(t, err)
		for _, e := range append(append([]*agents.Event{}, sim.Positive...), sim.Negative...) {
			assert.Contains(t, sim.Grid.At(e.Position), e.Occupant())
		}
	}
}

func TestGiniStaysInBounds(t *testing.T) {
	cfg := seeded(99)
	cfg.NEvents = 40
	sim, err := Initialize(cfg)
	require.NoError(t, err)

	for _, snap := range runAll(t, sim) {
		require.NoError(t, snap.MetricErr)
		require.NotNil(t, snap.Model.Gini)
		assert.GreaterOrEqual(t, *snap.Model.Gini, -1e-12)
		assert.Less(t, *snap.Model.Gini, 1.0)
		assert.LessOrEqual(t, snap.Model.Min, snap.Model.Max)
	}
}

// The person phase sees events where they stood at the start of the tick,
// not where they move to later in the same tick.
func TestPersonPhaseSeesStartOfTickGrid(t *testing.T) {
	cfg := seeded(3)
	cfg.Width, cfg.Height = 10, 10
	cfg.NActors = 1
	cfg.NEvents = 1
	cfg.PropLucky = 0
	sim, err := Initialize(cfg)
	require.NoError(t, err)

	p := sim.Persons[0]
	for sim.IsRunning() {
		expectHit := sim.Grid.NeighborhoodHas(p.Position, world.KindNegativeEvent)
		before := p.Unlucky
		_, err := sim.Step()
		require.NoError(t, err)
		if expectHit {
			assert.Equal(t, before+1, p.Unlucky)
		} else {
			assert.Equal(t, before, p.Unlucky)
		}
	}
	assert.InDelta(t, 10*math.Pow(0.5, float64(p.Unlucky)), p.Capital, 1e-9)
}

func TestUndefinedGiniDoesNotStopRun(t *testing.T) {
	cfg := seeded(4)
	cfg.MeanStartCapital = 0
	sim, err := Initialize(cfg)
	require.NoError(t, err)

	assert.ErrorIs(t, sim.Latest().MetricErr, metrics.ErrUndefinedMetric)
	assert.Nil(t, sim.Latest().Model.Gini)

	snap, err := sim.Step()
	require.NoError(t, err)
	assert.True(t, snap.Undefined())
	assert.True(t, sim.IsRunning())
}

func TestCustomLifespan(t *testing.T) {
	cfg := seeded(6)
	cfg.LifespanYears = 3
	cfg.YearsPerTick = 1
	sim, err := Initialize(cfg)
	require.NoError(t, err)

	assert.Len(t, runAll(t, sim), 4)
}
