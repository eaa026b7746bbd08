package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/luck-talent/internal/config"
	"github.com/talgya/luck-talent/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func smallConfig(seed int64) config.Config {
	cfg := config.Default()
	cfg.Width, cfg.Height = 8, 8
	cfg.NActors = 12
	cfg.NEvents = 6
	cfg.LifespanYears = 5
	cfg.Seed = &seed
	return cfg
}

func TestRecorderStoresRun(t *testing.T) {
	db := openTestDB(t)
	cfg := smallConfig(42)

	sim, err := engine.Initialize(cfg)
	require.NoError(t, err)
	rec, err := db.NewRun(cfg, sim.Seed)
	require.NoError(t, err)

	var reported []*engine.Snapshot
	eng := engine.NewEngine(sim, engine.MultiReporter{rec, engine.ReporterFunc(func(s *engine.Snapshot) error {
		reported = append(reported, s)
		return nil
	})})
	require.NoError(t, eng.Run(context.Background()))

	run, err := db.GetRun(rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, int64(42), run.Seed)
	stored, err := run.Config()
	require.NoError(t, err)
	assert.Equal(t, cfg.NActors, stored.NActors)
	require.NotNil(t, stored.Seed)
	assert.Equal(t, int64(42), *stored.Seed)

	series, err := db.LoadModelSeries(rec.RunID())
	require.NoError(t, err)
	require.Len(t, series, 11)
	for i, pt := range series {
		assert.Equal(t, i, pt.Tick)
		assert.Equal(t, reported[i].Years, pt.Years)
		require.NotNil(t, pt.Gini)
		assert.Equal(t, *reported[i].Model.Gini, *pt.Gini)
		assert.Equal(t, reported[i].Model.Min, pt.Min)
		assert.Equal(t, reported[i].Model.Max, pt.Max)
		assert.False(t, pt.MetricError.Valid)
	}

	persons, err := db.LoadPersons(rec.RunID(), 10)
	require.NoError(t, err)
	assert.Equal(t, reported[10].Persons, persons)
}

func TestRecorderStoresUndefinedGini(t *testing.T) {
	db := openTestDB(t)
	cfg := smallConfig(1)
	cfg.MeanStartCapital = 0

	sim, err := engine.Initialize(cfg)
	require.NoError(t, err)
	rec, err := db.NewRun(cfg, sim.Seed)
	require.NoError(t, err)
	require.NoError(t, rec.Report(sim.Latest()))

	series, err := db.LoadModelSeries(rec.RunID())
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Nil(t, series[0].Gini)
	assert.True(t, series[0].MetricError.Valid)
	assert.Contains(t, series[0].MetricError.String, "undefined metric")
}

func TestRecorderRejectsDuplicateTick(t *testing.T) {
	db := openTestDB(t)
	cfg := smallConfig(3)
	sim, err := engine.Initialize(cfg)
	require.NoError(t, err)
	rec, err := db.NewRun(cfg, sim.Seed)
	require.NoError(t, err)

	require.NoError(t, rec.Report(sim.Latest()))
	assert.Error(t, rec.Report(sim.Latest()))

	// The failed transaction left no partial person rows behind.
	persons, err := db.LoadPersons(rec.RunID(), 0)
	require.NoError(t, err)
	assert.Len(t, persons, 12)
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSeparateRuns(t *testing.T) {
	db := openTestDB(t)
	cfg := smallConfig(5)

	a, err := db.NewRun(cfg, 5)
	require.NoError(t, err)
	b, err := db.NewRun(cfg, 5)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID(), b.RunID())
}
