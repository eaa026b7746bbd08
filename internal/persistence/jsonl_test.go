package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/luck-talent/internal/engine"
)

func TestJSONLZstdExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run.jsonl.zst")
	w, err := CreateJSONLZstd(path)
	require.NoError(t, err)

	sim, err := engine.Initialize(smallConfig(8))
	require.NoError(t, err)
	require.NoError(t, engine.NewEngine(sim, w).Run(context.Background()))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	lines, err := ReadJSONLZstd(path)
	require.NoError(t, err)
	require.Len(t, lines, 11)

	last := lines[10]
	assert.Equal(t, 10, last.Tick)
	assert.Equal(t, 5.0, last.Years)
	assert.Equal(t, sim.Latest().Persons, last.Persons)
	assert.Equal(t, sim.Latest().Model, last.Model)
	assert.Empty(t, last.MetricError)
}

func TestJSONLZstdMetricError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl.zst")
	w, err := CreateJSONLZstd(path)
	require.NoError(t, err)

	cfg := smallConfig(2)
	cfg.MeanStartCapital = 0
	sim, err := engine.Initialize(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Report(sim.Latest()))
	require.NoError(t, w.Close())

	assert.Error(t, w.Report(sim.Latest()))

	lines, err := ReadJSONLZstd(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Nil(t, lines[0].Model.Gini)
	assert.Contains(t, lines[0].MetricError, "undefined metric")
}
