// Package persistence records per-tick metrics of simulation runs.
// SQLite holds the queryable series; JSONL+zstd is the portable export.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/luck-talent/internal/config"
	"github.com/talgya/luck-talent/internal/engine"
)

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

// DB wraps a SQLite connection holding recorded runs.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS model_metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		years REAL NOT NULL,
		gini REAL,
		min_capital REAL NOT NULL,
		max_capital REAL NOT NULL,
		metric_error TEXT,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS person_metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		person_id INTEGER NOT NULL,
		capital REAL NOT NULL,
		talent REAL NOT NULL,
		lucky INTEGER NOT NULL,
		unlucky INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, person_id)
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one recorded simulation run.
type Run struct {
	ID         string `db:"id"`
	Seed       int64  `db:"seed"`
	ConfigJSON string `db:"config_json"`
	StartedAt  string `db:"started_at"`
}

// Config decodes the stored configuration.
func (r Run) Config() (config.Config, error) {
	var cfg config.Config
	err := json.Unmarshal([]byte(r.ConfigJSON), &cfg)
	return cfg, err
}

// Recorder writes snapshots of a single run. It implements engine.Reporter.
type Recorder struct {
	db    *DB
	runID string
}

// NewRun registers a run and returns a recorder for its snapshots.
func (db *DB) NewRun(cfg config.Config, seed int64) (*Recorder, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, seed, config_json, started_at) VALUES (?, ?, ?, ?)",
		id, seed, string(cfgJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	slog.Info("recording run", "run_id", id, "seed", seed)
	return &Recorder{db: db, runID: id}, nil
}

// RunID returns the identifier of the recorded run.
func (r *Recorder) RunID() string {
	return r.runID
}

// Report stores the model record and every person record of snap in one
// transaction.
func (r *Recorder) Report(snap *engine.Snapshot) error {
	tx, err := r.db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var metricErr sql.NullString
	if snap.MetricErr != nil {
		metricErr = sql.NullString{String: snap.MetricErr.Error(), Valid: true}
	}

	_, err = tx.Exec(`INSERT INTO model_metrics
		(run_id, tick, years, gini, min_capital, max_capital, metric_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.runID, snap.Tick, snap.Years, snap.Model.Gini,
		snap.Model.Min, snap.Model.Max, metricErr,
	)
	if err != nil {
		return fmt.Errorf("insert model metrics tick %d: %w", snap.Tick, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO person_metrics
		(run_id, tick, person_id, capital, talent, lucky, unlucky)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range snap.Persons {
		_, err := stmt.Exec(r.runID, snap.Tick, p.ID, p.Capital, p.Talent, p.Lucky, p.Unlucky)
		if err != nil {
			return fmt.Errorf("insert person %d tick %d: %w", p.ID, snap.Tick, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT id, seed, config_json, started_at FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ModelPoint is one row of a stored model series.
type ModelPoint struct {
	Tick  int     `db:"tick" json:"tick"`
	Years float64 `db:"years" json:"years"`
	engine.ModelRecord
	MetricError sql.NullString `db:"metric_error" json:"-"`
}

// LoadModelSeries returns the model metrics of a run in tick order.
func (db *DB) LoadModelSeries(runID string) ([]ModelPoint, error) {
	var points []ModelPoint
	err := db.conn.Select(&points,
		`SELECT tick, years, gini, min_capital, max_capital, metric_error
		 FROM model_metrics WHERE run_id = ? ORDER BY tick`,
		runID,
	)
	return points, err
}

// LoadPersons returns the person records of one tick ordered by person ID.
func (db *DB) LoadPersons(runID string, tick int) ([]engine.PersonRecord, error) {
	var persons []engine.PersonRecord
	err := db.conn.Select(&persons,
		`SELECT person_id, capital, talent, lucky, unlucky
		 FROM person_metrics WHERE run_id = ? AND tick = ? ORDER BY person_id`,
		runID, tick,
	)
	return persons, err
}
