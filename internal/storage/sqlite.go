// Package storage archives runs, generation summaries and champions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackevo/internal/ga"
	"trackevo/internal/nn"

	_ "modernc.org/sqlite"
)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

// ErrSchemaVersion is returned when a database was written by a newer archive.
var ErrSchemaVersion = errors.New("unsupported archive schema version")

// Archive is a SQLite-backed record of training runs.
type Archive struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewArchive returns an archive for the database at path. Call Init before use.
func NewArchive(path string) *Archive {
	return &Archive{path: path}
}

// Init opens the database and brings its schema to the current version.
// Databases stamped with a newer version are refused with ErrSchemaVersion.
// Calling Init on an open archive is a no-op.
func (a *Archive) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		return nil
	}
	if a.path == "" {
		return errors.New("archive: sqlite path is required")
	}

	db, err := sql.Open("sqlite", a.path)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", a.path, err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("archive: %s: %w", a.path, err)
	}
	a.db = db
	return nil
}

// Close releases the database. The archive may be re-opened with Init.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	db := a.db
	a.db = nil
	if db == nil {
		return nil
	}
	return db.Close()
}

// SchemaVersion returns the version stamped in the database.
func (a *Archive) SchemaVersion(ctx context.Context) (int, error) {
	db, err := a.conn()
	if err != nil {
		return 0, err
	}
	return userVersion(ctx, db)
}

// StartRun registers a new run and returns its id.
func (a *Archive) StartRun(ctx context.Context, configYAML []byte) (string, error) {
	db, err := a.conn()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, config)
		VALUES (?, ?, ?)
	`, id, time.Now().UTC().Format(time.RFC3339), string(configYAML))
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordGeneration stores one generation summary for a run.
func (a *Archive) RecordGeneration(ctx context.Context, runID string, s ga.Summary) error {
	db, err := a.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, best_fitness, avg_fitness, worst_fitness)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best_fitness = excluded.best_fitness,
			avg_fitness = excluded.avg_fitness,
			worst_fitness = excluded.worst_fitness
	`, runID, s.Generation, s.BestFitness, s.AvgFitness, s.WorstFitness)
	return err
}

// Generations returns a run's summaries in generation order.
func (a *Archive) Generations(ctx context.Context, runID string) ([]ga.Summary, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT generation, best_fitness, avg_fitness, worst_fitness
		FROM generations WHERE run_id = ? ORDER BY generation
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ga.Summary
	for rows.Next() {
		var s ga.Summary
		if err := rows.Scan(&s.Generation, &s.BestFitness, &s.AvgFitness, &s.WorstFitness); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type championPayload struct {
	Topology []int     `json:"topology"`
	Genome   []float64 `json:"genome"`
}

// SaveChampion stores the run's current champion, replacing any earlier one.
func (a *Archive) SaveChampion(ctx context.Context, runID string, generation int, n *nn.Network) error {
	db, err := a.conn()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(championPayload{Topology: n.Topology(), Genome: n.Genome()})
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO champions (run_id, generation, fitness, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			generation = excluded.generation,
			fitness = excluded.fitness,
			payload = excluded.payload
	`, runID, generation, n.Fitness, payload)
	return err
}

// Champion loads the run's champion. ok is false when none was saved.
func (a *Archive) Champion(ctx context.Context, runID string) (n *nn.Network, generation int, ok bool, err error) {
	db, err := a.conn()
	if err != nil {
		return nil, 0, false, err
	}

	var (
		fitness float64
		payload []byte
	)
	err = db.QueryRowContext(ctx, `
		SELECT generation, fitness, payload FROM champions WHERE run_id = ?
	`, runID).Scan(&generation, &fitness, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}

	var p championPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, 0, false, fmt.Errorf("decode champion %s: %w", runID, err)
	}
	n, err = nn.FromGenome(p.Topology, p.Genome)
	if err != nil {
		return nil, 0, false, fmt.Errorf("decode champion %s: %w", runID, err)
	}
	n.Fitness = fitness
	return n, generation, true, nil
}

// RunSink records summaries for one run. It satisfies evo.SummarySink.
type RunSink struct {
	ctx     context.Context
	archive *Archive
	runID   string
}

// Sink binds the archive to runID.
func (a *Archive) Sink(ctx context.Context, runID string) *RunSink {
	return &RunSink{ctx: ctx, archive: a, runID: runID}
}

// WriteSummary stores s under the bound run.
func (s *RunSink) WriteSummary(summary ga.Summary) error {
	return s.archive.RecordGeneration(s.ctx, s.runID, summary)
}

func (a *Archive) conn() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return nil, errors.New("archive is not initialized")
	}
	return a.db, nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// migrate creates the tables of a fresh database and stamps it.
func migrate(ctx context.Context, db *sql.DB) error {
	v, err := userVersion(ctx, db)
	if err != nil {
		return err
	}
	switch {
	case v == schemaVersion:
		return nil
	case v > schemaVersion:
		return fmt.Errorf("%w: %d (newest known %d)", ErrSchemaVersion, v, schemaVersion)
	}

	if err := createTables(ctx, db); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			config TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			best_fitness REAL NOT NULL,
			avg_fitness REAL NOT NULL,
			worst_fitness REAL NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS champions (
			run_id TEXT PRIMARY KEY,
			generation INTEGER NOT NULL,
			fitness REAL NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
