// Package journal records the history of a simulation in a SQLite database.
// It uses the pure-Go modernc.org/sqlite driver, so no cgo is required.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/creachadair/stoplight"
)

// A Journal is a handle to an open history database. It is safe for
// concurrent use by multiple goroutines.
type Journal struct {
	db *sql.DB
}

// A Transition records one change of phase.
type Transition struct {
	ID    int64
	Phase stoplight.Phase
	At    time.Time
}

// A Crossing records one vehicle passing the light.
type Crossing struct {
	ID      int64
	Vehicle int
	Waited  time.Duration
	At      time.Time
}

// Open opens or creates the database at path, creating parent directories
// as needed, and ensures its schema is current. A leading "~" in path is
// replaced by the user's home directory.
func Open(path string) (*Journal, error) {
	if path != "" && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("journal: cannot expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1) // serialize writers; SQLite allows only one
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: cannot connect to database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migration failed: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phase TEXT NOT NULL,
			at_nanos INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS crossings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vehicle INTEGER NOT NULL,
			waited_nanos INTEGER NOT NULL,
			at_nanos INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_crossings_vehicle ON crossings(vehicle);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

// RecordTransition records that the light entered phase p at time at.
func (j *Journal) RecordTransition(ctx context.Context, p stoplight.Phase, at time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transitions (phase, at_nanos) VALUES (?, ?)`,
		p.String(), at.UnixNano())
	if err != nil {
		return fmt.Errorf("journal: record transition: %w", err)
	}
	return nil
}

// RecordCrossing records that vehicle crossed at time at, after waiting for
// the given duration.
func (j *Journal) RecordCrossing(ctx context.Context, vehicle int, waited time.Duration, at time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO crossings (vehicle, waited_nanos, at_nanos) VALUES (?, ?, ?)`,
		vehicle, int64(waited), at.UnixNano())
	if err != nil {
		return fmt.Errorf("journal: record crossing: %w", err)
	}
	return nil
}

// Transitions returns all recorded transitions in the order recorded.
func (j *Journal) Transitions(ctx context.Context) ([]Transition, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id, phase, at_nanos FROM transitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("journal: query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		var phase string
		var at int64
		if err := rows.Scan(&tr.ID, &phase, &at); err != nil {
			return nil, fmt.Errorf("journal: scan transition: %w", err)
		}
		if tr.Phase, err = stoplight.ParsePhase(phase); err != nil {
			return nil, fmt.Errorf("journal: transition %d: %w", tr.ID, err)
		}
		tr.At = time.Unix(0, at)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Crossings returns all recorded crossings in the order recorded.
func (j *Journal) Crossings(ctx context.Context) ([]Crossing, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, vehicle, waited_nanos, at_nanos FROM crossings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("journal: query crossings: %w", err)
	}
	defer rows.Close()

	var out []Crossing
	for rows.Next() {
		var c Crossing
		var waited, at int64
		if err := rows.Scan(&c.ID, &c.Vehicle, &waited, &at); err != nil {
			return nil, fmt.Errorf("journal: scan crossing: %w", err)
		}
		c.Waited = time.Duration(waited)
		c.At = time.Unix(0, at)
		out = append(out, c)
	}
	return out, rows.Err()
}
