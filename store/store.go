// Package store keeps compiled programs and a log of their runs in SQLite.
//
// Programs are cached under the hash of their source text, so a script that
// has not changed is not compiled again. Each run records the seed it used,
// which is enough to reproduce it exactly.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/dicescript/vm"
	"github.com/chazu/dicescript/vm/dist"
)

// ErrNotFound indicates no cached program exists for a source hash.
var ErrNotFound = errors.New("program not found")

const schema = `
CREATE TABLE IF NOT EXISTS programs (
	source_hash  TEXT PRIMARY KEY,
	program_hash TEXT NOT NULL,
	data         BLOB NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	program_hash TEXT NOT NULL,
	seed         INTEGER NOT NULL,
	cardinality  INTEGER NOT NULL,
	total        INTEGER NOT NULL,
	ran_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_program ON runs (program_hash, ran_at);
`

// Store is a SQLite-backed program cache and run log.
type Store struct {
	db  *sql.DB
	now func() time.Time
	log commonlog.Logger
}

// Run is one recorded execution of a program.
type Run struct {
	ID          string
	ProgramHash string
	Seed        int64
	Cardinality int
	Total       int
	At          time.Time
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{
		db:  db,
		now: time.Now,
		log: commonlog.GetLogger("dicescript.store"),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LookupProgram returns the cached program compiled from the source with
// the given hash.
func (s *Store) LookupProgram(ctx context.Context, sourceHash string) (*vm.Program, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM programs WHERE source_hash = ?", sourceHash,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	p, err := dist.UnmarshalProgram(data)
	if err != nil {
		return nil, fmt.Errorf("decoding program %s: %w", sourceHash, err)
	}
	s.log.Debugf("program cache hit for %s", sourceHash)
	return p, nil
}

// SaveProgram caches p under sourceHash, replacing any earlier entry, and
// returns the program's own content hash.
func (s *Store) SaveProgram(ctx context.Context, sourceHash string, p *vm.Program) (string, error) {
	data, err := dist.MarshalProgram(p)
	if err != nil {
		return "", err
	}
	programHash, err := dist.ProgramHash(p)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO programs (source_hash, program_hash, data, created_at)
		 VALUES (?, ?, ?, ?)`,
		sourceHash, programHash, data, toMillis(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("saving program: %w", err)
	}
	return programHash, nil
}

// RecordRun appends a run to the log. A missing ID or timestamp is filled in;
// the stored run is returned.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	if r.ProgramHash == "" {
		return Run{}, fmt.Errorf("program hash is required")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.At.IsZero() {
		r.At = s.now()
	}
	r.At = fromMillis(toMillis(r.At))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, program_hash, seed, cardinality, total, ran_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProgramHash, r.Seed, r.Cardinality, r.Total, toMillis(r.At),
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	return r, nil
}

// Runs returns the recorded runs of a program, oldest first.
func (s *Store) Runs(ctx context.Context, programHash string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, program_hash, seed, cardinality, total, ran_at
		 FROM runs WHERE program_hash = ? ORDER BY ran_at, id`,
		programHash,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r  Run
			at int64
		)
		if err := rows.Scan(&r.ID, &r.ProgramHash, &r.Seed, &r.Cardinality, &r.Total, &at); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.At = fromMillis(at)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}
