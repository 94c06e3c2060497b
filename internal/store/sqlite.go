package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // register sqlite:// for migrate
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/theirongolddev/atlas/internal/rules"

	_ "modernc.org/sqlite" // register sqlite driver
)

// StateKey is the kv key holding the serialized document.
const StateKey = "atlas-state"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite persists the document as a single JSON blob and keeps a history of
// rules engine runs.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath and applies pending
// migrations.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("migrating state db: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	return &SQLite{db: db}, nil
}

func runMigrations(dbPath string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+dbPath)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns the saved document, or nil if none was saved.
func (s *SQLite) Load() ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", StateKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	return data, nil
}

// Save replaces the saved document.
func (s *SQLite) Save(data []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		StateKey, data, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Clear removes the saved document so the next load falls back to demo data.
func (s *SQLite) Clear() error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", StateKey)
	return err
}

// RuleRun is one row of the rules engine history.
type RuleRun struct {
	ID      int64
	RanAt   time.Time
	Changes int
	ByPass  map[string]int
	Report  rules.Report
}

// RecordRun appends a rules engine run to the history.
func (s *SQLite) RecordRun(r rules.Report) error {
	byPass, err := json.Marshal(r.ByPass())
	if err != nil {
		return err
	}
	report, err := json.Marshal(r)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO rule_runs (ran_at, changes, by_pass, report) VALUES (?, ?, ?, ?)`,
		r.RanAt.UTC().Format(time.RFC3339Nano), len(r.Changes), string(byPass), string(report))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RuleRuns returns up to limit runs, most recent first. limit <= 0 returns all.
func (s *SQLite) RuleRuns(limit int) ([]RuleRun, error) {
	q := "SELECT id, ran_at, changes, by_pass, report FROM rule_runs ORDER BY id DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []RuleRun
	for rows.Next() {
		var r RuleRun
		var ranAt, byPass, report string
		if err := rows.Scan(&r.ID, &ranAt, &r.Changes, &byPass, &report); err != nil {
			return nil, err
		}
		r.RanAt, _ = time.Parse(time.RFC3339Nano, ranAt)
		if err := json.Unmarshal([]byte(byPass), &r.ByPass); err != nil {
			return nil, fmt.Errorf("decoding run %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(report), &r.Report); err != nil {
			return nil, fmt.Errorf("decoding run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
