package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

const sqliteSchema = `
PRAGMA journal_mode = WAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS cold_cases (
	case_number TEXT PRIMARY KEY,
	victim TEXT,
	age INTEGER,
	sex TEXT,
	race TEXT,
	incident_date TEXT NOT NULL,
	location TEXT NOT NULL,
	synopsis TEXT,
	status TEXT
);

CREATE INDEX IF NOT EXISTS idx_cold_cases_incident_date ON cold_cases(incident_date);
`

// sqliteDateLayout is how incident dates are stored; strftime can slice the
// year back out of it.
const sqliteDateLayout = "2006-01-02"

// SQLite implements ingest.RecordStore on an embedded database, the default
// for single-machine research runs.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file and bootstraps the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("db.path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// FindStatusByVictimYear implements the change detector's lookup.
func (s *SQLite) FindStatusByVictimYear(ctx context.Context, fragment string, year int) (ingest.Status, bool, error) {
	const query = `
SELECT status FROM cold_cases
WHERE LOWER(victim) LIKE '%' || LOWER(?) || '%'
AND CAST(strftime('%Y', incident_date) AS INTEGER) = ?
LIMIT 1`

	var status string
	err := s.db.QueryRowContext(ctx, query, fragment, year).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ingest.StatusUnknown, false, nil
	}
	if err != nil {
		return ingest.StatusUnknown, false, fmt.Errorf("query case status: %w", err)
	}
	return ingest.Status(status), true, nil
}

// Begin opens the run's write transaction.
func (s *SQLite) Begin(ctx context.Context) (ingest.RecordTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sqlite tx: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// Close closes the database file.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

// UpsertCase mirrors the Postgres merge semantics on the embedded store.
func (t *sqliteTx) UpsertCase(ctx context.Context, record ingest.CaseRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("upsert case: %w", err)
	}
	const query = `
INSERT INTO cold_cases (
	case_number, victim, age, sex, race, incident_date, location, synopsis, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (case_number) DO UPDATE SET
	victim = COALESCE(excluded.victim, cold_cases.victim),
	age = COALESCE(excluded.age, cold_cases.age),
	sex = COALESCE(excluded.sex, cold_cases.sex),
	race = COALESCE(excluded.race, cold_cases.race),
	incident_date = COALESCE(excluded.incident_date, cold_cases.incident_date),
	location = COALESCE(excluded.location, cold_cases.location),
	synopsis = COALESCE(excluded.synopsis, cold_cases.synopsis),
	status = COALESCE(excluded.status, cold_cases.status)`

	_, err := t.tx.ExecContext(ctx, query,
		record.CaseNumber,
		record.Victim,
		record.Age,
		record.Sex,
		record.Race,
		record.IncidentDate.Format(sqliteDateLayout),
		record.Location,
		record.Synopsis,
		string(record.Status),
	)
	if err != nil {
		return fmt.Errorf("upsert case %s: %w", record.CaseNumber, err)
	}
	return nil
}

func (t *sqliteTx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback sqlite tx: %w", err)
	}
	return nil
}
