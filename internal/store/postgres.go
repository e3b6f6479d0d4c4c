package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool.
type PostgresConfig struct {
	DSN      string
	Table    string
	MaxConns int32
}

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Postgres implements ingest.RecordStore on a pgx connection pool.
type Postgres struct {
	pool  pgxPool
	table string
}

// NewPostgres connects a pool and pings it to fail fast on a bad DSN.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "cold_cases"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// NewPostgresWithPool constructs a store from an existing pool (primarily
// for testing).
func NewPostgresWithPool(pool pgxPool, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "cold_cases"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// EnsureSchema creates the case table when it does not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	case_number TEXT PRIMARY KEY,
	victim TEXT,
	age INTEGER,
	sex TEXT,
	race TEXT,
	incident_date DATE NOT NULL,
	location TEXT NOT NULL,
	synopsis TEXT,
	status TEXT
)`, p.table)
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// FindStatusByVictimYear implements the change detector's lookup: substring
// match on the victim name, incident year equality.
func (p *Postgres) FindStatusByVictimYear(ctx context.Context, fragment string, year int) (ingest.Status, bool, error) {
	query := fmt.Sprintf(`
SELECT status FROM %s
WHERE victim ILIKE '%%' || $1 || '%%'
AND EXTRACT(YEAR FROM incident_date) = $2
LIMIT 1`, p.table)

	var status string
	err := p.pool.QueryRow(ctx, query, fragment, year).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.StatusUnknown, false, nil
	}
	if err != nil {
		return ingest.StatusUnknown, false, fmt.Errorf("query case status: %w", err)
	}
	return ingest.Status(status), true, nil
}

// Begin opens the run's write transaction.
func (p *Postgres) Begin(ctx context.Context) (ingest.RecordTx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin postgres tx: %w", err)
	}
	return &postgresTx{tx: tx, table: p.table}, nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}

type postgresTx struct {
	tx    pgx.Tx
	table string
}

// UpsertCase merges the record into the table. COALESCE on the EXCLUDED
// columns keeps stored values when the incoming field is null, which makes
// re-extraction of the same document convergent.
func (t *postgresTx) UpsertCase(ctx context.Context, record ingest.CaseRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("upsert case: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (
	case_number, victim, age, sex, race, incident_date, location, synopsis, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (case_number) DO UPDATE SET
	victim = COALESCE(EXCLUDED.victim, %[1]s.victim),
	age = COALESCE(EXCLUDED.age, %[1]s.age),
	sex = COALESCE(EXCLUDED.sex, %[1]s.sex),
	race = COALESCE(EXCLUDED.race, %[1]s.race),
	incident_date = COALESCE(EXCLUDED.incident_date, %[1]s.incident_date),
	location = COALESCE(EXCLUDED.location, %[1]s.location),
	synopsis = COALESCE(EXCLUDED.synopsis, %[1]s.synopsis),
	status = COALESCE(EXCLUDED.status, %[1]s.status)`, t.table)

	_, err := t.tx.Exec(ctx, query,
		record.CaseNumber,
		record.Victim,
		record.Age,
		record.Sex,
		record.Race,
		record.IncidentDate,
		record.Location,
		record.Synopsis,
		string(record.Status),
	)
	if err != nil {
		return fmt.Errorf("upsert case %s: %w", record.CaseNumber, err)
	}
	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit postgres tx: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback postgres tx: %w", err)
	}
	return nil
}
