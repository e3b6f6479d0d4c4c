package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

func newMockedPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	p, err := NewPostgresWithPool(mock, "cold_cases")
	require.NoError(t, err)
	return p, mock
}

func TestNewPostgresWithPoolRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresWithPool(mock, "cold_cases; DROP TABLE students")
	require.Error(t, err)
}

func TestPostgresEnsureSchema(t *testing.T) {
	t.Parallel()

	p, mock := newMockedPostgres(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cold_cases").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, p.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindStatusByVictimYear(t *testing.T) {
	t.Parallel()

	p, mock := newMockedPostgres(t)
	mock.ExpectQuery("SELECT status FROM cold_cases").
		WithArgs("Smith", 2014).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("cold"))

	status, found, err := p.FindStatusByVictimYear(context.Background(), "Smith", 2014)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, ingest.StatusCold, status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindStatusByVictimYearNoRow(t *testing.T) {
	t.Parallel()

	p, mock := newMockedPostgres(t)
	mock.ExpectQuery("SELECT status FROM cold_cases").
		WithArgs("Baker", 1999).
		WillReturnError(pgx.ErrNoRows)

	status, found, err := p.FindStatusByVictimYear(context.Background(), "Baker", 1999)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, ingest.StatusUnknown, status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertCommits(t *testing.T) {
	t.Parallel()

	p, mock := newMockedPostgres(t)
	record := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cold_cases").
		WithArgs(
			record.CaseNumber,
			record.Victim,
			record.Age,
			record.Sex,
			record.Race,
			record.IncidentDate,
			record.Location,
			record.Synopsis,
			string(record.Status),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := p.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertCase(ctx, record))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertFailureRollsBack(t *testing.T) {
	t.Parallel()

	p, mock := newMockedPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cold_cases").
		WillReturnError(pgx.ErrTxClosed)
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := p.Begin(ctx)
	require.NoError(t, err)
	require.Error(t, tx.UpsertCase(ctx, sampleRecord()))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	p, mock := newMockedPostgres(t)
	mock.ExpectBegin()

	ctx := context.Background()
	tx, err := p.Begin(ctx)
	require.NoError(t, err)

	// Missing required fields never reach the database.
	require.Error(t, tx.UpsertCase(ctx, ingest.CaseRecord{CaseNumber: "2014-00231"}))
}
