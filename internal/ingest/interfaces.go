package ingest

import "context"

// RecordStore is the durable home of case records. The pipeline only ever
// upserts records; it never deletes them.
type RecordStore interface {
	// FindStatusByVictimYear looks for a record whose victim name contains
	// the fragment (case-insensitive) and whose incident date falls in the
	// given year. It returns (StatusUnknown, false, nil) when nothing
	// matches.
	FindStatusByVictimYear(ctx context.Context, fragment string, year int) (Status, bool, error)

	// Begin opens the write transaction for one pipeline run.
	Begin(ctx context.Context) (RecordTx, error)

	Close() error
}

// RecordTx scopes the persistence phase of a run. Either every upsert in the
// run commits or none do; the pending queue is rewritten only after Commit
// succeeds.
type RecordTx interface {
	// UpsertCase inserts the record, or merges it into the existing row for
	// the same case number, preserving stored non-null fields when the
	// incoming value is nil.
	UpsertCase(ctx context.Context, record CaseRecord) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Recognizer converts fetched document bytes into a best-effort text
// representation. Implementations wrap external engines (PDF text layers,
// OCR binaries) and must honor context cancellation.
type Recognizer interface {
	Recognize(ctx context.Context, document []byte) (string, error)
}
