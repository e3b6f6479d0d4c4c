package store

import (
	"context"
	"strings"
	"sync"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

// Memory is an in-memory record store for tests and dry runs. It applies
// the same null-preserving merge as the SQL providers, and stages writes in
// a transaction so rollback really discards them.
type Memory struct {
	mu      sync.RWMutex
	records map[string]ingest.CaseRecord

	// UpsertErr, when set, is returned by every transactional upsert. Tests
	// use it to exercise the pipeline's fatal-rollback path.
	UpsertErr error
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]ingest.CaseRecord)}
}

// FindStatusByVictimYear implements the change detector's lookup.
func (m *Memory) FindStatusByVictimYear(_ context.Context, fragment string, year int) (ingest.Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(fragment)
	for _, record := range m.records {
		if record.Victim == nil {
			continue
		}
		if record.Year() != year {
			continue
		}
		if strings.Contains(strings.ToLower(*record.Victim), needle) {
			return record.Status, true, nil
		}
	}
	return ingest.StatusUnknown, false, nil
}

// Begin stages a transaction against the store.
func (m *Memory) Begin(_ context.Context) (ingest.RecordTx, error) {
	return &memoryTx{store: m}, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

// Get returns the stored record for a case number, if any.
func (m *Memory) Get(caseNumber string) (ingest.CaseRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[caseNumber]
	return record, ok
}

// Len reports how many records the store holds.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Put seeds a record directly, bypassing transactions. Test setup only.
func (m *Memory) Put(record ingest.CaseRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.CaseNumber] = record
}

type memoryTx struct {
	store  *Memory
	staged []ingest.CaseRecord
	done   bool
}

func (t *memoryTx) UpsertCase(_ context.Context, record ingest.CaseRecord) error {
	if t.store.UpsertErr != nil {
		return t.store.UpsertErr
	}
	if err := record.Validate(); err != nil {
		return err
	}
	t.staged = append(t.staged, record)
	return nil
}

func (t *memoryTx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, record := range t.staged {
		t.store.records[record.CaseNumber] = merge(t.store.records[record.CaseNumber], record)
	}
	return nil
}

func (t *memoryTx) Rollback(_ context.Context) error {
	t.done = true
	t.staged = nil
	return nil
}

// merge applies the null-preserving update onto an existing record. A zero
// existing record (no prior row) takes the incoming record wholesale.
func merge(existing, incoming ingest.CaseRecord) ingest.CaseRecord {
	if existing.CaseNumber == "" {
		return incoming
	}
	if incoming.Victim != nil {
		existing.Victim = incoming.Victim
	}
	if incoming.Age != nil {
		existing.Age = incoming.Age
	}
	if incoming.Sex != "" {
		existing.Sex = incoming.Sex
	}
	if incoming.Race != "" {
		existing.Race = incoming.Race
	}
	if !incoming.IncidentDate.IsZero() {
		existing.IncidentDate = incoming.IncidentDate
	}
	if incoming.Location != "" {
		existing.Location = incoming.Location
	}
	if incoming.Synopsis != nil {
		existing.Synopsis = incoming.Synopsis
	}
	if incoming.Status != "" {
		existing.Status = incoming.Status
	}
	return existing
}
