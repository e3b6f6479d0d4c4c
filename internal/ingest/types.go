// Package ingest defines the core types shared across the pipeline stages.
package ingest

import (
	"fmt"
	"strings"
	"time"
)

// Status is the coarse case disposition inferred from the source URL.
type Status string

// Status values persisted in the record store. StatusUnknown is never
// persisted; it is the change detector's answer when no record matches.
const (
	StatusSolved  Status = "solved"
	StatusWarrant Status = "warrant"
	StatusCold    Status = "cold"
	StatusUnknown Status = "N/A"
)

// Lead is a candidate document identified on the listing page but not yet
// fully processed into a record. The JSON tags match the on-disk pending
// queue format.
type Lead struct {
	DocumentID string `json:"name"`
	SourceURL  string `json:"url"`
	Status     Status `json:"source_status"`
}

// Validate checks that the lead is well formed enough to queue.
func (l Lead) Validate() error {
	if strings.TrimSpace(l.DocumentID) == "" {
		return fmt.Errorf("lead document id is required")
	}
	if strings.TrimSpace(l.SourceURL) == "" {
		return fmt.Errorf("lead source url is required")
	}
	switch l.Status {
	case StatusSolved, StatusWarrant, StatusCold:
		return nil
	default:
		return fmt.Errorf("lead status %q is not a source status", l.Status)
	}
}

// CaseRecord is the normalized result of extracting one document. Pointer
// fields are optional: a nil value means the document did not yield the
// field, and the record store must not overwrite a known value with it.
type CaseRecord struct {
	CaseNumber   string
	Victim       *string
	Age          *int
	Sex          string
	Race         string
	IncidentDate time.Time
	Location     string
	Synopsis     *string
	Status       Status
}

// Validate enforces the persistence invariant: a record missing its case
// number, incident date, or location is rejected before it reaches a store.
func (r CaseRecord) Validate() error {
	if strings.TrimSpace(r.CaseNumber) == "" {
		return fmt.Errorf("case number is required")
	}
	if r.IncidentDate.IsZero() {
		return fmt.Errorf("incident date is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("location is required")
	}
	return nil
}

// Year returns the calendar year of the incident.
func (r CaseRecord) Year() int {
	return r.IncidentDate.Year()
}

// Warning reports a normalization fallback: a raw recognized value that did
// not map into the canonical vocabulary and was replaced by the field's
// default. Warnings are non-fatal; the record still persists.
type Warning struct {
	Field      string
	RawValue   string
	CaseNumber string
}

func (w Warning) String() string {
	return fmt.Sprintf("case=%s field=%s raw=%q", w.CaseNumber, w.Field, w.RawValue)
}
