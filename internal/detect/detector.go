// Package detect decides whether a candidate document is already known to
// the record store, and under which status.
package detect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

// ErrUnparseableYearToken marks a document id whose leading token does not
// window into a plausible year. The crawler treats it as "record not found"
// so the lead is still emitted.
var ErrUnparseableYearToken = errors.New("unparseable year token")

// ParseYearToken windows a 2-digit or 4-digit numeric token into a calendar
// year: values below 10 land in the 2000s, 70-99 in the 1900s, and 4-digit
// values pass through. The 10-69 band is ambiguous for this source's naming
// convention and is rejected.
func ParseYearToken(token string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableYearToken, token)
	}

	switch {
	case year < 0:
		return 0, fmt.Errorf("%w: %q", ErrUnparseableYearToken, token)
	case year < 10:
		return 2000 + year, nil
	case year <= 69:
		return 0, fmt.Errorf("%w: %q is in the ambiguous 10-69 band", ErrUnparseableYearToken, token)
	case year <= 99:
		return 1900 + year, nil
	case year >= 1000 && year <= 9999:
		return year, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnparseableYearToken, token)
	}
}

// SplitDocumentID breaks an id like "14-Smith.pdf" into its year token and
// surname fragment. The fragment is everything between the first separator
// and the extension.
func SplitDocumentID(documentID, ext string) (yearToken, fragment string, ok bool) {
	yearToken, rest, found := strings.Cut(documentID, "-")
	if !found {
		return "", "", false
	}
	fragment = strings.TrimSuffix(rest, ext)
	if fragment == "" {
		return "", "", false
	}
	return yearToken, fragment, true
}

// Detector consults the record store to classify candidate documents.
type Detector struct {
	store ingest.RecordStore
	ext   string
}

// New builds a Detector querying the given store for documents carrying ext.
func New(store ingest.RecordStore, ext string) *Detector {
	return &Detector{store: store, ext: ext}
}

// Lookup reports whether a record matching the document id already exists
// and, if so, its stored status. Ids that cannot be parsed are reported as
// not found; only store failures surface as errors.
//
// The surname match is a case-insensitive substring search, so surnames
// that contain each other can collide. That fuzziness is inherited from the
// source data's naming convention.
func (d *Detector) Lookup(ctx context.Context, documentID string) (bool, ingest.Status, error) {
	yearToken, fragment, ok := SplitDocumentID(documentID, d.ext)
	if !ok {
		return false, ingest.StatusUnknown, nil
	}

	year, err := ParseYearToken(yearToken)
	if err != nil {
		return false, ingest.StatusUnknown, nil
	}

	status, found, err := d.store.FindStatusByVictimYear(ctx, fragment, year)
	if err != nil {
		return false, ingest.StatusUnknown, fmt.Errorf("find record for %s: %w", documentID, err)
	}
	if !found {
		return false, ingest.StatusUnknown, nil
	}
	return true, status, nil
}

// ShouldEmit applies the change rule: a lead is worth queueing when no
// record exists, or when the stored status differs from the status the
// candidate's URL implies (a status transition re-triggers processing).
func (d *Detector) ShouldEmit(ctx context.Context, documentID string, candidate ingest.Status) (bool, error) {
	exists, status, err := d.Lookup(ctx, documentID)
	if err != nil {
		return false, err
	}
	return !exists || status != candidate, nil
}
