package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
	"github.com/sariahshoe/coldcase-ingest/internal/store"
)

func TestParseYearTokenWindowing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token   string
		year    int
		wantErr bool
	}{
		{token: "0", year: 2000},
		{token: "5", year: 2005},
		{token: "09", year: 2009},
		{token: "10", wantErr: true},
		{token: "14", wantErr: true},
		{token: "69", wantErr: true},
		{token: "70", year: 1970},
		{token: "85", year: 1985},
		{token: "99", year: 1999},
		{token: "1978", year: 1978},
		{token: "2014", year: 2014},
		{token: "123", wantErr: true},
		{token: "abc", wantErr: true},
		{token: "", wantErr: true},
		{token: "-4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			year, err := ParseYearToken(tt.token)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnparseableYearToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.year, year)
		})
	}
}

func TestSplitDocumentID(t *testing.T) {
	t.Parallel()

	yearToken, fragment, ok := SplitDocumentID("2014-Smith.pdf", ".pdf")
	require.True(t, ok)
	assert.Equal(t, "2014", yearToken)
	assert.Equal(t, "Smith", fragment)

	// Surname with an internal hyphen keeps everything after the first cut.
	_, fragment, ok = SplitDocumentID("85-Garcia-Lopez.pdf", ".pdf")
	require.True(t, ok)
	assert.Equal(t, "Garcia-Lopez", fragment)

	_, _, ok = SplitDocumentID("noseparator.pdf", ".pdf")
	assert.False(t, ok)
}

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	victim := "John Smith"
	m := store.NewMemory()
	m.Put(ingest.CaseRecord{
		CaseNumber:   "2014-00231",
		Victim:       &victim,
		Sex:          "M",
		Race:         "Other",
		IncidentDate: time.Date(2014, 3, 14, 0, 0, 0, 0, time.UTC),
		Location:     "Denver, CO",
		Status:       ingest.StatusCold,
	})
	return m
}

func TestLookupFindsKnownRecord(t *testing.T) {
	t.Parallel()

	d := New(seededStore(t), ".pdf")

	exists, status, err := d.Lookup(context.Background(), "2014-Smith.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, ingest.StatusCold, status)
}

func TestLookupIsDeterministic(t *testing.T) {
	t.Parallel()

	d := New(seededStore(t), ".pdf")

	for i := 0; i < 3; i++ {
		exists, status, err := d.Lookup(context.Background(), "2014-Smith.pdf")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, ingest.StatusCold, status)
	}
}

func TestLookupUnparseableTokenIsNotFound(t *testing.T) {
	t.Parallel()

	d := New(seededStore(t), ".pdf")

	// 14 falls in the rejected 10-69 band, so the lookup cannot run and the
	// candidate reads as unknown.
	exists, status, err := d.Lookup(context.Background(), "14-Smith.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, ingest.StatusUnknown, status)
}

func TestShouldEmit(t *testing.T) {
	t.Parallel()

	d := New(seededStore(t), ".pdf")
	ctx := context.Background()

	// Unknown document: emit.
	emit, err := d.ShouldEmit(ctx, "1999-Baker.pdf", ingest.StatusCold)
	require.NoError(t, err)
	assert.True(t, emit)

	// Known document, same status: skip.
	emit, err = d.ShouldEmit(ctx, "2014-Smith.pdf", ingest.StatusCold)
	require.NoError(t, err)
	assert.False(t, emit)

	// Known document, status transition: emit again.
	emit, err = d.ShouldEmit(ctx, "2014-Smith.pdf", ingest.StatusSolved)
	require.NoError(t, err)
	assert.True(t, emit)
}
