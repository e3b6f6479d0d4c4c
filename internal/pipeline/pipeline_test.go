package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/detect"
	"github.com/sariahshoe/coldcase-ingest/internal/extract"
	"github.com/sariahshoe/coldcase-ingest/internal/fetch"
	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
	"github.com/sariahshoe/coldcase-ingest/internal/listing"
	"github.com/sariahshoe/coldcase-ingest/internal/pending"
	"github.com/sariahshoe/coldcase-ingest/internal/store"
)

const goodSummary = `Case #2014-00231
Victim: John Smith
Age: 23
Sex: Male
Race: White
Date: 03-14-2014
Location: Denver, CO
Synopsis: Body located near the river trail.

`

const undatedSummary = `Case #1999-00412
Victim: Alice Baker
Location: Aurora, CO
`

// echoRecognizer treats the document bytes as already-recognized text, which
// lets pipeline tests skip real PDF recognition.
type echoRecognizer struct{}

func (echoRecognizer) Recognize(_ context.Context, document []byte) (string, error) {
	return string(document), nil
}

type testHarness struct {
	pipe      *Pipeline
	memory    *store.Memory
	queuePath string
	cacheDir  string
}

func newHarness(t *testing.T, listingURL string) *testHarness {
	t.Helper()

	dir := t.TempDir()
	memory := store.NewMemory()
	cacheDir := filepath.Join(dir, "coldCasePDFs")
	queuePath := filepath.Join(dir, "pending_cases.json")

	crawler := listing.New(listing.Config{
		ListingURL:  listingURL,
		UserAgent:   "Cold Case Research Bot (sariahshoe@gmail.com)",
		DocumentExt: ".pdf",
		Timeout:     5 * time.Second,
	}, detect.New(memory, ".pdf"), zap.NewNop())

	fetcher := fetch.New(fetch.Config{
		CacheDir:    cacheDir,
		UserAgent:   "Cold Case Research Bot (sariahshoe@gmail.com)",
		ContentType: "application/pdf",
		Delay:       0,
	}, zap.NewNop())

	engine := extract.New(echoRecognizer{}, zap.NewNop())

	pipe := New(Config{QueuePath: queuePath, Concurrency: 2},
		crawler, fetcher, engine, memory, zap.NewNop())

	return &testHarness{
		pipe:      pipe,
		memory:    memory,
		queuePath: queuePath,
		cacheDir:  cacheDir,
	}
}

// seedQueue stores a lead in the durable queue and optionally drops its
// document bytes into the cache, as a finished discover phase would.
func (h *testHarness) seedQueue(t *testing.T, lead ingest.Lead, document string) {
	t.Helper()

	queue, err := pending.Load(h.queuePath)
	require.NoError(t, err)
	queue[lead.DocumentID] = lead
	require.NoError(t, pending.Save(h.queuePath, queue))

	if document != "" {
		require.NoError(t, os.MkdirAll(h.cacheDir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(h.cacheDir, lead.DocumentID), []byte(document), 0o600))
	}
}

func (h *testHarness) queue(t *testing.T) map[string]ingest.Lead {
	t.Helper()
	queue, err := pending.Load(h.queuePath)
	require.NoError(t, err)
	return queue
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/warrant/2014-Smith.pdf">Smith</a></body></html>`)
		case "/warrant/2014-Smith.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, goodSummary)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL+"/")
	require.NoError(t, h.pipe.Run(context.Background()))

	record, ok := h.memory.Get("2014-00231")
	require.True(t, ok)
	require.NotNil(t, record.Victim)
	assert.Equal(t, "John Smith", *record.Victim)
	assert.Equal(t, time.Date(2014, 3, 14, 0, 0, 0, 0, time.UTC), record.IncidentDate)
	assert.Equal(t, "Denver, CO", record.Location)
	assert.Equal(t, ingest.StatusWarrant, record.Status)

	// The parsed lead left the queue; the bytes stay cached.
	assert.Empty(t, h.queue(t))
	_, err := os.Stat(filepath.Join(h.cacheDir, "2014-Smith.pdf"))
	assert.NoError(t, err)

	// A second run sees the persisted record, detects no change, and keeps
	// the queue empty.
	require.NoError(t, h.pipe.Run(context.Background()))
	assert.Empty(t, h.queue(t))
	assert.Equal(t, 1, h.memory.Len())
}

func TestRunKeepsFailedFetchQueued(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/unsolved/2014-Smith.pdf">Smith</a></body></html>`)
			return
		}
		http.Error(w, "storage offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL+"/")
	require.NoError(t, h.pipe.Run(context.Background()))

	// Nothing persisted, and the lead is still queued for the next run.
	assert.Zero(t, h.memory.Len())
	assert.Contains(t, h.queue(t), "2014-Smith.pdf")
}

func TestParseKeepsUnparseableLeadQueued(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "http://unused.invalid/")
	h.seedQueue(t, ingest.Lead{
		DocumentID: "1999-Baker.pdf",
		SourceURL:  "https://example.org/unsolved/1999-Baker.pdf",
		Status:     ingest.StatusCold,
	}, undatedSummary)

	require.NoError(t, h.pipe.Parse(context.Background()))

	// A document with no incident date never reaches the store, and its
	// lead survives for a retry after the scan improves.
	assert.Zero(t, h.memory.Len())
	assert.Contains(t, h.queue(t), "1999-Baker.pdf")
}

func TestParseRemovesOnlyParsedLeads(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "http://unused.invalid/")
	h.seedQueue(t, ingest.Lead{
		DocumentID: "2014-Smith.pdf",
		SourceURL:  "https://example.org/unsolved/2014-Smith.pdf",
		Status:     ingest.StatusCold,
	}, goodSummary)
	h.seedQueue(t, ingest.Lead{
		DocumentID: "1999-Baker.pdf",
		SourceURL:  "https://example.org/unsolved/1999-Baker.pdf",
		Status:     ingest.StatusCold,
	}, undatedSummary)

	require.NoError(t, h.pipe.Parse(context.Background()))

	assert.Equal(t, 1, h.memory.Len())
	queue := h.queue(t)
	assert.NotContains(t, queue, "2014-Smith.pdf")
	assert.Contains(t, queue, "1999-Baker.pdf")
}

func TestParseStoreFailureLeavesQueueIntact(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "http://unused.invalid/")
	h.memory.UpsertErr = errors.New("connection reset")
	h.seedQueue(t, ingest.Lead{
		DocumentID: "2014-Smith.pdf",
		SourceURL:  "https://example.org/unsolved/2014-Smith.pdf",
		Status:     ingest.StatusCold,
	}, goodSummary)

	err := h.pipe.Parse(context.Background())
	require.Error(t, err)

	// The transaction rolled back and the queue did not shrink.
	assert.Zero(t, h.memory.Len())
	assert.Contains(t, h.queue(t), "2014-Smith.pdf")
}

func TestParseSkipsLeadsWithoutCachedBytes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "http://unused.invalid/")
	h.seedQueue(t, ingest.Lead{
		DocumentID: "2014-Smith.pdf",
		SourceURL:  "https://example.org/unsolved/2014-Smith.pdf",
		Status:     ingest.StatusCold,
	}, "")

	require.NoError(t, h.pipe.Parse(context.Background()))

	assert.Zero(t, h.memory.Len())
	assert.Contains(t, h.queue(t), "2014-Smith.pdf")
}
