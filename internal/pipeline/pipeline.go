// Package pipeline orchestrates the discovery, fetch, extraction, and
// persistence phases of one ingest run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/extract"
	"github.com/sariahshoe/coldcase-ingest/internal/fetch"
	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
	"github.com/sariahshoe/coldcase-ingest/internal/listing"
	"github.com/sariahshoe/coldcase-ingest/internal/metrics"
	"github.com/sariahshoe/coldcase-ingest/internal/pending"
)

// Config controls pipeline orchestration.
type Config struct {
	QueuePath string
	// Concurrency bounds the parallel extraction fan-out. Fetching stays
	// sequential because of the politeness floor.
	Concurrency int
}

// Pipeline wires the stages together around the durable pending queue.
type Pipeline struct {
	cfg     Config
	crawler *listing.Crawler
	fetcher *fetch.Fetcher
	engine  *extract.Engine
	store   ingest.RecordStore
	logger  *zap.Logger
}

// New builds a Pipeline.
func New(
	cfg Config,
	crawler *listing.Crawler,
	fetcher *fetch.Fetcher,
	engine *extract.Engine,
	store ingest.RecordStore,
	logger *zap.Logger,
) *Pipeline {
	if cfg.QueuePath == "" {
		cfg.QueuePath = pending.DefaultPath
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		crawler: crawler,
		fetcher: fetcher,
		engine:  engine,
		store:   store,
		logger:  logger,
	}
}

// Discover crawls the listing, merges new leads into the durable queue,
// downloads their bytes, and saves the queue. Re-adding a known id is a
// no-op overwrite carrying the latest status category.
func (p *Pipeline) Discover(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObservePhase("discover", time.Since(start)) }()

	queue, err := pending.Load(p.cfg.QueuePath)
	if err != nil {
		return fmt.Errorf("load pending queue: %w", err)
	}

	found, err := p.crawler.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover leads: %w", err)
	}
	for id, lead := range found {
		queue[id] = lead
		metrics.LeadDiscovered(string(lead.Status))
	}
	p.logger.Info("leads discovered",
		zap.Int("new", len(found)),
		zap.Int("queued", len(queue)),
	)

	// Persist the queue before fetching so a crash mid-download loses no
	// lead identities.
	if err := pending.Save(p.cfg.QueuePath, queue); err != nil {
		return fmt.Errorf("save pending queue: %w", err)
	}

	ready, err := p.fetcher.FetchAll(ctx, queue)
	if err != nil {
		return fmt.Errorf("fetch documents: %w", err)
	}
	p.logger.Info("documents ready to parse",
		zap.Int("ready", len(ready)),
		zap.Int("queued", len(queue)),
	)
	return nil
}

// parseResult is the outcome of extracting one queued lead.
type parseResult struct {
	documentID string
	record     ingest.CaseRecord
	warnings   []ingest.Warning
	err        error
}

// Parse drains the queue through the extraction engine, persists successful
// records in one transaction, and removes only the parsed leads from the
// queue. Leads that fail stay queued for the next run; a store failure
// rolls everything back and leaves the queue untouched.
func (p *Pipeline) Parse(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObservePhase("parse", time.Since(start)) }()

	queue, err := pending.Load(p.cfg.QueuePath)
	if err != nil {
		return fmt.Errorf("load pending queue: %w", err)
	}
	if len(queue) == 0 {
		p.logger.Info("pending queue is empty")
		return nil
	}

	results := p.extractAll(ctx, queue)

	var processed []string
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record store tx: %w", err)
	}
	for _, res := range results {
		if res.err != nil {
			metrics.ExtractionResult(extract.FailureLabel(res.err))
			p.logger.Warn("extraction failed",
				zap.String("document", res.documentID),
				zap.Error(res.err),
			)
			continue
		}
		metrics.ExtractionResult("ok")
		for _, w := range res.warnings {
			metrics.NormalizationWarning(w.Field)
		}
		if err := tx.UpsertCase(ctx, res.record); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				p.logger.Error("rollback failed", zap.Error(rbErr))
			}
			return fmt.Errorf("upsert case %s: %w", res.record.CaseNumber, err)
		}
		metrics.RecordUpserted()
		processed = append(processed, res.documentID)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record store tx: %w", err)
	}

	// The queue shrinks only after the commit succeeded, so a crash between
	// the two re-parses instead of losing leads. The upsert is idempotent,
	// which makes the replay safe.
	pending.Remove(queue, processed)
	if err := pending.Save(p.cfg.QueuePath, queue); err != nil {
		return fmt.Errorf("save pending queue: %w", err)
	}

	p.logger.Info("parse phase complete",
		zap.Int("persisted", len(processed)),
		zap.Int("remaining", len(queue)),
	)
	return nil
}

// Run executes a full discover-then-parse cycle.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("pipeline run starting")

	if err := p.Discover(ctx); err != nil {
		return fmt.Errorf("discover phase: %w", err)
	}
	if err := p.Parse(ctx); err != nil {
		return fmt.Errorf("parse phase: %w", err)
	}
	logger.Info("pipeline run finished")
	return nil
}

// extractAll fans queued leads out over a bounded worker pool. Each lead is
// independent; only the shared results slice needs the lock. Leads whose
// bytes are not cached yet are skipped silently; the next discover run will
// fetch them.
func (p *Pipeline) extractAll(ctx context.Context, queue map[string]ingest.Lead) []parseResult {
	ids := make([]string, 0, len(queue))
	for id := range queue {
		if _, err := os.Stat(p.fetcher.CachePath(queue[id])); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		mu      sync.Mutex
		results []parseResult
		wg      sync.WaitGroup
	)
	jobs := make(chan string)

	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				res := p.extractOne(ctx, queue[id])
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].documentID < results[j].documentID
	})
	return results
}

func (p *Pipeline) extractOne(ctx context.Context, lead ingest.Lead) parseResult {
	document, err := os.ReadFile(p.fetcher.CachePath(lead))
	if err != nil {
		return parseResult{documentID: lead.DocumentID, err: fmt.Errorf("read cached document: %w", err)}
	}
	record, warnings, err := p.engine.ExtractRecord(ctx, document, lead.Status)
	return parseResult{
		documentID: lead.DocumentID,
		record:     record,
		warnings:   warnings,
		err:        err,
	}
}
