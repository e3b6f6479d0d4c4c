// Package fetch downloads queued documents into the local cache directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
	"github.com/sariahshoe/coldcase-ingest/internal/metrics"
)

// ErrContentTypeMismatch marks a response that did not declare the expected
// binary document type. The lead is skipped for this run and nothing is
// cached.
var ErrContentTypeMismatch = errors.New("unexpected content type")

// Config controls document downloads.
type Config struct {
	CacheDir    string
	UserAgent   string
	ContentType string
	Timeout     time.Duration
	// Delay is the static politeness floor between successive network
	// retrievals. It is not a rate-limit reaction.
	Delay time.Duration
}

// Fetcher retrieves document bytes for queued leads.
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Fetcher with a pooled transport.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.ContentType == "" {
		cfg.ContentType = "application/pdf"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(),
		},
		logger: logger,
	}
}

// CachePath returns where a lead's bytes live on disk.
func (f *Fetcher) CachePath(lead ingest.Lead) string {
	return filepath.Join(f.cfg.CacheDir, lead.DocumentID)
}

// FetchAll ensures local bytes exist for every lead and returns the subset
// that is ready to parse. Failures skip only the affected lead; it stays
// queued for the next run. Leads whose bytes are already cached cost no
// network call and no politeness delay.
func (f *Fetcher) FetchAll(ctx context.Context, leads map[string]ingest.Lead) (map[string]ingest.Lead, error) {
	if err := os.MkdirAll(f.cfg.CacheDir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	ids := make([]string, 0, len(leads))
	for id := range leads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ready := make(map[string]ingest.Lead)
	downloaded := false
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return ready, err
		}
		lead := leads[id]

		if _, err := os.Stat(f.CachePath(lead)); err == nil {
			metrics.DocumentFetched("cached")
			ready[id] = lead
			continue
		}

		if downloaded {
			if err := pause(ctx, f.cfg.Delay); err != nil {
				return ready, err
			}
		}

		err := f.fetchOne(ctx, lead)
		downloaded = true
		switch {
		case err == nil:
			metrics.DocumentFetched("fetched")
			ready[id] = lead
		case errors.Is(err, ErrContentTypeMismatch):
			metrics.DocumentFetched("content_type_mismatch")
			f.logger.Warn("skipping non-document response",
				zap.String("url", lead.SourceURL),
				zap.Error(err),
			)
		case errors.Is(err, context.Canceled):
			return ready, err
		default:
			metrics.DocumentFetched("network_error")
			f.logger.Warn("document fetch failed",
				zap.String("url", lead.SourceURL),
				zap.Error(err),
			)
		}
	}
	return ready, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, lead ingest.Lead) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lead.SourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", lead.SourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("get %s: unexpected status %d", lead.SourceURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, f.cfg.ContentType) {
		return fmt.Errorf("%w: got %q, want %q", ErrContentTypeMismatch, contentType, f.cfg.ContentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", lead.SourceURL, err)
	}

	if err := os.WriteFile(f.CachePath(lead), body, 0o600); err != nil {
		return fmt.Errorf("cache %s: %w", lead.DocumentID, err)
	}
	return nil
}

// pause sleeps for the politeness delay, aborting promptly on cancellation.
func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
