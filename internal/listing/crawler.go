// Package listing enumerates candidate documents from the agency's remote
// listing page and turns them into leads worth queueing.
package listing

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/detect"
	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

// Config controls the listing crawl.
type Config struct {
	ListingURL  string
	UserAgent   string
	DocumentExt string
	Timeout     time.Duration
}

// Crawler scans the listing page for document links, classifies each by
// status category, and consults the change detector before emitting leads.
type Crawler struct {
	cfg      Config
	detector *detect.Detector
	logger   *zap.Logger
}

// New builds a Crawler.
func New(cfg Config, detector *detect.Detector, logger *zap.Logger) *Crawler {
	if cfg.DocumentExt == "" {
		cfg.DocumentExt = ".pdf"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{cfg: cfg, detector: detector, logger: logger}
}

// ClassifyStatus infers the status category from the document URL path.
func ClassifyStatus(documentURL string) ingest.Status {
	switch {
	case strings.Contains(documentURL, "solved"):
		return ingest.StatusSolved
	case strings.Contains(documentURL, "warrant"):
		return ingest.StatusWarrant
	default:
		return ingest.StatusCold
	}
}

// Discover enumerates the listing and returns the leads that are new or
// whose status changed. A network failure is non-fatal: it logs and returns
// an empty set so a scheduled re-run can retry. Only record store failures
// surface as errors.
func (c *Crawler) Discover(ctx context.Context) (map[string]ingest.Lead, error) {
	links, err := c.collectLinks(ctx)
	if err != nil {
		c.logger.Warn("listing retrieval failed", zap.String("url", c.cfg.ListingURL), zap.Error(err))
		return map[string]ingest.Lead{}, nil
	}
	if len(links) == 0 {
		c.logger.Warn("no document links found on listing page", zap.String("url", c.cfg.ListingURL))
	}

	leads := make(map[string]ingest.Lead)
	for _, link := range links {
		documentID, ok := c.documentID(link)
		if !ok {
			continue
		}
		status := ClassifyStatus(link)

		emit, err := c.detector.ShouldEmit(ctx, documentID, status)
		if err != nil {
			return nil, fmt.Errorf("change detection for %s: %w", documentID, err)
		}
		if !emit {
			continue
		}

		lead := ingest.Lead{
			DocumentID: documentID,
			SourceURL:  link,
			Status:     status,
		}
		if err := lead.Validate(); err != nil {
			c.logger.Warn("skipping malformed lead", zap.String("url", link), zap.Error(err))
			continue
		}
		// Last classification wins when the same id shows up twice.
		leads[documentID] = lead
	}
	return leads, nil
}

// collectLinks fetches the listing page and gathers every anchor href that
// ends with the expected document extension.
func (c *Crawler) collectLinks(ctx context.Context) ([]string, error) {
	collector := colly.NewCollector(colly.UserAgent(c.cfg.UserAgent))
	collector.SetRequestTimeout(c.cfg.Timeout)

	var (
		links    []string
		fetchErr error
	)
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if href == "" {
			return
		}
		if strings.HasSuffix(strings.ToLower(href), c.cfg.DocumentExt) {
			links = append(links, href)
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(c.cfg.ListingURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("listing crawl canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit listing: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("listing response: %w", fetchErr)
		}
		return links, nil
	}
}

// documentID derives the queue identity from the trailing path segment.
func (c *Crawler) documentID(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	id := path.Base(u.Path)
	if id == "" || id == "." || id == "/" {
		return "", false
	}
	return id, true
}
