// Package scraper fetches a page, extracts its content and persists the
// outcome as a scrape record.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/pagescrape/models"
	"github.com/use-agent/pagescrape/store"
	"github.com/use-agent/pagescrape/webhook"
)

// ContentExtractor turns fetched HTML into structured content.
type ContentExtractor interface {
	Extract(rawHTML []byte, baseURL string) *models.ScrapeResult
	Markdown(rawHTML []byte, baseURL string) (string, error)
}

// Notifier receives completion events.
type Notifier interface {
	Notify(event *webhook.Event)
}

// Scraper runs the validate, fetch, extract and persist pipeline.
// It holds only injected collaborators and is safe for concurrent use.
type Scraper struct {
	fetcher   PageFetcher
	extractor ContentExtractor
	store     store.Store
	notifier  Notifier
	now       func() time.Time
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithNotifier sends scrape.succeeded / scrape.failed events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Scraper) { s.notifier = n }
}

// WithClock overrides the clock used for ScrapedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a Scraper.
func New(fetcher PageFetcher, extractor ContentExtractor, st store.Store, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:   fetcher,
		extractor: extractor,
		store:     st,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape validates rawURL, fetches and extracts it, and persists the outcome.
//
// Invalid input returns an INVALID_INPUT error and creates no record. A fetch
// failure returns the error record together with the fetch error. Otherwise
// the successful record is returned.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*models.ScrapeRecord, error) {
	rec, _, err := s.scrape(ctx, rawURL, false)
	return rec, err
}

// ScrapeWithMarkdown is Scrape plus a Markdown rendition of the main article.
// A failed rendition is logged and yields an empty string.
func (s *Scraper) ScrapeWithMarkdown(ctx context.Context, rawURL string) (*models.ScrapeRecord, string, error) {
	return s.scrape(ctx, rawURL, true)
}

func (s *Scraper) scrape(ctx context.Context, rawURL string, withMarkdown bool) (*models.ScrapeRecord, string, error) {
	target, err := ValidateURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	rec, err := s.store.CreatePending(ctx, target)
	if err != nil {
		return nil, "", fmt.Errorf("create record: %w", err)
	}

	logger := slog.With("id", rec.ID, "url", target)
	start := time.Now()

	// The outcome is persisted even if the caller goes away mid-scrape, so
	// no record is left pending.
	persistCtx := context.WithoutCancel(ctx)

	page, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		logger.Warn("scrape failed",
			"code", models.ErrorCode(err),
			"error", err,
			"duration", time.Since(start),
		)
		if markErr := s.store.MarkError(persistCtx, rec.ID, models.ErrorMessage(err)); markErr != nil {
			return rec, "", fmt.Errorf("mark error: %w", markErr)
		}
		final := s.reload(persistCtx, rec)
		s.notify(webhook.EventScrapeFailed, final)
		return final, "", err
	}

	result := s.extractor.Extract(page.Body, target)
	result.ScrapedAt = s.now().UTC()

	var markdown string
	if withMarkdown {
		markdown, err = s.extractor.Markdown(page.Body, target)
		if err != nil {
			logger.Warn("markdown rendition failed", "error", err)
			markdown = ""
		}
	}

	if err := s.store.MarkSuccess(persistCtx, rec.ID, result); err != nil {
		logger.Error("failed to persist result", "error", err)
		if markErr := s.store.MarkError(persistCtx, rec.ID, "Scraping error: "+models.ErrorMessage(err)); markErr != nil {
			logger.Error("failed to record persistence failure", "error", markErr)
		}
		return s.reload(persistCtx, rec), "", fmt.Errorf("mark success: %w", err)
	}

	logger.Info("scrape succeeded",
		"status", page.StatusCode,
		"final_url", page.FinalURL,
		"bytes", len(page.Body),
		"paragraphs", len(result.Paragraphs),
		"links", len(result.Links),
		"duration", time.Since(start),
	)

	final := s.reload(persistCtx, rec)
	s.notify(webhook.EventScrapeSucceeded, final)
	return final, markdown, nil
}

// reload re-reads rec after a transition, falling back to the stale copy.
func (s *Scraper) reload(ctx context.Context, rec *models.ScrapeRecord) *models.ScrapeRecord {
	fresh, err := s.store.Get(ctx, rec.ID)
	if err != nil {
		slog.Warn("failed to reload record", "id", rec.ID, "error", err)
		return rec
	}
	return fresh
}

func (s *Scraper) notify(eventType string, rec *models.ScrapeRecord) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(webhook.NewEvent(eventType, rec.ID, rec))
}

// Get returns the record with the given id.
func (s *Scraper) Get(ctx context.Context, id string) (*models.ScrapeRecord, error) {
	return s.store.Get(ctx, id)
}

// ListRecent returns at most limit records, newest first.
func (s *Scraper) ListRecent(ctx context.Context, limit int) ([]*models.ScrapeRecord, error) {
	return s.store.ListRecent(ctx, limit)
}

// Result returns the record for id only if it completed successfully;
// pending and failed records report NOT_FOUND.
func (s *Scraper) Result(ctx context.Context, id string) (*models.ScrapeRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusSuccess || rec.Result == nil {
		return nil, models.Errorf(models.ErrCodeNotFound, "scrape record %s has no result", id)
	}
	return rec, nil
}
