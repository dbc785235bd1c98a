// Package store persists scrape records.
//
// Every adapter implements the same lifecycle: a record is created pending
// and moves exactly once to success or error. A second transition fails with
// models.ErrCodeInvalidState and unknown ids fail with models.ErrCodeNotFound.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/use-agent/pagescrape/config"
	"github.com/use-agent/pagescrape/models"
)

// Store is the persistence boundary used by the scraper and its surfaces.
// Implementations are safe for concurrent use.
type Store interface {
	// CreatePending inserts a new pending record for url.
	CreatePending(ctx context.Context, url string) (*models.ScrapeRecord, error)

	// MarkSuccess attaches result to a pending record.
	MarkSuccess(ctx context.Context, id string, result *models.ScrapeResult) error

	// MarkError records the failure message on a pending record.
	MarkError(ctx context.Context, id, message string) error

	// Get returns the record with the given id.
	Get(ctx context.Context, id string) (*models.ScrapeRecord, error)

	// ListRecent returns at most limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.ScrapeRecord, error)

	Close() error
}

// Open creates the adapter selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.SQLitePath)
	case config.DriverFile:
		return OpenFile(cfg.FileDir)
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		return NewMemory(cfg.MemoryMaxEntries), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// now is the clock used for CreatedAt and CompletedAt.
var now = func() time.Time { return time.Now().UTC() }

func errNotFound(id string) error {
	return models.Errorf(models.ErrCodeNotFound, "scrape record %s not found", id)
}

func errInvalidState(id string, status models.Status) error {
	return models.Errorf(models.ErrCodeInvalidState,
		"scrape record %s is already %s", id, status)
}

func errNilResult(id string) error {
	return models.Errorf(models.ErrCodeInvalidInput, "scrape record %s: result is nil", id)
}
