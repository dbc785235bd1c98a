package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/use-agent/pagescrape/models"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store bounded to maxEntries records. When full,
// the oldest completed record is evicted to make room. Pending records are
// never evicted, so while more scrapes are in flight than maxEntries allows
// the store temporarily holds more. It is safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	records    map[string]*models.ScrapeRecord
	order      []string // ids, oldest first
	maxEntries int
}

// NewMemory creates a Memory store. maxEntries <= 0 means unbounded.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		records:    make(map[string]*models.ScrapeRecord),
		maxEntries: maxEntries,
	}
}

func (m *Memory) CreatePending(_ context.Context, url string) (*models.ScrapeRecord, error) {
	rec := &models.ScrapeRecord{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    models.StatusPending,
		CreatedAt: now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for m.maxEntries > 0 && len(m.order) >= m.maxEntries {
		if !m.evictOldestTerminal() {
			break
		}
	}

	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)

	return copyRecord(rec), nil
}

// evictOldestTerminal drops the oldest record that has completed. It reports
// false when every record is still pending. Callers hold the write lock.
func (m *Memory) evictOldestTerminal() bool {
	for i, id := range m.order {
		if m.records[id].IsTerminal() {
			m.order = append(m.order[:i], m.order[i+1:]...)
			delete(m.records, id)
			return true
		}
	}
	return false
}

func (m *Memory) MarkSuccess(_ context.Context, id string, result *models.ScrapeResult) error {
	if result == nil {
		return errNilResult(id)
	}
	return m.complete(id, func(rec *models.ScrapeRecord) {
		rec.Status = models.StatusSuccess
		rec.Title = models.RecordTitle(result)
		rec.Result = result
	})
}

func (m *Memory) MarkError(_ context.Context, id, message string) error {
	return m.complete(id, func(rec *models.ScrapeRecord) {
		rec.Status = models.StatusError
		rec.ErrorMessage = message
	})
}

// complete applies a terminal transition under the write lock.
func (m *Memory) complete(id string, apply func(*models.ScrapeRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return errNotFound(id)
	}
	if rec.Status != models.StatusPending {
		return errInvalidState(id, rec.Status)
	}

	apply(rec)
	completed := now()
	rec.CompletedAt = &completed
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.ScrapeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, errNotFound(id)
	}
	return copyRecord(rec), nil
}

func (m *Memory) ListRecent(_ context.Context, limit int) ([]*models.ScrapeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := []*models.ScrapeRecord{}
	for i := len(m.order) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, copyRecord(m.records[m.order[i]]))
	}
	return records, nil
}

func (m *Memory) Close() error { return nil }

// copyRecord returns a shallow copy so callers cannot mutate stored state.
// Results are never modified after MarkSuccess, so sharing them is safe.
func copyRecord(rec *models.ScrapeRecord) *models.ScrapeRecord {
	c := *rec
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
