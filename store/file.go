package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/use-agent/pagescrape/models"
)

var _ Store = (*File)(nil)

const (
	recordSuffix = ".json"
	resultSuffix = ".result.json"
)

// File keeps each record in <dir>/<id>.json and, once successful, its result
// in <dir>/<id>.result.json as pretty-printed UTF-8 JSON.
type File struct {
	mu  sync.Mutex
	dir string
	seq int64
}

// fileRecord is the on-disk record envelope. Seq orders records created
// within the same clock tick.
type fileRecord struct {
	models.ScrapeRecord
	Seq int64 `json:"seq"`
}

// OpenFile uses dir (created if missing) as the record directory.
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &File{dir: dir}
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Seq > s.seq {
			s.seq = rec.Seq
		}
	}
	return s, nil
}

func (s *File) recordPath(id string) string { return filepath.Join(s.dir, id+recordSuffix) }
func (s *File) resultPath(id string) string { return filepath.Join(s.dir, id+resultSuffix) }

func (s *File) CreatePending(_ context.Context, url string) (*models.ScrapeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec := &fileRecord{
		ScrapeRecord: models.ScrapeRecord{
			ID:        uuid.NewString(),
			URL:       url,
			Status:    models.StatusPending,
			CreatedAt: now(),
		},
		Seq: s.seq,
	}
	if err := s.writeRecord(rec); err != nil {
		return nil, err
	}
	out := rec.ScrapeRecord
	return &out, nil
}

func (s *File) MarkSuccess(_ context.Context, id string, result *models.ScrapeResult) error {
	if result == nil {
		return errNilResult(id)
	}
	data, err := models.EncodeResultJSON(result)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.pendingRecord(id)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.resultPath(id), data); err != nil {
		return err
	}

	completed := now()
	rec.Status = models.StatusSuccess
	rec.Title = models.RecordTitle(result)
	rec.CompletedAt = &completed
	return s.writeRecord(rec)
}

func (s *File) MarkError(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.pendingRecord(id)
	if err != nil {
		return err
	}

	completed := now()
	rec.Status = models.StatusError
	rec.ErrorMessage = message
	rec.CompletedAt = &completed
	return s.writeRecord(rec)
}

// pendingRecord loads id and checks it can still transition. Callers hold mu.
func (s *File) pendingRecord(id string) (*fileRecord, error) {
	rec, err := s.readRecord(id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusPending {
		return nil, errInvalidState(id, rec.Status)
	}
	return rec, nil
}

func (s *File) Get(_ context.Context, id string) (*models.ScrapeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readRecord(id)
	if err != nil {
		return nil, err
	}
	if err := s.attachResult(rec); err != nil {
		return nil, err
	}
	out := rec.ScrapeRecord
	return &out, nil
}

func (s *File) ListRecent(_ context.Context, limit int) ([]*models.ScrapeRecord, error) {
	records := []*models.ScrapeRecord{}
	if limit <= 0 {
		return records, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Seq > all[j].Seq
	})

	for _, rec := range all {
		if len(records) == limit {
			break
		}
		if err := s.attachResult(rec); err != nil {
			return nil, err
		}
		out := rec.ScrapeRecord
		records = append(records, &out)
	}
	return records, nil
}

func (s *File) Close() error { return nil }

func (s *File) readRecord(id string) (*fileRecord, error) {
	// ids are generated by the store; anything else cannot name a record.
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return nil, errNotFound(id)
	}

	data, err := os.ReadFile(s.recordPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSerialization,
			fmt.Sprintf("stored record %s is not valid JSON", id), err)
	}
	return &rec, nil
}

// readAll loads every record file in the directory. Unreadable records are
// logged and skipped so one corrupt file does not hide the rest.
func (s *File) readAll() ([]*fileRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	var records []*fileRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordSuffix) || strings.HasSuffix(name, resultSuffix) {
			continue
		}
		rec, err := s.readRecord(strings.TrimSuffix(name, recordSuffix))
		if err != nil {
			slog.Warn("file store: skipping unreadable record", "file", name, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *File) attachResult(rec *fileRecord) error {
	if rec.Status != models.StatusSuccess {
		return nil
	}
	data, err := os.ReadFile(s.resultPath(rec.ID))
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSerialization,
			fmt.Sprintf("result for record %s is unreadable", rec.ID), err)
	}
	rec.Result, err = models.DecodeResultJSON(data)
	return err
}

func (s *File) writeRecord(rec *fileRecord) error {
	stored := *rec
	stored.Result = nil
	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSerialization, "failed to encode record", err)
	}
	return writeFileAtomic(s.recordPath(rec.ID), data)
}

// writeFileAtomic replaces path via a temp file and rename so readers never
// see a partial document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
