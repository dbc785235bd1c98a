package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/use-agent/pagescrape/models"
)

var _ Store = (*SQLite)(nil)

// timeLayout is fixed-width so lexical order of stored timestamps matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores records in a single table; the result is kept as JSON text.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL is not supported for in-memory databases.
	if path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s := &SQLite{db: conn, path: path}
	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scraped_data (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			completed_at TEXT,
			result TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_scraped_data_created_at ON scraped_data(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) CreatePending(ctx context.Context, url string) (*models.ScrapeRecord, error) {
	rec := &models.ScrapeRecord{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    models.StatusPending,
		CreatedAt: now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scraped_data (id, url, status, created_at)
		VALUES (?, ?, ?, ?)
	`, rec.ID, rec.URL, string(rec.Status), rec.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

func (s *SQLite) MarkSuccess(ctx context.Context, id string, result *models.ScrapeResult) error {
	if result == nil {
		return errNilResult(id)
	}
	data, err := models.EncodeResultJSON(result)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE scraped_data
		SET status = ?, title = ?, result = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, string(models.StatusSuccess), models.RecordTitle(result), string(data),
		now().Format(timeLayout), id, string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return s.checkTransition(ctx, id, res)
}

func (s *SQLite) MarkError(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scraped_data
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, string(models.StatusError), message, now().Format(timeLayout),
		id, string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return s.checkTransition(ctx, id, res)
}

// checkTransition explains an UPDATE that matched no pending row.
func (s *SQLite) checkTransition(ctx context.Context, id string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM scraped_data WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound(id)
	}
	if err != nil {
		return err
	}
	return errInvalidState(id, models.Status(status))
}

const selectColumns = `SELECT id, url, title, status, error_message, created_at, completed_at, result FROM scraped_data`

func (s *SQLite) Get(ctx context.Context, id string) (*models.ScrapeRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLite) ListRecent(ctx context.Context, limit int) ([]*models.ScrapeRecord, error) {
	records := []*models.ScrapeRecord{}
	if limit <= 0 {
		return records, nil
	}

	rows, err := s.db.QueryContext(ctx,
		selectColumns+" ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ScrapeRecord, error) {
	var (
		rec         models.ScrapeRecord
		status      string
		createdAt   string
		completedAt sql.NullString
		result      sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.URL, &rec.Title, &status, &rec.ErrorMessage,
		&createdAt, &completedAt, &result); err != nil {
		return nil, err
	}
	rec.Status = models.Status(status)

	var err error
	rec.CreatedAt, err = parseTime(createdAt, "created_at")
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String, "completed_at")
		if err != nil {
			return nil, err
		}
		rec.CompletedAt = &t
	}
	if result.Valid {
		rec.Result, err = models.DecodeResultJSON([]byte(result.String))
		if err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func parseTime(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t.UTC(), nil
}
