package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	main "github.com/use-agent/pagescrape/cmd/pagescrape-cli"
	"github.com/use-agent/pagescrape/config"
	"github.com/use-agent/pagescrape/models"
	"github.com/use-agent/pagescrape/scraper"
	"github.com/use-agent/pagescrape/store"
)

const samplePage = `<html><head><title>Sample Page</title>
<meta name="description" content="A page for testing"></head>
<body><h1>Welcome</h1>
<p>This is the first paragraph with enough words to be kept as content.</p>
<a href="/about">About us</a>
<img src="logo.png" alt="Logo">
</body></html>`

// pageFetcher serves samplePage for every host except down.example.
type pageFetcher struct{}

func (pageFetcher) Fetch(_ context.Context, url string) (*scraper.FetchResult, error) {
	if strings.Contains(url, "down.example") {
		return nil, models.Errorf(models.ErrCodeFetchFailed, "Request error: HTTP 503 Service Unavailable for url: %s", url)
	}
	return &scraper.FetchResult{
		Body:        []byte(samplePage),
		ContentType: "text/html; charset=utf-8",
		StatusCode:  200,
		FinalURL:    url,
	}, nil
}

func newTestMain(st store.Store) *main.Main {
	m := main.NewMain()
	m.Config = config.Default()
	m.Store = st
	m.Fetcher = pageFetcher{}
	m.Now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }
	return m
}

func run(t *testing.T, m *main.Main, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := m.Run(context.Background(), args, stdout, stderr)
	return stdout.String(), stderr.String(), err
}

func TestCLI_HelpShowsAllCommands(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	parser, err := kong.New(cli,
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)

	_, _ = parser.Parse([]string{"--help"})

	for _, cmd := range []string{"scrape", "list", "show", "export"} {
		assert.Contains(t, stdout.String(), cmd, "Help should mention %s command", cmd)
	}
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, newTestMain(store.NewMemory(10)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, newTestMain(store.NewMemory(10)), "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "scrape")
}

func TestCmdScrape(t *testing.T) {
	t.Parallel()

	t.Run("prints success lines and saves the record", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		stdout, _, err := run(t, newTestMain(st), "scrape", "https://example.com/page")
		require.NoError(t, err)

		assert.Contains(t, stdout, "Scraping: https://example.com/page\n")
		assert.Contains(t, stdout, "Successfully scraped and saved data for https://example.com/page\n")

		records, err := st.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, models.StatusSuccess, records[0].Status)
		assert.Contains(t, stdout, "Data ID: "+records[0].ID+"\n")
		assert.Equal(t, "Sample Page", records[0].Title)
	})

	t.Run("fetch failure prints error and fails", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		stdout, _, err := run(t, newTestMain(st), "scrape", "https://down.example/")
		require.Error(t, err)
		assert.Contains(t, stdout, "Error: Request error: HTTP 503 Service Unavailable for url: https://down.example/\n")

		records, err := st.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, models.StatusError, records[0].Status)
	})

	t.Run("invalid url creates no record", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		stdout, _, err := run(t, newTestMain(st), "scrape", "ftp://example.com/file")
		require.Error(t, err)
		assert.Contains(t, stdout, "Error: ")

		records, err := st.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("one failure among many fails the command", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		stdout, _, err := run(t, newTestMain(st), "scrape", "--concurrency", "2",
			"https://example.com/a", "https://down.example/b", "https://example.com/c")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 3 URLs failed")
		assert.Equal(t, 2, strings.Count(stdout, "Successfully scraped"))
		assert.Equal(t, 1, strings.Count(stdout, "Error: "))

		records, err := st.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("writes result file to out dir", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		dir := t.TempDir()
		_, _, err := run(t, newTestMain(st), "scrape", "--out", dir, "https://example.com/page")
		require.NoError(t, err)

		records, err := st.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, records, 1)

		path := filepath.Join(dir, "scraped_"+records[0].ID+"_20240305_140709.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		result, err := models.DecodeResultJSON(data)
		require.NoError(t, err)
		assert.Equal(t, "Sample Page", result.Title)
		assert.Equal(t, "https://example.com/page", result.URL)
		assert.Contains(t, string(data), "\n  \"title\"")
	})

	t.Run("markdown flag prints rendition", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := run(t, newTestMain(store.NewMemory(10)), "scrape", "--markdown", "https://example.com/page")
		require.NoError(t, err)
		assert.Contains(t, stdout, "first paragraph")
	})
}

func TestCmdList(t *testing.T) {
	t.Parallel()

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := run(t, newTestMain(store.NewMemory(10)), "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No scrapes found")
	})

	t.Run("lists newest first up to limit", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		ctx := context.Background()
		for _, u := range []string{"https://a.example/", "https://b.example/", "https://c.example/"} {
			_, err := st.CreatePending(ctx, u)
			require.NoError(t, err)
		}

		stdout, _, err := run(t, newTestMain(st), "list", "--limit", "2")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "https://c.example/")
		assert.Contains(t, lines[1], "https://b.example/")
		assert.Contains(t, lines[0], "pending")
	})
}

func TestCmdShow(t *testing.T) {
	t.Parallel()

	t.Run("successful record", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		m := newTestMain(st)
		_, _, err := run(t, m, "scrape", "https://example.com/page")
		require.NoError(t, err)
		records, err := st.ListRecent(context.Background(), 1)
		require.NoError(t, err)

		stdout, _, err := run(t, m, "show", records[0].ID)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Status:  success")
		assert.Contains(t, stdout, "Title:   Sample Page")
		assert.Contains(t, stdout, "H1:      Welcome")
		assert.Contains(t, stdout, "This is the first paragraph")
	})

	t.Run("error record", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		m := newTestMain(st)
		_, _, _ = run(t, m, "scrape", "https://down.example/")
		records, err := st.ListRecent(context.Background(), 1)
		require.NoError(t, err)

		stdout, _, err := run(t, m, "show", records[0].ID)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Status:  error")
		assert.Contains(t, stdout, "Error:   Request error: HTTP 503")
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		_, stderr, err := run(t, newTestMain(store.NewMemory(10)), "show", "missing")
		require.Error(t, err)
		assert.Equal(t, models.ErrCodeNotFound, models.ErrorCode(err))
		assert.Contains(t, stderr, "error: ")
	})
}

func TestCmdExport(t *testing.T) {
	t.Parallel()

	t.Run("writes result to stdout", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		m := newTestMain(st)
		_, _, err := run(t, m, "scrape", "https://example.com/page")
		require.NoError(t, err)
		records, err := st.ListRecent(context.Background(), 1)
		require.NoError(t, err)

		stdout, _, err := run(t, m, "export", records[0].ID)
		require.NoError(t, err)
		result, err := models.DecodeResultJSON([]byte(stdout))
		require.NoError(t, err)
		assert.Equal(t, "Sample Page", result.Title)
	})

	t.Run("writes result to file", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		m := newTestMain(st)
		_, _, err := run(t, m, "scrape", "https://example.com/page")
		require.NoError(t, err)
		records, err := st.ListRecent(context.Background(), 1)
		require.NoError(t, err)

		out := filepath.Join(t.TempDir(), "result.json")
		stdout, _, err := run(t, m, "export", records[0].ID, "--out", out)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Exported "+records[0].ID)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"title": "Sample Page"`)
	})

	t.Run("failed record is not exportable", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemory(10)
		m := newTestMain(st)
		_, _, _ = run(t, m, "scrape", "https://down.example/")
		records, err := st.ListRecent(context.Background(), 1)
		require.NoError(t, err)

		_, _, err = run(t, m, "export", records[0].ID)
		require.Error(t, err)
		assert.Equal(t, models.ErrCodeNotFound, models.ErrorCode(err))
	})
}
