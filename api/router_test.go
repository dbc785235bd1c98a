package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/pagescrape/api"
	"github.com/use-agent/pagescrape/config"
	"github.com/use-agent/pagescrape/extractor"
	"github.com/use-agent/pagescrape/models"
	"github.com/use-agent/pagescrape/scraper"
	"github.com/use-agent/pagescrape/store"
)

const testPage = `<html><head><title>Hi</title><meta name="description" content="Café <page>"></head><body>` +
	`<h1>Welcome</h1><p>This is a long enough paragraph for inclusion.</p>` +
	`<a href="/about">About</a></body></html>`

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// routeFetcher serves canned responses keyed by host.
type routeFetcher struct{}

func (routeFetcher) Fetch(_ context.Context, target string) (*scraper.FetchResult, error) {
	u, _ := url.Parse(target)
	switch u.Hostname() {
	case "down.example":
		return nil, models.Errorf(models.ErrCodeFetchFailed, "Request error: connection refused")
	case "slow.example":
		return nil, models.Errorf(models.ErrCodeTimeout, "Request error: timed out after 10s")
	case "panic.example":
		panic("boom")
	default:
		return &scraper.FetchResult{Body: []byte(testPage), StatusCode: 200, FinalURL: target}, nil
	}
}

type testEnv struct {
	router http.Handler
	store  store.Store
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Store.Driver = config.DriverMemory
	cfg.RateLimit.RequestsPerSecond = 0
	for _, m := range mutate {
		m(cfg)
	}

	st := store.NewMemory(0)
	sc := scraper.New(routeFetcher{}, extractor.New(), st)
	return &testEnv{router: api.NewRouter(sc, cfg, time.Now()), store: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestScrapeAPI_Success(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/scrape", "/api/scrape/"} {
		t.Run(path, func(t *testing.T) {
			w := env.do(t, http.MethodPost, path, `{"url": "https://example.com"}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp models.ScrapeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			assert.NotEmpty(t, resp.ID)
			require.NotNil(t, resp.Data)
			assert.Equal(t, "Hi", resp.Data.Title)
			assert.Equal(t, "Café <page>", resp.Data.MetaDescription)
			assert.Equal(t, []string{"Welcome"}, resp.Data.Headings["h1"])
			assert.Equal(t, 8, resp.Data.WordCount)
			assert.Empty(t, resp.Markdown)
		})
	}
}

func TestScrapeAPI_IncludeMarkdown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/scrape", `{"url": "https://example.com", "include_markdown": true}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Markdown, "long enough paragraph")
}

func TestScrapeAPI_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		status   int
		code     string
		message  string
		recordID bool
	}{
		{"malformed body", `{"url": `, http.StatusBadRequest, models.ErrCodeInvalidInput, "Invalid JSON", false},
		{"empty body", ``, http.StatusBadRequest, models.ErrCodeInvalidInput, "Invalid JSON", false},
		{"missing url", `{}`, http.StatusBadRequest, models.ErrCodeInvalidInput, "URL is required", false},
		{"blank url", `{"url": "   "}`, http.StatusBadRequest, models.ErrCodeInvalidInput, "URL is required", false},
		{"invalid url", `{"url": "ftp://example.com"}`, http.StatusBadRequest, models.ErrCodeInvalidInput, "", false},
		{"fetch failure", `{"url": "https://down.example"}`, http.StatusBadGateway, models.ErrCodeFetchFailed, "Request error: connection refused", true},
		{"fetch timeout", `{"url": "https://slow.example"}`, http.StatusGatewayTimeout, models.ErrCodeTimeout, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/v1/scrape", tt.body)
			assert.Equal(t, tt.status, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Error)
			}
			if tt.recordID {
				rec, err := env.store.Get(context.Background(), resp.ID)
				require.NoError(t, err)
				assert.Equal(t, models.StatusError, rec.Status)
			} else {
				assert.Empty(t, resp.ID)
			}
		})
	}
}

func TestScrapeAPI_PanicIsRecovered(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/scrape", `{"url": "https://panic.example"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, models.ErrCodeInternal, decodeError(t, w).Code)
}

func TestScrapeAPI_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/scrape/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", decodeError(t, w).Error)
}

func TestRecordsAPI(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	first := env.do(t, http.MethodPost, "/api/v1/scrape", `{"url": "https://example.com/one"}`)
	require.Equal(t, http.StatusOK, first.Code)
	failed := env.do(t, http.MethodPost, "/api/v1/scrape", `{"url": "https://down.example"}`)
	require.Equal(t, http.StatusBadGateway, failed.Code)

	var ok models.ScrapeResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &ok))
	failedID := decodeError(t, failed).ID

	t.Run("list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/scrapes", "")
		require.Equal(t, http.StatusOK, w.Code)

		var list models.RecordListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Equal(t, 2, list.Total)
		assert.Equal(t, failedID, list.Records[0].ID)
		assert.Equal(t, ok.ID, list.Records[1].ID)
		assert.Nil(t, list.Records[1].Result)
	})

	t.Run("list limit", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/scrapes?limit=1", "")
		require.Equal(t, http.StatusOK, w.Code)
		var list models.RecordListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Equal(t, 1, list.Total)

		w = env.do(t, http.MethodGet, "/api/v1/scrapes?limit=zero", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/scrapes/"+ok.ID, "")
		require.Equal(t, http.StatusOK, w.Code)
		var rec models.ScrapeRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.Equal(t, models.StatusSuccess, rec.Status)
		require.NotNil(t, rec.Result)
		assert.Equal(t, "Hi", rec.Result.Title)

		w = env.do(t, http.MethodGet, "/api/v1/scrapes/unknown", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, models.ErrCodeNotFound, decodeError(t, w).Code)
	})

	t.Run("download", func(t *testing.T) {
		for _, path := range []string{"/api/v1/scrapes/" + ok.ID + "/download", "/download/" + ok.ID} {
			w := env.do(t, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, w.Code, path)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

			pattern := regexp.MustCompile(`^attachment; filename="scraped_data_` + regexp.QuoteMeta(ok.ID) + `_\d{8}_\d{6}\.json"$`)
			assert.Regexp(t, pattern, w.Header().Get("Content-Disposition"))

			// Pretty-printed with non-ASCII and HTML left as-is.
			assert.Contains(t, w.Body.String(), "\n  \"url\": ")
			assert.Contains(t, w.Body.String(), `"meta_description": "Café <page>"`)

			var result models.ScrapeResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, "Hi", result.Title)
		}
	})

	t.Run("download of failed record", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/scrapes/"+failedID+"/download", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, http.MethodGet, "/download/"+failedID, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPages(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("index empty", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No scrapes yet.")
	})

	t.Run("submit success redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("url="+url.QueryEscape("https://example.com/page")))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusSeeOther, w.Code)
		location := w.Header().Get("Location")
		require.True(t, strings.HasPrefix(location, "/detail/"), location)

		detail := env.do(t, http.MethodGet, location, "")
		require.Equal(t, http.StatusOK, detail.Code)
		body := detail.Body.String()
		assert.Contains(t, body, "This is a long enough paragraph for inclusion.")
		assert.Contains(t, body, "https://example.com/about")
		assert.Contains(t, body, "/download/"+strings.TrimPrefix(location, "/detail/"))

		index := env.do(t, http.MethodGet, "/", "")
		assert.Contains(t, index.Body.String(), "https://example.com/page")
	})

	t.Run("submit invalid url", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("url=notaurl"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Error scraping URL: Invalid URL")
	})

	t.Run("submit fetch failure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("url="+url.QueryEscape("https://down.example")))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "Request error: connection refused")
	})

	t.Run("submit fetch timeout", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("url="+url.QueryEscape("https://slow.example")))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "Request error: timed out after 10s")
	})

	t.Run("detail unknown", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/detail/unknown", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, config.DriverMemory, resp.StoreDriver)
}

func TestAuth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKeys = []string{"k1"}
	})

	w := env.do(t, http.MethodGet, "/api/v1/scrapes", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeUnauthorized, decodeError(t, w).Code)

	w = env.do(t, http.MethodGet, "/api/v1/scrapes", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/scrapes", "", "X-API-Key", "k1")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/scrapes", "", "Authorization", "Bearer k1")
	assert.Equal(t, http.StatusOK, w.Code)

	// The legacy scrape endpoint is guarded the same way.
	for _, path := range []string{"/api/scrape/", "/api/v1/scrape"} {
		w = env.do(t, http.MethodPost, path, `{"url": "https://example.com/page"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, models.ErrCodeUnauthorized, decodeError(t, w).Code, path)

		w = env.do(t, http.MethodPost, path, `{"url": "https://example.com/page"}`, "X-API-Key", "k1")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	// Health stays open.
	w = env.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit.RequestsPerSecond = 0.001
		cfg.RateLimit.Burst = 1
	})

	w := env.do(t, http.MethodGet, "/api/v1/scrapes", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/scrapes", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, decodeError(t, w).Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// The legacy endpoint draws from the same budget.
	w = env.do(t, http.MethodPost, "/api/scrape/", `{"url": "https://example.com/page"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_PerAPIKey(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKeys = []string{"k1", "k2"}
		cfg.RateLimit.RequestsPerSecond = 0.001
		cfg.RateLimit.Burst = 1
	})

	w := env.do(t, http.MethodGet, "/api/v1/scrapes", "", "X-API-Key", "k1")
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/v1/scrapes", "", "X-API-Key", "k1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Another key has its own bucket.
	w = env.do(t, http.MethodGet, "/api/v1/scrapes", "", "X-API-Key", "k2")
	assert.Equal(t, http.StatusOK, w.Code)
}
