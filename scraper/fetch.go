package scraper

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/use-agent/pagescrape/config"
	"github.com/use-agent/pagescrape/models"
)

const (
	defaultMaxRedirects = 10
	defaultMaxBodyBytes = 10 << 20
)

// PageFetcher retrieves the raw bytes of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) (*FetchResult, error)
}

var _ PageFetcher = (*Fetcher)(nil)

// Fetcher performs one HTTP GET per call with a browser-like identity.
// It holds only immutable configuration and is safe for concurrent use.
type Fetcher struct {
	cfg config.FetchConfig

	// rootCAs replaces the system pool when verifying servers; nil uses the system pool.
	rootCAs *x509.CertPool
}

// NewFetcher creates a Fetcher from cfg.
func NewFetcher(cfg config.FetchConfig) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{cfg: cfg}
}

// Fetch downloads targetURL. Every failure is a *models.ScrapeError with
// code FETCH_TIMEOUT when the deadline passed and FETCH_FAILED otherwise.
// Responses with status >= 400 are failures.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	transport, err := newTransport(f.cfg, f.rootCAs)
	if err != nil {
		return nil, requestError(err)
	}
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return nil
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, requestError(err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, models.Errorf(models.ErrCodeFetchFailed,
			"Request error: HTTP %d %s for url: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), targetURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, f.classify(ctx, err)
	}

	contentType := resp.Header.Get("Content-Type")
	return &FetchResult{
		Body:        toUTF8(raw, contentType),
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// classify maps a transport or read error onto the fetch error codes.
func (f *Fetcher) classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewScrapeError(models.ErrCodeTimeout,
			fmt.Sprintf("Request error: timed out after %s", f.cfg.Timeout), err)
	}
	return requestError(err)
}

func requestError(err error) error {
	return models.NewScrapeError(models.ErrCodeFetchFailed, "Request error: "+err.Error(), err)
}

// toUTF8 transcodes body using a BOM, the Content-Type charset or a
// <meta charset> declaration. Without any of those, a body that is valid
// UTF-8 throughout is kept as is; sniffing only looks at the first 1024
// bytes and would otherwise fall back to windows-1252.
func toUTF8(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && validUTF8(body)) {
		return bytes.TrimPrefix(body, utf8BOM)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}

var utf8BOM = []byte("\xef\xbb\xbf")

// validUTF8 reports whether b is valid UTF-8, allowing one incomplete rune
// at the end where the body cap cut it.
func validUTF8(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		tail := b[len(b)-i:]
		if utf8.RuneStart(tail[0]) {
			return !utf8.FullRune(tail) && utf8.Valid(b[:len(b)-i])
		}
	}
	return false
}
