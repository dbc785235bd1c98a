package scraper

// FetchResult is the raw outcome of a successful fetch.
type FetchResult struct {
	// Body is the response body transcoded to UTF-8, capped at the configured
	// maximum size.
	Body []byte

	ContentType string
	StatusCode  int

	// FinalURL is the URL after redirects.
	FinalURL string
}
