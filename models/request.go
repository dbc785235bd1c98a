package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url"`

	// IncludeMarkdown adds a Markdown rendition of the main article to the
	// response. It is not persisted.
	IncludeMarkdown bool `json:"include_markdown,omitempty"`
}
