package models

// ScrapeResponse is the success response for POST /api/v1/scrape.
type ScrapeResponse struct {
	Success  bool          `json:"success"`
	ID       string        `json:"id"`
	Data     *ScrapeResult `json:"data"`
	Markdown string        `json:"markdown,omitempty"`
}

// ErrorResponse is the body of every failed JSON API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`

	// ID is set when a record was created before the failure (fetch errors).
	ID string `json:"id,omitempty"`
}

// RecordListResponse is the response for GET /api/v1/scrapes.
type RecordListResponse struct {
	Records []*ScrapeRecord `json:"records"`
	Total   int             `json:"total"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
	StoreDriver string `json:"store_driver"`
}
