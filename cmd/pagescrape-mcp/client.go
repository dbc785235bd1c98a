package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/pagescrape/models"
)

// apiClient calls the pagescrape JSON API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// scrape runs POST /api/v1/scrape.
func (c *apiClient) scrape(ctx context.Context, target string, markdown bool) (*models.ScrapeResponse, error) {
	body, err := json.Marshal(models.ScrapeRequest{URL: target, IncludeMarkdown: markdown})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var resp models.ScrapeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/scrape", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// get runs GET /api/v1/scrapes/:id.
func (c *apiClient) get(ctx context.Context, id string) (*models.ScrapeRecord, error) {
	var rec models.ScrapeRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/scrapes/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// list runs GET /api/v1/scrapes?limit=N.
func (c *apiClient) list(ctx context.Context, limit int) (*models.RecordListResponse, error) {
	path := "/api/v1/scrapes"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp models.RecordListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends one request and decodes a 2xx body into out. Error bodies become
// "[CODE] message" errors.
func (c *apiClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr models.ErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("API returned status %d", resp.StatusCode)
		}
		if apiErr.Code != "" {
			return fmt.Errorf("[%s] %s", apiErr.Code, apiErr.Error)
		}
		return fmt.Errorf("%s", apiErr.Error)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
