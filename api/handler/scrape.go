package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagescrape/models"
	"github.com/use-agent/pagescrape/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape (and the legacy
// POST /api/scrape/).
//
// Flow:
//  1. Parse the JSON body; malformed bodies and a missing url are 400.
//  2. Run the scraper; the record id is echoed on fetch failures.
//  3. Return the extracted data, plus Markdown when requested.
func Scrape(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "Invalid JSON",
				Code:  models.ErrCodeInvalidInput,
			})
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "URL is required",
				Code:  models.ErrCodeInvalidInput,
			})
			return
		}

		var (
			rec      *models.ScrapeRecord
			markdown string
			err      error
		)
		if req.IncludeMarkdown {
			rec, markdown, err = sc.ScrapeWithMarkdown(c.Request.Context(), req.URL)
		} else {
			rec, err = sc.Scrape(c.Request.Context(), req.URL)
		}
		if err != nil {
			var id string
			if rec != nil {
				id = rec.ID
			}
			respondError(c, err, id)
			return
		}

		c.JSON(http.StatusOK, models.ScrapeResponse{
			Success:  true,
			ID:       rec.ID,
			Data:     rec.Result,
			Markdown: markdown,
		})
	}
}
