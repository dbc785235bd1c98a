package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagescrape/models"
	"github.com/use-agent/pagescrape/scraper"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// ListScrapes returns a handler for GET /api/v1/scrapes?limit=N.
// Records are listed newest first without their results.
func ListScrapes(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				respondError(c, models.Errorf(models.ErrCodeInvalidInput,
					"limit must be a positive integer"), "")
				return
			}
			limit = min(n, maxListLimit)
		}

		records, err := sc.ListRecent(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err, "")
			return
		}

		summaries := make([]*models.ScrapeRecord, 0, len(records))
		for _, rec := range records {
			s := *rec
			s.Result = nil
			summaries = append(summaries, &s)
		}
		c.JSON(http.StatusOK, models.RecordListResponse{
			Records: summaries,
			Total:   len(summaries),
		})
	}
}

// GetScrape returns a handler for GET /api/v1/scrapes/:id.
func GetScrape(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := sc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "")
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// DownloadScrape returns a handler for GET /api/v1/scrapes/:id/download.
func DownloadScrape(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := sc.Result(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "")
			return
		}
		if err := writeDownload(c, rec); err != nil {
			respondError(c, err, rec.ID)
		}
	}
}

// DownloadFilename names the JSON attachment for a successful record.
func DownloadFilename(rec *models.ScrapeRecord) string {
	return fmt.Sprintf("scraped_data_%s_%s.json", rec.ID, rec.CreatedAt.UTC().Format("20060102_150405"))
}

// writeDownload sends the record's result as a pretty-printed attachment.
func writeDownload(c *gin.Context, rec *models.ScrapeRecord) error {
	data, err := models.EncodeResultJSON(rec.Result)
	if err != nil {
		return err
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, DownloadFilename(rec)))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	return nil
}
