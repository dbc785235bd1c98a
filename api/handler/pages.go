package handler

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagescrape/models"
	"github.com/use-agent/pagescrape/scraper"
)

//go:embed templates/*.html
var templateFS embed.FS

// recentLimit is the number of records shown on the index page.
const recentLimit = 10

// Templates parses the embedded page templates for gin's SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"fmtTime": fmtTime,
	}).ParseFS(templateFS, "templates/*.html"))
}

// fmtTime renders time.Time and *time.Time values in UTC.
func fmtTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	default:
		return ""
	}
}

type indexPage struct {
	URL    string
	Error  string
	Recent []*models.ScrapeRecord
}

// Index returns a handler for GET /: the scrape form and recent history.
func Index(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderIndex(c, sc, http.StatusOK, indexPage{})
	}
}

// Submit returns a handler for POST / (form field "url"). A successful scrape
// redirects to its detail page; failures re-render the form.
func Submit(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := c.PostForm("url")

		rec, err := sc.Scrape(c.Request.Context(), target)
		if err != nil {
			renderIndex(c, sc, pageStatus(err), indexPage{
				URL:   target,
				Error: "Error scraping URL: " + models.ErrorMessage(err),
			})
			return
		}

		c.Redirect(http.StatusSeeOther, "/detail/"+rec.ID)
	}
}

func renderIndex(c *gin.Context, sc *scraper.Scraper, status int, page indexPage) {
	recent, err := sc.ListRecent(c.Request.Context(), recentLimit)
	if err != nil {
		page.Error = "Could not load recent scrapes: " + models.ErrorMessage(err)
		status = http.StatusInternalServerError
	}
	page.Recent = recent
	c.HTML(status, "index.html", page)
}

type detailPage struct {
	Record *models.ScrapeRecord
	Levels []string
	JSON   string
}

// Detail returns a handler for GET /detail/:id.
func Detail(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := sc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			renderNotFound(c, err)
			return
		}

		page := detailPage{Record: rec, Levels: models.HeadingLevels}
		if rec.Result != nil {
			if data, err := models.EncodeResultJSON(rec.Result); err == nil {
				page.JSON = string(data)
			}
		}
		c.HTML(http.StatusOK, "detail.html", page)
	}
}

// Download returns a handler for GET /download/:id. Only successful records
// can be downloaded.
func Download(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := sc.Result(c.Request.Context(), c.Param("id"))
		if err != nil {
			renderNotFound(c, err)
			return
		}
		if err := writeDownload(c, rec); err != nil {
			renderNotFound(c, err)
		}
	}
}

func renderNotFound(c *gin.Context, err error) {
	status := http.StatusNotFound
	if code := models.ErrorCode(err); code != models.ErrCodeNotFound {
		status = mapErrorToStatus(code)
	}
	c.HTML(status, "not_found.html", gin.H{"Message": models.ErrorMessage(err)})
}
