package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagescrape/api/handler"
	"github.com/use-agent/pagescrape/api/middleware"
	"github.com/use-agent/pagescrape/config"
	"github.com/use-agent/pagescrape/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	JSON API (/api/scrape/, /api/v1 except health):  Auth (if enabled) → RateLimit
//
// Health sits outside auth so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, cfg *config.Config, startTime time.Time) *gin.Engine {
	if gin.Mode() != cfg.Server.Mode {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(handler.Recover))
	r.Use(gin.Logger())
	r.HandleMethodNotAllowed = true
	r.NoMethod(handler.MethodNotAllowed)
	r.SetHTMLTemplate(handler.Templates())

	// HTML pages.
	r.GET("/", handler.Index(sc))
	r.POST("/", handler.Submit(sc))
	r.GET("/detail/:id", handler.Detail(sc))
	r.GET("/download/:id", handler.Download(sc))

	// Every JSON route that touches scrapes shares one auth check and one
	// rate-limit budget, the legacy endpoint included.
	var guard []gin.HandlerFunc
	if cfg.Auth.Enabled {
		guard = append(guard, middleware.Auth(cfg.Auth.APIKeys))
	}
	guard = append(guard, middleware.RateLimit(cfg.RateLimit))

	legacy := r.Group("/api", guard...)
	legacy.POST("/scrape/", handler.Scrape(sc))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(cfg.Store.Driver, startTime))

	protected := v1.Group("", guard...)
	protected.POST("/scrape", handler.Scrape(sc))
	protected.GET("/scrapes", handler.ListScrapes(sc))
	protected.GET("/scrapes/:id", handler.GetScrape(sc))
	protected.GET("/scrapes/:id/download", handler.DownloadScrape(sc))

	return r
}
