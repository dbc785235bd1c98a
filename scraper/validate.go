package scraper

import (
	"net/url"
	"strings"

	"github.com/use-agent/pagescrape/models"
)

// MaxURLLength is the longest URL accepted for scraping.
const MaxURLLength = 2048

// ValidateURL checks that raw is an absolute http(s) URL with a host and
// returns it with surrounding whitespace removed.
func ValidateURL(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", models.Errorf(models.ErrCodeInvalidInput, "URL is required")
	}
	if len(target) > MaxURLLength {
		return "", models.Errorf(models.ErrCodeInvalidInput,
			"URL exceeds %d characters", MaxURLLength)
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "Invalid URL: "+target, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", models.Errorf(models.ErrCodeInvalidInput,
			"Invalid URL: %s (scheme must be http or https)", target)
	}
	if u.Hostname() == "" {
		return "", models.Errorf(models.ErrCodeInvalidInput,
			"Invalid URL: %s (missing host)", target)
	}
	return target, nil
}
