package scraper

import (
	"crypto/x509"

	"github.com/use-agent/pagescrape/config"
)

// NewFetcherWithRootCAs returns a Fetcher that trusts pool, for TLS test servers.
func NewFetcherWithRootCAs(cfg config.FetchConfig, pool *x509.CertPool) *Fetcher {
	f := NewFetcher(cfg)
	f.rootCAs = pool
	return f
}
