package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/pagescrape/models"
)

// Run executes the scrape command. Each URL is scraped independently; the
// command fails if any of them did.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	if c.Out != "" {
		if err := os.MkdirAll(c.Out, 0o755); err != nil {
			fmt.Fprintf(deps.Stderr, "Error: %s\n", err)
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	limit := c.Concurrency
	if limit < 1 {
		limit = 1
	}

	var (
		mu     sync.Mutex
		failed atomic.Int32
		g      errgroup.Group
	)
	g.SetLimit(limit)

	for _, u := range c.URLs {
		g.Go(func() error {
			var buf bytes.Buffer
			if !c.scrapeOne(deps, u, &buf) {
				failed.Add(1)
			}
			// Each URL's lines are written as one block.
			mu.Lock()
			_, _ = deps.Stdout.Write(buf.Bytes())
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d URLs failed", n, len(c.URLs))
	}
	return nil
}

func (c *ScrapeCmd) scrapeOne(deps *Dependencies, rawURL string, out *bytes.Buffer) bool {
	fmt.Fprintf(out, "Scraping: %s\n", rawURL)

	var (
		rec      *models.ScrapeRecord
		markdown string
		err      error
	)
	if c.Markdown {
		rec, markdown, err = deps.Scraper.ScrapeWithMarkdown(deps.Ctx, rawURL)
	} else {
		rec, err = deps.Scraper.Scrape(deps.Ctx, rawURL)
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %s\n", models.ErrorMessage(err))
		if rec != nil {
			fmt.Fprintf(out, "Data ID: %s\n", rec.ID)
		}
		return false
	}

	fmt.Fprintf(out, "Successfully scraped and saved data for %s\n", rawURL)
	fmt.Fprintf(out, "Data ID: %s\n", rec.ID)

	if c.Out != "" {
		path, err := writeResultFile(c.Out, rec, deps)
		if err != nil {
			fmt.Fprintf(out, "Error: %s\n", models.ErrorMessage(err))
			return false
		}
		fmt.Fprintf(out, "Saved to: %s\n", path)
	}

	if c.Markdown && markdown != "" {
		fmt.Fprintf(out, "\n%s\n", markdown)
	}
	return true
}

// resultFilename names the JSON file written for a successful scrape.
func resultFilename(rec *models.ScrapeRecord, deps *Dependencies) string {
	return fmt.Sprintf("scraped_%s_%s.json", rec.ID, deps.Now().Format("20060102_150405"))
}

func writeResultFile(dir string, rec *models.ScrapeRecord, deps *Dependencies) (string, error) {
	data, err := models.EncodeResultJSON(rec.Result)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, resultFilename(rec, deps))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
