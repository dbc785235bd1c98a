package main

import (
	"fmt"
	"time"

	"github.com/use-agent/pagescrape/models"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	records, err := deps.Scraper.ListRecent(deps.Ctx, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", models.ErrorMessage(err))
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(deps.Stdout, "No scrapes found. Use 'pagescrape scrape' to create one.")
		return nil
	}

	for _, r := range records {
		title := r.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(deps.Stdout, "%s  %-7s  %s  %s  %s\n",
			r.ID, r.Status, r.CreatedAt.UTC().Format(time.DateTime), r.URL, title)
	}

	return nil
}
