package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/use-agent/pagescrape/models"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	rec, err := deps.Scraper.Get(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", models.ErrorMessage(err))
		return err
	}

	w := deps.Stdout
	fmt.Fprintf(w, "ID:      %s\n", rec.ID)
	fmt.Fprintf(w, "URL:     %s\n", rec.URL)
	fmt.Fprintf(w, "Status:  %s\n", rec.Status)
	fmt.Fprintf(w, "Created: %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	if rec.CompletedAt != nil {
		fmt.Fprintf(w, "Done:    %s\n", rec.CompletedAt.UTC().Format(time.RFC3339))
	}

	if rec.Status == models.StatusError {
		fmt.Fprintf(w, "Error:   %s\n", rec.ErrorMessage)
		return nil
	}
	if rec.Result == nil {
		return nil
	}

	res := rec.Result
	fmt.Fprintf(w, "Title:   %s\n", res.Title)
	if res.MetaDescription != "" {
		fmt.Fprintf(w, "Summary: %s\n", res.MetaDescription)
	}
	fmt.Fprintf(w, "Words:   %d\n", res.WordCount)
	fmt.Fprintf(w, "Links:   %d\n", len(res.Links))
	fmt.Fprintf(w, "Images:  %d\n", len(res.Images))

	for _, level := range models.HeadingLevels {
		if hs := res.Headings[level]; len(hs) > 0 {
			fmt.Fprintf(w, "%s:      %s\n", strings.ToUpper(level), strings.Join(hs, " | "))
		}
	}

	if len(res.Paragraphs) > 0 {
		fmt.Fprintln(w)
		for _, p := range res.Paragraphs {
			fmt.Fprintln(w, p)
		}
	}
	return nil
}
