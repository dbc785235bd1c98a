package main

import (
	"fmt"
	"os"

	"github.com/use-agent/pagescrape/models"
)

// Run executes the export command.
func (c *ExportCmd) Run(deps *Dependencies) error {
	rec, err := deps.Scraper.Result(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", models.ErrorMessage(err))
		return err
	}

	data, err := models.EncodeResultJSON(rec.Result)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", models.ErrorMessage(err))
		return err
	}

	if c.Out == "" {
		_, err = deps.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", err)
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	fmt.Fprintf(deps.Stdout, "Exported %s to %s\n", rec.ID, c.Out)
	return nil
}
