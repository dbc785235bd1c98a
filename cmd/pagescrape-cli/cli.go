package main

import (
	"context"
	"io"
	"time"

	"github.com/use-agent/pagescrape/scraper"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Scraper *scraper.Scraper
	Now     func() time.Time
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Scrape ScrapeCmd `cmd:"" help:"Scrape one or more URLs and save the results"`
	List   ListCmd   `cmd:"" help:"List recent scrapes"`
	Show   ShowCmd   `cmd:"" help:"Show a scrape record"`
	Export ExportCmd `cmd:"" help:"Write a successful scrape result as JSON"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	URLs        []string `arg:"" name:"url" help:"URLs to scrape"`
	Markdown    bool     `short:"m" help:"Also print a Markdown rendition of each page"`
	Out         string   `short:"o" type:"path" help:"Directory to write one JSON file per successful scrape"`
	Concurrency int      `short:"c" default:"4" help:"Concurrent scrape limit"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Limit int `short:"n" default:"10" help:"Maximum number of records"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID string `arg:"" help:"Scrape record ID"`
}

// ExportCmd is the "export" subcommand.
type ExportCmd struct {
	ID  string `arg:"" help:"Scrape record ID"`
	Out string `short:"o" type:"path" help:"Output file (default: stdout)"`
}
