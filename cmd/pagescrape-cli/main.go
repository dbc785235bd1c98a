package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/use-agent/pagescrape/config"
	"github.com/use-agent/pagescrape/extractor"
	"github.com/use-agent/pagescrape/scraper"
	"github.com/use-agent/pagescrape/store"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is loaded from the environment when nil.
	Config *config.Config

	// Store and Fetcher replace the configured adapters when set.
	Store   store.Store
	Fetcher scraper.PageFetcher

	// Now stamps output file names.
	Now func() time.Time
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Now: time.Now}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("pagescrape"),
		kong.Description("Scrape single web pages into structured records."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'pagescrape --help' to see available commands")
	}

	switch args[0] {
	case "help", "--help", "-h":
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg := m.Config
	if cfg == nil {
		cfg, err = config.Load()
		if err != nil {
			return err
		}
	}

	st := m.Store
	if st == nil {
		st, err = store.Open(ctx, cfg.Store)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: set PAGESCRAPE_STORE_DRIVER or PAGESCRAPE_SQLITE_PATH to use a different store")
			return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
		}
		defer st.Close()
	}

	fetcher := m.Fetcher
	if fetcher == nil {
		fetcher = scraper.NewFetcher(cfg.Fetch)
	}

	deps.Scraper = scraper.New(fetcher, extractor.New(), st)

	return kongCtx.Run(deps)
}
