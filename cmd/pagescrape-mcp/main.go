package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/pagescrape/api/handler"
	"github.com/use-agent/pagescrape/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// The API key is optional; it is only needed when the server runs with auth enabled.
	client := newAPIClient(cfg.Server.APIBaseURL, os.Getenv("PAGESCRAPE_API_KEY"), cfg.Fetch.Timeout+30*time.Second)

	if err := server.ServeStdio(newServer(client)); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

// newServer registers the pagescrape tools against client.
func newServer(client *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"pagescrape",
		handler.Version,
		server.WithToolCapabilities(false),
	)

	scrapeURLTool := mcp.NewTool("scrape_url",
		mcp.WithDescription("Fetch a single web page and return its title, headings, cleaned paragraphs and link counts. The result is saved and can be fetched again with get_scrape."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http or https URL of the page to scrape"),
		),
		mcp.WithBoolean("include_markdown",
			mcp.Description("Return a Markdown rendition of the main article instead of the plain paragraphs"),
		),
	)
	s.AddTool(scrapeURLTool, handleScrapeURL(client))

	getScrapeTool := mcp.NewTool("get_scrape",
		mcp.WithDescription("Return a saved scrape record, including its full extracted data, as JSON."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Scrape record ID returned by scrape_url or list_scrapes"),
		),
	)
	s.AddTool(getScrapeTool, handleGetScrape(client))

	listScrapesTool := mcp.NewTool("list_scrapes",
		mcp.WithDescription("List recent scrapes, newest first, with their status and title."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of records (default: 10, max: 100)"),
		),
	)
	s.AddTool(listScrapesTool, handleListScrapes(client))

	return s
}
