package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/pagescrape/models"
)

func handleScrapeURL(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		markdown := request.GetBool("include_markdown", false)

		resp, err := client.scrape(ctx, target, markdown)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success || resp.Data == nil {
			return mcp.NewToolResultError("scrape failed"), nil
		}

		return mcp.NewToolResultText(formatResult(resp, markdown)), nil
	}
}

// formatResult renders a scrape as a short header followed by the page text.
func formatResult(resp *models.ScrapeResponse, markdown bool) string {
	d := resp.Data

	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s\n", resp.ID)
	fmt.Fprintf(&b, "Title: %s\n", d.Title)
	fmt.Fprintf(&b, "Source: %s\n", d.URL)
	if d.MetaDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", d.MetaDescription)
	}
	fmt.Fprintf(&b, "Words: %d  Links: %d  Images: %d\n", d.WordCount, len(d.Links), len(d.Images))

	for _, level := range models.HeadingLevels {
		if hs := d.Headings[level]; len(hs) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(level), strings.Join(hs, " | "))
		}
	}

	b.WriteString("\n")
	if markdown && resp.Markdown != "" {
		b.WriteString(resp.Markdown)
	} else {
		b.WriteString(strings.Join(d.Paragraphs, "\n\n"))
	}
	return b.String()
}

func handleGetScrape(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		rec, err := client.get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format record: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func handleListScrapes(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 10)
		if limit < 1 {
			return mcp.NewToolResultError("limit must be a positive integer"), nil
		}

		resp, err := client.list(ctx, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(resp.Records) == 0 {
			return mcp.NewToolResultText("No scrapes found."), nil
		}

		var b strings.Builder
		for _, r := range resp.Records {
			title := r.Title
			if title == "" {
				title = "-"
			}
			fmt.Fprintf(&b, "%s  %s  %s  %s  %s\n",
				r.ID, r.Status, r.CreatedAt.UTC().Format(time.RFC3339), r.URL, title)
			if r.Status == models.StatusError && r.ErrorMessage != "" {
				fmt.Fprintf(&b, "    error: %s\n", r.ErrorMessage)
			}
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}
