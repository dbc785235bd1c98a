// Package extractor turns raw HTML into a structured models.ScrapeResult.
//
// Extraction is total: any byte input, including empty or malformed HTML,
// yields a well-formed result whose missing parts are empty. The HTML5 tree
// builder in golang.org/x/net/html recovers from unclosed tags and adds the
// implicit head/body, so callers never see a parse error.
package extractor

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/use-agent/pagescrape/models"
)

// Extractor derives structured content from HTML pages.
//
// The Markdown converter is created once and reused; Extractor is safe for
// concurrent use.
type Extractor struct {
	mdConverter *converter.Converter
}

// New returns an Extractor with a pre-configured Markdown converter.
func New() *Extractor {
	return &Extractor{
		mdConverter: newMarkdownConverter(),
	}
}

// Extract parses rawHTML and builds the ScrapeResult for baseURL.
//
// Relative links and image sources are resolved against baseURL. ScrapedAt is
// left zero; the scraper stamps it.
//
// Flow:
//  1. Parse into a DOM tree (never fails).
//  2. Title, meta description, headings, links, images and meta tags from
//     the full tree.
//  3. Paragraphs from a copy with boilerplate removed.
//  4. Word count over the cleaned paragraphs only.
func (e *Extractor) Extract(rawHTML []byte, baseURL string) *models.ScrapeResult {
	doc := parseDocument(rawHTML)
	result := models.NewScrapeResult(baseURL)

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	result.Title = extractTitle(doc)
	result.MetaDescription = extractMetaDescription(doc)
	extractHeadings(doc, result.Headings)
	result.Links = extractLinks(doc, base)
	result.Images = extractImages(doc, base)
	result.MetaTags = extractMetaTags(doc)

	// Boilerplate removal mutates the tree, so it runs on a copy and only
	// after everything that must see navigation links is collected.
	result.Paragraphs = CleanParagraphs(doc)
	result.WordCount = CountWords(result.Paragraphs)

	return result
}

// parseDocument builds a goquery document from arbitrary bytes. The tree
// builder only fails on reader errors, which a bytes.Reader never returns;
// an empty document is used as a last resort so extraction stays total.
func parseDocument(rawHTML []byte) *goquery.Document {
	root, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	return goquery.NewDocumentFromNode(root)
}

// cloneDocument deep-copies doc so the copy can be pruned freely.
func cloneDocument(doc *goquery.Document) *goquery.Document {
	return goquery.NewDocumentFromNode(doc.Selection.Clone().Get(0))
}

// normalizeText trims surrounding whitespace from element text.
func normalizeText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
