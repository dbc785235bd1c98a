package extractor

import (
	"bytes"
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// minArticleLength is the minimum readability TextContent length (in
// characters) for its output to be trusted over the whole document.
const minArticleLength = 50

// newMarkdownConverter creates a goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link
//     and comments.
//   - commonmark plugin: headings, lists, links, code blocks, emphasis.
//   - table plugin: keeps table structure with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// Markdown renders the main article of rawHTML as Markdown. Relative links
// and images are made absolute against baseURL.
//
// The article is located with go-readability. When readability fails or
// finds too little text, the whole document is converted instead.
func (e *Extractor) Markdown(rawHTML []byte, baseURL string) (string, error) {
	articleHTML := readableHTML(rawHTML, baseURL)
	md, err := e.mdConverter.ConvertString(articleHTML, converter.WithDomain(baseURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// readableHTML returns readability's article HTML, or rawHTML on fallback.
func readableHTML(rawHTML []byte, baseURL string) string {
	pageURL, err := nurl.Parse(baseURL)
	if err != nil {
		slog.Debug("readability: invalid base URL, using whole document",
			"url", baseURL, "error", err,
		)
		return string(rawHTML)
	}

	article, err := readability.FromReader(bytes.NewReader(rawHTML), pageURL)
	if err != nil {
		slog.Debug("readability: extraction failed, using whole document",
			"url", baseURL, "error", err,
		)
		return string(rawHTML)
	}

	if len(strings.TrimSpace(article.TextContent)) < minArticleLength {
		slog.Debug("readability: article too short, using whole document",
			"url", baseURL, "length", len(article.TextContent),
		)
		return string(rawHTML)
	}

	return article.Content
}
