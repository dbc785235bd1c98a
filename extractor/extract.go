package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/pagescrape/models"
)

// extractTitle returns the trimmed text of the first <title> element.
func extractTitle(doc *goquery.Document) string {
	return normalizeText(doc.Find("title").First())
}

// extractMetaDescription returns the content of <meta name="description">.
func extractMetaDescription(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return content
}

// extractHeadings appends the trimmed text of every h1..h6, in document
// order, to the pre-initialised headings map.
func extractHeadings(doc *goquery.Document, headings map[string][]string) {
	for _, level := range models.HeadingLevels {
		doc.Find(level).Each(func(_ int, s *goquery.Selection) {
			headings[level] = append(headings[level], normalizeText(s))
		})
	}
}

// extractLinks returns one Link per anchor with a non-empty href, in document
// order. Duplicates are kept; every anchor on the page is reported.
func extractLinks(doc *goquery.Document, base *url.URL) []models.Link {
	links := []models.Link{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		links = append(links, models.Link{
			Text:        normalizeText(s),
			Href:        href,
			AbsoluteURL: ResolveURL(base, href),
		})
	})
	return links
}

// extractImages returns one Image per <img> with a non-empty src.
func extractImages(doc *goquery.Document, base *url.URL) []models.Image {
	images := []models.Image{}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		alt, _ := s.Attr("alt")
		images = append(images, models.Image{
			Src:         src,
			Alt:         alt,
			AbsoluteURL: ResolveURL(base, src),
		})
	})
	return images
}

// extractMetaTags maps every <meta> name (or property, when name is empty)
// to its content. Tags without a key or content are skipped, and a later
// occurrence of a key overwrites an earlier one.
func extractMetaTags(doc *goquery.Document) map[string]string {
	tags := map[string]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, _ := s.Attr("name")
		if key == "" {
			key, _ = s.Attr("property")
		}
		content, _ := s.Attr("content")
		if key == "" || content == "" {
			return
		}
		tags[key] = content
	})
	return tags
}

// ResolveURL resolves ref against base following RFC 3986 reference
// resolution: relative paths, protocol-relative, query-only and
// fragment-only references all resolve. When base is nil or ref cannot be
// parsed, ref is returned unchanged.
func ResolveURL(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	resolved, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return resolved.String()
}
