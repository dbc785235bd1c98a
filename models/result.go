package models

import "time"

// HeadingLevels lists the heading tags collected into ScrapeResult.Headings.
var HeadingLevels = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// ScrapeResult is the structured content extracted from a single page.
// It is built once by the scraper and never mutated after it is stored.
type ScrapeResult struct {
	// URL is the original target URL, unchanged.
	URL string `json:"url" bson:"url"`

	Title           string `json:"title" bson:"title"`
	MetaDescription string `json:"meta_description" bson:"meta_description"`

	// Headings maps "h1".."h6" to heading texts in document order.
	// Every level is present; absent levels hold an empty slice.
	Headings map[string][]string `json:"headings" bson:"headings"`

	// Paragraphs holds the main-content paragraphs left after boilerplate filtering.
	Paragraphs []string `json:"paragraphs" bson:"paragraphs"`

	Links  []Link  `json:"links" bson:"links"`
	Images []Image `json:"images" bson:"images"`

	// MetaTags maps meta name (or property) to content. Later duplicates win.
	MetaTags map[string]string `json:"meta_tags" bson:"meta_tags"`

	// WordCount counts whitespace-delimited tokens of Paragraphs.
	WordCount int `json:"word_count" bson:"word_count"`

	ScrapedAt time.Time `json:"scraped_at" bson:"scraped_at"`
}

// Link represents an anchor extracted from the page.
type Link struct {
	Text        string `json:"text" bson:"text"`
	Href        string `json:"href" bson:"href"`
	AbsoluteURL string `json:"absolute_url" bson:"absolute_url"`
}

// Image represents an image element extracted from the page.
type Image struct {
	Src         string `json:"src" bson:"src"`
	Alt         string `json:"alt" bson:"alt"`
	AbsoluteURL string `json:"absolute_url" bson:"absolute_url"`
}

// NewScrapeResult returns an empty result for url with every collection
// initialised, so absent content serialises as [] and {} rather than null.
func NewScrapeResult(url string) *ScrapeResult {
	headings := make(map[string][]string, len(HeadingLevels))
	for _, level := range HeadingLevels {
		headings[level] = []string{}
	}
	return &ScrapeResult{
		URL:        url,
		Headings:   headings,
		Paragraphs: []string{},
		Links:      []Link{},
		Images:     []Image{},
		MetaTags:   map[string]string{},
	}
}

// Normalize fills nil collections left by decoders that drop empty values.
func (r *ScrapeResult) Normalize() {
	if r.Headings == nil {
		r.Headings = make(map[string][]string, len(HeadingLevels))
	}
	for _, level := range HeadingLevels {
		if r.Headings[level] == nil {
			r.Headings[level] = []string{}
		}
	}
	if r.Paragraphs == nil {
		r.Paragraphs = []string{}
	}
	if r.Links == nil {
		r.Links = []Link{}
	}
	if r.Images == nil {
		r.Images = []Image{}
	}
	if r.MetaTags == nil {
		r.MetaTags = map[string]string{}
	}
}
