package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// minParagraphLength is the rune length a paragraph must exceed to count as
// main content.
const minParagraphLength = 20

// boilerplateElements matches structural elements that never hold main content.
var boilerplateElements = cascadia.MustCompile("nav, header, footer, aside, script, style, noscript")

// boilerplateClassKeywords are substrings of a class attribute that mark an
// element as ads or chrome. Matching is a case-insensitive substring test on
// the whole attribute, so "ad" also hits "header" or "shadow".
var boilerplateClassKeywords = []string{
	"ad", "advertisement", "sidebar", "navigation", "nav", "menu", "footer", "header",
}

// CleanParagraphs returns the main-content paragraphs of doc.
//
// A copy of the tree is pruned of boilerplate elements and of any element
// whose class carries a boilerplate keyword. Every remaining <p> whose
// trimmed text is longer than 20 runes and is not navigation text is kept,
// in document order. doc itself is not modified.
func CleanParagraphs(doc *goquery.Document) []string {
	cleaned := cloneDocument(doc)
	RemoveBoilerplate(cleaned)

	paragraphs := []string{}
	cleaned.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := normalizeText(s)
		if utf8.RuneCountInString(text) <= minParagraphLength {
			return
		}
		if IsLikelyNavigation(text) {
			return
		}
		paragraphs = append(paragraphs, text)
	})
	return paragraphs
}

// RemoveBoilerplate deletes navigation, header, footer, aside, script, style
// and noscript elements, then every element with a boilerplate class.
func RemoveBoilerplate(doc *goquery.Document) {
	doc.FindMatcher(boilerplateElements).Remove()
	doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return hasBoilerplateClass(class)
	}).Remove()
}

func hasBoilerplateClass(class string) bool {
	lower := strings.ToLower(class)
	for _, kw := range boilerplateClassKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CountWords counts the whitespace-delimited tokens of the given paragraphs
// joined with single spaces.
func CountWords(paragraphs []string) int {
	return len(strings.Fields(strings.Join(paragraphs, " ")))
}
