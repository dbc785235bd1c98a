package extractor

import "strings"

// navigationPhrases are lower-case phrases typical of menus, footers and
// share widgets.
var navigationPhrases = []string{
	"home", "about", "contact", "login", "register", "subscribe",
	"menu", "navigation", "skip to", "breadcrumb", "previous", "next",
	"share on", "follow us", "copyright", "©", "privacy policy",
	"terms of service", "cookie policy", "all rights reserved",
}

// minContentTokens is the number of words below which text is treated as
// a menu label rather than prose.
const minContentTokens = 4

// IsLikelyNavigation reports whether text looks like navigation or footer
// boilerplate rather than article prose. Text is navigation when it
// contains a boilerplate phrase (case-insensitive), has fewer than four
// words, contains more than two "|" separators, or contains "»" or "→".
func IsLikelyNavigation(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range navigationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	if len(strings.Fields(text)) < minContentTokens {
		return true
	}

	if strings.Count(text, "|") > 2 || strings.ContainsAny(text, "»→") {
		return true
	}

	return false
}
