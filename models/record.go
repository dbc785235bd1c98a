package models

import (
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of a ScrapeRecord.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// MaxTitleLength bounds the denormalised title kept on a record for listings.
const MaxTitleLength = 200

// ScrapeRecord is the persisted entity wrapping one scrape attempt.
//
// A record is created pending and moves exactly once to success (Result set)
// or error (ErrorMessage set).
type ScrapeRecord struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Status       Status        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Result       *ScrapeResult `json:"result,omitempty"`
}

// IsTerminal reports whether the record has left the pending state.
func (r *ScrapeRecord) IsTerminal() bool {
	return r.Status == StatusSuccess || r.Status == StatusError
}

// RecordTitle returns the title stored alongside a successful record,
// truncated to MaxTitleLength runes.
func RecordTitle(result *ScrapeResult) string {
	if result == nil {
		return ""
	}
	title := result.Title
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:MaxTitleLength])
}
