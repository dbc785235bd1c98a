package models

import (
	"bytes"
	"encoding/json"
)

// EncodeResultJSON renders a ScrapeResult as pretty-printed UTF-8 JSON with
// two-space indentation. Non-ASCII and HTML characters are written verbatim.
func EncodeResultJSON(result *ScrapeResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, NewScrapeError(ErrCodeSerialization, "failed to encode scrape result", err)
	}
	return buf.Bytes(), nil
}

// DecodeResultJSON parses data produced by EncodeResultJSON (or any compact
// encoding of the same shape).
func DecodeResultJSON(data []byte) (*ScrapeResult, error) {
	var result ScrapeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewScrapeError(ErrCodeSerialization, "stored scrape result is not valid JSON", err)
	}
	result.Normalize()
	return &result, nil
}
