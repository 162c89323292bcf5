package extract

import (
	"encoding/json"
	"fmt"
)

// FromJSON parses a JSON document and re-serializes it with 2-space
// indentation; the pretty-printed serialization is treated as the page's
// cleaned content, so JSON API responses are indexed in a stable,
// human-legible form.
func FromJSON(pageURL string, body []byte) (*Document, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("extract: parse json for %q: %w", pageURL, err)
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("extract: reserialize json for %q: %w", pageURL, err)
	}

	text := truncateRunes(string(pretty), maxTextLen)

	return &Document{
		URL:         pageURL,
		Text:        text,
		WordCount:   countWords(text),
		ContentHash: ContentHash([]byte(text)),
		Language:    "en",
	}, nil
}
