package domain

import "context"

// WebSnippet is one piece of web-search content with its source attribution.
type WebSnippet struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// WebResult records the outcome of the web-search fallback for diagnostics.
// Attempted is false when the correction policy never triggered the search.
type WebResult struct {
	Attempted bool         `json:"attempted"`
	Succeeded bool         `json:"succeeded"`
	Snippets  []WebSnippet `json:"snippets,omitempty"`
	Err       string       `json:"error,omitempty"`
}

// HasContent reports whether the fallback produced usable text.
func (w WebResult) HasContent() bool {
	return w.Succeeded && len(w.Snippets) > 0
}

// WebSearcher queries an external search provider. Implementations own their
// timeout budget; callers treat any error as recoverable.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]WebSnippet, error)
}
