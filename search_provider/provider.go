// Package search_provider holds the internet-search fallback chain: an
// ordered, closed set of web-search backends normalizing their results into
// a common snippet shape.
package search_provider

import (
	"context"
	"errors"
)

// ErrProviderUnavailable marks a provider that cannot serve the query right
// now (network failure, rate limit, bad upstream response). The chain skips
// such providers and moves on; it is never fatal for the pipeline.
var ErrProviderUnavailable = errors.New("search provider unavailable")

// Snippet is a provider-normalized web search result. Ephemeral, never
// persisted.
type Snippet struct {
	Provider string `json:"provider"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Content  string `json:"content"`
	Rank     int    `json:"rank"`
}

// Provider is one web-search backend. Implementations must honor the
// context deadline; the chain gives each provider its own timeout budget.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Snippet, error)
}
