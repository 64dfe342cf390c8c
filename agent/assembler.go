package agent

import (
	"fmt"
	"strings"

	"github.com/koios-ai/koios/document_store"
	"github.com/koios-ai/koios/search_provider"
)

// AssembleContext merges retrieved document chunks and web search snippets
// into a single context block bounded by budget characters. Document chunks
// come first: local knowledge is trusted over search results. Units are
// appended whole; the first unit that would overflow the budget ends the
// block, so a chunk or snippet is never cut mid-unit. Empty inputs yield an
// empty string.
func AssembleContext(budget int, retrieval document_store.RetrievalResult, snippets []search_provider.Snippet) string {
	if budget <= 0 {
		return ""
	}

	units := make([]string, 0, len(retrieval)+len(snippets))
	for _, scored := range retrieval {
		units = append(units, fmt.Sprintf("Document excerpt (%s):\n%s",
			scored.Chunk.Filename, strings.TrimSpace(scored.Chunk.Text)))
	}
	for _, snippet := range snippets {
		header := fmt.Sprintf("Web result [%s] %s", snippet.Provider, snippet.Title)
		if snippet.URL != "" {
			header += " — " + snippet.URL
		}
		units = append(units, header+"\n"+strings.TrimSpace(snippet.Content))
	}

	const separator = "\n\n"
	var b strings.Builder
	for _, unit := range units {
		needed := len(unit)
		if b.Len() > 0 {
			needed += len(separator)
		}
		if b.Len()+needed > budget {
			break
		}
		if b.Len() > 0 {
			b.WriteString(separator)
		}
		b.WriteString(unit)
	}
	return b.String()
}
