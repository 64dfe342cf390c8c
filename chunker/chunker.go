package chunker

import "strings"

const (
	defaultMaxChunkSize = 1000
	defaultOverlap      = 200
)

// Chunker splits raw text into fixed-size overlapping spans sized for
// embedding and retrieval. Splitting is a pure transform: the same input
// always yields the same spans, and consecutive spans overlap so retrieval
// does not lose context at chunk boundaries.
type Chunker struct {
	maxChunkSize int
	overlap      int
}

func New(maxChunkSize, overlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 5
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
	}
}

// Split returns the chunk texts covering the input exactly once. Text at or
// under the maximum size yields a single chunk. Whitespace-only input yields
// no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.maxChunkSize {
		return []string{text}
	}

	step := c.maxChunkSize - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
