package search_provider

import (
	"regexp"
	"strings"
)

var (
	extraWhitespace = regexp.MustCompile(`\s+`)
	articlePrefix   = regexp.MustCompile(`^(Share|Comments|Published|By|Author|Posted|Updated).+?\n`)
)

// cleanSearchContent normalizes snippet text from the various search
// backends: collapses whitespace, strips common article boilerplate and
// truncates at a word or sentence boundary.
func cleanSearchContent(content string, options ...cleanOption) string {
	config := &cleanConfig{
		maxLength:      2000,
		truncateSuffix: "...",
	}
	for _, opt := range options {
		opt(config)
	}

	content = extraWhitespace.ReplaceAllString(content, " ")
	content = articlePrefix.ReplaceAllString(content, "")
	content = strings.TrimSpace(content)

	if config.maxLength > 0 && len(content) > config.maxLength {
		content = content[:config.maxLength]
		// Try to end at a proper sentence or word boundary
		if idx := strings.LastIndex(content, ". "); idx > config.maxLength/2 {
			content = content[:idx+1]
		} else if idx := strings.LastIndex(content, " "); idx > config.maxLength/2 {
			content = content[:idx]
		}
		content += config.truncateSuffix
	}

	return content
}

type cleanConfig struct {
	maxLength      int
	truncateSuffix string
}

type cleanOption func(*cleanConfig)

// WithMaxLength sets the maximum length for cleaned content.
func WithMaxLength(length int) cleanOption {
	return func(c *cleanConfig) {
		c.maxLength = length
	}
}

// WithTruncateSuffix sets the suffix appended when content is truncated.
func WithTruncateSuffix(suffix string) cleanOption {
	return func(c *cleanConfig) {
		c.truncateSuffix = suffix
	}
}
