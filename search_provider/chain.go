package search_provider

import (
	"context"
	"log/slog"
	"time"
)

// Chain invokes providers in declared order until the accumulated snippet
// count reaches the configured minimum or the providers are exhausted. A
// failing or timed-out provider is logged and skipped. An empty result is a
// valid outcome meaning "no external context found", not an error.
type Chain struct {
	providers       []Provider
	minSnippets     int
	providerTimeout time.Duration
	logger          *slog.Logger
}

func NewChain(minSnippets int, providerTimeout time.Duration, logger *slog.Logger, providers ...Provider) *Chain {
	if minSnippets < 1 {
		minSnippets = 1
	}
	return &Chain{
		providers:       providers,
		minSnippets:     minSnippets,
		providerTimeout: providerTimeout,
		logger:          logger,
	}
}

func (c *Chain) Search(ctx context.Context, query string, maxResults int) []Snippet {
	var collected []Snippet
	for _, provider := range c.providers {
		if ctx.Err() != nil {
			break
		}

		providerCtx, cancel := context.WithTimeout(ctx, c.providerTimeout)
		snippets, err := provider.Search(providerCtx, query, maxResults)
		cancel()

		if err != nil {
			c.logger.Warn("Search provider failed, trying next",
				slog.String("provider", provider.Name()),
				slog.String("error", err.Error()))
			continue
		}

		c.logger.Info("Search provider returned results",
			slog.String("provider", provider.Name()),
			slog.Int("snippets", len(snippets)))
		collected = append(collected, snippets...)

		if len(collected) >= c.minSnippets {
			break
		}
	}
	return collected
}
