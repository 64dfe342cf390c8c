package search_provider_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koios-ai/koios/search_provider"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type stubProvider struct {
	name     string
	snippets []search_provider.Snippet
	err      error
	delay    time.Duration
	calls    int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(ctx context.Context, query string, maxResults int) ([]search_provider.Snippet, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.snippets, nil
}

func snippetsNamed(provider string, n int) []search_provider.Snippet {
	out := make([]search_provider.Snippet, n)
	for i := range out {
		out[i] = search_provider.Snippet{Provider: provider, Title: "t", Content: "c", Rank: i + 1}
	}
	return out
}

func TestChainStopsAtMinimumSnippetCount(t *testing.T) {
	first := &stubProvider{name: "first", snippets: snippetsNamed("first", 3)}
	second := &stubProvider{name: "second", snippets: snippetsNamed("second", 3)}

	chain := search_provider.NewChain(3, time.Second, testLogger(), first, second)
	got := chain.Search(context.Background(), "q", 5)

	assert.Len(t, got, 3)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "chain must short-circuit once the minimum is met")
}

func TestChainSkipsFailingProvider(t *testing.T) {
	failing := &stubProvider{name: "failing", err: search_provider.ErrProviderUnavailable}
	working := &stubProvider{name: "working", snippets: snippetsNamed("working", 3)}

	chain := search_provider.NewChain(3, time.Second, testLogger(), failing, working)
	got := chain.Search(context.Background(), "q", 5)

	require.Len(t, got, 3)
	assert.Equal(t, "working", got[0].Provider)
	assert.Equal(t, 1, failing.calls)
}

func TestChainAccumulatesAcrossProviders(t *testing.T) {
	first := &stubProvider{name: "first", snippets: snippetsNamed("first", 1)}
	second := &stubProvider{name: "second", snippets: snippetsNamed("second", 2)}

	chain := search_provider.NewChain(3, time.Second, testLogger(), first, second)
	got := chain.Search(context.Background(), "q", 5)

	require.Len(t, got, 3)
	// Declared provider order is preserved in the accumulated results.
	assert.Equal(t, "first", got[0].Provider)
	assert.Equal(t, "second", got[1].Provider)
}

func TestChainAllProvidersFailYieldsEmptyResult(t *testing.T) {
	a := &stubProvider{name: "a", err: errors.New("boom")}
	b := &stubProvider{name: "b", err: errors.New("also boom")}

	chain := search_provider.NewChain(3, time.Second, testLogger(), a, b)
	got := chain.Search(context.Background(), "q", 5)

	assert.Empty(t, got)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestChainTimesOutSlowProviderAndContinues(t *testing.T) {
	slow := &stubProvider{name: "slow", delay: 500 * time.Millisecond, snippets: snippetsNamed("slow", 3)}
	fast := &stubProvider{name: "fast", snippets: snippetsNamed("fast", 3)}

	chain := search_provider.NewChain(3, 50*time.Millisecond, testLogger(), slow, fast)
	got := chain.Search(context.Background(), "q", 5)

	require.Len(t, got, 3)
	assert.Equal(t, "fast", got[0].Provider)
}
