package search_provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var wikiMarkup = regexp.MustCompile(`<[^>]+>`)

// WikipediaProvider queries the MediaWiki search API. It is the encyclopedia
// fallback when general web search is rate limited or down.
type WikipediaProvider struct {
	HttpClient *http.Client
	BaseURL    string
}

func (p *WikipediaProvider) Name() string { return "wikipedia" }

type wikipediaResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

func (p *WikipediaProvider) Search(ctx context.Context, query string, maxResults int) ([]Snippet, error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org/w/api.php"
	}
	client := p.HttpClient
	if client == nil {
		client = http.DefaultClient
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(maxResults))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Wikipedia request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: Wikipedia returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var result wikipediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding Wikipedia response: %w", err)
	}

	snippets := make([]Snippet, 0, len(result.Query.Search))
	for i, hit := range result.Query.Search {
		if i >= maxResults {
			break
		}
		content := cleanSearchContent(wikiMarkup.ReplaceAllString(hit.Snippet, ""), WithMaxLength(500))
		if content == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Provider: p.Name(),
			Title:    hit.Title,
			URL:      "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(hit.Title, " ", "_")),
			Content:  content,
			Rank:     len(snippets) + 1,
		})
	}
	return snippets, nil
}
