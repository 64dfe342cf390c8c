package search_provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GoogleProvider wraps the Custom Search JSON API. It is only registered in
// the chain when an API key and search engine ID are configured.
type GoogleProvider struct {
	HttpClient     *http.Client
	BaseURL        string
	APIKey         string
	SearchEngineID string
}

func (p *GoogleProvider) Name() string { return "google" }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (p *GoogleProvider) Search(ctx context.Context, query string, maxResults int) ([]Snippet, error) {
	if p.APIKey == "" || p.SearchEngineID == "" {
		return nil, fmt.Errorf("google Custom Search API key or Search Engine ID is not configured")
	}

	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/customsearch/v1"
	}
	client := p.HttpClient
	if client == nil {
		client = http.DefaultClient
	}

	params := url.Values{}
	params.Set("key", p.APIKey)
	params.Set("cx", p.SearchEngineID)
	params.Set("q", query)
	if maxResults > 0 && maxResults <= 10 {
		params.Set("num", strconv.Itoa(maxResults))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Google search request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google search API returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var result googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding Google search response: %w", err)
	}

	snippets := make([]Snippet, 0, len(result.Items))
	for i, item := range result.Items {
		if i >= maxResults {
			break
		}
		content := cleanSearchContent(item.Snippet, WithMaxLength(500))
		if content == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Provider: p.Name(),
			Title:    item.Title,
			URL:      item.Link,
			Content:  content,
			Rank:     len(snippets) + 1,
		})
	}
	return snippets, nil
}
