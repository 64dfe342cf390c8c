package search_provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// DuckDuckGoProvider scrapes the HTML results endpoint. DuckDuckGo tolerates
// roughly one request per second, so all calls go through a shared limiter.
type DuckDuckGoProvider struct {
	HttpClient *http.Client
	BaseURL    string
	limiter    *rate.Limiter
}

func NewDuckDuckGoProvider(client *http.Client) *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		HttpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]Snippet, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com/html/"
	}
	client := p.HttpClient
	if client == nil {
		client = http.DefaultClient
	}

	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating DuckDuckGo request: %w", err)
	}
	// The HTML endpoint rejects requests without a browser-looking UA.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/127.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: DuckDuckGo returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing DuckDuckGo HTML: %w", err)
	}

	var snippets []Snippet
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(snippets) >= maxResults {
			return false
		}

		link := s.Find(".result__a")
		title := strings.TrimSpace(link.Text())
		body := cleanSearchContent(s.Find(".result__snippet").Text(), WithMaxLength(500))
		if title == "" || body == "" {
			return true
		}

		href, _ := link.Attr("href")
		snippets = append(snippets, Snippet{
			Provider: p.Name(),
			Title:    title,
			URL:      resolveDuckDuckGoURL(href),
			Content:  body,
			Rank:     len(snippets) + 1,
		})
		return true
	})

	return snippets, nil
}

// resolveDuckDuckGoURL unwraps the redirect links the HTML endpoint uses
// (//duckduckgo.com/l/?uddg=<encoded target>).
func resolveDuckDuckGoURL(href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
