package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint, which needs no API key.
type DuckDuckGo struct {
	baseURL    string
	client     *http.Client
	maxResults int
	maxBytes   int64
}

func NewDuckDuckGo(baseURL string, maxResults int, timeout time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = DefaultDuckDuckGoURL
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGo{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		maxResults: maxResults,
		maxBytes:   2 << 20, // 2MB
	}
}

var _ Searcher = (*DuckDuckGo)(nil)

func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	results, err := d.Results(ctx, query)
	if err != nil {
		return "", err
	}
	return Format(results), nil
}

// Results returns parsed hits, at most maxResults.
func (d *DuckDuckGo) Results(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoResults
	}

	endpoint, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; kernel-workspace/1.0)")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(&io.LimitedReader{R: resp.Body, N: d.maxBytes})
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	results := make([]Result, 0, d.maxResults)
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(results) >= d.maxResults {
			return false
		}
		if sel.HasClass("result--ad") {
			return true
		}

		link := sel.Find("a.result__a").First()
		title := normalizeWhitespace(link.Text())
		snippet := normalizeWhitespace(sel.Find(".result__snippet").First().Text())
		if title == "" && snippet == "" {
			return true
		}

		results = append(results, Result{
			Title:   title,
			URL:     resolveRedirect(link.AttrOr("href", "")),
			Snippet: snippet,
		})
		return true
	})

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// Format renders results as numbered plain-text entries.
func Format(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&b, "\n%s", r.URL)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&b, "\n%s", r.Snippet)
		}
	}
	return b.String()
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> links.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
