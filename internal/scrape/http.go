package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const maxBodyBytes = 4 << 20 // refuse to buffer more than 4 MiB of HTML

// HTTPFetcher retrieves a page with a plain GET and extracts the article
// body with readability. Byline and publish date come from document metadata
// when readability doesn't surface them.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	MaxChars  int
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Page{}, errors.New("scrape: empty url")
	}
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Page{}, err
	}
	ua := f.UserAgent
	if ua == "" {
		ua = "briefly/1.0 (+https://briefly.app)"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.Client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("scrape: %s: %s", rawURL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, err
	}
	html := string(body)

	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(rawURL))
	if err != nil {
		return Page{}, fmt.Errorf("scrape: extract %s: %w", rawURL, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if f.MaxChars > 0 && len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}

	page := Page{
		URL:         rawURL,
		Title:       strings.TrimSpace(article.Title),
		Description: strings.TrimSpace(article.Excerpt),
		Text:        text,
		Author:      strings.TrimSpace(article.Byline),
	}
	fillMeta(&page, html)
	return page, nil
}

// fillMeta backfills author/published/description from <meta> tags. Best
// effort: a page that parses with readability but has no metadata is fine.
func fillMeta(page *Page, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}
	meta := func(names ...string) string {
		for _, name := range names {
			sel := fmt.Sprintf(`meta[name=%q], meta[property=%q]`, name, name)
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	if page.Author == "" {
		page.Author = meta("author", "article:author")
	}
	if page.Published == "" {
		page.Published = meta("article:published_time", "date", "og:article:published_time")
	}
	if page.Description == "" {
		page.Description = meta("description", "og:description")
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
