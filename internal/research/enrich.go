package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/brieflyhq/briefly/internal/scrape"
	"github.com/brieflyhq/briefly/internal/search"
)

// unscrapableDomains resist generic text extraction (login walls, JS apps)
// and are already represented structurally in their own result buckets.
var unscrapableDomains = []string{
	"reddit.com",
	"youtube.com",
	"youtu.be",
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
	"news.ycombinator.com",
	"linkedin.com",
}

// Scrapable reports whether a URL is worth handing to the page fetcher:
// http/https only, and not on the excluded-domain list.
func Scrapable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range unscrapableDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return false
		}
	}
	return true
}

const integrateSystemPrompt = `You are an expert research writer. You will be given a research narrative and additional source material. Rewrite the narrative to integrate any new facts from the source material. Preserve the original tone and structure. Do not mention where the additional material came from. Do not repeat facts already present. Return only the rewritten narrative.`

// enrich fetches readable content for the top merged results in parallel and
// asks the text-generation provider to fold the new material into the
// narrative. Every failure path degrades to the original narrative; the
// caller never sees an error from this stage.
func (s *Service) enrich(ctx context.Context, narrative string, merged []search.Result) string {
	if s.Fetcher == nil || s.LLM == nil || narrative == "" {
		return narrative
	}

	var candidates []string
	for _, r := range merged {
		if !Scrapable(r.URL) {
			continue
		}
		candidates = append(candidates, r.URL)
		if len(candidates) == MaxEnrichPages {
			break
		}
	}
	if len(candidates) == 0 {
		return narrative
	}

	// One goroutine per page; a slow or failing page affects nobody else.
	pages := make([]scrape.Page, len(candidates))
	ok := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, u := range candidates {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			page, err := s.Fetcher.Fetch(ctx, u)
			if err != nil {
				s.logger().Printf("enrich fetch %s: %v", u, err)
				return
			}
			if len(page.Text) > PageTextBudget {
				page.Text = page.Text[:PageTextBudget]
			}
			pages[i], ok[i] = page, true
		}(i, u)
	}
	wg.Wait()

	var fetched []scrape.Page
	for i, page := range pages {
		if ok[i] {
			fetched = append(fetched, page)
		}
	}
	if len(fetched) == 0 {
		enrichOutcomes.WithLabelValues("no_pages").Inc()
		return narrative
	}

	updated, err := s.LLM.Complete(ctx, integrateSystemPrompt, integratePrompt(narrative, fetched))
	if err != nil || strings.TrimSpace(updated) == "" {
		s.logger().Printf("enrich rewrite failed: %v", err)
		enrichOutcomes.WithLabelValues("rewrite_failed").Inc()
		return narrative
	}
	enrichOutcomes.WithLabelValues("ok").Inc()
	return strings.TrimSpace(updated)
}

func integratePrompt(narrative string, pages []scrape.Page) string {
	var b strings.Builder
	b.WriteString("CURRENT NARRATIVE:\n")
	b.WriteString(narrative)
	b.WriteString("\n\nADDITIONAL SOURCE MATERIAL:\n")
	for i, p := range pages {
		fmt.Fprintf(&b, "\n--- Source %d: %s (%s)\n", i+1, p.Title, p.URL)
		if p.Author != "" {
			fmt.Fprintf(&b, "Author: %s\n", p.Author)
		}
		if p.Published != "" {
			fmt.Fprintf(&b, "Published: %s\n", p.Published)
		}
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String()
}
