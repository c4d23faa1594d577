package research

import (
	"fmt"
	"strings"

	"github.com/brieflyhq/briefly/internal/search"
)

const closingInstruction = "Synthesize the material above into a coherent brief and cite sources by number."

// Format renders the aggregation result as one structured text block. It is
// pure: the same Context always yields the same string, which matters
// because the output is persisted and later displayed verbatim.
func Format(rc *Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "RESEARCH BRIEF: %s\n", rc.Query)
	fmt.Fprintf(&b, "Sources gathered: %d\n", rc.Total())

	if rc.Summary != "" {
		b.WriteString("\nSUMMARY\n")
		b.WriteString(rc.Summary)
		b.WriteString("\n")
	}

	if len(rc.MergedWeb) > 0 {
		b.WriteString("\nWEB SOURCES\n")
		for i, r := range rc.MergedWeb {
			fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
			if r.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", r.Snippet)
			}
		}
	}

	if forum := rc.Buckets[search.KindForum]; len(forum) > 0 {
		b.WriteString("\nDISCUSSIONS\n")
		for _, r := range forum {
			fmt.Fprintf(&b, "- [r/%s] %s (%d points, %d comments)\n  %s\n",
				r.Subreddit, r.Title, int(r.Engagement), r.CommentCount, r.URL)
			if r.Snippet != "" {
				fmt.Fprintf(&b, "  %s\n", r.Snippet)
			}
		}
	}

	if agg := rc.Buckets[search.KindLinkAggregator]; len(agg) > 0 {
		b.WriteString("\nLINK AGGREGATOR\n")
		for _, r := range agg {
			fmt.Fprintf(&b, "- %s (%d points, %d comments)\n  %s\n",
				r.Title, int(r.Engagement), r.CommentCount, r.URL)
		}
	}

	if videos := rc.Buckets[search.KindVideo]; len(videos) > 0 {
		b.WriteString("\nVIDEOS\n")
		for _, r := range videos {
			fmt.Fprintf(&b, "- %s [%s]", r.Title, r.Channel)
			if r.PublishedAt != "" {
				fmt.Fprintf(&b, " (%s)", r.PublishedAt)
			}
			fmt.Fprintf(&b, "\n  %s\n", r.URL)
		}
	}

	b.WriteString("\n")
	b.WriteString(closingInstruction)
	b.WriteString("\n")
	return b.String()
}
