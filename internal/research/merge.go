package research

import (
	"strings"

	"github.com/brieflyhq/briefly/internal/search"
)

// NormalizeURL produces the dedup key for a result URL: lowercased, with
// any trailing slash stripped.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimSuffix(u, "/")
}

// MergeWebResults combines the AI-search source's cited links with the
// supplemental web-search results into one ordered, deduplicated list.
// Primary results are inserted first, so on a URL collision the primary's
// version survives: those links arrive pre-validated by the provider's
// citation process. The merged list is capped at MaxMergedWebResults.
// Forum, aggregator and video results are never merged here; their shape
// does not map onto the web-result one and they stay in their own buckets.
func MergeWebResults(primary, secondary []search.Result) []search.Result {
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	out := make([]search.Result, 0, len(primary)+len(secondary))
	for _, lists := range [][]search.Result{primary, secondary} {
		for _, r := range lists {
			key := NormalizeURL(r.URL)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
			if len(out) == MaxMergedWebResults {
				return out
			}
		}
	}
	return out
}
