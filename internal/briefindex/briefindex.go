// Package briefindex maintains an in-memory BM25 index over saved briefs
// so users can search their research history by keyword. The index is
// rebuilt from the store at startup and kept current as briefs are
// saved and deleted.
package briefindex

import (
	"sync"

	"github.com/blevesearch/bleve"
)

// Doc is the indexed shape of a brief.
type Doc struct {
	BriefID  string `json:"brief_id"`
	Identity string `json:"identity"`
	Topic    string `json:"topic"`
	Text     string `json:"text"`
}

// Hit is a single search result.
type Hit struct {
	BriefID string
	Topic   string
	Snippet string
	Score   float64
	Rank    int
}

// Index wraps a mem-only bleve index plus a metadata map for snippets.
type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
	meta  map[string]Doc
}

// New creates an empty in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, meta: map[string]Doc{}}, nil
}

// Add indexes or reindexes a brief.
func (ix *Index) Add(doc Doc) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.bleve.Index(doc.BriefID, doc); err != nil {
		return err
	}
	ix.meta[doc.BriefID] = doc
	return nil
}

// Delete removes a brief from the index. Unknown ids are a no-op.
func (ix *Index) Delete(briefID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.meta, briefID)
	return ix.bleve.Delete(briefID)
}

// Search runs a BM25 query and returns up to k hits owned by identity.
// Hits from other identities are filtered out after scoring, so the
// request over-fetches to keep k results likely.
func (ix *Index) Search(identity, q string, k int) ([]Hit, error) {
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res, err := ix.bleve.Search(searchReq)
	if err != nil {
		return nil, err
	}
	var out []Hit
	for _, hit := range res.Hits {
		doc, ok := ix.meta[hit.ID]
		if !ok || doc.Identity != identity {
			continue
		}
		out = append(out, Hit{
			BriefID: doc.BriefID,
			Topic:   doc.Topic,
			Snippet: snippet(doc.Text),
			Score:   hit.Score,
			Rank:    len(out) + 1,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func snippet(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
