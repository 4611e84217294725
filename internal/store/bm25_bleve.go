package store

import (
	"context"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// bleveDoc is the document shape indexed into Bleve. Content is the
// already-tokenized text (tokens joined by spaces) so Bleve's own
// tokenizer only needs to split on whitespace; camelCase/snake_case
// splitting happened upstream via internal/tokenize.
type bleveDoc struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// BleveBM25Index is an alternate BM25Index backend built on Bleve, for
// deployments that want Bleve's on-disk segment format and query
// language instead of the native binary index. It satisfies the same
// upsert/delete contract as NativeBM25Index and normalizes query scores
// into [0, 1]; it stores no per-document metadata, so Query leaves
// metadata filtering to the caller.
type BleveBM25Index struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// NewBleveBM25Index opens (or creates) a Bleve index at path. An empty path
// creates an in-memory index, useful for tests.
func NewBleveBM25Index(path string) (*BleveBM25Index, error) {
	m := bleveIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "open bleve bm25 index")
	}
	return &BleveBM25Index{index: idx, path: path}, nil
}

func bleveIndexMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = "standard"
	return m
}

// Upsert indexes tokens (already split by internal/tokenize) under id.
func (b *BleveBM25Index) Upsert(_ context.Context, id string, tokens []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Index(id, bleveDoc{Content: strings.Join(tokens, " ")})
}

// Delete removes id from the index.
func (b *BleveBM25Index) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Delete(id)
}

// Query runs a match query over tokens and normalizes scores into [0, 1]
// by dividing by the top hit's score, matching NativeBM25Index's contract.
func (b *BleveBM25Index) Query(ctx context.Context, tokens []string, topK int, filter map[string]string) ([]QueryResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(tokens) == 0 {
		return nil, nil
	}

	match := bleve.NewMatchQuery(strings.Join(tokens, " "))
	match.SetField("content")

	req := bleve.NewSearchRequest(match)
	req.Size = topK
	if topK <= 0 {
		req.Size = 10
	}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "bleve bm25 search failed")
	}
	if len(result.Hits) == 0 {
		return nil, nil
	}

	maxScore := result.Hits[0].Score
	out := make([]QueryResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		norm := 0.0
		if maxScore > 0 {
			norm = hit.Score / maxScore
		}
		out = append(out, QueryResult{ID: hit.ID, Score: float32(norm)})
	}
	return filterBleveResults(out, filter), nil
}

// filterBleveResults drops results whose metadata does not match filter.
// Bleve hits carry no metadata, so results without any are kept and the
// filter is left to the caller.
func filterBleveResults(results []QueryResult, filter map[string]string) []QueryResult {
	if len(filter) == 0 {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if len(r.Metadata) == 0 || matchesFilter(r.Metadata, filter) {
			out = append(out, r)
		}
	}
	return out
}

// Save is a no-op when opened against a disk path: Bleve persists segments
// as documents are indexed. For an in-memory index there is nothing to
// flush to path; callers needing durability should open with a path.
func (b *BleveBM25Index) Save(_ string) error {
	return nil
}

// Load is a no-op: the index backing path is fixed at construction via
// NewBleveBM25Index.
func (b *BleveBM25Index) Load(_ string) error {
	return nil
}

// Close releases the underlying Bleve index.
func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

var _ BM25Index = (*BleveBM25Index)(nil)
