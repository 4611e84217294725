package search

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/store"
	"github.com/windschord/context-mcp-sub001/internal/tokenize"
)

// Observer receives an optional notification once a Search call
// completes, for callers that want query-level telemetry without
// threading it through the return value.
type Observer interface {
	OnQueryCompleted(tookMs int64, resultCount int)
}

type noopObserver struct{}

func (noopObserver) OnQueryCompleted(int64, int) {}

// fetchMultiplier controls how many more results each leg is asked for
// than the engine ultimately returns, per spec §4.11 step 1: over-fetching
// gives fusion enough candidates that a document strong in only one leg
// still has a chance to make the final topK.
const fetchMultiplier = 2

// Engine is the HybridSearchEngine capability, per spec §4.11. It queries
// a BM25Index and a VectorStore independently and fuses the two result
// sets by id with a linear combination of their per-leg scores.
type Engine struct {
	Vector     store.VectorStore
	BM25       store.BM25Index
	Collection string
	Weights    Weights

	// Observer, if set, is notified once per completed Search call.
	Observer Observer
}

// New builds an Engine, rejecting weights that don't sum to 1.0.
func New(vector store.VectorStore, bm25 store.BM25Index, collection string, weights Weights) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Engine{Vector: vector, BM25: bm25, Collection: collection, Weights: weights}, nil
}

func (e *Engine) observer() Observer {
	if e.Observer == nil {
		return noopObserver{}
	}
	return e.Observer
}

// legResult carries one leg's query results, or the error it failed with.
type legResult struct {
	results []store.QueryResult
	err     error
}

// fused accumulates the per-leg scores and metadata for one id seen across
// either result set. Missing-leg scores default to 0, per spec §4.11 step 2.
type fused struct {
	id       string
	bm25     float32
	vec      float32
	metadata map[string]string
}

// Search runs both legs at topK*fetchMultiplier, unions their results by
// id, and fuses them via score = wBM25*bm25 + wVector*vec. An empty query
// (no text and no vector) returns an empty result list. If exactly one leg
// fails, the other leg's results are returned degraded but non-empty; if
// both fail, the BM25 leg's error is returned.
func (e *Engine) Search(ctx context.Context, queryText string, queryVector []float32, topK int, filter map[string]string) ([]store.QueryResult, error) {
	start := time.Now()
	if queryText == "" && len(queryVector) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 10
	}
	fetchK := topK * fetchMultiplier

	var bm25Leg, vecLeg legResult

	// Each leg records its own error rather than returning it to g, so a
	// failure on one leg never cancels gctx and aborts the other: per spec
	// §4.11, a single-leg failure degrades the result set, it doesn't fail
	// the search.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if e.BM25 == nil {
			return nil
		}
		tokens := tokenize.Tokenize(queryText)
		bm25Leg.results, bm25Leg.err = e.BM25.Query(gctx, tokens, fetchK, filter)
		return nil
	})
	g.Go(func() error {
		if e.Vector == nil || len(queryVector) == 0 {
			return nil
		}
		vecLeg.results, vecLeg.err = e.Vector.Query(gctx, e.Collection, queryVector, fetchK, filter)
		return nil
	})
	_ = g.Wait()

	if bm25Leg.err != nil && vecLeg.err != nil {
		return nil, errkit.Wrap(errkit.KindBackendUnavailable, bm25Leg.err, "both search legs failed")
	}

	merged := make(map[string]*fused)
	order := func(id string) *fused {
		f, ok := merged[id]
		if !ok {
			f = &fused{id: id}
			merged[id] = f
		}
		return f
	}

	if bm25Leg.err == nil {
		for _, r := range bm25Leg.results {
			f := order(r.ID)
			f.bm25 = r.Score
			mergeMetadata(f, r.Metadata)
		}
	}
	if vecLeg.err == nil {
		for _, r := range vecLeg.results {
			f := order(r.ID)
			f.vec = r.Score
			mergeMetadata(f, r.Metadata)
		}
	}

	out := make([]store.QueryResult, 0, len(merged))
	for _, f := range merged {
		if !matchesFilter(f.metadata, filter) {
			continue
		}
		score := e.Weights.BM25*float64(f.bm25) + e.Weights.Vector*float64(f.vec)
		out = append(out, store.QueryResult{ID: f.id, Score: float32(score), Metadata: f.metadata})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	e.observer().OnQueryCompleted(time.Since(start).Milliseconds(), len(out))
	return out, nil
}

func mergeMetadata(f *fused, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	if f.metadata == nil {
		f.metadata = make(map[string]string, len(metadata))
	}
	for k, v := range metadata {
		f.metadata[k] = v
	}
}

// matchesFilter re-applies the metadata filter after fusion, per spec
// §4.11 step 5: backends such as BleveBM25Index never populate Metadata
// on their hits, so a filter they silently dropped is enforced here
// whenever metadata is actually available.
func matchesFilter(metadata map[string]string, filter map[string]string) bool {
	if len(filter) == 0 || len(metadata) == 0 {
		return true
	}
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
