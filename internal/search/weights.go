// Package search implements the hybrid lexical/semantic search engine,
// per spec §4.11: it queries a BM25Index and a VectorStore independently
// and fuses the two result sets with a configurable linear combination.
package search

import (
	"math"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// weightTolerance bounds how far BM25+Vector may drift from 1.0 and still
// be accepted, absorbing floating point representation error in configs
// loaded from YAML.
const weightTolerance = 1e-6

// DefaultWeights matches spec §4.11's defaults: lexical matches contribute
// less than semantic similarity unless a deployment overrides them.
var DefaultWeights = Weights{BM25: 0.3, Vector: 0.7}

// Weights configures the linear fusion formula
// score = BM25*bm25Score + Vector*vecScore.
type Weights struct {
	BM25   float64
	Vector float64
}

// Validate reports a ConfigValidation error unless the two weights sum to
// 1.0 within weightTolerance.
func (w Weights) Validate() error {
	sum := w.BM25 + w.Vector
	if math.Abs(sum-1.0) > weightTolerance {
		return errkit.New(errkit.KindConfigValidation, "search weights must sum to 1.0").
			WithData("bm25Weight", w.BM25).
			WithData("vectorWeight", w.Vector).
			WithData("sum", sum)
	}
	return nil
}
