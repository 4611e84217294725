// Package embed defines the Embedder capability: turning chunk text into
// fixed-dimension vectors for the vector-store leg of hybrid search. The
// concrete production backend (a hosted API or a locally served model) is an
// external collaborator the core only depends on through this interface;
// the package ships a deterministic local implementation so the pipeline
// runs end to end without one.
package embed

import (
	"context"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// Embedder generates vector embeddings for text, per spec §4.8.
type Embedder interface {
	// Initialize prepares the embedder for use (loading a model, warming a
	// connection pool). It is safe to call Embed before Initialize for
	// backends with nothing to warm up.
	Initialize(ctx context.Context) error

	// Dispose releases any resources acquired by Initialize. Subsequent
	// Embed calls are not guaranteed to succeed.
	Dispose() error

	// Embed returns a vector of length Dimension() for text. Repeated calls
	// with the same text must return vectors whose cosine distance is below
	// an implementation-defined epsilon.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of vectors produced by Embed.
	Dimension() int
}

// EmbedBatch embeds a slice of texts using e, stopping at the first failure.
// It is a convenience wrapper; batching strategy is an implementation
// detail left to individual Embedder implementations that want to override
// it for efficiency. A failure caused by ctx being cancelled or timing out
// is reported as errkit.KindCancelled rather than KindBackendUnavailable, so
// callers can tell cooperative cancellation apart from a genuine backend
// failure, per spec §5's cancellation contract.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, errkit.Wrap(errkit.KindCancelled, err, "embed batch cancelled")
		}
		v, err := e.Embed(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errkit.Wrap(errkit.KindCancelled, ctx.Err(), "embed batch cancelled")
			}
			return nil, errkit.Wrap(errkit.KindBackendUnavailable, err, "embed batch item failed")
		}
		out[i] = v
	}
	return out, nil
}
