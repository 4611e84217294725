package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// StaticDimensions is the vector length produced by StaticEmbedder.
const StaticDimensions = 768

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var programmingStopWords = map[string]bool{
	"func": true, "function": true, "def": true, "class": true,
	"return": true, "import": true, "const": true, "var": true,
	"let": true, "int": true, "string": true, "bool": true,
	"void": true, "true": true, "false": true, "nil": true,
	"null": true, "this": true, "self": true, "new": true,
}

// StaticEmbedder is a deterministic, dependency-free Embedder. It hashes
// code-aware tokens and character n-grams into a fixed-size vector, giving
// reduced semantic quality compared to a learned model but requiring no
// network access or model download, so the indexing pipeline runs without a
// configured embedding backend.
type StaticEmbedder struct {
	mu        sync.RWMutex
	dimension int
	closed    bool
}

// NewStaticEmbedder returns a StaticEmbedder producing StaticDimensions
// vectors.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{dimension: StaticDimensions}
}

// Initialize is a no-op; the static embedder has nothing to warm up.
func (e *StaticEmbedder) Initialize(_ context.Context) error {
	return nil
}

// Dispose marks the embedder closed; subsequent Embed calls fail.
func (e *StaticEmbedder) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Dimension returns the vector length produced by Embed.
func (e *StaticEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns a deterministic hash-based vector for text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errkit.New(errkit.KindBackendUnavailable, "static embedder disposed")
	}

	trimmed := strings.TrimSpace(text)
	vector := make([]float32, e.dimension)
	if trimmed == "" {
		return vector, nil
	}

	for _, token := range filterStopWords(tokenizeCode(trimmed)) {
		vector[hashToIndex(token, e.dimension)] += tokenWeight
	}
	for _, ngram := range extractNgrams(normalizeForNgrams(trimmed), ngramSize) {
		vector[hashToIndex(ngram, e.dimension)] += ngramWeight
	}

	return normalizeVector(vector), nil
}

func tokenizeCode(text string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		for _, t := range splitCodeToken(word.String()) {
			if lower := strings.ToLower(t); lower != "" {
				tokens = append(tokens, lower)
			}
		}
		word.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			word.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	var current strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevLower || nextLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func filterStopWords(tokens []string) []string {
	var filtered []string
	for _, t := range tokens {
		if !programmingStopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	magnitude := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
