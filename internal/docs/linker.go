package docs

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Match is one scored candidate source file for a Markdown document.
type Match struct {
	FilePath string
	Score    float64
	Reasons  []string
}

const (
	reasonFilePathReference = "file_path_reference"
	reasonSymbolReference   = "symbol_reference"
	reasonCodeSimilarity    = "code_similarity"

	weightFilePathReference = 0.5
	weightSymbolReference   = 0.25
	weightCodeSimilarity    = 0.5
	similarityThreshold     = 0.5
)

// CodeFile is the minimal view of an indexed source file the linker scores
// candidates against.
type CodeFile struct {
	Path    string
	Source  []byte
	Symbols []string // known symbol names declared in this file
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// CalculateRelatedScore scores every candidate file in codeFiles against
// doc, relative to docPath and projectRoot, per spec §4.6. Results are
// returned in descending score order, ties broken by file path.
func CalculateRelatedScore(doc *Document, docPath, projectRoot string, codeFiles []CodeFile) []Match {
	mentionedSymbols := mentionedIdentifiers(doc)
	resolvedPaths := resolvedFilePaths(doc, docPath, projectRoot)

	matches := make([]Match, 0, len(codeFiles))
	for _, cf := range codeFiles {
		score := 0.0
		var reasons []string

		if n := countMatches(resolvedPaths, cf.Path); n > 0 {
			score += weightFilePathReference * float64(n)
			reasons = append(reasons, reasonFilePathReference)
		}

		if n := countSymbolMentions(mentionedSymbols, cf.Symbols); n > 0 {
			score += weightSymbolReference * float64(n)
			reasons = append(reasons, reasonSymbolReference)
		}

		if sim := bestCodeSimilarity(doc, cf.Source); sim >= similarityThreshold {
			score += weightCodeSimilarity * sim
			reasons = append(reasons, reasonCodeSimilarity)
		}

		if score == 0 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}
		matches = append(matches, Match{FilePath: cf.Path, Score: score, Reasons: reasons})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].FilePath < matches[j].FilePath
	})
	return matches
}

// resolvedFilePaths resolves every FilePath reference in doc to a
// slash-separated path relative to projectRoot. Absolute references are
// taken from projectRoot; relative references are resolved against the
// directory of docPath, itself taken from projectRoot when not absolute.
func resolvedFilePaths(doc *Document, docPath, projectRoot string) []string {
	docDir := filepath.Dir(docPath)
	if !filepath.IsAbs(docDir) {
		docDir = filepath.Join(projectRoot, docDir)
	}
	var out []string
	for _, fp := range doc.FilePaths {
		var abs string
		if fp.IsAbsolute {
			abs = filepath.Join(projectRoot, fp.Path)
		} else {
			abs = filepath.Join(docDir, fp.Path)
		}
		rel, err := filepath.Rel(projectRoot, abs)
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func countMatches(resolved []string, candidate string) int {
	candidate = filepath.ToSlash(candidate)
	n := 0
	for _, r := range resolved {
		if r == candidate {
			n++
		}
	}
	return n
}

func mentionedIdentifiers(doc *Document) map[string]bool {
	out := make(map[string]bool)
	for _, h := range doc.Headings {
		for _, id := range identifierPattern.FindAllString(h.Text, -1) {
			out[id] = true
		}
	}
	for _, l := range doc.Links {
		for _, id := range identifierPattern.FindAllString(l.Text, -1) {
			out[id] = true
		}
	}
	for _, cb := range doc.CodeBlocks {
		for _, id := range identifierPattern.FindAllString(cb.Code, -1) {
			out[id] = true
		}
	}
	return out
}

func countSymbolMentions(mentioned map[string]bool, fileSymbols []string) int {
	n := 0
	for _, s := range fileSymbols {
		if mentioned[s] {
			n++
		}
	}
	return n
}

// bestCodeSimilarity returns the highest token-Jaccard similarity between
// any Markdown code block in doc and source, considered in fixed-size
// windows so a large file isn't unfairly diluted against a short snippet.
func bestCodeSimilarity(doc *Document, source []byte) float64 {
	if len(source) == 0 || len(doc.CodeBlocks) == 0 {
		return 0
	}
	sourceLines := strings.Split(string(source), "\n")
	best := 0.0
	for _, cb := range doc.CodeBlocks {
		blockTokens := tokenSet(cb.Code)
		if len(blockTokens) == 0 {
			continue
		}
		windowSize := cb.EndLine - cb.StartLine + 1
		if windowSize < 1 {
			windowSize = 1
		}
		for start := 0; start < len(sourceLines); start += windowSize {
			end := start + windowSize
			if end > len(sourceLines) {
				end = len(sourceLines)
			}
			window := strings.Join(sourceLines[start:end], "\n")
			sim := jaccard(blockTokens, tokenSet(window))
			if sim > best {
				best = sim
			}
		}
	}
	return best
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range identifierPattern.FindAllString(s, -1) {
		out[tok] = true
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
