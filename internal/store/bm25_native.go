package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

const (
	bm25Magic   = "BM25"
	bm25Version = uint32(1)
)

// defaultK1 and defaultB are the Okapi BM25 parameters fixed by spec §4.10.
const (
	defaultK1 = 1.2
	defaultB  = 0.75
)

type posting struct {
	docID uint32
	tf    uint32
}

// NativeBM25Index is the default, dependency-free BM25Index backend. Its
// on-disk format is the binary layout fixed by spec §6: a header, a
// token dictionary of postings, and a docId-to-chunkId table.
type NativeBM25Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	postings map[string][]posting // token -> postings, sorted by docID
	docLen   map[uint32]int       // docID -> token count
	docID    map[string]uint32    // chunkID -> docID
	chunkID  []string             // docID -> chunkID (index = docID)
	metadata map[string]map[string]string

	totalDocLen int
	freeDocIDs  []uint32
}

// NewNativeBM25Index returns an empty index with the spec-fixed k1/b.
func NewNativeBM25Index() *NativeBM25Index {
	return &NativeBM25Index{
		k1:       defaultK1,
		b:        defaultB,
		postings: make(map[string][]posting),
		docLen:   make(map[uint32]int),
		docID:    make(map[string]uint32),
		metadata: make(map[string]map[string]string),
	}
}

func (idx *NativeBM25Index) avgDocLen() float64 {
	n := len(idx.docLen)
	if n == 0 {
		return 0
	}
	return float64(idx.totalDocLen) / float64(n)
}

// Upsert replaces any existing document for id with the given tokens.
func (idx *NativeBM25Index) Upsert(_ context.Context, id string, tokens []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if existing, ok := idx.docID[id]; ok {
		idx.removeDocLocked(existing)
	}

	docID := idx.allocDocIDLocked(id)
	counts := make(map[string]uint32)
	for _, t := range tokens {
		counts[t]++
	}
	for token, tf := range counts {
		idx.postings[token] = append(idx.postings[token], posting{docID: docID, tf: tf})
	}
	idx.docLen[docID] = len(tokens)
	idx.totalDocLen += len(tokens)
	return nil
}

// SetMetadata attaches filterable metadata to a document id, used by Query
// to honor the filter parameter. It is not part of the on-disk format.
func (idx *NativeBM25Index) SetMetadata(id string, metadata map[string]string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.metadata[id] = metadata
}

func (idx *NativeBM25Index) allocDocIDLocked(chunkID string) uint32 {
	var docID uint32
	if n := len(idx.freeDocIDs); n > 0 {
		docID = idx.freeDocIDs[n-1]
		idx.freeDocIDs = idx.freeDocIDs[:n-1]
		idx.chunkID[docID] = chunkID
	} else {
		docID = uint32(len(idx.chunkID))
		idx.chunkID = append(idx.chunkID, chunkID)
	}
	idx.docID[chunkID] = docID
	return docID
}

func (idx *NativeBM25Index) removeDocLocked(docID uint32) {
	chunkID := idx.chunkID[docID]
	idx.totalDocLen -= idx.docLen[docID]
	delete(idx.docLen, docID)
	delete(idx.docID, chunkID)
	delete(idx.metadata, chunkID)
	idx.chunkID[docID] = ""
	idx.freeDocIDs = append(idx.freeDocIDs, docID)

	for token, posts := range idx.postings {
		filtered := posts[:0]
		for _, p := range posts {
			if p.docID != docID {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			delete(idx.postings, token)
		} else {
			idx.postings[token] = filtered
		}
	}

	idx.shrinkTrailingFreeSlotsLocked()
}

// shrinkTrailingFreeSlotsLocked truncates chunkID when its trailing entries
// are tombstoned, so a freed docID that was the most recently allocated slot
// doesn't linger in the serialized docCount. Without this, Upsert followed
// by Delete of the same id leaves the index one doc larger than before the
// Upsert, breaking the add-then-delete round trip.
func (idx *NativeBM25Index) shrinkTrailingFreeSlotsLocked() {
	for len(idx.chunkID) > 0 && idx.chunkID[len(idx.chunkID)-1] == "" {
		last := uint32(len(idx.chunkID) - 1)
		idx.chunkID = idx.chunkID[:last]
		for i, id := range idx.freeDocIDs {
			if id == last {
				idx.freeDocIDs = append(idx.freeDocIDs[:i], idx.freeDocIDs[i+1:]...)
				break
			}
		}
	}
}

// Delete removes a document from the index if present.
func (idx *NativeBM25Index) Delete(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	docID, ok := idx.docID[id]
	if !ok {
		return nil
	}
	idx.removeDocLocked(docID)
	return nil
}

// Query scores tokens against the index using Okapi BM25 and returns the
// topK results with scores normalized into [0, 1] by dividing by the
// maximum observed score; zero when no tokens match.
func (idx *NativeBM25Index) Query(_ context.Context, tokens []string, topK int, filter map[string]string) ([]QueryResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docLen)
	if n == 0 || len(tokens) == 0 {
		return nil, nil
	}
	avgLen := idx.avgDocLen()

	scores := make(map[uint32]float64)
	seen := make(map[string]bool)
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		posts, ok := idx.postings[t]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(len(posts))+0.5)/(float64(len(posts))+0.5))
		for _, p := range posts {
			dl := float64(idx.docLen[p.docID])
			tf := float64(p.tf)
			denom := tf + idx.k1*(1-idx.b+idx.b*dl/avgLen)
			scores[p.docID] += idf * (tf * (idx.k1 + 1)) / denom
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	type scored struct {
		docID uint32
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for docID, s := range scores {
		chunkID := idx.chunkID[docID]
		if !matchesFilter(idx.metadata[chunkID], filter) {
			continue
		}
		ranked = append(ranked, scored{docID, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return idx.chunkID[ranked[i].docID] < idx.chunkID[ranked[j].docID]
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]QueryResult, 0, len(ranked))
	for _, r := range ranked {
		chunkID := idx.chunkID[r.docID]
		norm := 0.0
		if maxScore > 0 {
			norm = r.score / maxScore
		}
		out = append(out, QueryResult{ID: chunkID, Score: float32(norm), Metadata: idx.metadata[chunkID]})
	}
	return out, nil
}

// Save writes the index in the binary layout fixed by spec §6: header
// {magic:"BM25", version, k1, b, avgDocLen, totalDocs}, then a dictionary of
// {tokenLen, tokenBytes, postingsLen, postings:(docId,tf)*}, then a
// docId-to-chunkId table.
func (idx *NativeBM25Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "create bm25 index directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "create bm25 index file")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(bm25Magic); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "write bm25 magic")
	}
	if err := binary.Write(w, binary.LittleEndian, bm25Version); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "write bm25 version")
	}
	if err := binary.Write(w, binary.LittleEndian, float32(idx.k1)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, float32(idx.b)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, float32(idx.avgDocLen())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.docLen))); err != nil {
		return err
	}

	tokens := make([]string, 0, len(idx.postings))
	for t := range idx.postings {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	// tokenCount prefixes the dictionary so Load knows where it ends and
	// the docId-to-chunkId table begins; the dictionary entries themselves
	// carry no terminator.
	if err := binary.Write(w, binary.LittleEndian, uint64(len(tokens))); err != nil {
		return err
	}

	for _, token := range tokens {
		posts := idx.postings[token]
		tokenBytes := []byte(token)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(tokenBytes))); err != nil {
			return err
		}
		if _, err := w.Write(tokenBytes); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(posts))); err != nil {
			return err
		}
		for _, p := range posts {
			if err := binary.Write(w, binary.LittleEndian, p.docID); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, p.tf); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(idx.chunkID))); err != nil {
		return err
	}
	for _, chunkID := range idx.chunkID {
		b := []byte(chunkID)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}

	return w.Flush()
}

// Load reads an index previously written by Save, replacing the current
// in-memory state.
func (idx *NativeBM25Index) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "open bm25 index file")
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(bm25Magic))
	if _, err := readFull(r, magic); err != nil {
		return errkit.Wrap(errkit.KindParseError, err, "read bm25 magic")
	}
	if string(magic) != bm25Magic {
		return errkit.New(errkit.KindParseError, "bm25 index file has wrong magic")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return errkit.Wrap(errkit.KindParseError, err, "read bm25 version")
	}

	var k1, b, avgDocLen float32
	var totalDocs uint64
	if err := binary.Read(r, binary.LittleEndian, &k1); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &avgDocLen); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &totalDocs); err != nil {
		return err
	}

	var tokenCount uint64
	if err := binary.Read(r, binary.LittleEndian, &tokenCount); err != nil {
		return errkit.Wrap(errkit.KindParseError, err, "read bm25 token count")
	}

	postings := make(map[string][]posting, tokenCount)
	for i := uint64(0); i < tokenCount; i++ {
		var tokenLen uint32
		if err := binary.Read(r, binary.LittleEndian, &tokenLen); err != nil {
			return errkit.Wrap(errkit.KindParseError, err, "read bm25 token length")
		}
		tokenBytes := make([]byte, tokenLen)
		if _, err := readFull(r, tokenBytes); err != nil {
			return errkit.Wrap(errkit.KindParseError, err, "read bm25 token bytes")
		}

		var postingsLen uint32
		if err := binary.Read(r, binary.LittleEndian, &postingsLen); err != nil {
			return errkit.Wrap(errkit.KindParseError, err, "read bm25 postings length")
		}
		posts := make([]posting, postingsLen)
		for j := uint32(0); j < postingsLen; j++ {
			if err := binary.Read(r, binary.LittleEndian, &posts[j].docID); err != nil {
				return errkit.Wrap(errkit.KindParseError, err, "read bm25 posting docId")
			}
			if err := binary.Read(r, binary.LittleEndian, &posts[j].tf); err != nil {
				return errkit.Wrap(errkit.KindParseError, err, "read bm25 posting tf")
			}
		}
		postings[string(tokenBytes)] = posts
	}

	var docCount uint32
	if err := binary.Read(r, binary.LittleEndian, &docCount); err != nil {
		return errkit.Wrap(errkit.KindParseError, err, "read bm25 doc count")
	}
	chunkID := make([]string, docCount)
	docID := make(map[string]uint32, docCount)
	docLen := make(map[uint32]int, docCount)
	var sumLen int
	for i := uint32(0); i < docCount; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return errkit.Wrap(errkit.KindParseError, err, "read bm25 chunk id length")
		}
		idBytes := make([]byte, idLen)
		if _, err := readFull(r, idBytes); err != nil {
			return errkit.Wrap(errkit.KindParseError, err, "read bm25 chunk id bytes")
		}
		chunkID[i] = string(idBytes)
		if chunkID[i] != "" {
			docID[chunkID[i]] = i
		}
	}
	for _, posts := range postings {
		for _, p := range posts {
			docLen[p.docID] += int(p.tf)
		}
	}
	for _, l := range docLen {
		sumLen += l
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.k1 = float64(k1)
	idx.b = float64(b)
	idx.postings = postings
	idx.docLen = docLen
	idx.docID = docID
	idx.metadata = make(map[string]map[string]string)
	idx.chunkID = chunkID
	idx.totalDocLen = sumLen
	idx.freeDocIDs = nil
	for i, c := range chunkID {
		if c == "" {
			idx.freeDocIDs = append(idx.freeDocIDs, uint32(i))
		}
	}
	return nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close is a no-op for the native index; callers should Save before
// discarding it if persistence is needed.
func (idx *NativeBM25Index) Close() error {
	return nil
}

var _ BM25Index = (*NativeBM25Index)(nil)
