package store

import (
	"context"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// collection holds one named HNSW graph plus the string-id <-> internal-key
// mapping coder/hnsw requires (its graph is keyed on a comparable type, not
// arbitrary strings).
type collection struct {
	graph   *hnsw.Graph[uint64]
	dim     int
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	meta    map[string]map[string]string
}

func newCollection(dim int) *collection {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &collection{
		graph:  g,
		dim:    dim,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		meta:   make(map[string]map[string]string),
	}
}

// HNSWVectorStore implements VectorStore with an in-process, per-collection
// HNSW graph. It never needs the remote retry/backoff policy described by
// spec §4.9 since Connect cannot fail against an embedded index; Connect
// accepts a Config to satisfy the VectorStore interface and ignores it.
type HNSWVectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	connected   bool
}

// NewHNSWVectorStore returns an unconnected HNSWVectorStore.
func NewHNSWVectorStore() *HNSWVectorStore {
	return &HNSWVectorStore{collections: make(map[string]*collection)}
}

// Connect marks the store ready for use. Local in-process storage has no
// network handshake, so there is nothing to retry.
func (s *HNSWVectorStore) Connect(_ context.Context, _ Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Disconnect releases all collections.
func (s *HNSWVectorStore) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.collections = make(map[string]*collection)
	return nil
}

func (s *HNSWVectorStore) requireConnected() error {
	if !s.connected {
		return errkit.New(errkit.KindBackendUnavailable, "vector store is not connected")
	}
	return nil
}

// CreateCollection creates a named collection of the given dimension.
// Fails with CollectionExists (via Data["reason"]) when name is already
// taken, per spec §4.9.
func (s *HNSWVectorStore) CreateCollection(_ context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return err
	}
	if _, exists := s.collections[name]; exists {
		return errkit.New(errkit.KindInvalidParams, "collection already exists").
			WithData("reason", "CollectionExists").WithData("collection", name)
	}
	s.collections[name] = newCollection(dim)
	return nil
}

// DeleteCollection removes a collection and all its vectors.
func (s *HNSWVectorStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return err
	}
	delete(s.collections, name)
	return nil
}

func (s *HNSWVectorStore) collectionLocked(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, errkit.New(errkit.KindNotFound, "collection not found").WithData("collection", name)
	}
	return c, nil
}

// Upsert replaces any prior vector sharing an id, using lazy deletion
// (orphaning the old graph key rather than mutating the graph in place) to
// avoid destabilizing coder/hnsw's internal layer structure on delete.
func (s *HNSWVectorStore) Upsert(_ context.Context, collectionName string, vectors []Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return err
	}
	c, err := s.collectionLocked(collectionName)
	if err != nil {
		return err
	}

	for _, v := range vectors {
		if len(v.Values) != c.dim {
			return errkit.New(errkit.KindInvalidParams, "vector dimension mismatch").
				WithData("expected", c.dim).WithData("got", len(v.Values))
		}
	}

	for _, v := range vectors {
		if existingKey, exists := c.idMap[v.ID]; exists {
			delete(c.keyMap, existingKey)
		}
		key := c.nextKey
		c.nextKey++

		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		normalizeInPlace(values)

		c.graph.Add(hnsw.MakeNode(key, values))
		c.idMap[v.ID] = key
		c.keyMap[key] = v.ID
		c.meta[v.ID] = v.Metadata
	}
	return nil
}

// Query returns at most topK results in descending similarity score,
// filtered by exact metadata-key equality (ANDed), per spec §4.9.
func (s *HNSWVectorStore) Query(_ context.Context, collectionName string, vector []float32, topK int, filter map[string]string) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	c, err := s.collectionLocked(collectionName)
	if err != nil {
		return nil, err
	}
	if len(vector) != c.dim {
		return nil, errkit.New(errkit.KindInvalidParams, "query vector dimension mismatch").
			WithData("expected", c.dim).WithData("got", len(vector))
	}
	if c.graph.Len() == 0 {
		return nil, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalizeInPlace(query)

	// Over-fetch past filtering since coder/hnsw has no native predicate
	// pushdown; the candidate pool still shrinks once filtered results are
	// capped to topK.
	fetch := topK * 4
	if fetch < topK {
		fetch = topK
	}
	nodes := c.graph.Search(query, fetch)

	out := make([]QueryResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := c.keyMap[node.Key]
		if !ok {
			continue
		}
		meta := c.meta[id]
		if !matchesFilter(meta, filter) {
			continue
		}
		distance := c.graph.Distance(query, node.Value)
		out = append(out, QueryResult{ID: id, Score: 1.0 - distance/2.0, Metadata: meta})
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// Delete removes vectors by id via lazy deletion.
func (s *HNSWVectorStore) Delete(_ context.Context, collectionName string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return err
	}
	c, err := s.collectionLocked(collectionName)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if key, exists := c.idMap[id]; exists {
			delete(c.keyMap, key)
			delete(c.idMap, id)
			delete(c.meta, id)
		}
	}
	return nil
}

// GetStats reports the live vector count, collection dimension, and an
// approximate in-memory index size.
func (s *HNSWVectorStore) GetStats(_ context.Context, collectionName string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireConnected(); err != nil {
		return Stats{}, err
	}
	c, err := s.collectionLocked(collectionName)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		VectorCount: len(c.idMap),
		Dimension:   c.dim,
		IndexSize:   int64(len(c.idMap)) * int64(c.dim) * 4,
	}, nil
}

func matchesFilter(meta map[string]string, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	if meta == nil {
		return false
	}
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

var _ VectorStore = (*HNSWVectorStore)(nil)
