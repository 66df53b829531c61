// Package semindex is the HNSW-backed approximate nearest-neighbor
// index over memory embeddings. Unlike the host CLI's incremental
// hnsw.Add-based store, the spec's Non-goals explicitly exclude
// incremental HNSW maintenance: every mutation triggers a full rebuild
// from the authoritative point list rather than an in-place insert.
package semindex

import (
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// EfConstruction is the fixed HNSW build parameter per §4.6.
const EfConstruction = 100

// point is one entry of the authoritative point list mirror.
type point struct {
	id     string
	vector []float32
}

// Index is the semantic index: an ordered point list plus a derived
// HNSW graph, rebuilt wholesale on every mutation.
type Index struct {
	mu       sync.RWMutex
	points   []point
	byID     map[string]int // id -> index into points, for O(1) membership/update
	graph    *hnsw.Graph[uint64]
	keyOf    map[string]uint64
	efSearch int
}

// New returns an empty Index using the spec-fixed EfConstruction value.
func New() *Index {
	return NewWithEfSearch(EfConstruction)
}

// NewWithEfSearch returns an empty Index whose HNSW graph searches with
// the given ef value, letting a config-driven build trade recall for
// speed. A non-positive value falls back to EfConstruction.
func NewWithEfSearch(efSearch int) *Index {
	if efSearch <= 0 {
		efSearch = EfConstruction
	}
	return &Index{byID: make(map[string]int), keyOf: make(map[string]uint64), efSearch: efSearch}
}

// Upsert inserts or replaces the vector for id and rebuilds the index.
func (idx *Index) Upsert(id string, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if i, ok := idx.byID[id]; ok {
		idx.points[i].vector = vector
	} else {
		idx.byID[id] = len(idx.points)
		idx.points = append(idx.points, point{id: id, vector: vector})
	}
	idx.rebuildLocked()
}

// Remove deletes id from the point list and rebuilds.
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i, ok := idx.byID[id]
	if !ok {
		return
	}
	idx.points = append(idx.points[:i], idx.points[i+1:]...)
	delete(idx.byID, id)
	for j := i; j < len(idx.points); j++ {
		idx.byID[idx.points[j].id] = j
	}
	idx.rebuildLocked()
}

// rebuildLocked reconstructs the HNSW graph from the full point list.
// If the point list is empty, the index is cleared and searches fall
// back to linear scan, per §4 HNSW rebuild failure semantics.
func (idx *Index) rebuildLocked() {
	if len(idx.points) == 0 {
		idx.graph = nil
		idx.keyOf = make(map[string]uint64)
		return
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.EfSearch = idx.efSearch
	keyOf := make(map[string]uint64, len(idx.points))
	for i, p := range idx.points {
		key := uint64(i)
		g.Add(hnsw.MakeNode(key, normalize(p.vector)))
		keyOf[p.id] = key
	}
	idx.graph = g
	idx.keyOf = keyOf
}

// Result is one semantic search hit.
type Result struct {
	ID         string
	Similarity float64
}

// Search returns up to limit nearest neighbors to query, in descending
// cosine-similarity order, computed directly (not via the HNSW
// distance surrogate) so callers see similarity in [-1,1]. Falls back
// to a linear scan when the index is absent (empty point list).
func (idx *Index) Search(query []float32, limit int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil {
		return idx.linearScanLocked(query, limit)
	}

	nq := normalize(query)
	nodes := idx.graph.Search(nq, limit)

	byKey := make(map[uint64]string, len(idx.keyOf))
	for id, key := range idx.keyOf {
		byKey[key] = id
	}

	results := make([]Result, 0, len(nodes))
	for _, n := range nodes {
		id, ok := byKey[n.Key]
		if !ok {
			continue
		}
		vec := idx.vectorFor(id)
		results = append(results, Result{ID: id, Similarity: cosineSimilarity(query, vec)})
	}
	sortDescending(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (idx *Index) vectorFor(id string) []float32 {
	if i, ok := idx.byID[id]; ok {
		return idx.points[i].vector
	}
	return nil
}

func (idx *Index) linearScanLocked(query []float32, limit int) []Result {
	results := make([]Result, 0, len(idx.points))
	for _, p := range idx.points {
		results = append(results, Result{ID: p.id, Similarity: cosineSimilarity(query, p.vector)})
	}
	sortDescending(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func sortDescending(results []Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
}

// Len returns the current point-list size.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.points)
}

func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sumSquares float64
	for _, x := range out {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineSimilarity exposes the similarity computation for callers
// outside this package (e.g. the embedding engine's `similarity` op).
func CosineSimilarity(a, b []float32) float64 { return cosineSimilarity(a, b) }

// Points returns a snapshot of (id, vector) pairs in list order. The
// store does not use it: it persists vectors with their records and
// rebuilds the index on load by upserting them.
func (idx *Index) Points() []struct {
	ID     string
	Vector []float32
} {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]struct {
		ID     string
		Vector []float32
	}, len(idx.points))
	for i, p := range idx.points {
		out[i].ID = p.id
		out[i].Vector = p.vector
	}
	return out
}
