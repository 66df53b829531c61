// Package hybridsearch implements §4.7 Hybrid Memory Search: a direct
// weighted sum of BM25, semantic and graph-proximity scores, replacing
// the host CLI's Reciprocal Rank Fusion with the formula the spec
// pins down explicitly (bm25*w1 + semantic*w2 + graph*w3). The
// concurrent fan-out across the lexical and semantic scorers and the
// merge-by-id shape follow the host's pkg/indexer (HybridIndexer) and
// its fusion pass directly; graph proximity is looked up per candidate
// during the merge.
package hybridsearch

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/codegraph-ai/codegraph-core/internal/memindex"
	"github.com/codegraph-ai/codegraph-core/internal/semindex"
)

// MatchReason names which signal(s) contributed to a hit.
type MatchReason string

const (
	ReasonBM25          MatchReason = "lexical"
	ReasonSemantic       MatchReason = "semantic"
	ReasonCodeProximity MatchReason = "code_proximity"
)

// Config configures one hybrid search call, per §4.7.
type Config struct {
	Limit          int
	BM25Weight     float64
	SemanticWeight float64
	GraphWeight    float64
	CurrentOnly    bool
	Tags           map[string]struct{}
	Kinds          map[string]struct{}
}

// DefaultConfig mirrors the spec's stated SearchConfig defaults.
func DefaultConfig() Config {
	return Config{Limit: 20, BM25Weight: 0.3, SemanticWeight: 0.5, GraphWeight: 0.2, CurrentOnly: true}
}

// MemoryLookup supplies per-candidate facts the scorer cannot derive
// itself: whether a memory is current, its kind, tags and code links.
type MemoryLookup interface {
	IsCurrent(id string) bool
	Kind(id string) string
	Tags(id string) map[string]struct{}
	CodeLinkRelevance(id string, codeContext map[string]struct{}) float64
}

// Result is one ranked hybrid search hit.
type Result struct {
	ID           string
	Score        float64
	BM25Score    float64
	Semantic     float64
	GraphScore   float64
	MatchReasons []MatchReason
}

// Search runs the lexical and semantic scorers concurrently, merges by
// id, filters, adds each remaining candidate's graph-proximity score,
// scores and sorts per §4.7.
func Search(ctx context.Context, lex *memindex.Index, sem *semindex.Index, lookup MemoryLookup, query string, queryVector []float32, codeContext []string, cfg Config) ([]Result, error) {
	candidateLimit := cfg.Limit * 3
	if candidateLimit <= 0 {
		candidateLimit = 60
	}

	var bm25Hits []scoredID
	var semHits []scoredID

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, r := range lex.Search(query, candidateLimit) {
			bm25Hits = append(bm25Hits, scoredID{id: r.DocID, score: r.Score})
		}
		return nil
	})
	g.Go(func() error {
		if len(queryVector) == 0 {
			return nil
		}
		for _, r := range sem.Search(queryVector, candidateLimit) {
			semHits = append(semHits, scoredID{id: r.ID, score: r.Similarity})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	codeCtx := make(map[string]struct{}, len(codeContext))
	for _, id := range codeContext {
		codeCtx[id] = struct{}{}
	}

	merged := make(map[string]*Result)
	order := make([]string, 0)
	ensure := func(id string) *Result {
		r, ok := merged[id]
		if !ok {
			r = &Result{ID: id}
			merged[id] = r
			order = append(order, id)
		}
		return r
	}
	for _, h := range bm25Hits {
		ensure(h.id).BM25Score = h.score
	}
	for _, h := range semHits {
		ensure(h.id).Semantic = h.score
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		if cfg.CurrentOnly && !lookup.IsCurrent(id) {
			continue
		}
		if len(cfg.Kinds) > 0 {
			if _, ok := cfg.Kinds[lookup.Kind(id)]; !ok {
				continue
			}
		}
		if len(cfg.Tags) > 0 && !tagsIntersect(cfg.Tags, lookup.Tags(id)) {
			continue
		}

		r := *merged[id]
		r.GraphScore = lookup.CodeLinkRelevance(id, codeCtx)
		r.Score = r.BM25Score*cfg.BM25Weight + r.Semantic*cfg.SemanticWeight + r.GraphScore*cfg.GraphWeight

		if r.BM25Score > 0 {
			r.MatchReasons = append(r.MatchReasons, ReasonBM25)
		}
		if r.Semantic > 0 {
			r.MatchReasons = append(r.MatchReasons, ReasonSemantic)
		}
		if r.GraphScore > 0 {
			r.MatchReasons = append(r.MatchReasons, ReasonCodeProximity)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if cfg.Limit > 0 && len(results) > cfg.Limit {
		results = results[:cfg.Limit]
	}
	return results, nil
}

type scoredID struct {
	id    string
	score float64
}

func tagsIntersect(want, have map[string]struct{}) bool {
	for t := range want {
		if _, ok := have[t]; ok {
			return true
		}
	}
	return false
}
