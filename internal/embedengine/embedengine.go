// Package embedengine wraps an external Embedder with a concurrent
// text->vector cache, adapted from the host CLI's CachedEmbedder —
// trimmed of its thermal-throttling batch-index plumbing (that
// concern is local to a specific MLX/Ollama embedder implementation,
// which is out of scope here: the model itself is an external
// collaborator per spec §1).
package embedengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codegraph-ai/codegraph-core/internal/cgerrors"
	"github.com/codegraph-ai/codegraph-core/internal/semindex"
)

// DefaultCacheSize mirrors the host CLI's default embedding cache size.
const DefaultCacheSize = 1000

// Embedder is the external collaborator that maps text to a
// fixed-dimension unit vector, per §6's Embedder contract.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Engine caches Embedder results behind a SHA256(text+model) key and
// trips a circuit breaker if the inner Embedder starts failing, so a
// downed Ollama/MLX endpoint fails every subsequent call fast instead
// of hanging the indexer on one slow timeout after another.
type Engine struct {
	inner      Embedder
	cache      *lru.Cache[string, []float32]
	dimensions int
	breaker    *cgerrors.CircuitBreaker
}

// New wraps inner with an LRU cache of cacheSize (0 = DefaultCacheSize)
// and probes the embedding dimension with the literal "test" string.
func New(ctx context.Context, inner Embedder, cacheSize int) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, cgerrors.Model("failed to allocate embedding cache", err)
	}
	e := &Engine{inner: inner, cache: cache, breaker: cgerrors.NewCircuitBreaker("embedder:" + inner.ModelName())}

	probe, err := inner.Embed(ctx, "test")
	if err != nil {
		return nil, cgerrors.Model("failed to probe embedding dimension", err)
	}
	e.dimensions = len(probe)
	return e, nil
}

func (e *Engine) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + e.inner.ModelName()))
	return hex.EncodeToString(sum[:])
}

// Dimensions returns the dimension fixed at construction.
func (e *Engine) Dimensions() int { return e.dimensions }

// Embed returns the cached vector for text, computing and caching it
// on a miss.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)
	if v, ok := e.cache.Get(key); ok {
		return v, nil
	}
	v, err := cgerrors.ExecuteWithResult(e.breaker, func() ([]float32, error) {
		return e.inner.Embed(ctx, text)
	}, func() ([]float32, error) {
		return nil, cgerrors.ErrCircuitOpen
	})
	if err != nil {
		return nil, cgerrors.Embedding("embed failed", err)
	}
	e.cache.Add(key, v)
	return v, nil
}

// EmbedBatch partitions texts into cached/uncached, batch-embeds the
// uncached set, and merges results preserving input order.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	var missIdx []int
	var missText []string
	for i, t := range texts {
		key := e.cacheKey(t)
		if v, ok := e.cache.Get(key); ok {
			results[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missText = append(missText, t)
	}
	if len(missText) == 0 {
		return results, nil
	}
	embedded, err := cgerrors.ExecuteWithResult(e.breaker, func() ([][]float32, error) {
		return e.inner.EmbedBatch(ctx, missText)
	}, func() ([][]float32, error) {
		return nil, cgerrors.ErrCircuitOpen
	})
	if err != nil {
		return nil, cgerrors.Embedding("batch embed failed", err)
	}
	for j, idx := range missIdx {
		results[idx] = embedded[j]
		e.cache.Add(e.cacheKey(texts[idx]), embedded[j])
	}
	return results, nil
}

// Similarity returns the cosine similarity between a and b, 0 when
// lengths differ or either vector has zero norm.
func (e *Engine) Similarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return semindex.CosineSimilarity(a, b)
}
