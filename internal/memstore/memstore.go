// Package memstore is the persistent store for the Memory Subsystem:
// an ordered key-value engine (BadgerDB — see DESIGN.md for why this
// replaces the host CLI's SQLite metadata store) holding records under
// `mem:<id>`, vectors under `vec:<id>`, and the schema version under
// `_db_version`, with write-through memory/vector caches and the HNSW
// point list mirrored in internal/semindex.
package memstore

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	badgeroptions "github.com/dgraph-io/badger/v4/options"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/codegraph-ai/codegraph-core/internal/cgerrors"
	"github.com/codegraph-ai/codegraph-core/internal/memindex"
	"github.com/codegraph-ai/codegraph-core/internal/memory"
	"github.com/codegraph-ai/codegraph-core/internal/semindex"
)

// defaultLockRetry is the poll interval for the cross-process store lock.
const defaultLockRetry = 50 * time.Millisecond

func nowUTC() time.Time { return time.Now().UTC() }

const (
	memPrefix = "mem:"
	vecPrefix = "vec:"
)

// Embedder is the subset of internal/embedengine.Engine the store
// needs to fill in a missing embedding on write.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Mode selects exclusive persistent ownership vs. open-on-demand
// sharing of the underlying engine across processes, per §5/§9.
type Mode int

const (
	ModePersistent Mode = iota
	ModeOpenOnDemand
)

// Options configures Open.
type Options struct {
	Dir      string
	Embedder Embedder
	Mode     Mode
	Logger   *slog.Logger

	// HNSWEfSearch overrides the semantic index's HNSW ef value.
	// Zero falls back to semindex.EfConstruction.
	HNSWEfSearch int
}

// Store is the persistent Memory Subsystem store.
type Store struct {
	dir      string
	db       *badger.DB
	embedder Embedder
	mode     Mode
	logger   *slog.Logger

	mu          sync.RWMutex
	memoryCache map[string]*memory.Record // current records only
	vectorCache map[string][]float32

	sem *semindex.Index
	lex *memindex.Index

	lock *flock.Flock // held only in ModeOpenOnDemand, per operation

	corruptSkipped int
}

// Open implements the §4.8 open procedure: create the directory,
// migrate, open the engine with compression and background compaction
// enabled, reload current records into the caches and rebuild the HNSW
// index from the resulting point list.
func Open(opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := MigrateIfNeeded(opts.Dir, opts.Logger); err != nil {
		return nil, err
	}

	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithLogger(nil).
		WithCompression(badgeroptions.Snappy). // fast general-purpose codec per §4.8
		WithNumCompactors(2).
		WithSyncWrites(false) // 1 MiB cadence is handled by an explicit Sync call, not per-write fsync

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, cgerrors.Storage("failed to open memory store", err)
	}

	s := &Store{
		dir:         opts.Dir,
		db:          db,
		embedder:    opts.Embedder,
		mode:        opts.Mode,
		logger:      opts.Logger,
		memoryCache: make(map[string]*memory.Record),
		vectorCache: make(map[string][]float32),
		sem:         semindex.NewWithEfSearch(opts.HNSWEfSearch),
		lex:         memindex.New(),
	}
	if opts.Mode == ModeOpenOnDemand {
		s.lock = flock.New(opts.Dir + ".lock")
	}

	if err := s.reload(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// reload iterates every key, deserializing mem: records with a
// graceful skip-and-count on corruption, caching current records,
// loading their vectors, and rebuilding the HNSW index.
func (s *Store) reload() error {
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			switch {
			case strings.HasPrefix(key, memPrefix):
				id := strings.TrimPrefix(key, memPrefix)
				val, err := item.ValueCopy(nil)
				if err != nil {
					s.corruptSkipped++
					s.logger.Warn("memstore: failed to read record during reload", "id", id, "error", err)
					continue
				}
				rec, ok := decodeRecordV2(val)
				if !ok {
					s.corruptSkipped++
					s.logger.Warn("memstore: corrupt record skipped during reload", "id", id)
					continue
				}
				if rec.Temporal.Current(nowUTC()) {
					s.memoryCache[id] = rec
					s.lex.Upsert(id, rec.Title, rec.Content, rec.TagList())
				}
			case strings.HasPrefix(key, vecPrefix):
				id := strings.TrimPrefix(key, vecPrefix)
				val, err := item.ValueCopy(nil)
				if err != nil {
					continue
				}
				if vec, ok := decodeVectorV2(val); ok {
					s.vectorCache[id] = vec
				}
			}
		}
		return nil
	})
	if err != nil {
		return cgerrors.Storage("failed to reload memory store", err)
	}

	for id := range s.memoryCache {
		if vec, ok := s.vectorCache[id]; ok {
			s.sem.Upsert(id, vec)
		}
	}
	return nil
}

// Put assigns an id if absent, embeds title+content+tags if no
// embedding is present, persists vec:/mem: keys, updates the caches,
// rebuilds the HNSW index and flushes.
func (s *Store) Put(ctx context.Context, rec *memory.Record) (*memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if len(rec.Embedding) == 0 && s.embedder != nil {
		text := rec.Title + " " + rec.Content + " " + strings.Join(rec.TagList(), " ")
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, cgerrors.Embedding("failed to embed memory on write", err)
		}
		rec.Embedding = vec
	}

	vecBytes, err := encodeVectorV2(rec.Embedding)
	if err != nil {
		return nil, cgerrors.Serialization("failed to encode vector", err)
	}
	recBytes, err := encodeRecordV2(rec)
	if err != nil {
		return nil, cgerrors.Serialization("failed to encode record", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if len(rec.Embedding) > 0 {
			if err := txn.Set([]byte(vecPrefix+rec.ID), vecBytes); err != nil {
				return err
			}
		}
		return txn.Set([]byte(memPrefix+rec.ID), recBytes)
	})
	if err != nil {
		return nil, cgerrors.Storage("failed to persist memory record", err)
	}

	if len(rec.Embedding) > 0 {
		s.vectorCache[rec.ID] = rec.Embedding
		s.sem.Upsert(rec.ID, rec.Embedding)
	}
	s.memoryCache[rec.ID] = rec
	s.lex.Upsert(rec.ID, rec.Title, rec.Content, rec.TagList())

	if err := s.db.Sync(); err != nil {
		return nil, cgerrors.Storage("failed to flush after put", err)
	}
	return rec, nil
}

// Get returns the cached current record for id.
func (s *Store) Get(id string) (*memory.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.memoryCache[id]
	return rec, ok
}

// GetAllCurrent returns every current cached record.
func (s *Store) GetAllCurrent() []*memory.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*memory.Record, 0, len(s.memoryCache))
	for _, r := range s.memoryCache {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Invalidate mutates temporal.invalid_at to now and rewrites mem:<id>.
// It does not keep the record in the in-memory caches: the record is
// dropped from them at once, so Get and hybrid search no longer see it,
// while mem:<id> keeps the invalidated record on disk.
func (s *Store) Invalidate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.memoryCache[id]
	if !ok {
		return cgerrors.NotFound("memory " + id + " not found")
	}
	now := nowUTC()
	rec.Temporal.Invalidate(now)

	recBytes, err := encodeRecordV2(rec)
	if err != nil {
		return cgerrors.Serialization("failed to encode invalidated record", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(memPrefix+id), recBytes)
	}); err != nil {
		return cgerrors.Storage("failed to persist invalidation", err)
	}
	// The in-memory caches (record, vector, lexical, semantic) all hold
	// current records only, so invalidation drops id from every one of
	// them even though mem:/vec: stay on disk until Delete.
	delete(s.memoryCache, id)
	delete(s.vectorCache, id)
	s.lex.Remove(id)
	s.sem.Remove(id)
	return s.db.Sync()
}

// Delete removes both mem: and vec: keys, drops both caches, and
// rebuilds the HNSW index without that point.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(memPrefix + id)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete([]byte(vecPrefix + id)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return cgerrors.Storage("failed to delete memory", err)
	}
	delete(s.memoryCache, id)
	delete(s.vectorCache, id)
	s.sem.Remove(id)
	s.lex.Remove(id)
	return s.db.Sync()
}

// Stats groups current records by kind and tag. invalidatedMemories is
// always 0: the cache is a current-only view (spec's open question,
// decided in SPEC_FULL.md §4).
type Stats struct {
	TotalMemories       int
	CurrentMemories     int
	InvalidatedMemories int
	ByKind              map[memory.KindTag]int
	ByTag               map[string]int
}

// ComputeStats groups the cached current records by kind and tag.
func (s *Store) ComputeStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByKind: make(map[memory.KindTag]int), ByTag: make(map[string]int)}
	for _, r := range s.memoryCache {
		stats.ByKind[r.Kind.Tag]++
		for t := range r.Tags {
			stats.ByTag[t]++
		}
	}
	stats.TotalMemories = len(s.memoryCache)
	stats.CurrentMemories = len(s.memoryCache)
	return stats
}

// SemanticIndex exposes the HNSW mirror for hybrid search wiring.
func (s *Store) SemanticIndex() *semindex.Index { return s.sem }

// LexicalIndex exposes the BM25 mirror for hybrid search wiring.
func (s *Store) LexicalIndex() *memindex.Index { return s.lex }

// IsCurrent, Kind, Tags and CodeLinkRelevance implement
// hybridsearch.MemoryLookup directly against the cache, letting Store
// itself serve as the lookup internal/mcpserver wires into
// hybridsearch.Search.
func (s *Store) IsCurrent(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.memoryCache[id]
	return ok
}

func (s *Store) Kind(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.memoryCache[id]; ok {
		return string(r.Kind.Tag)
	}
	return ""
}

func (s *Store) Tags(id string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.memoryCache[id]; ok {
		return r.Tags
	}
	return nil
}

// CodeLinkRelevance returns the highest relevance among id's code
// links whose node id appears in codeContext, or 0 if none match.
func (s *Store) CodeLinkRelevance(id string, codeContext map[string]struct{}) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.memoryCache[id]
	if !ok || len(codeContext) == 0 {
		return 0
	}
	var best float64
	for _, link := range r.CodeLinks {
		if _, match := codeContext[link.NodeID]; match && link.Relevance > best {
			best = link.Relevance
		}
	}
	return best
}

// Close releases the underlying engine.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return cgerrors.Storage("failed to close memory store", err)
	}
	return nil
}

// WithLock acquires the cross-process file lock (ModeOpenOnDemand
// only), runs fn, and releases it — the "open on demand" helper §9
// recommends for sharing the KV engine across processes.
func (s *Store) WithLock(ctx context.Context, fn func() error) error {
	if s.mode != ModeOpenOnDemand {
		return fn()
	}
	locked, err := s.lock.TryLockContext(ctx, defaultLockRetry)
	if err != nil || !locked {
		return cgerrors.Storage("failed to acquire cross-process store lock", err)
	}
	defer s.lock.Unlock()
	return fn()
}
