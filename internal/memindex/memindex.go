// Package memindex specializes internal/textindex to the memory
// corpus: one unweighted document per memory over
// title + " " + content + " " + join(tags, " "). Writes only update the
// stored text; the BM25 scorer is rebuilt from it on every Search.
package memindex

import (
	"strings"
	"sync"

	"github.com/codegraph-ai/codegraph-core/internal/textindex"
)

// Index is the memory BM25 lexical index.
type Index struct {
	mu   sync.RWMutex
	docs map[string]string // id -> searchable text, replayed on Rebuild
}

// New returns an empty Index.
func New() *Index {
	return &Index{docs: make(map[string]string)}
}

// Upsert records (or replaces) the searchable text for a memory id; the
// inverted index is built from it at the next Search.
func (idx *Index) Upsert(id, title, content string, tags []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs[id] = searchableText(title, content, tags)
}

// Remove drops a memory id from the corpus.
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.docs, id)
}

func searchableText(title, content string, tags []string) string {
	return title + " " + content + " " + strings.Join(tags, " ")
}

// Search rebuilds the scorer over the current document set and
// searches it. Rebuilding is O(N) but the memory corpus is small
// enough (thousands of records, same assumption as the HNSW index)
// that this is cheaper than incremental posting-list maintenance.
func (idx *Index) Search(query string, limit int) []textindex.Result {
	idx.mu.RLock()
	snapshot := make(map[string]string, len(idx.docs))
	for id, text := range idx.docs {
		snapshot[id] = text
	}
	idx.mu.RUnlock()

	bm25 := textindex.New()
	for id, text := range snapshot {
		bm25.AddPlain(id, text)
	}
	return bm25.Search(query, limit)
}

// Len reports the number of indexed memories.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}
