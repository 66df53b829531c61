// Package textindex is a hand-rolled inverted index and BM25 scorer.
//
// bleve (the host CLI's text-search dependency) hides its scorer behind
// an opaque query/collector pipeline: there is no addressable idf, tf,
// document length or per-field weight to pin down in a test. The spec's
// testable properties (idf positivity, field-weight ordering, tf
// saturation, multi-token summation) each name a specific quantity in
// the formula, so the index is built directly against that formula
// instead of through a general-purpose search engine.
package textindex

import (
	"math"
	"sort"

	"github.com/codegraph-ai/codegraph-core/internal/tokenizer"
)

const (
	k1 = 1.2
	b  = 0.75

	WeightName      = 3.0
	WeightDocstring = 2.0
	WeightComment   = 1.0
)

// MatchReason names which field(s) caused a document to match.
type MatchReason string

const (
	ReasonSymbolName MatchReason = "SymbolName"
	ReasonDocstring  MatchReason = "Docstring"
	ReasonComment    MatchReason = "Comment"
	ReasonMultiple   MatchReason = "Multiple"
)

// Document is one indexable unit: a code symbol's name, optional
// docstring and comment lines.
type Document struct {
	ID       string
	Name     string
	Docstring string
	Comments []string
}

type posting struct {
	termFreq int
	weight   float64
}

// Index is an inverted index with a BM25 scorer over Document.
type Index struct {
	postings map[string]map[string]*posting // token -> docID -> posting
	docLen   map[string]float64
	matchReason map[string]MatchReason
	order    []string // insertion order, used for stable tie-breaks
	totalLen float64
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		postings:    make(map[string]map[string]*posting),
		docLen:      make(map[string]float64),
		matchReason: make(map[string]MatchReason),
	}
}

// Add indexes one document, accumulating term frequency across fields
// and keeping the maximum field weight per (doc, token).
func (idx *Index) Add(doc Document) {
	if _, exists := idx.docLen[doc.ID]; !exists {
		idx.order = append(idx.order, doc.ID)
	}

	fieldsSeen := make(map[string]bool) // token -> seen in at least one field
	fieldHits := make(map[string]map[MatchReason]bool)
	length := 0.0

	add := func(text string, weight float64, reason MatchReason) {
		toks := tokenizer.Tokenize(text)
		length += float64(len(toks))
		for _, t := range toks {
			m, ok := idx.postings[t]
			if !ok {
				m = make(map[string]*posting)
				idx.postings[t] = m
			}
			p, ok := m[doc.ID]
			if !ok {
				p = &posting{}
				m[doc.ID] = p
			}
			p.termFreq++
			if weight > p.weight {
				p.weight = weight
			}
			if fieldHits[t] == nil {
				fieldHits[t] = make(map[MatchReason]bool)
			}
			fieldHits[t][reason] = true
			fieldsSeen[t] = true
		}
	}

	add(doc.Name, WeightName, ReasonSymbolName)
	if doc.Docstring != "" {
		add(doc.Docstring, WeightDocstring, ReasonDocstring)
	}
	for _, c := range doc.Comments {
		add(c, WeightComment, ReasonComment)
	}

	idx.docLen[doc.ID] = length
	idx.totalLen += length
	idx.matchReason[doc.ID] = primaryReason(fieldHits)
}

// AddPlain indexes a single unweighted field — used by consumers (the
// memory lexical index) that specialize §4.2 without field weighting.
func (idx *Index) AddPlain(id, text string) {
	idx.Add(Document{ID: id, Name: text})
}

func primaryReason(fieldHits map[string]map[MatchReason]bool) MatchReason {
	seen := make(map[MatchReason]bool)
	for _, m := range fieldHits {
		for r := range m {
			seen[r] = true
		}
	}
	switch {
	case len(seen) == 0:
		return ""
	case len(seen) > 1:
		return ReasonMultiple
	default:
		for r := range seen {
			return r
		}
	}
	return ""
}

// N returns the document count.
func (idx *Index) N() int { return len(idx.order) }

func (idx *Index) avgDocLen() float64 {
	if idx.N() == 0 {
		return 0
	}
	return idx.totalLen / float64(idx.N())
}

func (idx *Index) df(token string) int { return len(idx.postings[token]) }

// IDF returns the Okapi BM25 idf for a token, given the index's current
// document count and document frequency.
func (idx *Index) IDF(token string) float64 {
	n := float64(idx.N())
	df := float64(idx.df(token))
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// Result is one scored document.
type Result struct {
	DocID       string
	Score       float64
	MatchReason MatchReason
}

// Search scores every document containing at least one query token and
// returns the top `limit` by descending score, ties broken by
// insertion order.
func (idx *Index) Search(query string, limit int) []Result {
	tokens := tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	avgdl := idx.avgDocLen()
	for _, t := range tokens {
		postingsForToken := idx.postings[t]
		if len(postingsForToken) == 0 {
			continue
		}
		idf := idx.IDF(t)
		for docID, p := range postingsForToken {
			dl := idx.docLen[docID]
			tf := float64(p.termFreq)
			denom := tf + k1*(1-b+b*dl/avgdl)
			contribution := idf * (tf * (k1 + 1) / denom) * p.weight
			scores[docID] += contribution
		}
	}

	results := make([]Result, 0, len(scores))
	for docID, score := range scores {
		results = append(results, Result{DocID: docID, Score: score, MatchReason: idx.matchReason[docID]})
	}

	rank := make(map[string]int, len(idx.order))
	for i, id := range idx.order {
		rank[id] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return rank[results[i].DocID] < rank[results[j].DocID]
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
