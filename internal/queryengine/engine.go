// Package queryengine composes the tokenizer, text index and relation
// indexes into the public query primitives over a code graph: symbol
// search, import lookup, call-graph traversal, signature matching and
// entry-point detection.
package queryengine

import (
	"regexp"
	"strings"
	"time"

	"github.com/codegraph-ai/codegraph-core/internal/graph"
	"github.com/codegraph-ai/codegraph-core/internal/textindex"
)

// MaxSignatureLength truncates reported signatures unless compact mode
// omits them entirely.
const MaxSignatureLength = 200

// Engine composes the prebuilt indexes over a fixed GraphView snapshot.
type Engine struct {
	g       graph.GraphView
	text    *textindex.Index
	calls   *textindex.CallIndex
	imports *textindex.ImportIndex
	nodes   map[graph.NodeID]graph.Node
}

// New builds an Engine with an empty index set; call BuildIndexes to
// populate it from a GraphView.
func New() *Engine {
	return &Engine{text: textindex.New(), nodes: make(map[graph.NodeID]graph.Node)}
}

// BuildIndexes (re)builds every index from g in one pass.
func (e *Engine) BuildIndexes(g graph.GraphView) {
	e.g = g
	e.text = textindex.New()
	e.nodes = make(map[graph.NodeID]graph.Node)
	for _, n := range g.IterNodes() {
		e.nodes[n.ID] = n
		e.text.Add(textindex.Document{
			ID:        string(n.ID),
			Name:      n.Name,
			Docstring: n.Doc,
		})
	}
	e.calls, e.imports = textindex.BuildRelations(g)
}

// SymbolInfo is the public, truncated record returned by symbol_search
// and get_symbol_info.
type SymbolInfo struct {
	NodeID     string
	Name       string
	Type       graph.NodeType
	Path       string
	LineStart  int
	LineEnd    int
	Signature  string
	Docstring  string
	IsPublic   bool
	Score      float64
}

// SymbolSearchOptions configures symbol_search.
type SymbolSearchOptions struct {
	Limit          int
	SymbolTypes    map[graph.NodeType]struct{}
	IncludePrivate bool
	Compact        bool
}

// DefaultSymbolSearchOptions mirrors the spec's stated defaults.
func DefaultSymbolSearchOptions() SymbolSearchOptions {
	return SymbolSearchOptions{Limit: 20}
}

// SymbolSearchResult is the return value of symbol_search.
type SymbolSearchResult struct {
	Results      []SymbolInfo
	TotalMatches int
	ElapsedTime  time.Duration
}

// SymbolSearch runs the text index with limit*2 candidates, filters by
// node type and visibility, and converts hits to truncated SymbolInfo.
func (e *Engine) SymbolSearch(query string, opts SymbolSearchOptions) SymbolSearchResult {
	start := time.Now()
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	hits := e.text.Search(query, limit*2)
	results := make([]SymbolInfo, 0, limit)
	for _, h := range hits {
		n, ok := e.nodes[graph.NodeID(h.DocID)]
		if !ok {
			continue
		}
		if len(opts.SymbolTypes) > 0 {
			if _, ok := opts.SymbolTypes[n.Type]; !ok {
				continue
			}
		}
		if !opts.IncludePrivate && !n.IsPublic {
			continue
		}
		info := toSymbolInfo(n, h.Score)
		if opts.Compact {
			info.Signature = ""
			info.Docstring = ""
		} else if len(info.Signature) > MaxSignatureLength {
			info.Signature = info.Signature[:MaxSignatureLength]
		}
		results = append(results, info)
		if len(results) >= limit {
			break
		}
	}

	return SymbolSearchResult{Results: results, TotalMatches: len(results), ElapsedTime: time.Since(start)}
}

func toSymbolInfo(n graph.Node, score float64) SymbolInfo {
	return SymbolInfo{
		NodeID:    string(n.ID),
		Name:      n.Name,
		Type:      n.Type,
		Path:      n.Path,
		LineStart: n.LineStart,
		LineEnd:   n.LineEnd,
		Signature: n.Signature,
		Docstring: n.Doc,
		IsPublic:  n.IsPublic,
		Score:     score,
	}
}

// MatchMode selects how find_by_imports compares against the import index.
type MatchMode string

const (
	MatchExact  MatchMode = "Exact"
	MatchPrefix MatchMode = "Prefix"
	MatchFuzzy  MatchMode = "Fuzzy"
)

// ImportHit is one result of find_by_imports.
type ImportHit struct {
	NodeID      string
	Score       float64
	MatchReason string
}

// FindByImports looks up nodes importing library, per mode.
func (e *Engine) FindByImports(library string, mode MatchMode) []ImportHit {
	var ids []graph.NodeID
	switch mode {
	case MatchPrefix:
		for k, v := range e.imports.ByName {
			if strings.HasPrefix(k, library) {
				ids = append(ids, v...)
			}
		}
	case MatchFuzzy:
		needle := strings.ToLower(library)
		for k, v := range e.imports.ByName {
			if strings.Contains(strings.ToLower(k), needle) {
				ids = append(ids, v...)
			}
		}
	default: // Exact
		ids = e.imports.ByName[library]
	}

	out := make([]ImportHit, 0, len(ids))
	reason := "imports " + library
	for _, id := range ids {
		out = append(out, ImportHit{NodeID: string(id), Score: 1.0, MatchReason: reason})
	}
	return out
}

// CallInfo is one entry of get_callers/get_callees.
type CallInfo struct {
	NodeID   string
	Symbol   string
	CallSite string
	Depth    int
}

// GetCallers returns up to depth hops of callers via BFS.
func (e *Engine) GetCallers(id graph.NodeID, depth int) []CallInfo {
	return e.bfsRelation(id, depth, e.calls.Callers)
}

// GetCallees returns up to depth hops of callees via BFS.
func (e *Engine) GetCallees(id graph.NodeID, depth int) []CallInfo {
	return e.bfsRelation(id, depth, e.calls.Callees)
}

func (e *Engine) bfsRelation(start graph.NodeID, depth int, rel map[graph.NodeID][]graph.NodeID) []CallInfo {
	visited := map[graph.NodeID]struct{}{start: {}}
	frontier := []graph.NodeID{start}
	var out []CallInfo
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []graph.NodeID
		for _, cur := range frontier {
			for _, nb := range rel[cur] {
				if _, seen := visited[nb]; seen {
					continue
				}
				visited[nb] = struct{}{}
				n := e.nodes[nb]
				out = append(out, CallInfo{NodeID: string(nb), Symbol: n.Name, CallSite: n.Path, Depth: d})
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return out
}

// TraversalFilter bounds traverse_graph.
type TraversalFilter struct {
	SymbolTypes map[graph.NodeType]struct{}
	MaxNodes    int
}

// TraversedNode is one emission from traverse_graph.
type TraversedNode struct {
	NodeID   string
	Depth    int
	Path     []string
	EdgeType string
}

// TraverseGraph performs a bounded BFS; the start node itself is never emitted.
func (e *Engine) TraverseGraph(start graph.NodeID, dir graph.Direction, maxDepth int, filter TraversalFilter) []TraversedNode {
	type queued struct {
		id       graph.NodeID
		depth    int
		path     []string
		edgeType string
	}

	visited := map[graph.NodeID]struct{}{start: {}}
	queue := []queued{{id: start, depth: 0, path: []string{string(start)}}}
	var out []TraversedNode

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > 0 {
			if len(filter.SymbolTypes) == 0 || matchesType(e.nodes[cur.id], filter.SymbolTypes) {
				out = append(out, TraversedNode{
					NodeID:   string(cur.id),
					Depth:    cur.depth,
					Path:     cur.path,
					EdgeType: cur.edgeType,
				})
				if filter.MaxNodes > 0 && len(out) >= filter.MaxNodes {
					break
				}
			}
		}
		if cur.depth >= maxDepth {
			continue
		}
		for _, nb := range e.g.GetNeighbors(cur.id, dir) {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			edgeType := ""
			if edges := e.g.GetEdgesBetween(cur.id, nb); len(edges) > 0 {
				edgeType = string(edges[0].Type)
			}
			newPath := append(append([]string{}, cur.path...), string(nb))
			queue = append(queue, queued{id: nb, depth: cur.depth + 1, path: newPath, edgeType: edgeType})
		}
	}
	return out
}

func matchesType(n graph.Node, types map[graph.NodeType]struct{}) bool {
	_, ok := types[n.Type]
	return ok
}

// SignaturePattern describes a find_by_signature query.
type SignaturePattern struct {
	NamePattern *regexp.Regexp
	ReturnType  string
	ParamMin    *int
	ParamMax    *int
	Modifiers   []string
}

// SignatureMatch is a find_by_signature hit.
type SignatureMatch struct {
	NodeID      string
	MatchReason string
}

var returnTypeAliases = map[string]string{
	"boolean": "bool",
	"bool":    "bool",
	"integer": "int",
	"int":     "int",
	"i32":     "int",
	"i64":     "int",
	"string":  "string",
	"str":     "string",
	"&str":    "string",
	"void":    "void",
	"()":      "void",
	"none":    "void",
	"null":    "void",
}

func normalizeReturnType(t string) string {
	if alias, ok := returnTypeAliases[strings.ToLower(strings.TrimSpace(t))]; ok {
		return alias
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// FindBySignature evaluates pattern against every function node.
func (e *Engine) FindBySignature(pattern SignaturePattern, limit int) []SignatureMatch {
	var out []SignatureMatch
	for _, n := range e.g.IterNodes() {
		if n.Type != graph.NodeFunction {
			continue
		}
		if pattern.NamePattern != nil && !pattern.NamePattern.MatchString(n.Name) {
			continue
		}
		if pattern.ReturnType != "" {
			if !matchesReturnType(pattern.ReturnType, n.ReturnType) {
				continue
			}
		}
		if pattern.ParamMin != nil && n.ParamCount < *pattern.ParamMin {
			continue
		}
		if pattern.ParamMax != nil && n.ParamCount > *pattern.ParamMax {
			continue
		}
		if !matchesModifiers(pattern.Modifiers, n) {
			continue
		}
		out = append(out, SignatureMatch{NodeID: string(n.ID), MatchReason: describeSignatureMatch(pattern)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func matchesReturnType(expected, actual string) bool {
	if strings.Contains(expected, "*") {
		pattern := "^" + regexp.QuoteMeta(expected)
		pattern = strings.ReplaceAll(pattern, regexp.QuoteMeta("*"), ".*") + "$"
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	}
	return normalizeReturnType(expected) == normalizeReturnType(actual)
}

func matchesModifiers(mods []string, n graph.Node) bool {
	for _, m := range mods {
		switch strings.ToLower(m) {
		case "async":
			if !n.IsAsync {
				return false
			}
		case "public", "pub":
			if !n.IsPublic {
				return false
			}
		case "private":
			if n.IsPublic {
				return false
			}
		case "static":
			if !n.IsStatic {
				return false
			}
		case "const":
			if !n.IsConst {
				return false
			}
		}
	}
	return true
}

func describeSignatureMatch(pattern SignaturePattern) string {
	var parts []string
	if pattern.NamePattern != nil {
		parts = append(parts, "name~"+pattern.NamePattern.String())
	}
	if pattern.ReturnType != "" {
		parts = append(parts, "returns "+pattern.ReturnType)
	}
	if pattern.ParamMin != nil || pattern.ParamMax != nil {
		parts = append(parts, "param_count matched")
	}
	if len(pattern.Modifiers) > 0 {
		parts = append(parts, "modifiers "+strings.Join(pattern.Modifiers, ","))
	}
	return strings.Join(parts, "; ")
}

// CompileNamePattern compiles a name_pattern regex, returning nil (a
// "no filter" pattern) on malformed regexes per §4 failure semantics.
func CompileNamePattern(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re
}

// EntryKind classifies a function's entry-point role.
type EntryKind string

const (
	EntryHTTPHandler EntryKind = "HttpHandler"
	EntryMain        EntryKind = "Main"
	EntryTest        EntryKind = "TestEntry"
	EntryCLICommand  EntryKind = "CliCommand"
	EntryEventHandler EntryKind = "EventHandler"
	EntryPublicAPI   EntryKind = "PublicApi"
)

// EntryPoint is one find_entry_points hit.
type EntryPoint struct {
	NodeID      string
	Kind        EntryKind
	Route       string
	Method      string
	Description string
}

var eventHandlerPattern = regexp.MustCompile(`(?i)^on_.*|^handle_.*|.*_handler$|.*_callback$`)

func classify(n graph.Node) (EntryKind, bool) {
	switch {
	case n.Route != "" || n.HTTPMethod != "":
		return EntryHTTPHandler, true
	case n.Name == "main" || n.Name == "__main__":
		return EntryMain, true
	case n.IsTest || strings.HasPrefix(strings.ToLower(n.Name), "test_") || strings.HasPrefix(strings.ToLower(n.Name), "test"):
		return EntryTest, true
	case n.IsCLI || strings.Contains(strings.ToLower(n.Name), "command") || strings.Contains(strings.ToLower(n.Name), "cli"):
		return EntryCLICommand, true
	case eventHandlerPattern.MatchString(n.Name):
		return EntryEventHandler, true
	case n.IsPublic:
		return EntryPublicAPI, true
	default:
		return "", false
	}
}

// FindEntryPoints classifies every function node; kinds empty means all.
func (e *Engine) FindEntryPoints(kinds map[EntryKind]struct{}, compact bool, limit int) []EntryPoint {
	var out []EntryPoint
	for _, n := range e.g.IterNodes() {
		if n.Type != graph.NodeFunction {
			continue
		}
		kind, ok := classify(n)
		if !ok {
			continue
		}
		if len(kinds) > 0 {
			if _, want := kinds[kind]; !want {
				continue
			}
		}
		ep := EntryPoint{NodeID: string(n.ID), Kind: kind, Route: n.Route, Method: n.HTTPMethod}
		if !compact {
			ep.Description = n.Doc
		}
		out = append(out, ep)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// SymbolDetail is the return of get_symbol_info.
type SymbolDetail struct {
	Symbol          SymbolInfo
	Callers         []CallInfo
	Callees         []CallInfo
	Dependencies    []string
	Dependents      []string
	LinesOfCode     int
	IsPublic        bool
	IsDeprecated    bool
	ReferenceCount  int
	HasTests        bool
}

// GetSymbolInfo returns the detailed view of one node.
func (e *Engine) GetSymbolInfo(id graph.NodeID) (SymbolDetail, bool) {
	n, ok := e.nodes[id]
	if !ok {
		return SymbolDetail{}, false
	}

	callers := e.bfsRelation(id, 1, e.calls.Callers)
	callees := e.bfsRelation(id, 1, e.calls.Callees)

	var deps, dependents []string
	for name, nodes := range e.imports.ByName {
		for _, nid := range nodes {
			if nid == id {
				deps = append(deps, name)
			}
		}
		_ = nodes
	}
	for _, other := range e.g.IterNodes() {
		for _, edge := range e.g.GetEdgesBetween(other.ID, id) {
			if edge.Type == graph.EdgeImportsFrom {
				dependents = append(dependents, other.Name)
			}
		}
	}

	hasTests := false
	for _, c := range callers {
		lower := strings.ToLower(c.Symbol + c.CallSite)
		if strings.Contains(lower, "test") {
			hasTests = true
			break
		}
	}

	return SymbolDetail{
		Symbol:         toSymbolInfo(n, 0),
		Callers:        callers,
		Callees:        callees,
		Dependencies:   deps,
		Dependents:     dependents,
		LinesOfCode:    n.LineEnd - n.LineStart + 1,
		IsPublic:       n.IsPublic,
		ReferenceCount: len(e.g.GetNeighbors(id, graph.Incoming)),
		HasTests:       hasTests,
	}, true
}
