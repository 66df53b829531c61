package mcpserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codegraph-ai/codegraph-core/internal/graph"
	"github.com/codegraph-ai/codegraph-core/internal/hybridsearch"
	"github.com/codegraph-ai/codegraph-core/internal/memory"
	"github.com/codegraph-ai/codegraph-core/internal/memstore"
	"github.com/codegraph-ai/codegraph-core/internal/queryengine"
	"github.com/codegraph-ai/codegraph-core/internal/telemetry"
	"github.com/codegraph-ai/codegraph-core/pkg/version"
)

// Embedder is the subset of internal/embedengine.Engine the server
// needs to embed a memory_search query string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Server is the MCP dispatcher: it owns no state of its own beyond
// references to the Query Engine and Memory Subsystem it forwards
// every tool call to, plus the in-process query telemetry those calls
// feed (meaningful here specifically because, unlike the CLI, a server
// process lives across many tool calls).
type Server struct {
	mcp      *mcp.Server
	engine   *queryengine.Engine
	store    *memstore.Store
	embedder Embedder
	hybrid   hybridsearch.Config
	logger   *slog.Logger
	metrics  *telemetry.QueryMetrics
}

// New builds a Server wired to engine and store and registers every
// tool. embedder may be nil — memory_search then runs lexical+graph
// only, per the same fallback queryengine and memstore already apply
// when no embedder is configured.
func New(engine *queryengine.Engine, store *memstore.Store, embedder Embedder) *Server {
	s := &Server{
		engine:   engine,
		store:    store,
		embedder: embedder,
		hybrid:   hybridsearch.DefaultConfig(),
		logger:   slog.Default(),
		metrics:  telemetry.NewQueryMetrics(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "codegraph",
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server instance, for the host
// process to run over stdio or another transport.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "symbol_search",
		Description: "Finds functions, classes, and other symbols by name or partial name across the indexed code graph. Ranked by BM25 over name and docstring; comments are not indexed.",
	}, s.symbolSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_by_imports",
		Description: "Finds code nodes that import a given library or module, with exact, prefix or fuzzy matching.",
	}, s.findByImportsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_callers",
		Description: "Returns the functions that call a given node, up to a bounded number of hops.",
	}, s.getCallersHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_callees",
		Description: "Returns the functions called by a given node, up to a bounded number of hops.",
	}, s.getCalleesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "traverse_graph",
		Description: "Performs a bounded breadth-first traversal of the code graph from a starting node, in either edge direction.",
	}, s.traverseGraphHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_by_signature",
		Description: "Finds functions matching a name pattern, return type, parameter count range and/or modifiers.",
	}, s.findBySignatureHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_entry_points",
		Description: "Finds HTTP handlers, main functions, test entries, CLI commands, event handlers and public API symbols.",
	}, s.findEntryPointsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_symbol_info",
		Description: "Returns the full detail record for one symbol by node id.",
	}, s.getSymbolInfoHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_put",
		Description: "Records a new memory (architectural decision, debug context, known issue, convention or project context) in the persistent Memory Subsystem.",
	}, s.memoryPutHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_search",
		Description: "Hybrid search over recorded memories, combining lexical (BM25), semantic (embedding) and code-proximity signals.",
	}, s.memorySearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Reports memory counts grouped by kind and tag.",
	}, s.memoryStatsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_invalidate",
		Description: "Marks a memory as no longer current without deleting its history.",
	}, s.memoryInvalidateHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_delete",
		Description: "Permanently removes a memory and its embedding.",
	}, s.memoryDeleteHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_stats",
		Description: "Reports query volume by type, latency distribution, top search terms, zero-result rate, and repeat/near-repeat query rates for this server process.",
	}, s.queryStatsHandler)
}

func (s *Server) symbolSearchHandler(_ context.Context, _ *mcp.CallToolRequest, in SymbolSearchInput) (*mcp.CallToolResult, SymbolSearchOutput, error) {
	if in.Query == "" {
		return nil, SymbolSearchOutput{}, NewInvalidParamsError("query is required")
	}
	opts := queryengine.DefaultSymbolSearchOptions()
	opts.IncludePrivate = in.IncludePrivate
	opts.Compact = in.Compact
	if in.Limit > 0 {
		opts.Limit = in.Limit
	}
	if len(in.SymbolTypes) > 0 {
		opts.SymbolTypes = make(map[graph.NodeType]struct{}, len(in.SymbolTypes))
		for _, t := range in.SymbolTypes {
			opts.SymbolTypes[graph.NodeType(t)] = struct{}{}
		}
	}

	res := s.engine.SymbolSearch(in.Query, opts)
	s.metrics.Record(telemetry.QueryEvent{
		Query:       in.Query,
		QueryType:   telemetry.QueryTypeLexical,
		ResultCount: len(res.Results),
		Latency:     res.ElapsedTime,
		Timestamp:   time.Now(),
	})
	out := SymbolSearchOutput{Results: make([]SymbolInfoOutput, 0, len(res.Results)), TotalMatches: res.TotalMatches, ElapsedMs: res.ElapsedTime.Milliseconds()}
	for _, r := range res.Results {
		out.Results = append(out.Results, toSymbolInfoOutput(r))
	}
	return nil, out, nil
}

func toSymbolInfoOutput(r queryengine.SymbolInfo) SymbolInfoOutput {
	return SymbolInfoOutput{
		NodeID:    r.NodeID,
		Name:      r.Name,
		Type:      string(r.Type),
		Path:      r.Path,
		LineStart: r.LineStart,
		LineEnd:   r.LineEnd,
		Signature: r.Signature,
		Docstring: r.Docstring,
		IsPublic:  r.IsPublic,
		Score:     r.Score,
	}
}

func (s *Server) findByImportsHandler(_ context.Context, _ *mcp.CallToolRequest, in FindByImportsInput) (*mcp.CallToolResult, FindByImportsOutput, error) {
	if in.Library == "" {
		return nil, FindByImportsOutput{}, NewInvalidParamsError("library is required")
	}
	mode := queryengine.MatchExact
	if in.Mode != "" {
		mode = queryengine.MatchMode(in.Mode)
	}
	hits := s.engine.FindByImports(in.Library, mode)
	out := FindByImportsOutput{Results: make([]ImportHitOutput, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, ImportHitOutput{NodeID: h.NodeID, Score: h.Score, MatchReason: h.MatchReason})
	}
	return nil, out, nil
}

func (s *Server) getCallersHandler(_ context.Context, _ *mcp.CallToolRequest, in CallGraphInput) (*mcp.CallToolResult, CallGraphOutput, error) {
	return nil, s.callGraph(in, s.engine.GetCallers), nil
}

func (s *Server) getCalleesHandler(_ context.Context, _ *mcp.CallToolRequest, in CallGraphInput) (*mcp.CallToolResult, CallGraphOutput, error) {
	return nil, s.callGraph(in, s.engine.GetCallees), nil
}

func (s *Server) callGraph(in CallGraphInput, fn func(graph.NodeID, int) []queryengine.CallInfo) CallGraphOutput {
	depth := in.Depth
	if depth <= 0 {
		depth = 1
	}
	hits := fn(graph.NodeID(in.NodeID), depth)
	out := CallGraphOutput{Results: make([]CallInfoOutput, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, CallInfoOutput{NodeID: h.NodeID, Symbol: h.Symbol, CallSite: h.CallSite, Depth: h.Depth})
	}
	return out
}

func (s *Server) traverseGraphHandler(_ context.Context, _ *mcp.CallToolRequest, in TraverseGraphInput) (*mcp.CallToolResult, TraverseGraphOutput, error) {
	dir := graph.Outgoing
	switch in.Direction {
	case "Incoming":
		dir = graph.Incoming
	case "Both":
		dir = graph.Both
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 2
	}
	filter := queryengine.TraversalFilter{MaxNodes: in.MaxNodes}
	if len(in.SymbolTypes) > 0 {
		filter.SymbolTypes = make(map[graph.NodeType]struct{}, len(in.SymbolTypes))
		for _, t := range in.SymbolTypes {
			filter.SymbolTypes[graph.NodeType(t)] = struct{}{}
		}
	}

	hits := s.engine.TraverseGraph(graph.NodeID(in.NodeID), dir, maxDepth, filter)
	out := TraverseGraphOutput{Results: make([]TraversedNodeOutput, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, TraversedNodeOutput{NodeID: h.NodeID, Depth: h.Depth, Path: h.Path, EdgeType: h.EdgeType})
	}
	return nil, out, nil
}

func (s *Server) findBySignatureHandler(_ context.Context, _ *mcp.CallToolRequest, in FindBySignatureInput) (*mcp.CallToolResult, FindBySignatureOutput, error) {
	pattern := queryengine.SignaturePattern{
		NamePattern: queryengine.CompileNamePattern(in.NamePattern),
		ReturnType:  in.ReturnType,
		ParamMin:    in.ParamMin,
		ParamMax:    in.ParamMax,
		Modifiers:   in.Modifiers,
	}
	if in.NamePattern != "" && pattern.NamePattern == nil {
		return nil, FindBySignatureOutput{}, NewInvalidParamsError("name_pattern is not a valid regular expression")
	}
	hits := s.engine.FindBySignature(pattern, in.Limit)
	out := FindBySignatureOutput{Results: make([]SignatureMatchOutput, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, SignatureMatchOutput{NodeID: h.NodeID, MatchReason: h.MatchReason})
	}
	return nil, out, nil
}

func (s *Server) findEntryPointsHandler(_ context.Context, _ *mcp.CallToolRequest, in FindEntryPointsInput) (*mcp.CallToolResult, FindEntryPointsOutput, error) {
	kinds := make(map[queryengine.EntryKind]struct{}, len(in.Kinds))
	for _, k := range in.Kinds {
		kinds[queryengine.EntryKind(k)] = struct{}{}
	}
	hits := s.engine.FindEntryPoints(kinds, false, 0)
	out := FindEntryPointsOutput{Results: make([]EntryPointOutput, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, EntryPointOutput{
			NodeID: h.NodeID, Kind: string(h.Kind), Route: h.Route, Method: h.Method, Description: h.Description,
		})
	}
	return nil, out, nil
}

func (s *Server) getSymbolInfoHandler(_ context.Context, _ *mcp.CallToolRequest, in GetSymbolInfoInput) (*mcp.CallToolResult, GetSymbolInfoOutput, error) {
	detail, ok := s.engine.GetSymbolInfo(graph.NodeID(in.NodeID))
	if !ok {
		return nil, GetSymbolInfoOutput{Found: false}, nil
	}
	out := GetSymbolInfoOutput{
		Found:          true,
		Symbol:         toSymbolInfoOutput(detail.Symbol),
		Dependencies:   detail.Dependencies,
		Dependents:     detail.Dependents,
		LinesOfCode:    detail.LinesOfCode,
		ReferenceCount: detail.ReferenceCount,
		HasTests:       detail.HasTests,
	}
	for _, c := range detail.Callers {
		out.Callers = append(out.Callers, CallInfoOutput{NodeID: c.NodeID, Symbol: c.Symbol, CallSite: c.CallSite, Depth: c.Depth})
	}
	for _, c := range detail.Callees {
		out.Callees = append(out.Callees, CallInfoOutput{NodeID: c.NodeID, Symbol: c.Symbol, CallSite: c.CallSite, Depth: c.Depth})
	}
	return nil, out, nil
}

func (s *Server) memoryPutHandler(ctx context.Context, _ *mcp.CallToolRequest, in MemoryPutInput) (*mcp.CallToolResult, MemoryPutOutput, error) {
	kind, err := buildKind(in)
	if err != nil {
		return nil, MemoryPutOutput{}, err
	}
	confidence := in.Confidence
	if confidence == 0 {
		confidence = 1
	}
	b := memory.NewBuilder(time.Now().UTC()).
		Kind(kind).
		Title(in.Title).
		Content(in.Content).
		Source(memory.Source{Tag: memory.SourceTag(in.SourceTag), Value: in.SourceValue}).
		Confidence(confidence)
	for _, t := range in.Tags {
		b.AddTag(t)
	}
	for _, id := range in.NodeIDs {
		b.AddCodeLink(memory.NewCodeLink(id, memory.LinkFunction, 1))
	}
	rec, berr := b.Build()
	if berr != nil {
		return nil, MemoryPutOutput{}, MapError(berr)
	}

	saved, perr := s.store.Put(ctx, rec)
	if perr != nil {
		return nil, MemoryPutOutput{}, MapError(perr)
	}
	return nil, MemoryPutOutput{ID: saved.ID}, nil
}

func buildKind(in MemoryPutInput) (memory.Kind, error) {
	switch memory.KindTag(in.KindTag) {
	case memory.KindArchitecturalDecision:
		if in.ArchitecturalDecision == nil {
			return memory.Kind{}, NewInvalidParamsError("architectural_decision payload is required for kind_tag ArchitecturalDecision")
		}
		d := in.ArchitecturalDecision
		return memory.Kind{Tag: memory.KindArchitecturalDecision, ArchitecturalDecision: &memory.ArchitecturalDecision{
			Decision: d.Decision, Rationale: d.Rationale, Alternatives: d.Alternatives, Stakeholders: d.Stakeholders,
		}}, nil
	case memory.KindDebugContext:
		if in.DebugContext == nil {
			return memory.Kind{}, NewInvalidParamsError("debug_context payload is required for kind_tag DebugContext")
		}
		d := in.DebugContext
		return memory.Kind{Tag: memory.KindDebugContext, DebugContext: &memory.DebugContext{
			Problem: d.Problem, RootCause: d.RootCause, Solution: d.Solution, Symptoms: d.Symptoms, RelatedErrors: d.RelatedErrors,
		}}, nil
	case memory.KindKnownIssue:
		if in.KnownIssue == nil {
			return memory.Kind{}, NewInvalidParamsError("known_issue payload is required for kind_tag KnownIssue")
		}
		d := in.KnownIssue
		return memory.Kind{Tag: memory.KindKnownIssue, KnownIssue: &memory.KnownIssue{
			Description: d.Description, Severity: memory.Severity(d.Severity), Workaround: d.Workaround, TrackingID: d.TrackingID,
		}}, nil
	case memory.KindConvention:
		if in.Convention == nil {
			return memory.Kind{}, NewInvalidParamsError("convention payload is required for kind_tag Convention")
		}
		d := in.Convention
		return memory.Kind{Tag: memory.KindConvention, Convention: &memory.Convention{
			Name: d.Name, Description: d.Description, Pattern: d.Pattern, AntiPattern: d.AntiPattern,
		}}, nil
	case memory.KindProjectContext:
		if in.ProjectContext == nil {
			return memory.Kind{}, NewInvalidParamsError("project_context payload is required for kind_tag ProjectContext")
		}
		d := in.ProjectContext
		return memory.Kind{Tag: memory.KindProjectContext, ProjectContext: &memory.ProjectContext{
			Topic: d.Topic, Description: d.Description, Tags: d.Tags,
		}}, nil
	default:
		return memory.Kind{}, NewInvalidParamsError("kind_tag must be one of ArchitecturalDecision, DebugContext, KnownIssue, Convention, ProjectContext")
	}
}

func (s *Server) memorySearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in MemorySearchInput) (*mcp.CallToolResult, MemorySearchOutput, error) {
	if in.Query == "" {
		return nil, MemorySearchOutput{}, NewInvalidParamsError("query is required")
	}
	cfg := s.hybrid
	if in.Limit > 0 {
		cfg.Limit = in.Limit
	}
	// cfg.CurrentOnly stays true (DefaultConfig): the store's lexical
	// and semantic caches only ever hold current records, so a
	// per-request toggle here would have nothing to turn off.
	if len(in.Kinds) > 0 {
		cfg.Kinds = make(map[string]struct{}, len(in.Kinds))
		for _, k := range in.Kinds {
			cfg.Kinds[k] = struct{}{}
		}
	}
	if len(in.Tags) > 0 {
		cfg.Tags = make(map[string]struct{}, len(in.Tags))
		for _, t := range in.Tags {
			cfg.Tags[t] = struct{}{}
		}
	}

	var queryVector []float32
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, in.Query)
		if err != nil {
			s.logger.Warn("memory_search: embedding failed, falling back to lexical+graph only", "error", err)
		} else {
			queryVector = vec
		}
	}

	start := time.Now()
	results, err := hybridsearch.Search(ctx, s.store.LexicalIndex(), s.store.SemanticIndex(), s.store, in.Query, queryVector, in.CodeContext, cfg)
	if err != nil {
		return nil, MemorySearchOutput{}, MapError(err)
	}
	queryType := telemetry.QueryTypeLexical
	if queryVector != nil {
		queryType = telemetry.QueryTypeMixed
	}
	s.metrics.Record(telemetry.QueryEvent{
		Query:       in.Query,
		QueryType:   queryType,
		ResultCount: len(results),
		Latency:     time.Since(start),
		Timestamp:   time.Now(),
	})
	if queryVector != nil {
		s.metrics.RecordQueryEmbedding(queryVector)
	}

	out := MemorySearchOutput{Results: make([]MemorySearchResultOutput, 0, len(results))}
	for _, r := range results {
		rec, _ := s.store.Get(r.ID)
		title := r.ID
		if rec != nil {
			title = rec.Title
		}
		reasons := make([]string, 0, len(r.MatchReasons))
		for _, mr := range r.MatchReasons {
			reasons = append(reasons, string(mr))
		}
		out.Results = append(out.Results, MemorySearchResultOutput{
			ID: r.ID, Title: title, Score: r.Score, BM25Score: r.BM25Score, Semantic: r.Semantic, GraphScore: r.GraphScore, MatchReasons: reasons,
		})
	}
	return nil, out, nil
}

func (s *Server) memoryStatsHandler(_ context.Context, _ *mcp.CallToolRequest, _ MemoryStatsInput) (*mcp.CallToolResult, MemoryStatsOutput, error) {
	stats := s.store.ComputeStats()
	out := MemoryStatsOutput{
		TotalMemories:       stats.TotalMemories,
		CurrentMemories:     stats.CurrentMemories,
		InvalidatedMemories: stats.InvalidatedMemories,
		ByKind:              make(map[string]int, len(stats.ByKind)),
		ByTag:               stats.ByTag,
	}
	for k, v := range stats.ByKind {
		out.ByKind[string(k)] = v
	}
	return nil, out, nil
}

func (s *Server) memoryInvalidateHandler(_ context.Context, _ *mcp.CallToolRequest, in MemoryInvalidateInput) (*mcp.CallToolResult, MemoryInvalidateOutput, error) {
	if in.ID == "" {
		return nil, MemoryInvalidateOutput{}, NewInvalidParamsError("id is required")
	}
	if err := s.store.Invalidate(in.ID); err != nil {
		return nil, MemoryInvalidateOutput{}, MapError(err)
	}
	return nil, MemoryInvalidateOutput{Invalidated: true}, nil
}

func (s *Server) memoryDeleteHandler(_ context.Context, _ *mcp.CallToolRequest, in MemoryDeleteInput) (*mcp.CallToolResult, MemoryDeleteOutput, error) {
	if in.ID == "" {
		return nil, MemoryDeleteOutput{}, NewInvalidParamsError("id is required")
	}
	if err := s.store.Delete(in.ID); err != nil {
		return nil, MemoryDeleteOutput{}, MapError(err)
	}
	return nil, MemoryDeleteOutput{Deleted: true}, nil
}

func (s *Server) queryStatsHandler(_ context.Context, _ *mcp.CallToolRequest, _ QueryStatsInput) (*mcp.CallToolResult, QueryStatsOutput, error) {
	snap := s.metrics.Snapshot()

	out := QueryStatsOutput{
		QueryTypeCounts:     make(map[string]int64, len(snap.QueryTypeCounts)),
		TopTerms:            make([]TermCountOutput, 0, len(snap.TopTerms)),
		ZeroResultQueries:   snap.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snap.LatencyDistribution)),
		TotalQueries:        snap.TotalQueries,
		ZeroResultPercent:   snap.ZeroResultPercentage(),
		ExactRepeatRate:     snap.ExactRepeatRate,
		SimilarQueryRate:    snap.SimilarQueryRate,
		UniqueQueryCount:    snap.UniqueQueryCount,
	}
	for qt, count := range snap.QueryTypeCounts {
		out.QueryTypeCounts[string(qt)] = count
	}
	for _, t := range snap.TopTerms {
		out.TopTerms = append(out.TopTerms, TermCountOutput{Term: t.Term, Count: t.Count})
	}
	for bucket, count := range snap.LatencyDistribution {
		out.LatencyDistribution[string(bucket)] = count
	}
	return nil, out, nil
}
