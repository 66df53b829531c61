package mcpserver

// SymbolSearchInput is the input schema for the symbol_search tool.
type SymbolSearchInput struct {
	Query          string   `json:"query" jsonschema:"the symbol name or partial name to search for"`
	SymbolTypes    []string `json:"symbol_types,omitempty" jsonschema:"filter by node type: Function, Class, Interface, Method, Variable, Module, File, Import, Trait, Constant"`
	IncludePrivate bool     `json:"include_private,omitempty" jsonschema:"include non-public symbols, default false"`
	Compact        bool     `json:"compact,omitempty" jsonschema:"omit signature and docstring from results"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

// SymbolInfoOutput mirrors queryengine.SymbolInfo for the wire.
type SymbolInfoOutput struct {
	NodeID    string  `json:"node_id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Path      string  `json:"path"`
	LineStart int     `json:"line_start"`
	LineEnd   int     `json:"line_end"`
	Signature string  `json:"signature,omitempty"`
	Docstring string  `json:"docstring,omitempty"`
	IsPublic  bool    `json:"is_public"`
	Score     float64 `json:"score"`
}

// SymbolSearchOutput is the output schema for the symbol_search tool.
type SymbolSearchOutput struct {
	Results      []SymbolInfoOutput `json:"results"`
	TotalMatches int                `json:"total_matches"`
	ElapsedMs    int64              `json:"elapsed_ms"`
}

// FindByImportsInput is the input schema for the find_by_imports tool.
type FindByImportsInput struct {
	Library string `json:"library" jsonschema:"the import/library name to search for"`
	Mode    string `json:"mode,omitempty" jsonschema:"Exact, Prefix, or Fuzzy match, default Exact"`
}

// ImportHitOutput is one find_by_imports hit.
type ImportHitOutput struct {
	NodeID      string  `json:"node_id"`
	Score       float64 `json:"score"`
	MatchReason string  `json:"match_reason"`
}

// FindByImportsOutput is the output schema for the find_by_imports tool.
type FindByImportsOutput struct {
	Results []ImportHitOutput `json:"results"`
}

// CallGraphInput is the input schema for get_callers and get_callees.
type CallGraphInput struct {
	NodeID string `json:"node_id" jsonschema:"the node id to inspect"`
	Depth  int    `json:"depth,omitempty" jsonschema:"maximum BFS hop count, default 1"`
}

// CallInfoOutput is one call-graph hit.
type CallInfoOutput struct {
	NodeID   string `json:"node_id"`
	Symbol   string `json:"symbol"`
	CallSite string `json:"call_site"`
	Depth    int    `json:"depth"`
}

// CallGraphOutput is the output schema for get_callers and get_callees.
type CallGraphOutput struct {
	Results []CallInfoOutput `json:"results"`
}

// TraverseGraphInput is the input schema for the traverse_graph tool.
type TraverseGraphInput struct {
	NodeID      string   `json:"node_id" jsonschema:"the node id to start traversal from"`
	Direction   string   `json:"direction,omitempty" jsonschema:"Outgoing, Incoming, or Both, default Outgoing"`
	MaxDepth    int      `json:"max_depth,omitempty" jsonschema:"maximum BFS depth, default 2"`
	SymbolTypes []string `json:"symbol_types,omitempty" jsonschema:"restrict emitted nodes to these types"`
	MaxNodes    int      `json:"max_nodes,omitempty" jsonschema:"cap on emitted nodes, 0 means unbounded"`
}

// TraversedNodeOutput is one traverse_graph emission.
type TraversedNodeOutput struct {
	NodeID   string   `json:"node_id"`
	Depth    int      `json:"depth"`
	Path     []string `json:"path"`
	EdgeType string   `json:"edge_type,omitempty"`
}

// TraverseGraphOutput is the output schema for the traverse_graph tool.
type TraverseGraphOutput struct {
	Results []TraversedNodeOutput `json:"results"`
}

// FindBySignatureInput is the input schema for the find_by_signature tool.
type FindBySignatureInput struct {
	NamePattern string   `json:"name_pattern,omitempty" jsonschema:"a regex matched against the function name"`
	ReturnType  string   `json:"return_type,omitempty" jsonschema:"expected return type, supports a trailing * wildcard"`
	ParamMin    *int     `json:"param_min,omitempty" jsonschema:"minimum parameter count"`
	ParamMax    *int     `json:"param_max,omitempty" jsonschema:"maximum parameter count"`
	Modifiers   []string `json:"modifiers,omitempty" jsonschema:"required modifiers: async, public, private, static, const"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results, 0 means unbounded"`
}

// SignatureMatchOutput is one find_by_signature hit.
type SignatureMatchOutput struct {
	NodeID      string `json:"node_id"`
	MatchReason string `json:"match_reason"`
}

// FindBySignatureOutput is the output schema for the find_by_signature tool.
type FindBySignatureOutput struct {
	Results []SignatureMatchOutput `json:"results"`
}

// FindEntryPointsInput is the input schema for the find_entry_points tool.
type FindEntryPointsInput struct {
	Kinds []string `json:"kinds,omitempty" jsonschema:"restrict to these entry kinds: HttpHandler, Main, TestEntry, CliCommand, EventHandler, PublicApi; empty means all"`
}

// EntryPointOutput is one find_entry_points hit.
type EntryPointOutput struct {
	NodeID      string `json:"node_id"`
	Kind        string `json:"kind"`
	Route       string `json:"route,omitempty"`
	Method      string `json:"method,omitempty"`
	Description string `json:"description,omitempty"`
}

// FindEntryPointsOutput is the output schema for the find_entry_points tool.
type FindEntryPointsOutput struct {
	Results []EntryPointOutput `json:"results"`
}

// GetSymbolInfoInput is the input schema for the get_symbol_info tool.
type GetSymbolInfoInput struct {
	NodeID string `json:"node_id" jsonschema:"the node id to describe"`
}

// GetSymbolInfoOutput is the output schema for the get_symbol_info tool.
type GetSymbolInfoOutput struct {
	Found          bool             `json:"found"`
	Symbol         SymbolInfoOutput `json:"symbol,omitempty"`
	Callers        []CallInfoOutput `json:"callers,omitempty"`
	Callees        []CallInfoOutput `json:"callees,omitempty"`
	Dependencies   []string         `json:"dependencies,omitempty"`
	Dependents     []string         `json:"dependents,omitempty"`
	LinesOfCode    int              `json:"lines_of_code"`
	ReferenceCount int              `json:"reference_count"`
	HasTests       bool             `json:"has_tests"`
}

// MemoryPutInput is the input schema for the memory_put tool. Exactly
// one of the five kind payloads should be set, selected by KindTag.
type MemoryPutInput struct {
	KindTag    string   `json:"kind_tag" jsonschema:"ArchitecturalDecision, DebugContext, KnownIssue, Convention, or ProjectContext"`
	Title      string   `json:"title" jsonschema:"short human-readable title"`
	Content    string   `json:"content" jsonschema:"the memory body"`
	SourceTag  string   `json:"source_tag,omitempty" jsonschema:"UserProvided, CodeExtracted, ConversationDerived, ExternalDoc, or GitHistory"`
	SourceValue string  `json:"source_value,omitempty" jsonschema:"path, conversation id, url, or commit hash, per source_tag"`
	Confidence float64  `json:"confidence,omitempty" jsonschema:"confidence in [0,1], default 1"`
	Tags       []string `json:"tags,omitempty" jsonschema:"free-form tags"`
	NodeIDs    []string `json:"code_node_ids,omitempty" jsonschema:"code graph node ids this memory relates to"`

	ArchitecturalDecision *ArchitecturalDecisionInput `json:"architectural_decision,omitempty"`
	DebugContext          *DebugContextInput          `json:"debug_context,omitempty"`
	KnownIssue            *KnownIssueInput            `json:"known_issue,omitempty"`
	Convention            *ConventionInput            `json:"convention,omitempty"`
	ProjectContext        *ProjectContextInput        `json:"project_context,omitempty"`
}

type ArchitecturalDecisionInput struct {
	Decision     string   `json:"decision"`
	Rationale    string   `json:"rationale"`
	Alternatives []string `json:"alternatives,omitempty"`
	Stakeholders []string `json:"stakeholders,omitempty"`
}

type DebugContextInput struct {
	Problem       string   `json:"problem"`
	RootCause     string   `json:"root_cause,omitempty"`
	Solution      string   `json:"solution,omitempty"`
	Symptoms      []string `json:"symptoms,omitempty"`
	RelatedErrors []string `json:"related_errors,omitempty"`
}

type KnownIssueInput struct {
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty" jsonschema:"Critical, High, Medium, Low, or Info"`
	Workaround  string `json:"workaround,omitempty"`
	TrackingID  string `json:"tracking_id,omitempty"`
}

type ConventionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Pattern     string `json:"pattern,omitempty"`
	AntiPattern string `json:"anti_pattern,omitempty"`
}

type ProjectContextInput struct {
	Topic       string   `json:"topic"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// MemoryPutOutput is the output schema for the memory_put tool.
type MemoryPutOutput struct {
	ID string `json:"id"`
}

// MemorySearchInput is the input schema for the memory_search tool.
type MemorySearchInput struct {
	Query       string   `json:"query" jsonschema:"the search query"`
	CodeContext []string `json:"code_context,omitempty" jsonschema:"node ids of code currently in focus, boosts graph-proximity score"`
	Kinds       []string `json:"kinds,omitempty" jsonschema:"restrict to these kind tags"`
	Tags        []string `json:"tags,omitempty" jsonschema:"restrict to memories carrying at least one of these tags"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

// MemorySearchResultOutput is one memory_search hit.
type MemorySearchResultOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Score        float64  `json:"score"`
	BM25Score    float64  `json:"bm25_score"`
	Semantic     float64  `json:"semantic_score"`
	GraphScore   float64  `json:"graph_score"`
	MatchReasons []string `json:"match_reasons"`
}

// MemorySearchOutput is the output schema for the memory_search tool.
type MemorySearchOutput struct {
	Results []MemorySearchResultOutput `json:"results"`
}

// MemoryStatsInput is the input schema for the memory_stats tool (no parameters).
type MemoryStatsInput struct{}

// MemoryStatsOutput is the output schema for the memory_stats tool.
type MemoryStatsOutput struct {
	TotalMemories       int            `json:"total_memories"`
	CurrentMemories     int            `json:"current_memories"`
	InvalidatedMemories int            `json:"invalidated_memories"`
	ByKind              map[string]int `json:"by_kind"`
	ByTag               map[string]int `json:"by_tag"`
}

// MemoryInvalidateInput is the input schema for the memory_invalidate tool.
type MemoryInvalidateInput struct {
	ID string `json:"id" jsonschema:"the memory id to invalidate"`
}

// MemoryInvalidateOutput is the output schema for the memory_invalidate tool.
type MemoryInvalidateOutput struct {
	Invalidated bool `json:"invalidated"`
}

// MemoryDeleteInput is the input schema for the memory_delete tool.
type MemoryDeleteInput struct {
	ID string `json:"id" jsonschema:"the memory id to delete"`
}

// MemoryDeleteOutput is the output schema for the memory_delete tool.
type MemoryDeleteOutput struct {
	Deleted bool `json:"deleted"`
}

// QueryStatsInput is the input schema for the query_stats tool (no parameters).
type QueryStatsInput struct{}

// QueryStatsOutput is the output schema for the query_stats tool, mirroring
// internal/telemetry.QueryMetricsSnapshot.
type QueryStatsOutput struct {
	QueryTypeCounts     map[string]int64 `json:"query_type_counts"`
	TopTerms            []TermCountOutput `json:"top_terms"`
	ZeroResultQueries   []string         `json:"zero_result_queries"`
	LatencyDistribution map[string]int64 `json:"latency_distribution"`
	TotalQueries        int64            `json:"total_queries"`
	ZeroResultPercent   float64          `json:"zero_result_percent"`
	ExactRepeatRate     float64          `json:"exact_repeat_rate"`
	SimilarQueryRate    float64          `json:"similar_query_rate"`
	UniqueQueryCount    int64            `json:"unique_query_count"`
}

// TermCountOutput is one entry of QueryStatsOutput's top-terms list.
type TermCountOutput struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}
