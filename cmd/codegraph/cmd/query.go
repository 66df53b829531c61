package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codegraph-ai/codegraph-core/internal/graph"
	"github.com/codegraph-ai/codegraph-core/internal/queryengine"
	"github.com/codegraph-ai/codegraph-core/internal/uiformat"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the code graph",
		Long: `Query rebuilds the query engine's in-memory indexes from a JSON
graph dump on every invocation (those indexes are not persisted between
CLI runs) and runs one of the query primitives against them.`,
	}

	cmd.PersistentFlags().String("graph", "codegraph.graph.json", "path to a JSON graph dump")
	cmd.PersistentFlags().Bool("json", false, "output as JSON")

	cmd.AddCommand(
		newQuerySymbolCmd(),
		newQueryImportsCmd(),
		newQueryCallersCmd(),
		newQueryCalleesCmd(),
		newQueryTraverseCmd(),
		newQuerySignatureCmd(),
		newQueryEntryPointsCmd(),
		newQueryInfoCmd(),
	)

	return cmd
}

func queryFlags(cmd *cobra.Command) (graphPath string, asJSON bool, err error) {
	graphPath, err = cmd.Flags().GetString("graph")
	if err != nil {
		return "", false, err
	}
	asJSON, err = cmd.Flags().GetBool("json")
	if err != nil {
		return "", false, err
	}
	_, root, err := loadConfig()
	if err != nil {
		return "", false, err
	}
	return resolveGraphPath(root, graphPath), asJSON, nil
}

func newQuerySymbolCmd() *cobra.Command {
	var limit int
	var includePrivate bool

	cmd := &cobra.Command{
		Use:   "symbol <query>",
		Short: "Search for symbols by name and docstring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphPath, asJSON, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			qe, _, err := buildEngine(graphPath)
			if err != nil {
				return err
			}
			result := qe.SymbolSearch(args[0], queryengine.SymbolSearchOptions{
				Limit:          limit,
				IncludePrivate: includePrivate,
			})
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(result)
			}
			rows := make([][]string, 0, len(result.Results))
			for _, r := range result.Results {
				rows = append(rows, []string{r.NodeID, r.Name, string(r.Type), r.Path, strconv.Itoa(r.LineStart)})
			}
			w.Table([]string{"ID", "Name", "Type", "Path", "Line"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	cmd.Flags().BoolVar(&includePrivate, "include-private", false, "include non-public symbols")
	return cmd
}

func newQueryImportsCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "imports <library>",
		Short: "Find nodes that import a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphPath, asJSON, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			qe, _, err := buildEngine(graphPath)
			if err != nil {
				return err
			}
			hits := qe.FindByImports(args[0], matchModeFromFlag(mode))
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(hits)
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{h.NodeID, h.MatchReason})
			}
			w.Table([]string{"ID", "Reason"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "exact", "match mode: exact, prefix, fuzzy")
	return cmd
}

func matchModeFromFlag(mode string) queryengine.MatchMode {
	switch strings.ToLower(mode) {
	case "prefix":
		return queryengine.MatchPrefix
	case "fuzzy":
		return queryengine.MatchFuzzy
	default:
		return queryengine.MatchExact
	}
}

func newQueryCallersCmd() *cobra.Command {
	return newCallGraphCmd("callers", "Find callers of a symbol", func(qe *queryengine.Engine, id graph.NodeID, depth int) []queryengine.CallInfo {
		return qe.GetCallers(id, depth)
	})
}

func newQueryCalleesCmd() *cobra.Command {
	return newCallGraphCmd("callees", "Find callees of a symbol", func(qe *queryengine.Engine, id graph.NodeID, depth int) []queryengine.CallInfo {
		return qe.GetCallees(id, depth)
	})
}

func newCallGraphCmd(use, short string, fn func(*queryengine.Engine, graph.NodeID, int) []queryengine.CallInfo) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   use + " <node-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphPath, asJSON, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			qe, _, err := buildEngine(graphPath)
			if err != nil {
				return err
			}
			hits := fn(qe, graph.NodeID(args[0]), depth)
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(hits)
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{h.NodeID, h.Symbol, h.CallSite, strconv.Itoa(h.Depth)})
			}
			w.Table([]string{"ID", "Symbol", "Site", "Depth"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "maximum hop depth")
	return cmd
}

func newQueryTraverseCmd() *cobra.Command {
	var (
		direction string
		maxDepth  int
		maxNodes  int
	)
	cmd := &cobra.Command{
		Use:   "traverse <node-id>",
		Short: "Traverse the graph from a starting node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphPath, asJSON, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			qe, _, err := buildEngine(graphPath)
			if err != nil {
				return err
			}
			dir := graph.Outgoing
			switch strings.ToLower(direction) {
			case "incoming":
				dir = graph.Incoming
			case "both":
				dir = graph.Both
			}
			nodes := qe.TraverseGraph(graph.NodeID(args[0]), dir, maxDepth, queryengine.TraversalFilter{MaxNodes: maxNodes})
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(nodes)
			}
			rows := make([][]string, 0, len(nodes))
			for _, n := range nodes {
				rows = append(rows, []string{n.NodeID, strconv.Itoa(n.Depth), n.EdgeType})
			}
			w.Table([]string{"ID", "Depth", "EdgeType"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "outgoing", "outgoing, incoming, or both")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 3, "maximum traversal depth")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 100, "maximum nodes to emit")
	return cmd
}

func newQuerySignatureCmd() *cobra.Command {
	var (
		namePattern string
		returnType  string
		paramMin    int
		paramMax    int
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "signature",
		Short: "Find functions matching a signature pattern",
		RunE: func(cmd *cobra.Command, _ []string) error {
			graphPath, asJSON, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			qe, _, err := buildEngine(graphPath)
			if err != nil {
				return err
			}
			pattern := queryengine.SignaturePattern{
				NamePattern: queryengine.CompileNamePattern(namePattern),
				ReturnType:  returnType,
			}
			if paramMin >= 0 {
				pattern.ParamMin = &paramMin
			}
			if paramMax >= 0 {
				pattern.ParamMax = &paramMax
			}
			hits := qe.FindBySignature(pattern, limit)
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(hits)
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{h.NodeID, h.MatchReason})
			}
			w.Table([]string{"ID", "Reason"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&namePattern, "name-pattern", "", "regex over function name")
	cmd.Flags().StringVar(&returnType, "return-type", "", "expected return type")
	cmd.Flags().IntVar(&paramMin, "param-min", -1, "minimum parameter count")
	cmd.Flags().IntVar(&paramMax, "param-max", -1, "maximum parameter count")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func newQueryEntryPointsCmd() *cobra.Command {
	var (
		compact bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "entrypoints",
		Short: "Find entry-point functions (main, HTTP handlers, CLI commands, tests)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			graphPath, asJSON, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			qe, _, err := buildEngine(graphPath)
			if err != nil {
				return err
			}
			hits := qe.FindEntryPoints(nil, compact, limit)
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(hits)
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{h.NodeID, string(h.Kind), h.Route, h.Method})
			}
			w.Table([]string{"ID", "Kind", "Route", "Method"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "omit descriptions")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum results")
	return cmd
}

func newQueryInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <node-id>",
		Short: "Show the detailed view of one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphPath, asJSON, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			qe, _, err := buildEngine(graphPath)
			if err != nil {
				return err
			}
			detail, ok := qe.GetSymbolInfo(graph.NodeID(args[0]))
			if !ok {
				w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
				w.Status("error", "node not found: "+args[0])
				return nil
			}
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			return w.JSON(detail)
		},
	}
	return cmd
}
