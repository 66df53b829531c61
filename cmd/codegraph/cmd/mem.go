package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph-ai/codegraph-core/internal/hybridsearch"
	"github.com/codegraph-ai/codegraph-core/internal/memory"
	"github.com/codegraph-ai/codegraph-core/internal/memstore"
	"github.com/codegraph-ai/codegraph-core/internal/uiformat"
)

func newMemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mem",
		Short: "Read and write the memory store",
	}
	cmd.PersistentFlags().Bool("json", false, "output as JSON")

	cmd.AddCommand(
		newMemPutCmd(),
		newMemSearchCmd(),
		newMemStatsCmd(),
		newMemInvalidateCmd(),
		newMemDeleteCmd(),
	)
	return cmd
}

func memJSON(cmd *cobra.Command) (bool, error) {
	return cmd.Flags().GetBool("json")
}

func newMemPutCmd() *cobra.Command {
	var (
		kindTag    string
		title      string
		content    string
		sourceTag  string
		sourceVal  string
		confidence float64
		tags       []string
		nodeIDs    []string
	)

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Record a new memory",
		Long: `Put records a ProjectContext memory (title becomes its topic,
content its description). --kind-tag accepts only ProjectContext; the
other four kinds (ArchitecturalDecision, DebugContext, KnownIssue,
Convention) are rejected with an error — the MCP server's memory_put
tool accepts those kinds' full payload shape.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := memJSON(cmd)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStore(ctx, cfg, memstore.ModeOpenOnDemand)
			if err != nil {
				return err
			}
			defer store.Close()

			kind, err := buildPutKind(kindTag, title, content)
			if err != nil {
				return err
			}

			if confidence == 0 {
				confidence = 1
			}
			b := memory.NewBuilder(time.Now().UTC()).
				Kind(kind).
				Title(title).
				Content(content).
				Source(memory.Source{Tag: memory.SourceTag(sourceTag), Value: sourceVal}).
				Confidence(confidence)
			for _, t := range tags {
				b.AddTag(t)
			}
			for _, id := range nodeIDs {
				b.AddCodeLink(memory.NewCodeLink(id, memory.LinkFunction, 1))
			}
			rec, err := b.Build()
			if err != nil {
				return err
			}
			saved, err := store.Put(ctx, rec)
			if err != nil {
				return err
			}

			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(map[string]string{"id": saved.ID})
			}
			w.Status("ok", "stored memory "+saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindTag, "kind-tag", "ProjectContext", "memory kind")
	cmd.Flags().StringVar(&title, "title", "", "memory title")
	cmd.Flags().StringVar(&content, "content", "", "memory content")
	cmd.Flags().StringVar(&sourceTag, "source-tag", string(memory.SourceUserProvided), "memory source")
	cmd.Flags().StringVar(&sourceVal, "source-value", "", "source value (path/commit/url)")
	cmd.Flags().Float64Var(&confidence, "confidence", 1, "confidence in [0,1]")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags (repeatable)")
	cmd.Flags().StringSliceVar(&nodeIDs, "node-id", nil, "linked code graph node IDs (repeatable)")
	return cmd
}

func buildPutKind(kindTag, title, content string) (memory.Kind, error) {
	switch memory.KindTag(kindTag) {
	case memory.KindProjectContext:
		return memory.Kind{Tag: memory.KindProjectContext, ProjectContext: &memory.ProjectContext{
			Topic: title, Description: content,
		}}, nil
	default:
		return memory.Kind{}, cgErrUnsupportedKind(kindTag)
	}
}

func newMemSearchCmd() *cobra.Command {
	var (
		limit int
		kinds []string
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Hybrid search (BM25 + semantic + graph proximity) over memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, err := memJSON(cmd)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStore(ctx, cfg, memstore.ModeOpenOnDemand)
			if err != nil {
				return err
			}
			defer store.Close()

			searchCfg := hybridsearch.Config{
				Limit:          limit,
				BM25Weight:     cfg.Search.BM25Weight,
				SemanticWeight: cfg.Search.SemanticWeight,
				GraphWeight:    cfg.Search.GraphWeight,
				CurrentOnly:    cfg.Search.CurrentOnly,
			}
			if len(kinds) > 0 {
				searchCfg.Kinds = toSet(kinds)
			}
			if len(tags) > 0 {
				searchCfg.Tags = toSet(tags)
			}

			var queryVector []float32
			embedder, embErr := buildEmbedder(ctx, cfg)
			if embErr == nil {
				if vec, err := embedder.Embed(ctx, args[0]); err == nil {
					queryVector = vec
				}
			}

			results, err := hybridsearch.Search(ctx, store.LexicalIndex(), store.SemanticIndex(), store, args[0], queryVector, nil, searchCfg)
			if err != nil {
				return err
			}

			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(results)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rec, _ := store.Get(r.ID)
				title := r.ID
				if rec != nil {
					title = rec.Title
				}
				rows = append(rows, []string{r.ID, title, strconv.FormatFloat(r.Score, 'f', 3, 64)})
			}
			w.Table([]string{"ID", "Title", "Score"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "filter by kind tag (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag (repeatable)")
	return cmd
}

func newMemStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := memJSON(cmd)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStore(ctx, cfg, memstore.ModeOpenOnDemand)
			if err != nil {
				return err
			}
			defer store.Close()

			stats := store.ComputeStats()
			w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
			if asJSON {
				return w.JSON(stats)
			}
			w.Status("total", strconv.Itoa(stats.TotalMemories))
			w.Status("current", strconv.Itoa(stats.CurrentMemories))
			w.Status("invalidated", strconv.Itoa(stats.InvalidatedMemories))
			return nil
		},
	}
}

func newMemInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <id>",
		Short: "Mark a memory invalid as of now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemMutate(cmd, args[0], func(s *memstore.Store, id string) error { return s.Invalidate(id) }, "invalidated")
		},
	}
}

func newMemDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemMutate(cmd, args[0], func(s *memstore.Store, id string) error { return s.Delete(id) }, "deleted")
		},
	}
}

func runMemMutate(cmd *cobra.Command, id string, fn func(*memstore.Store, string) error, verb string) error {
	asJSON, err := memJSON(cmd)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, memstore.ModeOpenOnDemand)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := fn(store, id); err != nil {
		return err
	}
	w := uiformat.NewResultWriter(cmd.OutOrStdout(), asJSON)
	if asJSON {
		return w.JSON(map[string]any{"id": id, verb: true})
	}
	w.Status("ok", verb+" "+id)
	return nil
}

func toSet(vals []string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}

func cgErrUnsupportedKind(kindTag string) error {
	return &unsupportedKindError{kindTag: kindTag}
}

type unsupportedKindError struct{ kindTag string }

func (e *unsupportedKindError) Error() string {
	return "kind-tag " + e.kindTag + " is not supported by 'mem put' yet; use the MCP server's memory_put tool, or --kind-tag ProjectContext (default: " + strings.Join([]string{string(memory.KindProjectContext)}, ", ") + ")"
}
