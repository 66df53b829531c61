package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph-ai/codegraph-core/internal/async"
	"github.com/codegraph-ai/codegraph-core/internal/config"
	"github.com/codegraph-ai/codegraph-core/internal/memstore"
	"github.com/codegraph-ai/codegraph-core/internal/uiformat"
)

func newBuildCmd() *cobra.Command {
	var (
		graphPath string
		jsonOut   bool
		plainOut  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Load a graph dump and build the memory store's indexes",
		Long: `Build ingests a JSON graph dump (produced by an external parser) and
opens the memory store, which reloads its lexical/semantic caches and
rebuilds its HNSW index. 'codegraph query' rebuilds the query engine's
own in-memory indexes directly from the same graph dump on every run,
since those indexes are not persisted between CLI invocations.`,
		Example: `  codegraph build --graph codegraph.graph.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, graphPath, jsonOut, plainOut)
		},
	}

	cmd.Flags().StringVar(&graphPath, "graph", "codegraph.graph.json", "path to a JSON graph dump")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the final result as JSON instead of rendering progress")
	cmd.Flags().BoolVar(&plainOut, "plain", false, "force plain (non-TUI) progress output")

	return cmd
}

func runBuild(cmd *cobra.Command, graphPath string, jsonOut, plainOut bool) error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	graphPath = resolveGraphPath(root, graphPath)

	var renderer uiformat.Renderer
	if jsonOut {
		renderer = uiformat.NewPlainRenderer(uiformat.Config{Output: cmd.OutOrStdout()})
	} else {
		renderer = uiformat.NewRenderer(uiformat.Config{Output: cmd.OutOrStdout(), ForcePlain: plainOut})
	}

	ctx := cmd.Context()
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress renderer: %w", err)
	}

	if async.HasIncompleteLock(cfg.Store.Dir) {
		renderer.AddError(uiformat.ErrorEvent{
			Context: "build",
			Err:     fmt.Errorf("a previous build over %s did not exit cleanly; its indexes may be incomplete", cfg.Store.Dir),
			IsWarn:  true,
		})
	}

	builder := async.NewBackgroundBuilder(async.BuilderConfig{DataDir: cfg.Store.Dir})

	var result buildResult
	builder.BuildFunc = func(ctx context.Context, progress *async.BuildProgress) error {
		return runBuildSteps(ctx, cfg, graphPath, progress, &result)
	}

	builder.Start(ctx)

	lastStage := async.BuildStage("")
	for builder.IsRunning() {
		snap := builder.Progress().Snapshot()
		if async.BuildStage(snap.Stage) != lastStage {
			lastStage = async.BuildStage(snap.Stage)
			renderer.UpdateProgress(uiformat.ProgressEvent{
				Stage:   mapBuildStage(lastStage),
				Current: snap.ItemsProcessed,
				Total:   snap.ItemsTotal,
				Message: string(lastStage),
			})
		}
		time.Sleep(50 * time.Millisecond)
	}

	if err := builder.Wait(); err != nil {
		renderer.AddError(uiformat.ErrorEvent{Context: "build", Err: err})
		_ = renderer.Stop()
		return err
	}

	renderer.Complete(uiformat.CompletionStats{
		Nodes:    result.nodeCount,
		Memories: result.memoryCount,
		Duration: result.duration,
	})
	if err := renderer.Stop(); err != nil {
		return err
	}

	if jsonOut {
		w := uiformat.NewResultWriter(cmd.OutOrStdout(), true)
		return w.JSON(map[string]any{
			"nodes":       result.nodeCount,
			"memories":    result.memoryCount,
			"duration_ms": result.duration.Milliseconds(),
		})
	}
	return nil
}

type buildResult struct {
	nodeCount   int
	memoryCount int
	duration    time.Duration
}

// runBuildSteps is the async.BuildFunc body: load the graph dump (to
// report its size and confirm it parses), then open the memory store,
// which reloads its caches and rebuilds the HNSW index as part of Open.
func runBuildSteps(ctx context.Context, cfg *config.Config, graphPath string, progress *async.BuildProgress, result *buildResult) error {
	start := time.Now()

	progress.SetStage(async.StageGraphIngest, 0)
	_, g, err := buildEngine(graphPath)
	if err != nil {
		progress.SetError(err.Error())
		return err
	}
	nodes := g.IterNodes()
	progress.SetStage(async.StageGraphIngest, len(nodes))
	progress.Update(len(nodes))

	progress.SetStage(async.StageEmbedding, 0)
	store, err := openStore(ctx, cfg, memstore.ModeOpenOnDemand)
	if err != nil {
		progress.SetError(err.Error())
		return err
	}
	defer store.Close()

	progress.SetStage(async.StageHNSWBuild, 0)
	progress.SetReady()

	result.nodeCount = len(nodes)
	result.memoryCount = len(store.GetAllCurrent())
	result.duration = time.Since(start)
	return nil
}

func mapBuildStage(stage async.BuildStage) uiformat.Stage {
	switch stage {
	case async.StageGraphIngest, async.StageMemoryLoad:
		return uiformat.StageLoading
	case async.StageEmbedding, async.StageHNSWBuild:
		return uiformat.StageIndexing
	default:
		return uiformat.StageComplete
	}
}
