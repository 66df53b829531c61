package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codegraph-ai/codegraph-core/internal/config"
	"github.com/codegraph-ai/codegraph-core/internal/embedengine"
	"github.com/codegraph-ai/codegraph-core/internal/embedproviders"
	"github.com/codegraph-ai/codegraph-core/internal/graph"
	"github.com/codegraph-ai/codegraph-core/internal/memstore"
	"github.com/codegraph-ai/codegraph-core/internal/queryengine"
)

// loadConfig resolves the effective Config for the current working
// directory's project root.
func loadConfig() (*config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		root = cwd
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, root, nil
}

// resolveGraphPath joins a possibly-relative graph dump path onto
// root, the same way every other project-relative path is resolved.
func resolveGraphPath(root, graphPath string) string {
	if filepath.IsAbs(graphPath) {
		return graphPath
	}
	return filepath.Join(root, graphPath)
}

// buildEngine loads the JSON graph dump at path and builds a query
// engine over it. The CLI has no daemon: every command that needs
// graph queries rebuilds the (in-memory only) query indexes itself
// rather than assuming a prior 'build' invocation left state behind.
func buildEngine(path string) (*queryengine.Engine, graph.GraphView, error) {
	g, err := graph.LoadFixtureGraph(path)
	if err != nil {
		return nil, nil, err
	}
	qe := queryengine.New()
	qe.BuildIndexes(g)
	return qe, g, nil
}

// buildEmbedder constructs the configured Embedder wrapped in the
// caching/circuit-breaking embedengine.Engine. A probe failure is
// returned rather than silently swallowed: callers that can tolerate
// running without semantic search should decide that themselves.
func buildEmbedder(ctx context.Context, cfg *config.Config) (*embedengine.Engine, error) {
	provider := embedproviders.New(embedproviders.Provider(cfg.Embeddings.Provider), cfg.Embeddings.Host, cfg.Embeddings.Model)
	return embedengine.New(ctx, provider, embedengine.DefaultCacheSize)
}

// openStore opens the memory store at cfg.Store.Dir under mode (a
// short-lived CLI command uses ModeOpenOnDemand; the long-running MCP
// server in 'serve' uses ModePersistent). If embedder construction
// fails (e.g. an unreachable Ollama host), the store still opens with
// embedder set to nil: memstore and hybridsearch both already define a
// lexical+graph-only fallback for that case.
func openStore(ctx context.Context, cfg *config.Config, mode memstore.Mode) (*memstore.Store, error) {
	embedder, err := buildEmbedder(ctx, cfg)
	var memEmbedder memstore.Embedder
	if err == nil {
		memEmbedder = embedder
	}
	return memstore.Open(memstore.Options{
		Dir:          cfg.Store.Dir,
		Embedder:     memEmbedder,
		Mode:         mode,
		HNSWEfSearch: cfg.HNSW.EfSearch,
	})
}
