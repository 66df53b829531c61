package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/codegraph-ai/codegraph-core/internal/mcpserver"
	"github.com/codegraph-ai/codegraph-core/internal/memstore"
)

func newServeCmd() *cobra.Command {
	var graphPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Serve loads the graph dump once, opens the memory store in
persistent mode (exclusive DB lock, no cross-process flock handoff), and
runs the MCP tool dispatcher over stdio until the client disconnects or
the context is canceled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, graphPath)
		},
	}
	cmd.Flags().StringVar(&graphPath, "graph", "codegraph.graph.json", "path to a JSON graph dump")
	return cmd
}

func runServe(cmd *cobra.Command, graphPath string) error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	graphPath = resolveGraphPath(root, graphPath)

	logger := slog.Default()
	if cfg.Server.LogLevel != "" {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{}))
	}

	qe, _, err := buildEngine(graphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph dump: %w", err)
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, memstore.ModePersistent)
	if err != nil {
		return fmt.Errorf("failed to open memory store: %w", err)
	}
	defer store.Close()

	var embedder mcpserver.Embedder
	if e, err := buildEmbedder(ctx, cfg); err == nil {
		embedder = e
	} else {
		logger.Warn("embedder unavailable, memory_search will run lexical+graph only", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(qe, store, embedder)

	transport := cfg.Server.Transport
	if transport == "" {
		transport = "stdio"
	}
	if transport != "stdio" {
		return fmt.Errorf("unsupported transport %q (supported: stdio)", transport)
	}

	logger.Info("starting MCP server", slog.String("transport", transport))
	err = srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("MCP server stopped gracefully")
	return nil
}
