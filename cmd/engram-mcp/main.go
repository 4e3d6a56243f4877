// engram-mcp exposes the memory engine to MCP clients over stdio:
// semantic search plus knowledge graph queries.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/engramdb/engram/domain/graph"
	"github.com/engramdb/engram/domain/search"
	"github.com/engramdb/engram/internal/config"
	"github.com/engramdb/engram/pkg/embeddings"
)

type tools struct {
	search *search.Service
	graph  *graph.Service
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	// stdout belongs to the MCP transport; log elsewhere
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if f, err := os.OpenFile(os.Getenv("MCP_LOG_FILE"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
		log = slog.New(slog.NewTextHandler(f, nil))
	}

	cfg, err := config.NewConfig(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN())))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	embedder := embeddings.NewFailoverFromConfig(cfg, log)
	t := &tools{
		search: search.NewService(search.NewRepository(db, log), embedder, log),
		graph:  graph.NewService(graph.NewRepository(db, log), log),
	}

	s := server.NewMCPServer(
		"engram-mcp",
		"0.3.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(searchTool(), t.handleSearch)
	s.AddTool(graphTool(), t.handleGraph)
	s.AddTool(neighborhoodTool(), t.handleNeighborhood)
	s.AddTool(pathTool(), t.handlePath)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func searchTool() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription("Search stored memories by meaning. Returns the most similar observations with their entities, tags and similarity scores."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to look for, in natural language"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of results (1-100, default 30)"),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Similarity floor between 0 and 1 (default 0.5)"),
		),
		mcp.WithBoolean("include_archive",
			mcp.Description("Also search originals of observations that were split into chunks"),
		),
	)
}

func (t *tools) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	q := search.Query{Text: query}
	if k, ok := args["k"].(float64); ok {
		q.K = int(k)
	}
	if min, ok := args["min_similarity"].(float64); ok {
		q.MinSimilarity = &min
	}
	if inc, ok := args["include_archive"].(bool); ok {
		q.IncludeArchive = inc
	}

	result, err := t.search.Search(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(result)
}

func graphTool() mcp.Tool {
	return mcp.NewTool("memory_graph",
		mcp.WithDescription("Build the knowledge graph derived from stored memories. Entities are nodes; shared tags between entities become weighted edges."),
		mcp.WithNumber("min_observations",
			mcp.Description("Only include entities with at least this many observations (default 2)"),
		),
	)
}

func (t *tools) handleGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	var p graph.Params
	if min, ok := args["min_observations"].(float64); ok {
		p.MinObservations = int(min)
	}

	g, err := t.graph.Build(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph build failed: %v", err)), nil
	}
	return jsonResult(g)
}

func neighborhoodTool() mcp.Tool {
	return mcp.NewTool("memory_neighborhood",
		mcp.WithDescription("Return the subgraph around one entity: its direct and transitive tag-sharing neighbors up to a hop limit."),
		mcp.WithNumber("entity_id",
			mcp.Required(),
			mcp.Description("Center entity id"),
		),
		mcp.WithNumber("hops",
			mcp.Description("How far to expand (0-4, default 2)"),
		),
	)
}

func (t *tools) handleNeighborhood(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	id, ok := args["entity_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("entity_id is required"), nil
	}
	hops := graph.DefaultHops
	if h, ok := args["hops"].(float64); ok {
		hops = int(h)
	}

	g, err := t.graph.Neighborhood(ctx, graph.Params{}, int64(id), hops)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("neighborhood query failed: %v", err)), nil
	}
	return jsonResult(g)
}

func pathTool() mcp.Tool {
	return mcp.NewTool("memory_path",
		mcp.WithDescription("Find the shortest chain of tag-sharing entities connecting two entities in the knowledge graph."),
		mcp.WithNumber("from",
			mcp.Required(),
			mcp.Description("Starting entity id"),
		),
		mcp.WithNumber("to",
			mcp.Required(),
			mcp.Description("Target entity id"),
		),
	)
}

func (t *tools) handlePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	from, okFrom := args["from"].(float64)
	to, okTo := args["to"].(float64)
	if !okFrom || !okTo {
		return mcp.NewToolResultError("from and to are required"), nil
	}

	path, err := t.graph.Path(ctx, graph.Params{}, int64(from), int64(to))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("path query failed: %v", err)), nil
	}
	return jsonResult(path)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
