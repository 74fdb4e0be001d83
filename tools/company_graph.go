package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/config"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/algorithms"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/processors"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/storage"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/visualizer"
	"github.com/yashdarak08/Graph-Machine-Learning/services"
	"github.com/yashdarak08/Graph-Machine-Learning/util"
)

// Neo4jProvider returns the shared database storage
type Neo4jProvider func() (*storage.Neo4jStorage, error)

// CompanyGraphTools serves the company graph over MCP. The last graph built in this
// process is kept in memory for related_companies.
type CompanyGraphTools struct {
	cfg    *config.Config
	logger *logrus.Logger
	client *http.Client
	neo4j  Neo4jProvider

	mu      sync.RWMutex
	current *graph.MemoryGraph
}

// NewCompanyGraphTools wires the tools to explicit collaborators
func NewCompanyGraphTools(cfg *config.Config, logger *logrus.Logger, client *http.Client, neo4j Neo4jProvider) *CompanyGraphTools {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if neo4j == nil {
		neo4j = func() (*storage.Neo4jStorage, error) { return nil, services.ErrNeo4jDisabled }
	}
	return &CompanyGraphTools{
		cfg:    cfg,
		logger: logger,
		client: client,
		neo4j:  neo4j,
	}
}

// RegisterCompanyGraphTools registers every company graph tool using the shared services
func RegisterCompanyGraphTools(s *server.MCPServer) *CompanyGraphTools {
	t := NewCompanyGraphTools(
		services.DefaultConfig(),
		services.DefaultLogger(),
		services.DefaultHttpClient(),
		services.DefaultNeo4jStorage,
	)
	t.Register(s)
	return t
}

// Register adds the tools to s
func (t *CompanyGraphTools) Register(s *server.MCPServer) {
	buildTool := mcp.NewTool("build_company_graph",
		mcp.WithDescription("Build the company co-occurrence graph from a raw JSON, processed CSV or HTML file. Companies reported on the same date are related. Optionally publishes to Neo4j and writes a JSON snapshot and an HTML visualization."),
		mcp.WithString("input", mcp.Description("Path to the input file (.json, .csv, .html). Defaults to the processed data path")),
		mcp.WithString("node_policy", mcp.Description("How repeated company rows set the stored value: last_write or mean")),
		mcp.WithString("feature_policy", mcp.Description("How repeated company rows set the learning feature: last_write or mean")),
		mcp.WithNumber("max_group_size", mcp.Description("Maximum companies paired within one date, 0 for unlimited")),
		mcp.WithString("oversize", mcp.Description("What to do with larger date groups: reject, skip or truncate")),
		mcp.WithBoolean("publish", mcp.Description("Publish the graph to Neo4j"), mcp.DefaultBool(false)),
		mcp.WithString("graph_out", mcp.Description("Path for a JSON snapshot of the graph")),
		mcp.WithString("visualization_out", mcp.Description("Path for a D3 HTML visualization")),
	)
	s.AddTool(buildTool, util.ErrorGuard(t.buildHandler))

	relatedTool := mcp.NewTool("related_companies",
		mcp.WithDescription("List companies related to a company, up to a number of hops, from the last built graph or from Neo4j"),
		mcp.WithString("company", mcp.Required(), mcp.Description("Company name")),
		mcp.WithNumber("depth", mcp.Description("Maximum hops"), mcp.DefaultNumber(1)),
		mcp.WithString("traversal", mcp.Description("bfs or dfs"), mcp.DefaultString("bfs")),
		mcp.WithString("source", mcp.Description("memory (last built graph) or neo4j"), mcp.DefaultString("memory")),
	)
	s.AddTool(relatedTool, util.ErrorGuard(t.relatedHandler))

	scrapeTool := mcp.NewTool("scrape_financial_data",
		mcp.WithDescription("Download a page and extract company, value and date rows from its financial-data table"),
		mcp.WithString("url", mcp.Description("Page URL. Defaults to the configured source URL")),
		mcp.WithString("out", mcp.Description("Where to save the raw rows as JSON. Defaults to the raw data path")),
		mcp.WithBoolean("save", mcp.Description("Save the rows to out"), mcp.DefaultBool(true)),
	)
	s.AddTool(scrapeTool, util.ErrorGuard(t.scrapeHandler))

	exportTool := mcp.NewTool("export_learning_dataset",
		mcp.WithDescription("Build the graph and save node features, edge index and node names as a JSON dataset for training"),
		mcp.WithString("input", mcp.Description("Path to the input file. Defaults to the processed data path")),
		mcp.WithString("out", mcp.Description("Dataset path. Defaults to the configured dataset path")),
	)
	s.AddTool(exportTool, util.ErrorGuard(t.exportHandler))
}

type buildSummary struct {
	RunID             string                  `json:"run_id"`
	Records           int                     `json:"records"`
	DroppedRows       int                     `json:"dropped_rows"`
	Nodes             int                     `json:"nodes"`
	Edges             int                     `json:"edges"`
	DateGroups        int                     `json:"date_groups"`
	LimitedGroups     []graph.GroupLimitError `json:"limited_groups,omitempty"`
	Components        int                     `json:"components"`
	Published         bool                    `json:"published"`
	GraphPath         string                  `json:"graph_path,omitempty"`
	VisualizationPath string                  `json:"visualization_path,omitempty"`
}

func (t *CompanyGraphTools) builderConfig(request mcp.CallToolRequest) (graph.BuilderConfig, error) {
	opts, err := t.cfg.BuilderOptions()
	if err != nil {
		return opts, err
	}
	if v := request.GetString("node_policy", ""); v != "" {
		if opts.NodePolicy, err = graph.ParseAggregationPolicy(v); err != nil {
			return opts, err
		}
	}
	if v := request.GetString("feature_policy", ""); v != "" {
		if opts.FeaturePolicy, err = graph.ParseAggregationPolicy(v); err != nil {
			return opts, err
		}
	}
	if v := request.GetString("oversize", ""); v != "" {
		if opts.Oversize, err = graph.ParseOversizePolicy(v); err != nil {
			return opts, err
		}
	}
	if n := request.GetInt("max_group_size", -1); n >= 0 {
		opts.MaxGroupSize = n
	}
	return opts, nil
}

func (t *CompanyGraphTools) buildHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := t.builderConfig(request)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid build options", err), nil
	}

	input := request.GetString("input", t.cfg.Paths.Processed)
	source := processors.NewFileSource(input, t.logger)

	deps := graph.PipelineDeps{
		Builder:   graph.NewBuilder(opts, t.logger),
		BatchSize: t.cfg.Neo4j.BatchSize,
		Logger:    t.logger,
	}
	publish := request.GetBool("publish", false)
	if publish {
		store, err := t.neo4j()
		if err != nil {
			return mcp.NewToolResultErrorFromErr("neo4j unavailable", err), nil
		}
		deps.Store = store
	}

	result, err := graph.NewPipeline(deps).Run(ctx, source)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to build company graph", err), nil
	}

	memory := graph.NewMemoryGraph()
	if err := graph.Publish(ctx, memory, result.Graph, 0); err != nil {
		return mcp.NewToolResultErrorFromErr("failed to index company graph", err), nil
	}
	t.mu.Lock()
	t.current = memory
	t.mu.Unlock()

	summary := buildSummary{
		RunID:         result.RunID,
		Records:       source.Stats().Kept,
		DroppedRows:   source.Stats().DroppedTotal(),
		Nodes:         len(result.Graph.Nodes),
		Edges:         result.Graph.Edges.Len(),
		DateGroups:    len(result.Graph.Edges.Groups),
		LimitedGroups: result.Graph.Edges.Limited,
		Components:    len(algorithms.GraphComponents(result.Graph)),
		Published:     publish,
	}

	data := result.Graph.Data()
	if out := request.GetString("graph_out", ""); out != "" {
		if err := storage.NewJSONGraphStore(out).StoreGraph(ctx, data); err != nil {
			return mcp.NewToolResultErrorFromErr("failed to save graph snapshot", err), nil
		}
		summary.GraphPath = out
	}
	if out := request.GetString("visualization_out", ""); out != "" {
		if err := visualizer.NewD3Visualizer(out).Visualize(data); err != nil {
			return mcp.NewToolResultErrorFromErr("failed to write visualization", err), nil
		}
		summary.VisualizationPath = out
	}

	return jsonResult(summary)
}

func (t *CompanyGraphTools) relatedHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	company, err := request.RequireString("company")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	company = strings.TrimSpace(company)

	depth := request.GetInt("depth", 1)
	if depth < 1 {
		return mcp.NewToolResultError("depth must be at least 1"), nil
	}
	traversal, err := algorithms.ParseTraversalType(request.GetString("traversal", "bfs"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var hood algorithms.Neighborhood
	switch src := strings.ToLower(request.GetString("source", "memory")); src {
	case "memory":
		t.mu.RLock()
		current := t.current
		t.mu.RUnlock()
		if current == nil {
			return mcp.NewToolResultError("no company graph has been built yet, call build_company_graph first"), nil
		}
		hood = current
	case "neo4j":
		store, err := t.neo4j()
		if err != nil {
			return mcp.NewToolResultErrorFromErr("neo4j unavailable", err), nil
		}
		hood = store
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown source %q, expected memory or neo4j", src)), nil
	}

	visits, err := algorithms.NewGraphTraversal(hood).Traverse(ctx, company, depth, traversal)
	if err != nil {
		if errors.Is(err, graph.ErrUnknownNode) {
			return mcp.NewToolResultError(fmt.Sprintf("company %q is not in the graph", company)), nil
		}
		return mcp.NewToolResultErrorFromErr("traversal failed", err), nil
	}

	related := make([]algorithms.Visit, 0, len(visits))
	for _, v := range visits {
		if v.Depth > 0 {
			related = append(related, v)
		}
	}
	return jsonResult(struct {
		Company string             `json:"company"`
		Related []algorithms.Visit `json:"related"`
	}{Company: company, Related: related})
}

func (t *CompanyGraphTools) scrapeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", t.cfg.Scraper.URL)
	if url == "" {
		return mcp.NewToolResultError("url is required when no source URL is configured"), nil
	}

	scraper := processors.NewScraper(t.client, t.cfg.Scraper.UserAgent, t.cfg.Scraper.Timeout(), t.logger)
	rows, err := scraper.Fetch(ctx, url)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to scrape financial data", err), nil
	}

	out := ""
	if request.GetBool("save", true) {
		out = request.GetString("out", t.cfg.Paths.Raw)
		if err := storage.NewRawStore(out).Save(rows); err != nil {
			return mcp.NewToolResultErrorFromErr("failed to save raw data", err), nil
		}
	}

	return jsonResult(struct {
		URL  string              `json:"url"`
		Rows []processors.RawRow `json:"rows"`
		Path string              `json:"path,omitempty"`
	}{URL: url, Rows: rows, Path: out})
}

func (t *CompanyGraphTools) exportHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := t.cfg.BuilderOptions()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid configuration", err), nil
	}

	input := request.GetString("input", t.cfg.Paths.Processed)
	out := request.GetString("out", t.cfg.Paths.Dataset)

	result, err := graph.NewPipeline(graph.PipelineDeps{
		Builder: graph.NewBuilder(opts, t.logger),
		Logger:  t.logger,
	}).Run(ctx, processors.NewFileSource(input, t.logger))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to build company graph", err), nil
	}

	if err := storage.NewDatasetStore(out).Save(result.Learning); err != nil {
		return mcp.NewToolResultErrorFromErr("failed to save dataset", err), nil
	}

	return jsonResult(struct {
		Path        string `json:"path"`
		NumNodes    int    `json:"num_nodes"`
		NumEdges    int    `json:"num_edges"`
		NumFeatures int    `json:"num_features"`
	}{
		Path:        out,
		NumNodes:    result.Learning.NumNodes(),
		NumEdges:    result.Learning.NumEdges(),
		NumFeatures: result.Learning.NumFeatures(),
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to encode result", err), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
