package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/config"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/algorithms"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/processors"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/storage"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/visualizer"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" type:"path" help:"Path to YAML configuration" env:"FINGRAPH_CONFIG"`
	EnvFile  string `default:".env" help:"Path to environment file"`
	LogLevel string `help:"Override the configured log level"`
}

type env struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func (g *Globals) load() (*env, error) {
	if err := godotenv.Load(g.EnvFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading env file %s: %v\n", g.EnvFile, err)
	}

	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ScrapeCmd downloads the financial table and stores its raw rows.
type ScrapeCmd struct {
	URL string `help:"Page to scrape (defaults to scraper.url)"`
	Out string `type:"path" help:"Raw JSON output (defaults to paths.raw)"`
}

// Run executes the scrape command.
func (c *ScrapeCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	url := orDefault(c.URL, e.cfg.Scraper.URL)
	out := orDefault(c.Out, e.cfg.Paths.Raw)

	scraper := processors.NewScraper(nil, e.cfg.Scraper.UserAgent, e.cfg.Scraper.Timeout(), e.logger)
	rows, err := scraper.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		color.Yellow("No data scraped from %s", url)
		return nil
	}

	if err := storage.NewRawStore(out).Save(rows); err != nil {
		return err
	}
	color.Green("✓ Scraped %d rows", len(rows))
	fmt.Printf("  Saved to: %s\n", out)
	return nil
}

// ProcessCmd normalizes raw rows into the processed CSV.
type ProcessCmd struct {
	In  string `type:"path" help:"Raw JSON, CSV or HTML input (defaults to paths.raw)"`
	Out string `type:"path" help:"Processed CSV output (defaults to paths.processed)"`
}

// Run executes the process command.
func (c *ProcessCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	in := orDefault(c.In, e.cfg.Paths.Raw)
	out := orDefault(c.Out, e.cfg.Paths.Processed)

	source := processors.NewFileSource(in, e.logger)
	records, err := source.Records(ctx)
	if err != nil {
		return err
	}

	if err := writeProcessedCSV(out, records); err != nil {
		return err
	}

	stats := source.Stats()
	color.Green("✓ Processed %d records", stats.Kept)
	if dropped := stats.DroppedTotal(); dropped > 0 {
		color.Yellow("  Dropped:  %d invalid rows", dropped)
	}
	fmt.Printf("  Saved to: %s\n", out)
	return nil
}

// PolicyFlags override the configured construction policies.
type PolicyFlags struct {
	NodePolicy    string `help:"Stored node value policy: last_write or mean"`
	FeaturePolicy string `help:"Learning feature policy: last_write or mean"`
	MaxGroupSize  int    `default:"-1" help:"Maximum companies paired per date (0 unlimited, -1 use config)"`
	Oversize      string `help:"Oversized date groups: reject, skip or truncate"`
	Workers       int    `help:"Parallel pairing workers (0 uses config)"`
}

func (p PolicyFlags) builderConfig(cfg *config.Config) (graph.BuilderConfig, error) {
	opts, err := cfg.BuilderOptions()
	if err != nil {
		return opts, err
	}
	if p.NodePolicy != "" {
		if opts.NodePolicy, err = graph.ParseAggregationPolicy(p.NodePolicy); err != nil {
			return opts, err
		}
	}
	if p.FeaturePolicy != "" {
		if opts.FeaturePolicy, err = graph.ParseAggregationPolicy(p.FeaturePolicy); err != nil {
			return opts, err
		}
	}
	if p.Oversize != "" {
		if opts.Oversize, err = graph.ParseOversizePolicy(p.Oversize); err != nil {
			return opts, err
		}
	}
	if p.MaxGroupSize >= 0 {
		opts.MaxGroupSize = p.MaxGroupSize
	}
	if p.Workers > 0 {
		opts.Workers = p.Workers
	}
	return opts, nil
}

// BuildCmd builds the company graph and optionally publishes it.
type BuildCmd struct {
	PolicyFlags `embed:""`

	In       string `type:"path" help:"Processed CSV or raw input (defaults to paths.processed)"`
	Neo4j    bool   `help:"Publish the graph to Neo4j"`
	GraphOut string `type:"path" help:"JSON snapshot output (defaults to paths.graph)"`
	VizOut   string `type:"path" help:"D3 HTML visualization output"`
}

// Run executes the build command.
func (c *BuildCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	opts, err := c.builderConfig(e.cfg)
	if err != nil {
		return err
	}

	deps := graph.PipelineDeps{
		Builder:   graph.NewBuilder(opts, e.logger),
		BatchSize: e.cfg.Neo4j.BatchSize,
		Logger:    e.logger,
	}
	if c.Neo4j {
		if !e.cfg.Neo4jEnabled() {
			return errors.New("--neo4j requires NEO4J_URI or neo4j.uri")
		}
		store, err := storage.NewNeo4jStorage(e.cfg.Neo4j.URI, e.cfg.Neo4j.User, e.cfg.Neo4j.Password, e.cfg.Neo4j.Database, e.logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.VerifyConnectivity(ctx); err != nil {
			return err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		deps.Store = store
	}

	source := processors.NewFileSource(orDefault(c.In, e.cfg.Paths.Processed), e.logger)
	result, err := graph.NewPipeline(deps).Run(ctx, source)
	if err != nil {
		return err
	}

	data := result.Graph.Data()
	graphOut := orDefault(c.GraphOut, e.cfg.Paths.Graph)
	if err := storage.NewJSONGraphStore(graphOut).StoreGraph(ctx, data); err != nil {
		return err
	}
	if c.VizOut != "" {
		if err := visualizer.NewD3Visualizer(c.VizOut).Visualize(data); err != nil {
			return err
		}
	}

	color.Green("✓ Company graph built")
	fmt.Printf("  Companies:      %d\n", len(result.Graph.Nodes))
	fmt.Printf("  Relationships:  %d\n", result.Graph.Edges.Len())
	fmt.Printf("  Date groups:    %d\n", len(result.Graph.Edges.Groups))
	fmt.Printf("  Components:     %d\n", len(algorithms.GraphComponents(result.Graph)))
	fmt.Printf("  Duration:       %.2fs\n", result.Duration.Seconds())
	for _, l := range result.Graph.Edges.Limited {
		color.Yellow("  Limited group %s: %d companies (limit %d, %s)", l.Date, l.Size, l.Limit, opts.Oversize)
	}
	if c.Neo4j {
		fmt.Printf("  Published to:   %s\n", e.cfg.Neo4j.URI)
	}
	fmt.Printf("  Snapshot:       %s\n", graphOut)
	if c.VizOut != "" {
		fmt.Printf("  Visualization:  %s\n", c.VizOut)
	}
	return nil
}

// ExportCmd writes the learning dataset.
type ExportCmd struct {
	PolicyFlags `embed:""`

	In  string `type:"path" help:"Processed CSV or raw input (defaults to paths.processed)"`
	Out string `type:"path" help:"Dataset JSON output (defaults to paths.dataset)"`
}

// Run executes the export command.
func (c *ExportCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	opts, err := c.builderConfig(e.cfg)
	if err != nil {
		return err
	}

	result, err := graph.NewPipeline(graph.PipelineDeps{
		Builder: graph.NewBuilder(opts, e.logger),
		Logger:  e.logger,
	}).Run(ctx, processors.NewFileSource(orDefault(c.In, e.cfg.Paths.Processed), e.logger))
	if err != nil {
		return err
	}

	out := orDefault(c.Out, e.cfg.Paths.Dataset)
	if err := storage.NewDatasetStore(out).Save(result.Learning); err != nil {
		return err
	}

	color.Green("✓ Dataset exported")
	fmt.Printf("  Nodes:     %d\n", result.Learning.NumNodes())
	fmt.Printf("  Edges:     %d (directed)\n", result.Learning.NumEdges())
	fmt.Printf("  Features:  %d\n", result.Learning.NumFeatures())
	fmt.Printf("  Saved to:  %s\n", out)
	return nil
}

// RelatedCmd lists companies near a company.
type RelatedCmd struct {
	Company   string `arg:"" help:"Company name"`
	In        string `type:"path" help:"Graph snapshot to read (defaults to paths.graph)"`
	Depth     int    `short:"d" default:"1" help:"Maximum hops"`
	Traversal string `default:"bfs" enum:"bfs,dfs,BFS,DFS" help:"bfs or dfs"`
	Neo4j     bool   `help:"Walk the graph stored in Neo4j instead of a snapshot"`
}

// writeProcessedCSV writes records to path, creating parent directories
func writeProcessedCSV(path string, records []graph.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := processors.WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

// Run executes the related command.
func (c *RelatedCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	traversal, err := algorithms.ParseTraversalType(c.Traversal)
	if err != nil {
		return err
	}

	var hood algorithms.Neighborhood
	if c.Neo4j {
		if !e.cfg.Neo4jEnabled() {
			return errors.New("--neo4j requires NEO4J_URI or neo4j.uri")
		}
		store, err := storage.NewNeo4jStorage(e.cfg.Neo4j.URI, e.cfg.Neo4j.User, e.cfg.Neo4j.Password, e.cfg.Neo4j.Database, e.logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		hood = store
	} else {
		data, err := storage.NewJSONGraphStore(orDefault(c.In, e.cfg.Paths.Graph)).LoadGraph(ctx)
		if err != nil {
			return err
		}
		memory := graph.NewMemoryGraph()
		if err := memory.Load(data); err != nil {
			return err
		}
		hood = memory
	}

	visits, err := algorithms.NewGraphTraversal(hood).Traverse(ctx, c.Company, c.Depth, traversal)
	if errors.Is(err, graph.ErrUnknownNode) {
		fmt.Printf("Company '%s' not found in the graph.\n", c.Company)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("## Related to: **%s**\n\n", c.Company)
	found := 0
	for _, v := range visits {
		if v.Depth == 0 {
			continue
		}
		found++
		fmt.Printf("  %s (%d hop%s)\n", v.Company, v.Depth, plural(v.Depth))
	}
	if found == 0 {
		fmt.Println("  (none)")
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Scrape  ScrapeCmd  `cmd:"" help:"Scrape the financial data table into raw JSON"`
	Process ProcessCmd `cmd:"" help:"Normalize raw rows into the processed CSV"`
	Build   BuildCmd   `cmd:"" help:"Build the company graph, optionally publishing to Neo4j"`
	Export  ExportCmd  `cmd:"" help:"Export the learning dataset"`
	Related RelatedCmd `cmd:"" help:"List companies related to a company"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("fingraph"),
		kong.Description("Company co-occurrence graphs from financial data"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run(&c.Globals)
}
