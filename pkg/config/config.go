package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
)

const (
	configPathEnv    = "FINGRAPH_CONFIG"
	neo4jURIEnv      = "NEO4J_URI"
	neo4jUserEnv     = "NEO4J_USER"
	neo4jPasswordEnv = "NEO4J_PASSWORD"
	neo4jDatabaseEnv = "NEO4J_DATABASE"
	sourceURLEnv     = "FINGRAPH_SOURCE_URL"
	maxGroupSizeEnv  = "FINGRAPH_MAX_GROUP_SIZE"
	logLevelEnv      = "FINGRAPH_LOG_LEVEL"
)

// Config holds settings shared by the CLI and the MCP server.
type Config struct {
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Paths    PathsConfig    `yaml:"paths"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Neo4jConfig describes the graph database connection. An empty URI disables publishing.
type Neo4jConfig struct {
	URI       string `yaml:"uri"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	BatchSize int    `yaml:"batchSize"`
}

// PipelineConfig selects the construction policies.
type PipelineConfig struct {
	NodePolicy    string `yaml:"nodePolicy"`
	FeaturePolicy string `yaml:"featurePolicy"`
	MaxGroupSize  int    `yaml:"maxGroupSize"`
	Oversize      string `yaml:"oversize"`
	Workers       int    `yaml:"workers"`
}

// ScraperConfig controls page downloads.
type ScraperConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	UserAgent      string `yaml:"userAgent"`
}

// Timeout converts TimeoutSeconds to a duration
func (s ScraperConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// PathsConfig lists where each stage reads and writes.
type PathsConfig struct {
	Raw           string `yaml:"raw"`
	Processed     string `yaml:"processed"`
	Graph         string `yaml:"graph"`
	Dataset       string `yaml:"dataset"`
	Visualization string `yaml:"visualization"`
}

// LoggingConfig selects level and format for the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			User:      "neo4j",
			Database:  "neo4j",
			BatchSize: graph.DefaultBatchSize,
		},
		Pipeline: PipelineConfig{
			NodePolicy:    graph.LastWrite.String(),
			FeaturePolicy: graph.Mean.String(),
			MaxGroupSize:  0,
			Oversize:      graph.OversizeReject.String(),
			Workers:       1,
		},
		Scraper: ScraperConfig{
			URL:            "http://example.com/financial_data",
			TimeoutSeconds: 30,
		},
		Paths: PathsConfig{
			Raw:           "data/raw/financial_data.json",
			Processed:     "data/processed/processed_data.csv",
			Graph:         "data/graph/company_graph.json",
			Dataset:       "data/processed/dataset.json",
			Visualization: "data/graph/company_graph.html",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads YAML from path, or from FINGRAPH_CONFIG when path is empty, over the
// defaults and then applies environment overrides. No file at all is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(configPathEnv))
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "config: cannot read %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "config: cannot parse %s", path)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(neo4jURIEnv); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv(neo4jUserEnv); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv(neo4jPasswordEnv); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv(neo4jDatabaseEnv); v != "" {
		c.Neo4j.Database = v
	}
	if v := os.Getenv(sourceURLEnv); v != "" {
		c.Scraper.URL = v
	}
	if v := os.Getenv(maxGroupSizeEnv); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "config: %s", maxGroupSizeEnv)
		}
		c.Pipeline.MaxGroupSize = n
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate parses the policy names and rejects negative sizes
func (c *Config) Validate() error {
	if _, err := graph.ParseAggregationPolicy(c.Pipeline.NodePolicy); err != nil {
		return errors.Wrap(err, "config: pipeline.nodePolicy")
	}
	if _, err := graph.ParseAggregationPolicy(c.Pipeline.FeaturePolicy); err != nil {
		return errors.Wrap(err, "config: pipeline.featurePolicy")
	}
	if _, err := graph.ParseOversizePolicy(c.Pipeline.Oversize); err != nil {
		return errors.Wrap(err, "config: pipeline.oversize")
	}
	if c.Pipeline.MaxGroupSize < 0 {
		return errors.Errorf("config: pipeline.maxGroupSize must not be negative, got %d", c.Pipeline.MaxGroupSize)
	}
	if c.Pipeline.Workers < 0 {
		return errors.Errorf("config: pipeline.workers must not be negative, got %d", c.Pipeline.Workers)
	}
	if c.Neo4j.BatchSize < 0 {
		return errors.Errorf("config: neo4j.batchSize must not be negative, got %d", c.Neo4j.BatchSize)
	}
	if c.Scraper.TimeoutSeconds < 0 {
		return errors.Errorf("config: scraper.timeoutSeconds must not be negative, got %d", c.Scraper.TimeoutSeconds)
	}
	return nil
}

// BuilderOptions maps the pipeline section to graph.BuilderConfig
func (c *Config) BuilderOptions() (graph.BuilderConfig, error) {
	opts := graph.DefaultBuilderConfig()
	var err error
	if opts.NodePolicy, err = graph.ParseAggregationPolicy(c.Pipeline.NodePolicy); err != nil {
		return opts, err
	}
	if opts.FeaturePolicy, err = graph.ParseAggregationPolicy(c.Pipeline.FeaturePolicy); err != nil {
		return opts, err
	}
	if opts.Oversize, err = graph.ParseOversizePolicy(c.Pipeline.Oversize); err != nil {
		return opts, err
	}
	opts.MaxGroupSize = c.Pipeline.MaxGroupSize
	if c.Pipeline.Workers > 0 {
		opts.Workers = c.Pipeline.Workers
	}
	return opts, nil
}

// Neo4jEnabled reports whether a database URI is configured
func (c *Config) Neo4jEnabled() bool {
	return c.Neo4j.URI != ""
}
