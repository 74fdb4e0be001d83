package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/config"
)

func newTestTools(t *testing.T) (*CompanyGraphTools, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.Raw = filepath.Join(dir, "raw.json")
	cfg.Paths.Processed = filepath.Join(dir, "processed.csv")
	cfg.Paths.Graph = filepath.Join(dir, "graph.json")
	cfg.Paths.Dataset = filepath.Join(dir, "dataset.json")

	csv := "company,value,date\nA,10,d1\nB,20,d1\nA,30,d2\nC,5,d2\nD,1,d3\n"
	require.NoError(t, os.WriteFile(cfg.Paths.Processed, []byte(csv), 0o644))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewCompanyGraphTools(cfg, logger, nil, nil), cfg
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestBuildAndRelated(t *testing.T) {
	t.Parallel()

	tools, _ := newTestTools(t)
	ctx := context.Background()

	res, err := tools.relatedHandler(ctx, call(map[string]any{"company": "A"}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "no graph built yet")

	out := filepath.Join(t.TempDir(), "graph.json")
	res, err = tools.buildHandler(ctx, call(map[string]any{"graph_out": out}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var summary buildSummary
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &summary))
	assert.Equal(t, 4, summary.Nodes)
	assert.Equal(t, 2, summary.Edges)
	assert.Equal(t, 3, summary.DateGroups)
	assert.Equal(t, 2, summary.Components)
	assert.False(t, summary.Published)
	assert.FileExists(t, out)

	res, err = tools.relatedHandler(ctx, call(map[string]any{"company": "B", "depth": float64(2)}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var related struct {
		Company string `json:"company"`
		Related []struct {
			Company string `json:"company"`
			Depth   int    `json:"depth"`
		} `json:"related"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &related))
	require.Len(t, related.Related, 2)
	assert.Equal(t, "A", related.Related[0].Company)
	assert.Equal(t, 1, related.Related[0].Depth)
	assert.Equal(t, "C", related.Related[1].Company)
	assert.Equal(t, 2, related.Related[1].Depth)

	res, err = tools.relatedHandler(ctx, call(map[string]any{"company": "Nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestBuild_OptionsAndErrors(t *testing.T) {
	t.Parallel()

	tools, _ := newTestTools(t)
	ctx := context.Background()

	res, err := tools.buildHandler(ctx, call(map[string]any{"node_policy": "median"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tools.buildHandler(ctx, call(map[string]any{"max_group_size": float64(1)}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "default oversize policy rejects")

	res, err = tools.buildHandler(ctx, call(map[string]any{"max_group_size": float64(1), "oversize": "skip"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var summary buildSummary
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &summary))
	assert.Zero(t, summary.Edges)
	assert.Len(t, summary.LimitedGroups, 2)

	res, err = tools.buildHandler(ctx, call(map[string]any{"publish": true}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "neo4j is not configured")
}

func TestScrape(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<table id="financial-data"><tr><td>A</td><td>1</td><td>d1</td></tr></table>`))
	}))
	defer srv.Close()

	tools, cfg := newTestTools(t)
	tools.client = srv.Client()

	res, err := tools.scrapeHandler(context.Background(), call(map[string]any{"url": srv.URL}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), `"company": "A"`)
	assert.FileExists(t, cfg.Paths.Raw)
}

func TestExport(t *testing.T) {
	t.Parallel()

	tools, cfg := newTestTools(t)
	res, err := tools.exportHandler(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var out struct {
		Path     string `json:"path"`
		NumNodes int    `json:"num_nodes"`
		NumEdges int    `json:"num_edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, cfg.Paths.Dataset, out.Path)
	assert.Equal(t, 4, out.NumNodes)
	assert.Equal(t, 4, out.NumEdges)
	assert.FileExists(t, cfg.Paths.Dataset)
}
