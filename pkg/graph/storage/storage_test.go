package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/processors"
)

type statement struct {
	cypher string
	params map[string]interface{}
}

type recordingRunner struct {
	statements []statement
	err        error
}

func (r *recordingRunner) run(cypher string, params map[string]interface{}) error {
	r.statements = append(r.statements, statement{cypher: cypher, params: params})
	return r.err
}

func sampleGraph(t *testing.T) *graph.CompanyGraph {
	t.Helper()
	records := []graph.Record{
		{Company: "B", Value: 20, Date: "d1"},
		{Company: "A", Value: 10, Date: "d1"},
		{Company: "A", Value: 30, Date: "d2"},
	}
	g, err := graph.NewBuilder(graph.DefaultBuilderConfig(), nil).Build(context.Background(), records)
	require.NoError(t, err)
	return g
}

func TestCypherSink_Publish(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	sink := newCypherSink(runner)
	require.NoError(t, graph.Publish(context.Background(), sink, sampleGraph(t), 0))

	require.Len(t, runner.statements, 2)
	nodes := runner.statements[0]
	assert.Equal(t, upsertNodesQuery, nodes.cypher)
	rows := nodes.params["rows"].([]interface{})
	require.Len(t, rows, 2)
	first := rows[0].(map[string]interface{})
	assert.Equal(t, "B", first["name"])
	assert.Equal(t, graph.NodeID("B"), first["id"])
	second := rows[1].(map[string]interface{})
	assert.Equal(t, 30.0, second["value"])
	assert.Equal(t, "d2", second["date"])

	edges := runner.statements[1]
	assert.Equal(t, mergeEdgesQuery, edges.cypher)
	erows := edges.params["rows"].([]interface{})
	require.Len(t, erows, 1)
	edge := erows[0].(map[string]interface{})
	assert.Equal(t, "A", edge["a"], "endpoints are written in canonical order")
	assert.Equal(t, "B", edge["b"])
}

func TestCypherSink_SingleCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runner := &recordingRunner{}
	sink := newCypherSink(runner)

	require.NoError(t, sink.UpsertNode(ctx, graph.CompanyNode{Name: "A", Value: 1, Date: "d1", Observations: 1}))
	require.NoError(t, sink.MergeEdge(ctx, "Z", "A"))
	require.NoError(t, sink.MergeEdge(ctx, "A", "Z"))

	require.Len(t, runner.statements, 3)
	assert.Equal(t, upsertNodeQuery, runner.statements[0].cypher)
	assert.Equal(t, int64(1), runner.statements[0].params["observations"])
	assert.Equal(t, runner.statements[1].params, runner.statements[2].params)
	assert.Equal(t, "A", runner.statements[1].params["a"])
	assert.True(t, strings.Contains(mergeEdgeQuery, "MERGE (a)-[r:RELATED_TO]-(b)"))

	assert.ErrorIs(t, sink.MergeEdge(ctx, "A", "A"), graph.ErrSelfLoop)
	assert.ErrorIs(t, sink.MergeEdges(ctx, []graph.Edge{{A: "B", B: "B"}}), graph.ErrSelfLoop)
	assert.Len(t, runner.statements, 3)

	require.NoError(t, sink.UpsertNodes(ctx, nil))
	require.NoError(t, sink.MergeEdges(ctx, nil))
	assert.Len(t, runner.statements, 3)
}

func TestCypherSink_WrapsDriverErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("ServiceUnavailable")
	sink := newCypherSink(&recordingRunner{err: boom})

	err := sink.UpsertNode(context.Background(), graph.CompanyNode{Name: "A"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "merge company A")
}

func TestJSONGraphStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "graph.json")
	store := NewJSONGraphStore(path)
	data := sampleGraph(t).Data()

	require.NoError(t, store.StoreGraph(context.Background(), data))
	loaded, err := store.LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, data.Nodes, loaded.Nodes)
	assert.Equal(t, data.Edges, loaded.Edges)
	assert.True(t, data.GeneratedAt.Equal(loaded.GeneratedAt))

	_, err = NewJSONGraphStore(filepath.Join(t.TempDir(), "missing.json")).LoadGraph(context.Background())
	assert.Error(t, err)
}

func TestRawStore(t *testing.T) {
	t.Parallel()

	store := NewRawStore(filepath.Join(t.TempDir(), "raw", "financial_data.json"))
	rows := []processors.RawRow{
		{Company: "Company A", Value: "1000", Date: "2023-01-01"},
		{Company: "Company B", Value: "2000", Date: "2023-01-01"},
	}
	require.NoError(t, store.Save(rows))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, rows, loaded)

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {", "rows are indented")

	got, err := processors.NewJSONProcessor().Process(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestDatasetStore(t *testing.T) {
	t.Parallel()

	b := graph.NewBuilder(graph.DefaultBuilderConfig(), nil)
	g := sampleGraph(t)
	data, err := b.Assemble(g)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dataset.json")
	store := NewDatasetStore(path)
	require.NoError(t, store.Save(data))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"x"`, `"edge_index"`, `"index_to_name"`, `"num_nodes": 2`, `"num_features": 1`} {
		assert.Contains(t, string(raw), key)
	}
	assert.NotContains(t, string(raw), `"y"`)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, data.Features, loaded.Features)
	assert.Equal(t, data.EdgeIndex, loaded.EdgeIndex)
	assert.Equal(t, data.IndexToName, loaded.IndexToName)
	assert.Equal(t, data.NameToIndex, loaded.NameToIndex)

	assert.Error(t, store.Save(nil))
}

func TestDatasetStore_RejectsMismatchedShapes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dataset.json")
	content := `{"x": [[1],[2]], "edge_index": [[0],[1]], "index_to_name": ["A"], "num_nodes": 2, "num_features": 1}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := NewDatasetStore(path).Load()
	assert.Error(t, err)
}

func TestRelatedNames(t *testing.T) {
	t.Parallel()

	names, err := relatedNames("A", []interface{}{[]interface{}{"C", "B", nil}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, names)

	names, err = relatedNames("Lonely", []interface{}{[]interface{}{}})
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = relatedNames("Missing", nil)
	assert.ErrorIs(t, err, graph.ErrUnknownNode)
	assert.True(t, strings.Contains(relatedQuery, "OPTIONAL MATCH"))
}
