package visualizer

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
)

// d3Template draws companies sized by value and colored by date. Edges are shown only
// when both endpoints pass the date filter.
const d3Template = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Company Graph Visualization</title>
<script src="https://d3js.org/d3.v7.min.js"></script>
<style>
body { margin: 0; font: 12px sans-serif; }
svg { width: 100vw; height: 100vh; background: #f5f5f5; }
#panel { position: absolute; top: 8px; left: 8px; background: #fff; padding: 8px; }
line { stroke: #999; stroke-opacity: 0.6; }
circle { stroke: #fff; }
</style>
</head>
<body>
<div id="panel">
  <p>Nodes: {{.NodeCount}}, Edges: {{.EdgeCount}}</p>
  <select id="date"><option value="">All dates</option></select>
</div>
<svg></svg>
<script>
const data = {{.GraphData}};
const dates = [...new Set(data.nodes.map(n => n.date))];
const color = d3.scaleOrdinal(d3.schemeCategory10).domain(dates);
const size = d3.scaleSqrt().domain([0, d3.max(data.nodes, n => Math.abs(n.value)) || 1]).range([4, 18]);
d3.select("#date").selectAll("option.d").data(dates).join("option").attr("class", "d").text(d => d);

const svg = d3.select("svg");
const root = svg.append("g");
svg.call(d3.zoom().on("zoom", e => root.attr("transform", e.transform)));

const links = root.selectAll("line").data(data.edges).join("line");
links.append("title").text(e => e.source_name + " - " + e.target_name);
const nodes = root.selectAll("circle").data(data.nodes).join("circle")
  .attr("r", n => size(Math.abs(n.value)))
  .attr("fill", n => color(n.date));
nodes.append("title").text(n => n.name + ": " + n.value + " (" + n.date + ")");

d3.forceSimulation(data.nodes)
  .force("link", d3.forceLink(data.edges).id(n => n.id).distance(80))
  .force("charge", d3.forceManyBody().strength(-200))
  .force("center", d3.forceCenter(innerWidth / 2, innerHeight / 2))
  .on("tick", () => {
    links.attr("x1", e => e.source.x).attr("y1", e => e.source.y)
         .attr("x2", e => e.target.x).attr("y2", e => e.target.y);
    nodes.attr("cx", n => n.x).attr("cy", n => n.y);
  });

d3.select("#date").on("change", function () {
  const on = n => !this.value || n.date === this.value;
  nodes.style("display", n => on(n) ? null : "none");
  links.style("display", e => on(e.source) && on(e.target) ? null : "none");
});
</script>
</body>
</html>
`

var d3Page = template.Must(template.New("d3").Parse(d3Template))

// D3Visualizer creates D3.js-based visualizations of company graphs
type D3Visualizer struct {
	outputPath string
}

// NewD3Visualizer creates a new D3.js visualizer
func NewD3Visualizer(outputPath string) *D3Visualizer {
	return &D3Visualizer{
		outputPath: outputPath,
	}
}

// Render writes the HTML page for data to w
func Render(w io.Writer, data *graph.GraphData) error {
	if data == nil {
		data = &graph.GraphData{}
	}
	copied := *data
	data = &copied
	if data.Nodes == nil {
		data.Nodes = []graph.NodeData{}
	}
	if data.Edges == nil {
		data.Edges = []graph.EdgeData{}
	}

	graphData, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encode graph data")
	}

	page := struct {
		GraphData template.JS
		NodeCount int
		EdgeCount int
	}{
		GraphData: template.JS(graphData),
		NodeCount: len(data.Nodes),
		EdgeCount: len(data.Edges),
	}

	return errors.Wrap(d3Page.Execute(w, page), "render visualization")
}

// Visualize generates an HTML visualization of the company graph at the output path
func (v *D3Visualizer) Visualize(data *graph.GraphData) error {
	if err := os.MkdirAll(filepath.Dir(v.outputPath), 0755); err != nil {
		return errors.Wrap(err, "create visualization directory")
	}

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		return err
	}

	return errors.Wrapf(os.WriteFile(v.outputPath, buf.Bytes(), 0644), "write %s", v.outputPath)
}
