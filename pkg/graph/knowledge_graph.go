package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CompanyGraph is the result of one construction run
type CompanyGraph struct {
	Nodes []CompanyNode
	Edges *EdgeSet
	Index *IndexMap

	records []Record
}

// Node looks up a company by name
func (g *CompanyGraph) Node(name string) (CompanyNode, bool) {
	i, ok := g.Index.Index(name)
	if !ok {
		return CompanyNode{}, false
	}
	return g.Nodes[i], true
}

// Data converts the graph into a serialisable snapshot
func (g *CompanyGraph) Data() *GraphData {
	data := &GraphData{
		Nodes:       make([]NodeData, 0, len(g.Nodes)),
		Edges:       make([]EdgeData, 0, g.Edges.Len()),
		GeneratedAt: time.Now().UTC(),
	}
	for _, n := range g.Nodes {
		data.Nodes = append(data.Nodes, nodeData(n))
	}
	for _, e := range g.Edges.edges {
		data.Edges = append(data.Edges, edgeData(e))
	}
	return data
}

// BuilderConfig names both aggregation policies explicitly; they are never unified
type BuilderConfig struct {
	NodePolicy    AggregationPolicy
	FeaturePolicy AggregationPolicy
	MaxGroupSize  int
	Oversize      OversizePolicy
	Workers       int
	Labeler       LabelFunc
}

// DefaultBuilderConfig persists last-write snapshots and learns from averaged values
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		NodePolicy:    LastWrite,
		FeaturePolicy: Mean,
		Oversize:      OversizeReject,
		Workers:       1,
	}
}

// Builder runs the core construction steps over an ordered record slice
type Builder struct {
	cfg    BuilderConfig
	logger *logrus.Logger
}

// NewBuilder creates a builder; a nil logger gets a JSON logrus logger.
// Unset policies resolve to LastWrite for nodes and Mean for features.
func NewBuilder(cfg BuilderConfig, logger *logrus.Logger) *Builder {
	cfg.NodePolicy = cfg.NodePolicy.or(LastWrite)
	cfg.FeaturePolicy = cfg.FeaturePolicy.or(Mean)
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Builder{cfg: cfg, logger: logger}
}

// Config returns the builder settings
func (b *Builder) Config() BuilderConfig {
	return b.cfg
}

// Build merges nodes, generates co-occurrence edges and assigns the shared index.
// records order is the processing order for LastWrite and for first-seen ids.
func (b *Builder) Build(ctx context.Context, records []Record) (*CompanyGraph, error) {
	index := NewIndexMap(records)
	nodes := mergeNodes(records, index, b.cfg.NodePolicy)

	gen := &EdgeGenerator{
		MaxGroupSize: b.cfg.MaxGroupSize,
		Oversize:     b.cfg.Oversize,
		Workers:      b.cfg.Workers,
	}
	edges, err := gen.Generate(ctx, records)
	if err != nil {
		var limit *GroupLimitError
		if errors.As(err, &limit) {
			b.logger.WithFields(logrus.Fields{
				"date":       limit.Date,
				"group_size": limit.Size,
				"limit":      limit.Limit,
			}).Error("Date group exceeds size limit, aborting build")
		}
		return nil, err
	}

	for _, l := range edges.Limited {
		b.logger.WithFields(logrus.Fields{
			"date":       l.Date,
			"group_size": l.Size,
			"limit":      l.Limit,
			"action":     b.cfg.Oversize.String(),
		}).Warn("Date group exceeds size limit")
	}

	kept := make([]Record, len(records))
	copy(kept, records)

	b.logger.WithFields(logrus.Fields{
		"records": len(records),
		"nodes":   len(nodes),
		"edges":   edges.Len(),
		"groups":  len(edges.Groups),
	}).Info("Company graph built")

	return &CompanyGraph{
		Nodes:   nodes,
		Edges:   edges,
		Index:   index,
		records: kept,
	}, nil
}

// Assemble produces the learning representation of a built graph using the same index
func (b *Builder) Assemble(g *CompanyGraph) (*LearningData, error) {
	fa := &FeatureAssembler{Policy: b.cfg.FeaturePolicy, Labeler: b.cfg.Labeler}
	return fa.Assemble(g.records, g.Index, g.Edges)
}

var (
	// ErrSelfLoop is returned when an edge joins a company to itself
	ErrSelfLoop = errors.New("self loop")
	// ErrUnknownNode is returned when an edge references a company that was never upserted
	ErrUnknownNode = errors.New("unknown node")
)

// MemoryGraph is an in-memory Sink with merge-by-key semantics
type MemoryGraph struct {
	nodes     map[string]*CompanyNode
	order     []string
	edges     map[EdgeKey]Edge
	edgeOrder []EdgeKey
	adjacency map[string][]string
	mutex     sync.RWMutex
}

var _ BatchSink = (*MemoryGraph)(nil)

// NewMemoryGraph creates an empty in-memory graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes:     make(map[string]*CompanyNode),
		order:     make([]string, 0),
		edges:     make(map[EdgeKey]Edge),
		edgeOrder: make([]EdgeKey, 0),
		adjacency: make(map[string][]string),
	}
}

// UpsertNode creates the company or overwrites its attributes
func (m *MemoryGraph) UpsertNode(ctx context.Context, node CompanyNode) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.upsertLocked(node)
	return nil
}

func (m *MemoryGraph) upsertLocked(node CompanyNode) {
	if existing, ok := m.nodes[node.Name]; ok {
		*existing = node
		return
	}
	n := node
	m.nodes[node.Name] = &n
	m.order = append(m.order, node.Name)
}

// MergeEdge adds {a,b} unless it already exists in either direction
func (m *MemoryGraph) MergeEdge(ctx context.Context, a, b string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.mergeLocked(a, b)
}

func (m *MemoryGraph) mergeLocked(a, b string) error {
	if a == b {
		return fmt.Errorf("edge %s-%s: %w", a, b, ErrSelfLoop)
	}
	if m.nodes[a] == nil || m.nodes[b] == nil {
		return fmt.Errorf("edge %s-%s: %w", a, b, ErrUnknownNode)
	}
	e := Edge{A: a, B: b}
	key := e.Key()
	if _, exists := m.edges[key]; exists {
		return nil
	}
	m.edges[key] = e
	m.edgeOrder = append(m.edgeOrder, key)
	m.adjacency[a] = append(m.adjacency[a], b)
	m.adjacency[b] = append(m.adjacency[b], a)
	return nil
}

// UpsertNodes applies UpsertNode to every node under one lock
func (m *MemoryGraph) UpsertNodes(ctx context.Context, nodes []CompanyNode) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, n := range nodes {
		m.upsertLocked(n)
	}
	return nil
}

// MergeEdges applies MergeEdge to every edge under one lock
func (m *MemoryGraph) MergeEdges(ctx context.Context, edges []Edge) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, e := range edges {
		if err := m.mergeLocked(e.A, e.B); err != nil {
			return err
		}
	}
	return nil
}

// Node returns a copy of the named company
func (m *MemoryGraph) Node(name string) (CompanyNode, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	n, ok := m.nodes[name]
	if !ok {
		return CompanyNode{}, false
	}
	return *n, true
}

// HasCompany reports whether name was upserted
func (m *MemoryGraph) HasCompany(name string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.nodes[name]
	return ok
}

// Neighbors returns the companies sharing an edge with name, in insertion order
func (m *MemoryGraph) Neighbors(name string) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]string, len(m.adjacency[name]))
	copy(out, m.adjacency[name])
	return out
}

// Related returns the neighbors of name, or ErrUnknownNode when it was never upserted
func (m *MemoryGraph) Related(ctx context.Context, name string) ([]string, error) {
	if !m.HasCompany(name) {
		return nil, fmt.Errorf("company %s: %w", name, ErrUnknownNode)
	}
	return m.Neighbors(name), nil
}

// NodeCount is the number of companies
func (m *MemoryGraph) NodeCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.nodes)
}

// EdgeCount is the number of unique relationships
func (m *MemoryGraph) EdgeCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.edges)
}

// Nodes returns the companies in insertion order
func (m *MemoryGraph) Nodes() []CompanyNode {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]CompanyNode, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.nodes[name])
	}
	return out
}

// Edges returns the relationships in insertion order
func (m *MemoryGraph) Edges() []Edge {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]Edge, 0, len(m.edgeOrder))
	for _, k := range m.edgeOrder {
		out = append(out, m.edges[k])
	}
	return out
}

// Data returns a snapshot of the stored graph
func (m *MemoryGraph) Data() *GraphData {
	nodes := m.Nodes()
	edges := m.Edges()
	data := &GraphData{
		Nodes:       make([]NodeData, 0, len(nodes)),
		Edges:       make([]EdgeData, 0, len(edges)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, n := range nodes {
		data.Nodes = append(data.Nodes, nodeData(n))
	}
	for _, e := range edges {
		data.Edges = append(data.Edges, edgeData(e))
	}
	return data
}

// Load merges a snapshot into the graph
func (m *MemoryGraph) Load(data *GraphData) error {
	if data == nil {
		return nil
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, n := range data.Nodes {
		m.upsertLocked(CompanyNode{Name: n.Name, Value: n.Value, Date: n.Date, Observations: n.Observations})
	}
	for _, e := range data.Edges {
		if err := m.mergeLocked(e.SourceName, e.TargetName); err != nil {
			return errors.Wrapf(err, "load edge %s", e.ID)
		}
	}
	return nil
}
