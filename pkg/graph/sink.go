package graph

import (
	"context"

	"github.com/pkg/errors"
)

// DefaultBatchSize is the number of nodes or edges sent per BatchSink call
const DefaultBatchSize = 500

// Publish writes every node, then every edge, of g into sink. Sinks implementing
// BatchSink receive chunks of batchSize; others get one call per item.
func Publish(ctx context.Context, sink Sink, g *CompanyGraph, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if bs, ok := sink.(BatchSink); ok {
		for start := 0; start < len(g.Nodes); start += batchSize {
			end := min(start+batchSize, len(g.Nodes))
			if err := bs.UpsertNodes(ctx, g.Nodes[start:end]); err != nil {
				return errors.Wrapf(err, "upsert nodes %d-%d", start, end)
			}
		}
		edges := g.Edges.edges
		for start := 0; start < len(edges); start += batchSize {
			end := min(start+batchSize, len(edges))
			if err := bs.MergeEdges(ctx, edges[start:end]); err != nil {
				return errors.Wrapf(err, "merge edges %d-%d", start, end)
			}
		}
		return nil
	}

	for _, n := range g.Nodes {
		if err := sink.UpsertNode(ctx, n); err != nil {
			return errors.Wrapf(err, "upsert node %s", n.Name)
		}
	}
	for _, e := range g.Edges.edges {
		if err := sink.MergeEdge(ctx, e.A, e.B); err != nil {
			return errors.Wrapf(err, "merge edge %s-%s", e.A, e.B)
		}
	}
	return nil
}
