package algorithms

import (
	"context"
	"fmt"
	"strings"
)

type TraversalType string

const (
	BFS TraversalType = "BFS"
	DFS TraversalType = "DFS"
)

// ParseTraversalType accepts bfs/dfs in any case
func ParseTraversalType(s string) (TraversalType, error) {
	switch TraversalType(strings.ToUpper(strings.TrimSpace(s))) {
	case BFS:
		return BFS, nil
	case DFS:
		return DFS, nil
	default:
		return "", fmt.Errorf("unsupported traversal type: %s", s)
	}
}

// Neighborhood is any store that can list the companies related to one company.
// graph.MemoryGraph and storage.Neo4jStorage both satisfy it.
type Neighborhood interface {
	Related(ctx context.Context, name string) ([]string, error)
}

// Visit is a company reached by a traversal and its hop distance from the start
type Visit struct {
	Company string `json:"company"`
	Depth   int    `json:"depth"`
}

type GraphTraversal struct {
	graph Neighborhood
}

func NewGraphTraversal(g Neighborhood) *GraphTraversal {
	return &GraphTraversal{graph: g}
}

// Traverse visits every company within maxDepth hops of start, start included at depth 0.
// Depth is always the shortest hop count; BFS and DFS differ only in visit order.
func (t *GraphTraversal) Traverse(ctx context.Context, start string, maxDepth int, traversalType TraversalType) ([]Visit, error) {
	switch traversalType {
	case BFS:
		return t.bfs(ctx, start, maxDepth)
	case DFS:
		w := &dfsWalk{
			graph:    t.graph,
			maxDepth: maxDepth,
			best:     make(map[string]int),
			related:  make(map[string][]string),
		}
		if err := w.visit(ctx, start, 0); err != nil {
			return nil, err
		}
		result := make([]Visit, 0, len(w.order))
		for _, name := range w.order {
			result = append(result, Visit{Company: name, Depth: w.best[name]})
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported traversal type: %s", traversalType)
	}
}

func (t *GraphTraversal) bfs(ctx context.Context, start string, maxDepth int) ([]Visit, error) {
	queue := []string{start}
	result := make([]Visit, 0)
	visited := map[string]bool{start: true}

	for depth := 0; len(queue) > 0 && depth <= maxDepth; depth++ {
		levelSize := len(queue)
		for i := 0; i < levelSize; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			current := queue[0]
			queue = queue[1:]
			result = append(result, Visit{Company: current, Depth: depth})

			if depth == maxDepth {
				continue
			}
			related, err := t.graph.Related(ctx, current)
			if err != nil {
				return nil, err
			}
			for _, r := range related {
				if !visited[r] {
					visited[r] = true
					queue = append(queue, r)
				}
			}
		}
	}

	return result, nil
}

// dfsWalk keeps the shortest depth seen per company. A company reached again by a
// shorter path is expanded again so everything within maxDepth is found.
type dfsWalk struct {
	graph    Neighborhood
	maxDepth int
	best     map[string]int
	order    []string
	related  map[string][]string
}

func (w *dfsWalk) visit(ctx context.Context, current string, depth int) error {
	if depth > w.maxDepth {
		return nil
	}
	if d, seen := w.best[current]; seen && d <= depth {
		return nil
	} else if !seen {
		w.order = append(w.order, current)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.best[current] = depth
	if depth == w.maxDepth {
		return nil
	}

	related, ok := w.related[current]
	if !ok {
		var err error
		if related, err = w.graph.Related(ctx, current); err != nil {
			return err
		}
		w.related[current] = related
	}
	for _, r := range related {
		if err := w.visit(ctx, r, depth+1); err != nil {
			return err
		}
	}
	return nil
}
