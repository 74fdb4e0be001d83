package graph

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"
)

// DateGroup is the set of distinct companies observed on one date, in first-seen order
type DateGroup struct {
	Date      string
	Companies []string
}

// GroupByDate partitions records by date. Groups come out in first-seen date order and a
// company repeated within a date is counted once.
func GroupByDate(records []Record) []DateGroup {
	type builder struct {
		seen      mapset.Set[string]
		companies []string
	}

	order := make([]string, 0)
	byDate := make(map[string]*builder)
	for _, r := range records {
		b, ok := byDate[r.Date]
		if !ok {
			b = &builder{seen: mapset.NewThreadUnsafeSet[string]()}
			byDate[r.Date] = b
			order = append(order, r.Date)
		}
		if b.seen.Add(r.Company) {
			b.companies = append(b.companies, r.Company)
		}
	}

	groups := make([]DateGroup, 0, len(order))
	for _, date := range order {
		groups = append(groups, DateGroup{Date: date, Companies: byDate[date].companies})
	}
	return groups
}

// GroupStats describes what one date group contributed
type GroupStats struct {
	Date      string `json:"date"`
	Companies int    `json:"companies"`
	Pairs     int    `json:"pairs"`
	Limited   bool   `json:"limited"`
}

// EdgeSet holds unique undirected edges in first-emitted order
type EdgeSet struct {
	edges []Edge
	seen  mapset.Set[EdgeKey]

	Groups  []GroupStats
	Limited []GroupLimitError
}

func newEdgeSet() *EdgeSet {
	return &EdgeSet{
		edges: make([]Edge, 0),
		seen:  mapset.NewThreadUnsafeSet[EdgeKey](),
	}
}

func (s *EdgeSet) add(e Edge) bool {
	if !s.seen.Add(e.Key()) {
		return false
	}
	s.edges = append(s.edges, e)
	return true
}

// Len is the number of unique edges
func (s *EdgeSet) Len() int {
	return len(s.edges)
}

// Edges returns a copy of the unique edges
func (s *EdgeSet) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Contains reports whether {a,b} is an edge, in either order
func (s *EdgeSet) Contains(a, b string) bool {
	return s.seen.Contains(Edge{A: a, B: b}.Key())
}

// EdgeIndex encodes every undirected edge as two directed entries (i->j, j->i).
// Row 0 holds sources and row 1 targets, so each row has 2*Len() entries.
func (s *EdgeSet) EdgeIndex(index *IndexMap) [2][]int64 {
	src := make([]int64, 0, 2*len(s.edges))
	dst := make([]int64, 0, 2*len(s.edges))
	for _, e := range s.edges {
		i, okA := index.Index(e.A)
		j, okB := index.Index(e.B)
		if !okA || !okB {
			continue
		}
		src = append(src, int64(i), int64(j))
		dst = append(dst, int64(j), int64(i))
	}
	return [2][]int64{src, dst}
}

// EdgeGenerator links every pair of companies that share a date.
// Cost is quadratic in group size, so MaxGroupSize bounds it (0 disables the cap).
type EdgeGenerator struct {
	MaxGroupSize int
	Oversize     OversizePolicy
	// Workers > 1 pairs date groups concurrently; the output does not depend on it
	Workers int
}

// Generate builds the edge set of records. With OversizeReject the first oversized group
// in date order aborts the run with a *GroupLimitError.
func (g *EdgeGenerator) Generate(ctx context.Context, records []Record) (*EdgeSet, error) {
	groups := GroupByDate(records)
	set := newEdgeSet()

	// limits are checked in group order before any pairing so the reported group is stable
	members := make([][]string, len(groups))
	for i, grp := range groups {
		stats := GroupStats{Date: grp.Date, Companies: len(grp.Companies)}
		members[i] = grp.Companies

		if g.MaxGroupSize > 0 && len(grp.Companies) > g.MaxGroupSize {
			limit := GroupLimitError{Date: grp.Date, Size: len(grp.Companies), Limit: g.MaxGroupSize}
			switch g.Oversize {
			case OversizeSkip:
				members[i] = nil
			case OversizeTruncate:
				members[i] = grp.Companies[:g.MaxGroupSize]
			default:
				return nil, &limit
			}
			stats.Limited = true
			set.Limited = append(set.Limited, limit)
		}
		set.Groups = append(set.Groups, stats)
	}

	pairs, err := g.pairAll(ctx, members)
	if err != nil {
		return nil, err
	}

	for i, ps := range pairs {
		set.Groups[i].Pairs = len(ps)
		for _, e := range ps {
			set.add(e)
		}
	}
	return set, nil
}

func (g *EdgeGenerator) pairAll(ctx context.Context, members [][]string) ([][]Edge, error) {
	pairs := make([][]Edge, len(members))

	if g.Workers <= 1 {
		for i, m := range members {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pairs[i] = pairGroup(m)
		}
		return pairs, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.Workers)
	for i, m := range members {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			pairs[i] = pairGroup(m)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// pairGroup enumerates the k*(k-1)/2 pairs (i, j>i) of companies
func pairGroup(companies []string) []Edge {
	k := len(companies)
	if k < 2 {
		return nil
	}
	out := make([]Edge, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			out = append(out, Edge{A: companies[i], B: companies[j]})
		}
	}
	return out
}
