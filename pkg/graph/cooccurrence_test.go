package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sameDate(date string, companies ...string) []Record {
	out := make([]Record, 0, len(companies))
	for i, c := range companies {
		out = append(out, Record{Company: c, Value: float64(i), Date: date})
	}
	return out
}

func TestGenerate_CompleteGraphPerDate(t *testing.T) {
	t.Parallel()

	records := sameDate("d", "A", "B", "C", "D", "E")
	set, err := (&EdgeGenerator{}).Generate(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 10, set.Len())

	endpoints := make(map[string]int)
	for _, e := range set.Edges() {
		assert.NotEqual(t, e.A, e.B, "self loop")
		endpoints[e.A]++
		endpoints[e.B]++
	}
	for _, c := range []string{"A", "B", "C", "D", "E"} {
		assert.Equal(t, 4, endpoints[c], c)
	}

	require.Len(t, set.Groups, 1)
	assert.Equal(t, GroupStats{Date: "d", Companies: 5, Pairs: 10}, set.Groups[0])
}

func TestGenerate_PairOrder(t *testing.T) {
	t.Parallel()

	set, err := (&EdgeGenerator{}).Generate(context.Background(), sameDate("d", "A", "B", "C"))
	require.NoError(t, err)
	assert.Equal(t, []Edge{{A: "A", B: "B"}, {A: "A", B: "C"}, {A: "B", B: "C"}}, set.Edges())
}

func TestGenerate_RepeatedCompanyWithinDateCountsOnce(t *testing.T) {
	t.Parallel()

	records := []Record{
		{Company: "A", Value: 1, Date: "d"},
		{Company: "B", Value: 2, Date: "d"},
		{Company: "A", Value: 3, Date: "d"},
	}
	set, err := (&EdgeGenerator{}).Generate(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains("B", "A"))
}

func TestGenerate_DeduplicatesAcrossDates(t *testing.T) {
	t.Parallel()

	records := append(sameDate("d1", "A", "B"), sameDate("d2", "B", "A")...)
	set, err := (&EdgeGenerator{}).Generate(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, Edge{A: "A", B: "B"}, set.Edges()[0])
	assert.Len(t, set.Groups, 2)
}

func TestGenerate_DegenerateGroups(t *testing.T) {
	t.Parallel()

	set, err := (&EdgeGenerator{}).Generate(context.Background(), []Record{
		{Company: "A", Value: 1, Date: "d1"},
		{Company: "B", Value: 1, Date: "d2"},
	})
	require.NoError(t, err)
	assert.Zero(t, set.Len())

	set, err = (&EdgeGenerator{}).Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, set.Len())
	assert.Empty(t, set.Groups)
}

func TestGenerate_OversizePolicies(t *testing.T) {
	t.Parallel()

	records := append(sameDate("big", "A", "B", "C", "D"), sameDate("small", "E", "F")...)

	t.Run("reject", func(t *testing.T) {
		_, err := (&EdgeGenerator{MaxGroupSize: 3}).Generate(context.Background(), records)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGroupTooLarge)

		var limit *GroupLimitError
		require.ErrorAs(t, err, &limit)
		assert.Equal(t, GroupLimitError{Date: "big", Size: 4, Limit: 3}, *limit)
	})

	t.Run("skip", func(t *testing.T) {
		set, err := (&EdgeGenerator{MaxGroupSize: 3, Oversize: OversizeSkip}).Generate(context.Background(), records)
		require.NoError(t, err)
		assert.Equal(t, []Edge{{A: "E", B: "F"}}, set.Edges())
		require.Len(t, set.Limited, 1)
		assert.True(t, set.Groups[0].Limited)
		assert.Zero(t, set.Groups[0].Pairs)
	})

	t.Run("truncate", func(t *testing.T) {
		set, err := (&EdgeGenerator{MaxGroupSize: 3, Oversize: OversizeTruncate}).Generate(context.Background(), records)
		require.NoError(t, err)
		assert.Equal(t, 4, set.Len())
		assert.True(t, set.Contains("A", "C"))
		assert.False(t, set.Contains("A", "D"))
		assert.Equal(t, 3, set.Groups[0].Pairs)
	})

	t.Run("at the limit", func(t *testing.T) {
		set, err := (&EdgeGenerator{MaxGroupSize: 4}).Generate(context.Background(), records)
		require.NoError(t, err)
		assert.Equal(t, 7, set.Len())
		assert.Empty(t, set.Limited)
	})
}

func TestGenerate_WorkersDoNotChangeOutput(t *testing.T) {
	t.Parallel()

	records := make([]Record, 0)
	for d := 0; d < 20; d++ {
		for c := 0; c <= d%7; c++ {
			records = append(records, Record{Company: fmt.Sprintf("C%d", (c*3+d)%15), Value: 1, Date: fmt.Sprintf("d%d", d)})
		}
	}

	sequential, err := (&EdgeGenerator{Workers: 1}).Generate(context.Background(), records)
	require.NoError(t, err)
	parallel, err := (&EdgeGenerator{Workers: 8}).Generate(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, sequential.Edges(), parallel.Edges())
	assert.Equal(t, sequential.Groups, parallel.Groups)
}

func TestGenerate_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&EdgeGenerator{}).Generate(ctx, sameDate("d", "A", "B"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEdgeIndex_BothDirections(t *testing.T) {
	t.Parallel()

	records := sameDate("d", "A", "B", "C")
	set, err := (&EdgeGenerator{}).Generate(context.Background(), records)
	require.NoError(t, err)

	ei := set.EdgeIndex(NewIndexMap(records))
	assert.Equal(t, []int64{0, 1, 0, 2, 1, 2}, ei[0])
	assert.Equal(t, []int64{1, 0, 2, 0, 2, 1}, ei[1])
}

func TestEdgeKey_Unordered(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Edge{A: "x", B: "y"}.Key(), Edge{A: "y", B: "x"}.Key())
	assert.Equal(t, EdgeKey{Low: "x", High: "y"}, Edge{A: "y", B: "x"}.Key())
}
