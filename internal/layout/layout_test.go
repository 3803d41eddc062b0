package layout

import (
	"cmp"
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alloc(start, end int) *Allocation[int] {
	return &Allocation[int]{Start: start, End: end}
}

func TestAssign_OverlapChain(t *testing.T) {
	a, b, c := alloc(0, 10), alloc(5, 15), alloc(12, 20)

	out, err := AssignOrdered([]*Allocation[int]{a, b, c})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, 0, a.Index)
	assert.Equal(t, 1, b.Index)
	assert.Equal(t, 0, c.Index, "c starts after a ended and reuses lane 0")

	for _, x := range out {
		assert.Equal(t, 1, x.MaxIndex)
	}
}

func TestAssign_MutualOverlap(t *testing.T) {
	a, b, c := alloc(0, 10), alloc(2, 8), alloc(4, 6)

	_, err := AssignOrdered([]*Allocation[int]{a, b, c})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, []int{a.Index, b.Index, c.Index})
	assert.Equal(t, []int{2, 2, 2}, []int{a.MaxIndex, b.MaxIndex, c.MaxIndex})
}

func TestAssign_Disjoint(t *testing.T) {
	a, b := alloc(0, 5), alloc(10, 15)

	_, err := AssignOrdered([]*Allocation[int]{a, b})
	require.NoError(t, err)

	assert.Equal(t, 0, a.Index)
	assert.Equal(t, 0, b.Index)
	assert.Equal(t, 0, a.MaxIndex)
	assert.Equal(t, 0, b.MaxIndex)
}

func TestAssign_TouchingIntervalsShareLane(t *testing.T) {
	a, b := alloc(0, 10), alloc(10, 20)

	// b listed first so the tie-break, not input order, decides.
	_, err := AssignOrdered([]*Allocation[int]{b, a})
	require.NoError(t, err)

	assert.Equal(t, 0, a.Index)
	assert.Equal(t, 0, b.Index)
	assert.Equal(t, 0, b.MaxIndex)
}

func TestAssign_Empty(t *testing.T) {
	out, err := AssignOrdered([]*Allocation[int]{})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = AssignOrdered[int](nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAssign_ReturnsSameSlice(t *testing.T) {
	in := []*Allocation[int]{alloc(0, 1), alloc(0, 1)}

	out, err := AssignOrdered(in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Same(t, in[0], out[0])
	assert.Same(t, in[1], out[1])
}

func TestAssign_IdenticalBoundsAreDistinct(t *testing.T) {
	a, b := alloc(3, 7), alloc(3, 7)

	_, err := AssignOrdered([]*Allocation[int]{a, b})
	require.NoError(t, err)

	assert.Equal(t, 0, a.Index)
	assert.Equal(t, 1, b.Index)
	assert.Equal(t, 1, a.MaxIndex)
	assert.Equal(t, 1, b.MaxIndex)
}

func TestAssign_RecomputesFromScratch(t *testing.T) {
	a, b, c := alloc(0, 10), alloc(2, 8), alloc(4, 6)
	a.Index, a.MaxIndex = 7, 9
	c.Index, c.MaxIndex = -3, 42

	in := []*Allocation[int]{a, b, c}
	_, err := AssignOrdered(in)
	require.NoError(t, err)
	first := snapshot(in)

	_, err = AssignOrdered(in)
	require.NoError(t, err)

	assert.Equal(t, first, snapshot(in))
	assert.Equal(t, [][2]int{{0, 2}, {1, 2}, {2, 2}}, first)
}

func TestAssign_ZeroLength(t *testing.T) {
	t.Run("alone", func(t *testing.T) {
		z := alloc(5, 5)
		_, err := AssignOrdered([]*Allocation[int]{z})
		require.NoError(t, err)
		assert.Equal(t, 0, z.Index)
		assert.Equal(t, 0, z.MaxIndex)
	})

	t.Run("inside a running allocation", func(t *testing.T) {
		a, z := alloc(0, 10), alloc(5, 5)
		_, err := AssignOrdered([]*Allocation[int]{a, z})
		require.NoError(t, err)
		assert.Equal(t, 0, a.Index)
		assert.Equal(t, 1, z.Index, "lane 0 must not be freed by z's end")
		assert.Equal(t, 1, a.MaxIndex)
	})

	t.Run("releases its lane before starts at the same instant", func(t *testing.T) {
		for _, order := range []string{"zero first", "zero last"} {
			z, b := alloc(5, 5), alloc(5, 9)
			allocs := []*Allocation[int]{z, b}
			if order == "zero last" {
				allocs = []*Allocation[int]{b, z}
			}
			_, err := AssignOrdered(allocs)
			require.NoError(t, err, order)
			assert.Equal(t, 0, z.Index, order)
			assert.Equal(t, 0, b.Index, order)
			assert.Equal(t, 0, b.MaxIndex, order)
		}
	})

	t.Run("does not widen later starts", func(t *testing.T) {
		z1, z2, b, c := alloc(5, 5), alloc(5, 5), alloc(5, 9), alloc(5, 9)
		_, err := AssignOrdered([]*Allocation[int]{z1, b, z2, c})
		require.NoError(t, err)
		assert.Equal(t, 0, z1.Index)
		assert.Equal(t, 0, z2.Index)
		assert.Equal(t, 0, b.Index)
		assert.Equal(t, 1, c.Index)
		assert.Equal(t, 1, b.MaxIndex)
		assert.Equal(t, 1, c.MaxIndex)
	})

	t.Run("does not disturb a lane freed at the same instant", func(t *testing.T) {
		a, z, b := alloc(0, 5), alloc(5, 5), alloc(5, 9)
		_, err := AssignOrdered([]*Allocation[int]{a, z, b})
		require.NoError(t, err)
		assert.Equal(t, 0, a.Index)
		assert.Equal(t, 0, z.Index)
		assert.Equal(t, 0, b.Index)
	})
}

func TestAssign_ClusterSpan(t *testing.T) {
	build := func() []*Allocation[int] {
		return []*Allocation[int]{alloc(0, 4), alloc(2, 10), alloc(5, 10), alloc(6, 10)}
	}

	plain := build()
	_, err := AssignOrdered(plain)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {0, 2}, {2, 2}}, snapshot(plain))

	spanned := build()
	_, err = AssignOrdered(spanned, WithClusterSpan())
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 2}, {1, 2}, {0, 2}, {2, 2}}, snapshot(spanned))
}

func TestAssign_ClusterSpanKeepsClustersApart(t *testing.T) {
	in := []*Allocation[int]{alloc(0, 10), alloc(5, 10), alloc(10, 20)}

	_, err := AssignOrdered(in, WithClusterSpan())
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{0, 1}, {1, 1}, {0, 0}}, snapshot(in))
}

func TestAssign_Errors(t *testing.T) {
	t.Run("end before start", func(t *testing.T) {
		ok, bad := alloc(0, 5), alloc(9, 3)
		ok.Index, ok.MaxIndex = 4, 4

		_, err := AssignOrdered([]*Allocation[int]{ok, bad})
		require.Error(t, err)
		assert.True(t, IsInvalidInterval(err))
		assert.False(t, IsInvalidInput(err))
		assert.Contains(t, err.Error(), "allocation 1")
		assert.Equal(t, 4, ok.Index, "nothing is written on error")
	})

	t.Run("nil allocation", func(t *testing.T) {
		_, err := AssignOrdered([]*Allocation[int]{alloc(0, 1), nil})
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})

	t.Run("repeated allocation", func(t *testing.T) {
		a := alloc(0, 1)
		_, err := AssignOrdered([]*Allocation[int]{a, a})
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})

	t.Run("nil comparator", func(t *testing.T) {
		_, err := Assign([]*Allocation[int]{alloc(0, 1)}, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
		assert.NotContains(t, err.Error(), "allocation -1")
	})

	t.Run("NaN timestamp", func(t *testing.T) {
		nan := 0.0
		nan = nan / nan
		_, err := AssignOrdered([]*Allocation[float64]{{Start: nan, End: 1}})
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})
}

func TestAssignTimes(t *testing.T) {
	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	a := &Allocation[time.Time]{Start: at(0), End: at(2)}
	b := &Allocation[time.Time]{Start: at(1), End: at(3)}
	c := &Allocation[time.Time]{Start: at(2), End: at(4)}

	_, err := AssignTimes([]*Allocation[time.Time]{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, []int{a.Index, b.Index, c.Index})
	assert.Equal(t, []int{1, 1, 1}, []int{a.MaxIndex, b.MaxIndex, c.MaxIndex})

	t.Run("same instant in different zones", func(t *testing.T) {
		helsinki := time.FixedZone("EET", 2*60*60)
		x := &Allocation[time.Time]{Start: at(0), End: at(2)}
		y := &Allocation[time.Time]{Start: at(2).In(helsinki), End: at(5).In(helsinki)}

		_, err := AssignTimes([]*Allocation[time.Time]{x, y})
		require.NoError(t, err)
		assert.Equal(t, 0, y.Index)
	})

	t.Run("missing bound", func(t *testing.T) {
		_, err := AssignTimes([]*Allocation[time.Time]{{Start: at(0)}})
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})
}

func TestAssign_StringTimestamps(t *testing.T) {
	a := &Allocation[string]{Start: "2024-01-01T08:00", End: "2024-01-01T10:00"}
	b := &Allocation[string]{Start: "2024-01-01T09:00", End: "2024-01-01T11:00"}

	_, err := AssignOrdered([]*Allocation[string]{a, b})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Index)
	assert.Equal(t, 1, b.Index)
}

func TestStats(t *testing.T) {
	in := []*Allocation[int]{alloc(0, 10), alloc(2, 8), alloc(4, 6), alloc(20, 30)}
	_, err := AssignOrdered(in)
	require.NoError(t, err)

	sum, err := Stats(in, cmp.Compare[int])
	require.NoError(t, err)
	assert.Equal(t, Summary{LaneCount: 3, Peak: 3}, sum)

	points := []*Allocation[int]{alloc(0, 10), alloc(5, 5), alloc(5, 5), alloc(5, 9)}
	_, err = AssignOrdered(points)
	require.NoError(t, err)
	sum, err = Stats(points, cmp.Compare[int])
	require.NoError(t, err)
	assert.Equal(t, Summary{LaneCount: 2, Peak: 2}, sum)

	empty, err := Stats([]*Allocation[int]{}, cmp.Compare[int])
	require.NoError(t, err)
	assert.Equal(t, Summary{}, empty)
}

func TestAssign_RandomProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 300; round++ {
		n := rng.IntN(25)
		in := make([]*Allocation[int], n)
		for i := range in {
			start := rng.IntN(50)
			// About one in sixteen allocations is zero-length.
			in[i] = alloc(start, start+rng.IntN(16))
		}

		_, err := AssignOrdered(in)
		require.NoError(t, err)
		components := overlapComponents(in)

		for i, a := range in {
			require.GreaterOrEqual(t, a.MaxIndex, a.Index, "round %d", round)
			require.LessOrEqual(t, a.MaxIndex, components[i], "round %d: max_index above cluster peak", round)

			for j, b := range in {
				if i == j || !overlaps(a, b) {
					continue
				}
				require.NotEqual(t, a.Index, b.Index, "round %d: %v and %v share a lane", round, *a, *b)
				require.GreaterOrEqual(t, a.MaxIndex, b.Index, "round %d", round)
			}
		}

		sum, err := Stats(in, cmp.Compare[int])
		require.NoError(t, err)
		require.Equal(t, bruteForcePeak(in), sum.LaneCount, "round %d: lane count is not minimal", round)
		require.Equal(t, sum.Peak, sum.LaneCount, "round %d", round)

		before := snapshot(in)
		_, err = AssignOrdered(in, WithClusterSpan())
		require.NoError(t, err)
		for i, a := range in {
			require.Equal(t, before[i][0], a.Index, "round %d: cluster span changed a lane", round)
			require.Equal(t, components[i], a.MaxIndex, "round %d", round)
		}
	}
}

func TestAssign_Golden(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	in := []*Allocation[int]{alloc(0, 4), alloc(2, 10), alloc(5, 10), alloc(6, 10)}

	_, err := AssignOrdered(in)
	require.NoError(t, err)

	type row struct {
		Name     string `json:"name"`
		Index    int    `json:"index"`
		MaxIndex int    `json:"max_index"`
	}
	rows := make([]row, len(in))
	for i, a := range in {
		rows[i] = row{Name: names[i], Index: a.Index, MaxIndex: a.MaxIndex}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "staircase", append(data, '\n'))
}

func snapshot[T any](in []*Allocation[T]) [][2]int {
	out := make([][2]int, len(in))
	for i, a := range in {
		out[i] = [2]int{a.Index, a.MaxIndex}
	}
	return out
}

func overlaps(a, b *Allocation[int]) bool {
	return a.Start < b.End && b.Start < a.End
}

// bruteForcePeak counts active allocations at every integer instant. A
// zero-length allocation at t shares time only with allocations running
// across t, never with one starting or ending at t or with another
// zero-length allocation.
func bruteForcePeak(in []*Allocation[int]) int {
	peak := 0
	for t := 0; t < 100; t++ {
		active, across, point := 0, 0, false
		for _, a := range in {
			switch {
			case a.Start == a.End:
				point = point || a.Start == t
			case a.Start <= t && t < a.End:
				active++
				if a.Start < t {
					across++
				}
			}
		}
		peak = max(peak, active)
		if point {
			peak = max(peak, across+1)
		}
	}
	return peak
}

// overlapComponents returns, per allocation, the highest Index in its
// connected overlap component.
func overlapComponents(in []*Allocation[int]) []int {
	parent := make([]int, len(in))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range in {
		for j := i + 1; j < len(in); j++ {
			if overlaps(in[i], in[j]) {
				parent[find(i)] = find(j)
			}
		}
	}

	top := make(map[int]int)
	for i, a := range in {
		r := find(i)
		top[r] = max(top[r], a.Index)
	}
	out := make([]int, len(in))
	for i := range in {
		out[i] = top[find(i)]
	}
	return out
}
