package service

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

// bruteForceMinCost tries every permutation and returns the minimum total
// cost over feasible perfect matchings, or +Inf when none exists.
func bruteForceMinCost(cost [][]float64) float64 {
	n := len(cost)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	best := math.Inf(1)
	var walk func(k int)
	walk = func(k int) {
		if k == n {
			total := 0.0
			for i, j := range perm {
				if math.IsInf(cost[i][j], 1) {
					return
				}
				total += cost[i][j]
			}
			if total < best {
				best = total
			}
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)

	return best
}

func totalCost(assignments []Assignment) float64 {
	total := 0.0
	for _, a := range assignments {
		total += a.Cost
	}
	return total
}

func TestSolveAssignment_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for n := 2; n <= 6; n++ {
		for trial := 0; trial < 20; trial++ {
			cost := make([][]float64, n)
			for i := range cost {
				cost[i] = make([]float64, n)
				for j := range cost[i] {
					cost[i][j] = rng.Float64()*2 - 1
				}
			}

			got := SolveAssignment(cost)
			require.Len(t, got, n, "n=%d trial=%d", n, trial)

			want := bruteForceMinCost(cost)
			assert.InDelta(t, want, totalCost(got), 1e-9, "n=%d trial=%d", n, trial)
		}
	}
}

func TestSolveAssignment_DisjointRowsAndCols(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}

	got := SolveAssignment(cost)
	require.Len(t, got, 3)

	rows := map[int]bool{}
	cols := map[int]bool{}
	for _, a := range got {
		assert.False(t, rows[a.Row], "duplicate row %d", a.Row)
		assert.False(t, cols[a.Col], "duplicate col %d", a.Col)
		rows[a.Row] = true
		cols[a.Col] = true
	}
}

func TestSolveAssignment_ForbiddenPairs(t *testing.T) {
	inf := math.Inf(1)

	t.Run("forbidden entries are avoided when feasible", func(t *testing.T) {
		cost := [][]float64{
			{inf, 1, 9},
			{1, inf, 9},
			{9, 9, inf},
		}

		got := SolveAssignment(cost)
		require.Len(t, got, 3)
		for _, a := range got {
			assert.False(t, math.IsInf(cost[a.Row][a.Col], 1))
		}
		assert.InDelta(t, bruteForceMinCost(cost), totalCost(got), 1e-9)
	})

	t.Run("infeasible instance yields a partial matching", func(t *testing.T) {
		// Row 2 has no feasible column, so a perfect matching is impossible.
		cost := [][]float64{
			{1, 2, inf},
			{2, 1, inf},
			{inf, inf, inf},
		}

		got := SolveAssignment(cost)
		assert.Less(t, len(got), 3)
		for _, a := range got {
			assert.False(t, math.IsInf(cost[a.Row][a.Col], 1))
		}
	})
}

func TestSolveAssignment_Empty(t *testing.T) {
	assert.Nil(t, SolveAssignment(nil))
	assert.Nil(t, SolveAssignment([][]float64{}))
}

func TestCostMatrix(t *testing.T) {
	var a, b vector.Vector
	for i := range a {
		a[i] = 5
		b[i] = 5
	}
	b[0] = 6

	m := NewSimilarityMatrix(map[int64]vector.Vector{1: a, 2: b})
	cost := CostMatrix(m)

	require.Len(t, cost, 2)
	assert.True(t, math.IsInf(cost[0][0], 1))
	assert.True(t, math.IsInf(cost[1][1], 1))
	assert.InDelta(t, -m.Score(1, 2), cost[0][1], 1e-12)
	assert.Equal(t, cost[0][1], cost[1][0])
}
