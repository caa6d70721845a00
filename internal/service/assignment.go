package service

import (
	"math"
	"sort"
)

// Assignment is one (row, column) pair of a minimum-cost assignment.
type Assignment struct {
	Row  int
	Col  int
	Cost float64
}

// SolveAssignment computes a minimum-cost one-to-one assignment of rows to
// columns for a square cost matrix using the Hungarian algorithm (shortest
// augmenting paths with potentials, O(n^3)). An entry of +Inf marks a
// forbidden pair; forbidden pairs are never part of the returned assignment,
// so the result may be partial when no feasible perfect matching exists.
// The returned pairs are disjoint (no shared row or column) and their total
// cost is globally minimal among all such disjoint pairings.
func SolveAssignment(cost [][]float64) []Assignment {
	n := len(cost)
	if n == 0 {
		return nil
	}

	// Replace forbidden entries with a finite sentinel large enough that the
	// solver only lands on them when no feasible alternative exists. Those
	// placements are stripped from the result afterwards.
	big := forbiddenSentinel(cost)
	work := make([][]float64, n)
	for i := range cost {
		work[i] = make([]float64, n)
		for j, c := range cost[i] {
			if math.IsInf(c, 1) {
				work[i][j] = big
			} else {
				work[i][j] = c
			}
		}
	}

	// u, v are row/column potentials; p[j] is the row assigned to column j.
	// 1-indexed with column 0 as the virtual start of each augmenting path.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := 0; j <= n; j++ {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := work[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	result := make([]Assignment, 0, n)
	for j := 1; j <= n; j++ {
		i := p[j]
		if i == 0 {
			continue
		}
		if math.IsInf(cost[i-1][j-1], 1) {
			// Only reachable when the instance has no feasible perfect
			// matching; drop the infeasible placement for a partial result.
			continue
		}
		result = append(result, Assignment{Row: i - 1, Col: j - 1, Cost: cost[i-1][j-1]})
	}

	sort.Slice(result, func(a, b int) bool { return result[a].Row < result[b].Row })

	return result
}

// forbiddenSentinel returns a finite cost that dominates any sum of feasible
// entries, so forbidden pairs lose against every feasible matching.
func forbiddenSentinel(cost [][]float64) float64 {
	maxAbs := 1.0
	for _, row := range cost {
		for _, c := range row {
			if math.IsInf(c, 1) {
				continue
			}
			if a := math.Abs(c); a > maxAbs {
				maxAbs = a
			}
		}
	}
	return maxAbs * float64(len(cost)+1) * 2
}

// CostMatrix converts a similarity matrix into an assignment cost matrix:
// negated similarity with the diagonal forced to +Inf so self-assignment is
// forbidden.
func CostMatrix(m *SimilarityMatrix) [][]float64 {
	n := m.Len()
	cost := make([][]float64, n)
	for i, a := range m.users {
		cost[i] = make([]float64, n)
		for j, b := range m.users {
			if i == j {
				cost[i][j] = math.Inf(1)
				continue
			}
			cost[i][j] = -m.Score(a, b)
		}
	}
	return cost
}
