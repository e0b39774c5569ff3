// Package hungarian solves the linear assignment problem in O(n³) time.
package hungarian

import "math"

// Solve computes a minimum-cost assignment of rows to columns and returns,
// for each row, the assigned column index. When there are more rows than
// columns the surplus rows come back as -1. All rows must have the same
// length; an empty matrix yields nil.
func Solve(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	if m == 0 {
		return assign
	}

	// The core routine needs rows <= cols; transpose and invert otherwise.
	if n > m {
		tr := make([][]float64, m)
		for j := range tr {
			tr[j] = make([]float64, n)
			for i := range cost {
				tr[j][i] = cost[i][j]
			}
		}
		for j, i := range Solve(tr) {
			if i >= 0 {
				assign[i] = j
			}
		}
		return assign
	}

	// Kuhn-Munkres with row/column potentials, 1-based with a virtual
	// column 0 used to seed each augmenting search.
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	match := make([]int, m+1)
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		match[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := match[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if match[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			match[j0] = match[j1]
			j0 = j1
		}
	}

	for j := 1; j <= m; j++ {
		if match[j] > 0 {
			assign[match[j]-1] = j - 1
		}
	}
	return assign
}
