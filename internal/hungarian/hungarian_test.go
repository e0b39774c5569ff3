package hungarian

import "testing"

func totalCost(cost [][]float64, assign []int) float64 {
	sum := 0.0
	for i, j := range assign {
		if j >= 0 {
			sum += cost[i][j]
		}
	}
	return sum
}

func TestSolveSquare(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	assign := Solve(cost)
	want := []int{1, 0, 2}
	for i := range want {
		if assign[i] != want[i] {
			t.Fatalf("assign = %v, want %v", assign, want)
		}
	}
	if got := totalCost(cost, assign); got != 5 {
		t.Errorf("total cost = %v, want 5", got)
	}
}

func TestSolveWide(t *testing.T) {
	// more columns than rows: every row gets a column
	cost := [][]float64{
		{10, 1, 10, 10},
		{10, 10, 10, 1},
	}
	assign := Solve(cost)
	if assign[0] != 1 || assign[1] != 3 {
		t.Fatalf("assign = %v, want [1 3]", assign)
	}
}

func TestSolveTall(t *testing.T) {
	// more rows than columns: exactly one row stays unassigned
	cost := [][]float64{
		{1, 10},
		{10, 1},
		{5, 5},
	}
	assign := Solve(cost)
	if assign[0] != 0 || assign[1] != 1 || assign[2] != -1 {
		t.Fatalf("assign = %v, want [0 1 -1]", assign)
	}
}

func TestSolveDegenerate(t *testing.T) {
	if got := Solve(nil); got != nil {
		t.Errorf("Solve(nil) = %v, want nil", got)
	}
	assign := Solve([][]float64{{}, {}})
	for _, j := range assign {
		if j != -1 {
			t.Fatalf("assign = %v, want all -1", assign)
		}
	}
}
