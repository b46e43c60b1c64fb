package milp

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestSolve_MeritOrderLP(t *testing.T) {
	m := New()
	a := m.NewVar("a", 0, 100)
	b := m.NewVar("b", 0, 100)
	m.AddObjective(a, 40)
	m.AddObjective(b, 60)
	m.Add("demand", []Term{{Var: a, Coef: 1}, {Var: b, Coef: 1}}, EQ, 150)

	res, err := Solve(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.Objective-7000) > 1e-6 {
		t.Fatalf("expected objective 7000 got %v", res.Objective)
	}
	if math.Abs(res.X[a]-100) > 1e-6 || math.Abs(res.X[b]-50) > 1e-6 {
		t.Fatalf("expected cheap unit maxed out, got a=%v b=%v", res.X[a], res.X[b])
	}
	if res.Nodes != 1 {
		t.Fatalf("pure LP should solve in one node, got %d", res.Nodes)
	}
}

func TestSolve_NegativeLowerBound(t *testing.T) {
	m := New()
	x := m.NewVar("x", -5, 5)
	y := m.NewVar("y", 0, 10)
	m.AddObjective(x, 1)
	m.AddObjective(y, 1)
	m.Add("link", []Term{{Var: x, Coef: 1}, {Var: y, Coef: -1}}, GE, -5)

	res, err := Solve(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.X[x]+5) > 1e-6 {
		t.Fatalf("expected x=-5 got %v", res.X[x])
	}
}

func TestSolve_Infeasible(t *testing.T) {
	m := New()
	x := m.NewVar("x", 0, 1)
	m.Add("fix", []Term{{Var: x, Coef: 1}}, EQ, 2)

	_, err := Solve(context.Background(), m, Options{})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible got %v", err)
	}
}

func TestSolve_Binary(t *testing.T) {
	m := New()
	x := m.NewVar("x", 0, 5)
	y := m.NewBinary("y")
	m.AddObjective(x, 1)
	m.AddObjective(y, 10)
	m.Add("cover", []Term{{Var: x, Coef: 1}, {Var: y, Coef: 3}}, GE, 2)

	res, err := Solve(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.X[y]) > 1e-6 {
		t.Fatalf("expected y=0 got %v", res.X[y])
	}
	if math.Abs(res.X[x]-2) > 1e-6 {
		t.Fatalf("expected x=2 got %v", res.X[x])
	}
	if math.Abs(res.Objective-2) > 1e-6 {
		t.Fatalf("expected objective 2 got %v", res.Objective)
	}
}

func TestSolve_BinaryBranching(t *testing.T) {
	// Knapsack-style: relaxation is fractional, forcing at least one branch.
	m := New()
	y1 := m.NewBinary("y1")
	y2 := m.NewBinary("y2")
	m.AddObjective(y1, -4)
	m.AddObjective(y2, -3)
	m.Add("weight", []Term{{Var: y1, Coef: 3}, {Var: y2, Coef: 2}}, LE, 4)

	res, err := Solve(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.Objective+4) > 1e-6 {
		t.Fatalf("expected objective -4 got %v", res.Objective)
	}
	if math.Abs(res.X[y1]-1) > 1e-6 || math.Abs(res.X[y2]) > 1e-6 {
		t.Fatalf("expected y1=1 y2=0 got %v %v", res.X[y1], res.X[y2])
	}
	if res.Nodes < 2 {
		t.Fatalf("expected branching, solved in %d nodes", res.Nodes)
	}
}

func TestSolve_ViolationPriceSpread(t *testing.T) {
	// Tie-break costs sit nine orders of magnitude below the violation
	// penalties. The model is bounded, and the solve must say so at full
	// scale.
	m := New()
	x1 := m.NewVar("x1", 0, 100)
	x2 := m.NewVar("x2", 0, 100)
	s1 := m.NewNonNeg("s1")
	s2 := m.NewNonNeg("s2")
	deficit := m.NewNonNeg("deficit")
	m.AddObjective(x1, 30)
	m.AddObjective(x2, 30)
	m.AddObjective(s1, 0.0147)
	m.AddObjective(s2, 0.0147)
	m.AddObjective(deficit, 16537500)
	m.Add("balance",
		[]Term{{Var: x1, Coef: 1}, {Var: x2, Coef: 1}, {Var: deficit, Coef: 1}}, EQ, 100)
	m.Add("tie_break",
		[]Term{{Var: x1, Coef: 0.01}, {Var: x2, Coef: -0.01}, {Var: s1, Coef: -1}, {Var: s2, Coef: 1}}, EQ, 0)

	res, err := Solve(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.Objective-3000) > 1e-3 {
		t.Fatalf("expected objective 3000 got %v", res.Objective)
	}
	if math.Abs(res.X[x1]-50) > 1e-3 || math.Abs(res.X[x2]-50) > 1e-3 {
		t.Fatalf("expected even split got %v %v", res.X[x1], res.X[x2])
	}
	if math.Abs(res.X[deficit]) > 1e-6 {
		t.Fatalf("expected zero deficit got %v", res.X[deficit])
	}
}

func TestSolve_SolverErrorPropagates(t *testing.T) {
	old := relaxSolve
	relaxSolve = func(_ *Model, _, _ []float64, _ float64) ([]float64, float64, error) {
		return nil, 0, errors.New("boom")
	}
	defer func() { relaxSolve = old }()

	m := New()
	x := m.NewNonNeg("x")
	m.Add("floor", []Term{{Var: x, Coef: 1}}, GE, 1)
	if _, err := Solve(context.Background(), m, Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSolve_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New()
	x := m.NewNonNeg("x")
	m.Add("floor", []Term{{Var: x, Coef: 1}}, GE, 1)
	if _, err := Solve(ctx, m, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error got %v", err)
	}
}

func TestSolveFixed_ClampsBinaries(t *testing.T) {
	m := New()
	x := m.NewVar("x", 0, 5)
	y := m.NewBinary("y")
	m.AddObjective(x, 1)
	m.AddObjective(y, 10)
	m.Add("cover", []Term{{Var: x, Coef: 1}, {Var: y, Coef: 3}}, GE, 2)

	first, err := Solve(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	res, err := SolveFixed(context.Background(), m, first.X, Options{})
	if err != nil {
		t.Fatalf("solve fixed: %v", err)
	}
	if math.Abs(res.X[y]-first.X[y]) > 1e-6 {
		t.Fatalf("binary moved between solves: %v vs %v", res.X[y], first.X[y])
	}
	if res.Nodes != 1 {
		t.Fatalf("fixed solve should be a single LP, got %d nodes", res.Nodes)
	}
}

func TestValue(t *testing.T) {
	terms := []Term{{Var: 0, Coef: 2}, {Var: 2, Coef: -1}}
	x := []float64{3, 100, 4}
	if got := Value(terms, x); got != 2 {
		t.Fatalf("expected 2 got %v", got)
	}
}
