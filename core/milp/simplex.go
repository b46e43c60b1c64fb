package milp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrInfeasible indicates the model has no feasible solution.
var ErrInfeasible = errors.New("model infeasible")

// ErrUnbounded indicates the relaxation is unbounded below.
var ErrUnbounded = errors.New("model unbounded")

// solveRelaxation solves the LP relaxation of m with the variable bounds
// overridden by lower/upper. The model variables are free in the converted
// standard form, so every finite bound becomes an inequality row.
func solveRelaxation(m *Model, lower, upper []float64, tol float64) ([]float64, float64, error) {
	n := m.NumVars()
	if n == 0 {
		return nil, 0, errors.New("empty model")
	}

	c := make([]float64, n)
	for _, t := range m.Objective {
		c[t.Var] += t.Coef
	}
	scale := equilibrateObjective(c)

	var ineq [][]float64
	var h []float64
	var eq [][]float64
	var b []float64

	row := func(terms []Term, negate bool) []float64 {
		r := make([]float64, n)
		for _, t := range terms {
			if negate {
				r[t.Var] -= t.Coef
			} else {
				r[t.Var] += t.Coef
			}
		}
		return r
	}

	for _, con := range m.Constraints {
		if len(con.Terms) == 0 {
			// Degenerate rows would make the equality system singular.
			continue
		}
		switch con.Rel {
		case LE:
			ineq = append(ineq, row(con.Terms, false))
			h = append(h, con.RHS)
		case GE:
			ineq = append(ineq, row(con.Terms, true))
			h = append(h, -con.RHS)
		case EQ:
			eq = append(eq, row(con.Terms, false))
			b = append(b, con.RHS)
		}
	}

	for i := 0; i < n; i++ {
		if u := upper[i]; !math.IsInf(u, 1) {
			r := make([]float64, n)
			r[i] = 1
			ineq = append(ineq, r)
			h = append(h, u)
		}
		if l := lower[i]; !math.IsInf(l, -1) {
			r := make([]float64, n)
			r[i] = -1
			ineq = append(ineq, r)
			h = append(h, -l)
		}
	}

	var g mat.Matrix
	if len(ineq) > 0 {
		gd := mat.NewDense(len(ineq), n, nil)
		for i, r := range ineq {
			gd.SetRow(i, r)
		}
		g = gd
	}
	var a mat.Matrix
	if len(eq) > 0 {
		ad := mat.NewDense(len(eq), n, nil)
		for i, r := range eq {
			ad.SetRow(i, r)
		}
		a = ad
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	opt, sol, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, 0, ErrInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return nil, 0, ErrUnbounded
		default:
			return nil, 0, fmt.Errorf("simplex: %w", err)
		}
	}

	// Convert splits each free variable into a positive and negative part.
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = sol[i] - sol[n+i]
	}
	return x, opt*scale + m.ObjConst, nil
}

// objScaleTarget is the magnitude the largest objective coefficient is
// brought down to before the simplex runs.
const objScaleTarget = 1e4

// equilibrateObjective scales c in place so its largest coefficient sits at
// objScaleTarget, returning the factor to restore the reported optimum.
// Violation prices run up to nine orders of magnitude above offer costs, and
// at full scale the rounding error of the penalty columns reaches the pivot
// tolerance, making lp.Simplex report bounded models as unbounded.
func equilibrateObjective(c []float64) float64 {
	maxAbs := 0.0
	for _, v := range c {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs <= objScaleTarget {
		return 1
	}
	scale := maxAbs / objScaleTarget
	for i := range c {
		c[i] /= scale
	}
	return scale
}

// relaxSolve points to the relaxation solver. Tests override it to simulate
// solver failures.
var relaxSolve = solveRelaxation
