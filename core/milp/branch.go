package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNodeLimit indicates branch and bound gave up before proving optimality.
var ErrNodeLimit = errors.New("node limit exceeded")

// Options tunes the solver.
type Options struct {
	// Tol is the simplex convergence tolerance.
	Tol float64
	// IntTol is the threshold below which a binary relaxation value counts
	// as integral.
	IntTol float64
	// MaxNodes bounds the branch and bound tree size. Zero means the
	// default.
	MaxNodes int
}

// DefaultOptions returns the solver defaults.
func DefaultOptions() Options {
	return Options{Tol: 1e-7, IntTol: 1e-6, MaxNodes: 20000}
}

func (o *Options) setDefaults() {
	if o.Tol == 0 {
		o.Tol = 1e-7
	}
	if o.IntTol == 0 {
		o.IntTol = 1e-6
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = 20000
	}
}

// Result is an optimal solution to a model.
type Result struct {
	X         []float64
	Objective float64
	// Nodes is the number of branch and bound nodes solved. A pure LP
	// reports one node.
	Nodes int
}

type node struct {
	lower []float64
	upper []float64
}

// Solve minimises the model. Binary variables are handled by depth-first
// branch and bound over simplex relaxations; models without binaries reduce
// to a single relaxation solve.
func Solve(ctx context.Context, m *Model, opts Options) (*Result, error) {
	opts.setDefaults()

	n := m.NumVars()
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i, v := range m.Vars {
		lower[i] = v.Lower
		upper[i] = v.Upper
	}

	binaries := m.Binaries()

	best := math.Inf(1)
	var bestX []float64
	nodes := 0

	stack := []node{{lower: lower, upper: upper}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("solve interrupted: %w", err)
		}
		if nodes >= opts.MaxNodes {
			return nil, fmt.Errorf("%w after %d nodes", ErrNodeLimit, nodes)
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		x, obj, err := relaxSolve(m, nd.lower, nd.upper, opts.Tol)
		switch {
		case errors.Is(err, ErrInfeasible):
			continue
		case err != nil:
			return nil, err
		}
		if obj >= best-1e-9 {
			continue
		}

		branchVar := VarID(-1)
		frac := opts.IntTol
		for _, id := range binaries {
			f := math.Abs(x[id] - math.Round(x[id]))
			if f > frac {
				frac = f
				branchVar = id
			}
		}
		if branchVar < 0 {
			best = obj
			bestX = x
			continue
		}

		zeroLo := append([]float64(nil), nd.lower...)
		zeroUp := append([]float64(nil), nd.upper...)
		zeroUp[branchVar] = 0
		oneLo := append([]float64(nil), nd.lower...)
		oneUp := append([]float64(nil), nd.upper...)
		oneLo[branchVar] = 1

		// Explore the side the relaxation leans toward first.
		if x[branchVar] >= 0.5 {
			stack = append(stack, node{lower: zeroLo, upper: zeroUp}, node{lower: oneLo, upper: oneUp})
		} else {
			stack = append(stack, node{lower: oneLo, upper: oneUp}, node{lower: zeroLo, upper: zeroUp})
		}
	}

	if bestX == nil {
		return nil, ErrInfeasible
	}
	return &Result{X: bestX, Objective: best, Nodes: nodes}, nil
}

// SolveFixed re-solves the model with every binary clamped to its value in x,
// leaving a pure LP. It is used for marginal price extraction where the
// commitment decisions must not change between solves.
func SolveFixed(ctx context.Context, m *Model, x []float64, opts Options) (*Result, error) {
	opts.setDefaults()
	fixed := m.Clone()
	for _, id := range fixed.Binaries() {
		v := math.Round(x[id])
		fixed.Vars[id].Lower = v
		fixed.Vars[id].Upper = v
		fixed.Vars[id].Kind = Continuous
	}
	return Solve(ctx, fixed, opts)
}
