// Package milp holds the explicit optimisation model artifact produced by the
// formulation layer, plus a solver for it built on the gonum simplex method.
// The artifact is plain data: it can be inspected, serialised or handed to a
// different backend without touching the formulation.
package milp

import "math"

// VarKind distinguishes continuous variables from binaries.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// Rel is the relation of a linear constraint.
type Rel int

const (
	LE Rel = iota
	GE
	EQ
)

func (r Rel) String() string {
	switch r {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	}
	return "?"
}

// VarID references a variable inside a Model.
type VarID int

// Var is a decision variable with simple bounds.
type Var struct {
	Name  string
	Lower float64
	Upper float64
	Kind  VarKind
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  VarID
	Coef float64
}

// Constraint is a named linear constraint: sum(terms) rel RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Rel   Rel
	RHS   float64
}

// Model is a mixed binary-continuous linear program under minimisation.
type Model struct {
	Vars        []Var
	Constraints []Constraint
	Objective   []Term
	ObjConst    float64
}

// New returns an empty model.
func New() *Model { return &Model{} }

// NewVar adds a continuous variable with the given bounds.
func (m *Model) NewVar(name string, lower, upper float64) VarID {
	m.Vars = append(m.Vars, Var{Name: name, Lower: lower, Upper: upper, Kind: Continuous})
	return VarID(len(m.Vars) - 1)
}

// NewNonNeg adds a continuous variable on [0, +inf).
func (m *Model) NewNonNeg(name string) VarID {
	return m.NewVar(name, 0, math.Inf(1))
}

// NewFree adds an unbounded continuous variable.
func (m *Model) NewFree(name string) VarID {
	return m.NewVar(name, math.Inf(-1), math.Inf(1))
}

// NewBinary adds a binary variable.
func (m *Model) NewBinary(name string) VarID {
	m.Vars = append(m.Vars, Var{Name: name, Lower: 0, Upper: 1, Kind: Binary})
	return VarID(len(m.Vars) - 1)
}

// Add appends a constraint and returns its index.
func (m *Model) Add(name string, terms []Term, rel Rel, rhs float64) int {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Rel: rel, RHS: rhs})
	return len(m.Constraints) - 1
}

// SetRHS replaces the RHS of constraint ci.
func (m *Model) SetRHS(ci int, rhs float64) { m.Constraints[ci].RHS = rhs }

// AddObjective accumulates a term onto the objective.
func (m *Model) AddObjective(v VarID, coef float64) {
	m.Objective = append(m.Objective, Term{Var: v, Coef: coef})
}

// NumVars returns the variable count.
func (m *Model) NumVars() int { return len(m.Vars) }

// NumConstraints returns the constraint count.
func (m *Model) NumConstraints() int { return len(m.Constraints) }

// Binaries returns the IDs of all binary variables.
func (m *Model) Binaries() []VarID {
	var ids []VarID
	for i, v := range m.Vars {
		if v.Kind == Binary {
			ids = append(ids, VarID(i))
		}
	}
	return ids
}

// Clone returns a deep copy of the model. Constraint terms are shared
// structurally but never mutated by the solver, so only the slices holding
// them are duplicated.
func (m *Model) Clone() *Model {
	cp := &Model{
		Vars:        append([]Var(nil), m.Vars...),
		Constraints: append([]Constraint(nil), m.Constraints...),
		Objective:   append([]Term(nil), m.Objective...),
		ObjConst:    m.ObjConst,
	}
	return cp
}

// Value evaluates a linear expression against a solution vector.
func Value(terms []Term, x []float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t.Coef * x[t.Var]
	}
	return sum
}

// Expr is a small helper for assembling term lists.
type Expr struct {
	terms []Term
}

// NewExpr returns an expression with optional preallocated capacity.
func NewExpr(capacity int) *Expr {
	return &Expr{terms: make([]Term, 0, capacity)}
}

// Add appends coef*v to the expression.
func (e *Expr) Add(v VarID, coef float64) *Expr {
	e.terms = append(e.terms, Term{Var: v, Coef: coef})
	return e
}

// Terms returns the accumulated terms.
func (e *Expr) Terms() []Term { return e.terms }

// Len returns the number of accumulated terms.
func (e *Expr) Len() int { return len(e.terms) }
