// Package milp provides a small mixed-integer-linear-program abstraction: a Program accumulates
// continuous and binary decision variables plus linear constraints and a linear objective, and a
// Solver drives it to a solution while invoking caller-supplied node/solution callbacks. The
// concrete solver implementation is swappable; see Solver.
package milp

import (
	"fmt"

	"github.com/pkg/errors"
)

// VarKind distinguishes a continuous variable from a binary (0/1) one.
type VarKind int

const (
	// Continuous is a real-valued variable bounded by [Lower, Upper].
	Continuous VarKind = iota
	// Binary is a variable restricted to {0, 1}.
	Binary
)

// Var is a handle to a single decision variable inside a Program. The zero Var is invalid; handles
// are only meaningful for the Program that produced them.
type Var struct {
	index int
}

// Index returns the variable's position in the Program's flat variable vector. Exposed so solvers
// and extractors can read raw Result.Values without going back through Program.
func (v Var) Index() int { return v.index }

// Sense is the comparison operator of a linear constraint.
type Sense int

const (
	// LessEq means `expr <= rhs`.
	LessEq Sense = iota
	// GreaterEq means `expr >= rhs`.
	GreaterEq
	// Equal means `expr == rhs`.
	Equal
)

// Term is one coefficient*variable addend of a linear expression.
type Term struct {
	Coeff float64
	Var   Var
}

// Constraint is a single linear constraint `Σ Terms <= / >= / == RHS`.
type Constraint struct {
	Terms []Term
	Sense Sense
	RHS   float64
	// Label is an optional human-readable name, used only for error messages.
	Label string
}

// Program is a mutable builder for a mixed-integer linear program. Variables and constraints are
// appended incrementally; a Program is handed to a Solver once fully built.
type Program struct {
	kinds       []VarKind
	lower       []float64
	upper       []float64
	names       []string
	constraints []Constraint
	objective   []Term
	// minimize is always true; the three formulations all minimize a residual cost, so there is no
	// maximize path.
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{}
}

// NumVars returns the number of variables added so far.
func (p *Program) NumVars() int { return len(p.kinds) }

// AddVar appends a single variable with the given kind and bounds, returning its handle. For Binary
// variables, lower/upper are ignored and fixed to [0, 1].
func (p *Program) AddVar(kind VarKind, lower, upper float64, name string) Var {
	if kind == Binary {
		lower, upper = 0, 1
	}
	idx := len(p.kinds)
	p.kinds = append(p.kinds, kind)
	p.lower = append(p.lower, lower)
	p.upper = append(p.upper, upper)
	p.names = append(p.names, name)
	return Var{index: idx}
}

// AddVars appends n variables of the same kind and bounds in one call.
func (p *Program) AddVars(n int, kind VarKind, lower, upper float64, namePrefix string) []Var {
	vars := make([]Var, n)
	for i := 0; i < n; i++ {
		vars[i] = p.AddVar(kind, lower, upper, fmt.Sprintf("%s[%d]", namePrefix, i))
	}
	return vars
}

// AddConstraint appends a linear constraint.
func (p *Program) AddConstraint(terms []Term, sense Sense, rhs float64, label string) {
	p.constraints = append(p.constraints, Constraint{Terms: terms, Sense: sense, RHS: rhs, Label: label})
}

// AddEq is a convenience wrapper for AddConstraint with Sense == Equal.
func (p *Program) AddEq(terms []Term, rhs float64, label string) {
	p.AddConstraint(terms, Equal, rhs, label)
}

// AddLeq is a convenience wrapper for AddConstraint with Sense == LessEq.
func (p *Program) AddLeq(terms []Term, rhs float64, label string) {
	p.AddConstraint(terms, LessEq, rhs, label)
}

// AddGeq is a convenience wrapper for AddConstraint with Sense == GreaterEq.
func (p *Program) AddGeq(terms []Term, rhs float64, label string) {
	p.AddConstraint(terms, GreaterEq, rhs, label)
}

// SetObjective replaces the program's linear objective (to be minimized).
func (p *Program) SetObjective(terms []Term) {
	p.objective = terms
}

// AddToObjective appends terms to the existing objective rather than replacing it.
func (p *Program) AddToObjective(terms []Term) {
	p.objective = append(p.objective, terms...)
}

// Kind returns the kind of variable v.
func (p *Program) Kind(v Var) VarKind { return p.kinds[v.index] }

// Bounds returns the [lower, upper] bound of variable v.
func (p *Program) Bounds(v Var) (float64, float64) { return p.lower[v.index], p.upper[v.index] }

// Name returns the human-readable name of variable v.
func (p *Program) Name(v Var) string { return p.names[v.index] }

// Validate performs structural sanity checks (every variable index used by a constraint or the
// objective is in range) and returns a descriptive error on the first violation found. An empty
// objective is accepted.
func (p *Program) Validate() error {
	n := p.NumVars()
	checkTerms := func(terms []Term, context string) error {
		for _, t := range terms {
			if t.Var.index < 0 || t.Var.index >= n {
				return errors.Errorf("%s: variable index %d out of range [0,%d)", context, t.Var.index, n)
			}
		}
		return nil
	}
	for _, c := range p.constraints {
		if err := checkTerms(c.Terms, "constraint "+c.Label); err != nil {
			return err
		}
	}
	return checkTerms(p.objective, "objective")
}
