package milp

import (
	"context"
	"time"
)

// Status reports the outcome category of a solve.
type Status int

const (
	// StatusOptimal means the solver proved global optimality within tolerance.
	StatusOptimal Status = iota
	// StatusFeasible means an integer-feasible solution was found but optimality was not proven
	// (e.g. a time limit was hit).
	StatusFeasible
	// StatusInfeasible means no integer-feasible solution exists.
	StatusInfeasible
)

// Result is the outcome of a Solve call.
type Result struct {
	Status   Status
	Values   []float64
	Objective float64
	Bound    float64
	ExploredNodes int
	FeasibleSolutions int
}

// NodeInfo is passed to a NodeFunc at every relaxed (possibly fractional) node the solver visits.
type NodeInfo struct {
	Values []float64
	Bound  float64
	ExploredNodes int
}

// NodeFunc is invoked at every relaxed LP node. It may return a branching hint
// (values, variables) to suggest to the solver; a nil Hint means no hint.
type NodeFunc func(ctx context.Context, prog *Program, info NodeInfo) *Hint

// Hint is a partial assignment the solver should try before continuing its own search.
type Hint struct {
	Vars   []Var
	Values []float64
}

// SolutionInfo is passed to a SolutionFunc at every integer-feasible incumbent.
type SolutionInfo struct {
	Values    []float64
	Objective float64
	ExploredNodes int
	FeasibleSolutions int
}

// SolutionFunc is invoked at every integer-feasible incumbent found during the search.
type SolutionFunc func(ctx context.Context, prog *Program, info SolutionInfo)

// PassthroughOptions carries solver-specific tuning knobs through untouched, named after the two
// commercial solvers the upstream configuration format supports. A Solver implementation backed by
// one of those is free to interpret them; the ReferenceSolver ignores them.
type PassthroughOptions struct {
	GurobiIntOptions   map[string]int
	GurobiFloatOptions map[string]float64
	MosekIntOptions    map[string]int
	MosekFloatOptions  map[string]float64
}

// Options configures a single Solve call.
type Options struct {
	TimeLimit    time.Duration
	NodeFunc     NodeFunc
	SolutionFunc SolutionFunc
	Passthrough  PassthroughOptions
}

// Solver drives a Program to a Result. The formulation and driver code depends only on this
// interface, never on a specific backend, per the swappable-solver requirement this module is
// built against.
type Solver interface {
	Solve(ctx context.Context, prog *Program, opts Options) (Result, error)
}
