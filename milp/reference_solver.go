package milp

import (
	"context"
	"math"
	"sort"
	"time"
)

// ReferenceSolver is a pure-Go depth-first branch-and-bound solver. Each relaxed node is solved by
// projected gradient descent on the objective plus a quadratic penalty for constraint violation,
// since no external LP/MILP routine is available to this module (see DESIGN.md). It exists to keep
// the formulation/driver code exercisable without a commercial solver license; PassthroughOptions
// are accepted but ignored.
type ReferenceSolver struct {
	// PenaltyWeight scales the constraint-violation penalty added to the relaxed objective.
	PenaltyWeight float64
	// GradientSteps bounds the number of projected-gradient iterations per relaxed node.
	GradientSteps int
	// MaxNodes bounds the total number of branch-and-bound nodes explored.
	MaxNodes int
}

// NewReferenceSolver returns a ReferenceSolver with workable defaults.
func NewReferenceSolver() *ReferenceSolver {
	return &ReferenceSolver{PenaltyWeight: 1e3, GradientSteps: 200, MaxNodes: 2000}
}

type bnbState struct {
	prog     *Program
	opts     Options
	deadline time.Time
	exploredNodes int
	feasible int
	best     Result
	haveBest bool
}

// Solve implements Solver.
func (rs *ReferenceSolver) Solve(ctx context.Context, prog *Program, opts Options) (Result, error) {
	if err := prog.Validate(); err != nil {
		return Result{}, err
	}

	state := &bnbState{prog: prog, opts: opts}
	if opts.TimeLimit > 0 {
		state.deadline = time.Now().Add(opts.TimeLimit)
	}

	fixed := make(map[int]float64)
	rs.branch(ctx, state, fixed)

	if !state.haveBest {
		return Result{Status: StatusInfeasible, Objective: math.Inf(1), ExploredNodes: state.exploredNodes}, nil
	}
	state.best.Status = StatusFeasible
	state.best.ExploredNodes = state.exploredNodes
	state.best.FeasibleSolutions = state.feasible
	return state.best, nil
}

func (rs *ReferenceSolver) branch(ctx context.Context, state *bnbState, fixed map[int]float64) {
	if ctx.Err() != nil {
		return
	}
	if state.exploredNodes >= rs.MaxNodes {
		return
	}
	if !state.deadline.IsZero() && time.Now().After(state.deadline) {
		return
	}
	state.exploredNodes++

	values := rs.relax(state.prog, fixed)
	bound := evalObjective(state.prog, values)

	if state.haveBest && bound >= state.best.Objective-1e-9 {
		// This relaxation cannot beat the incumbent; prune.
		return
	}

	if state.opts.NodeFunc != nil {
		hint := state.opts.NodeFunc(ctx, state.prog, NodeInfo{Values: values, Bound: bound, ExploredNodes: state.exploredNodes})
		if hint != nil {
			for i, v := range hint.Vars {
				if i < len(hint.Values) {
					fixed[v.Index()] = hint.Values[i]
				}
			}
		}
	}

	branchVar, frac := mostFractionalBinary(state.prog, values, fixed)
	if branchVar < 0 {
		// Every binary variable is integral (or fixed); this node is a feasible leaf.
		viol := constraintViolation(state.prog, values)
		if viol > 1e-4 {
			return
		}
		state.feasible++
		obj := evalObjective(state.prog, values)
		if !state.haveBest || obj < state.best.Objective {
			state.haveBest = true
			state.best = Result{Status: StatusFeasible, Values: append([]float64(nil), values...), Objective: obj, Bound: obj}
		}
		if state.opts.SolutionFunc != nil {
			state.opts.SolutionFunc(ctx, state.prog, SolutionInfo{
				Values: values, Objective: obj, ExploredNodes: state.exploredNodes, FeasibleSolutions: state.feasible,
			})
		}
		return
	}
	_ = frac

	// Branch on the most-fractional binary: try the rounding that matches the relaxed value first, a
	// cheap but effective ordering heuristic.
	first, second := 1.0, 0.0
	if values[branchVar] < 0.5 {
		first, second = 0.0, 1.0
	}

	fixed[branchVar] = first
	rs.branch(ctx, state, fixed)
	fixed[branchVar] = second
	rs.branch(ctx, state, fixed)
	delete(fixed, branchVar)
}

// relax solves the continuous relaxation of prog with the variables in fixed clamped, via projected
// gradient descent on objective + penalty*violation^2.
func (rs *ReferenceSolver) relax(prog *Program, fixed map[int]float64) []float64 {
	n := prog.NumVars()
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		lo, hi := prog.Bounds(Var{index: i})
		if v, ok := fixed[i]; ok {
			x[i] = v
			continue
		}
		x[i] = clamp((lo+hi)/2, lo, hi)
	}

	const lr = 0.05
	for step := 0; step < rs.GradientSteps; step++ {
		grad := gradient(prog, x, rs.PenaltyWeight)
		for i := 0; i < n; i++ {
			if _, ok := fixed[i]; ok {
				continue
			}
			lo, hi := prog.Bounds(Var{index: i})
			x[i] = clamp(x[i]-lr*grad[i], lo, hi)
		}
	}
	return x
}

func gradient(prog *Program, x []float64, penalty float64) []float64 {
	n := len(x)
	grad := make([]float64, n)
	for _, t := range prog.objective {
		grad[t.Var.index] += t.Coeff
	}
	for _, c := range prog.constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coeff * x[t.Var.index]
		}
		viol := signedViolation(c, lhs)
		if viol == 0 {
			continue
		}
		for _, t := range c.Terms {
			grad[t.Var.index] += 2 * penalty * viol * t.Coeff
		}
	}
	return grad
}

func constraintViolation(prog *Program, x []float64) float64 {
	total := 0.0
	for _, c := range prog.constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coeff * x[t.Var.index]
		}
		v := signedViolation(c, lhs)
		total += math.Abs(v)
	}
	return total
}

// signedViolation returns how far lhs is on the infeasible side of the constraint; 0 if satisfied.
func signedViolation(c Constraint, lhs float64) float64 {
	switch c.Sense {
	case LessEq:
		if lhs > c.RHS {
			return lhs - c.RHS
		}
	case GreaterEq:
		if lhs < c.RHS {
			return lhs - c.RHS
		}
	case Equal:
		return lhs - c.RHS
	}
	return 0
}

func evalObjective(prog *Program, x []float64) float64 {
	total := 0.0
	for _, t := range prog.objective {
		total += t.Coeff * x[t.Var.index]
	}
	return total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mostFractionalBinary returns the index of the unfixed binary variable closest to 0.5, or -1 if
// none remain (everything is integral within tolerance or fixed).
func mostFractionalBinary(prog *Program, values []float64, fixed map[int]float64) (int, float64) {
	best := -1
	bestFrac := 0.0
	for i := 0; i < prog.NumVars(); i++ {
		if prog.Kind(Var{index: i}) != Binary {
			continue
		}
		if _, ok := fixed[i]; ok {
			continue
		}
		frac := math.Abs(values[i] - math.Round(values[i]))
		if frac < 1e-4 {
			continue
		}
		if frac > bestFrac {
			bestFrac = frac
			best = i
		}
	}
	return best, bestFrac
}

// sortedKeys returns m's keys in ascending order.
func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
