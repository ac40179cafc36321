package estimator

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/meshpose/estimator/gencoord"
	"github.com/meshpose/estimator/logging"
	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/rigidbody"
	"github.com/meshpose/estimator/spatialmath"
	"github.com/meshpose/estimator/utils"
)

// historyEntry is one append-only solve-history record (§3's "Solve-history entry").
type historyEntry struct {
	WallTime          time.Duration
	SolverTime        time.Duration
	BestObjective     float64
	BestBound         float64
	ExploredNodes     int
	FeasibleSolutions int
}

// driverOptions configures one call to runSolve.
type driverOptions struct {
	SolverOptions      milp.Options
	UseICPHeuristic    bool
	WorldToBody        bool
	MagnitudeThreshold float64
	ICP                icpOptions
}

// incumbentState is the solve driver's exclusively-owned best-feasible-solution record (§3, §5's
// shared state (c)): written only from the solution callback, safe to read after the solve returns.
type incumbentState struct {
	mu        sync.Mutex
	have      bool
	objective float64
	q         []gencoord.Input
	values    []float64
}

func (s *incumbentState) considerUpdate(objective float64, q []gencoord.Input, values []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.have && objective >= s.objective {
		return false
	}
	s.have = true
	s.objective = objective
	s.q = q
	s.values = append([]float64(nil), values...)
	return true
}

func (s *incumbentState) snapshot() (bool, float64, []gencoord.Input, []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.have, s.objective, s.q, s.values
}

// runSolve drives form.Prog to completion via solver, registering the node and solution callbacks
// §4.6 describes, running an ICP worker alongside for the duration, and returning the raw solver
// result plus the append-only history sequence.
func runSolve(ctx context.Context, form *Formulation, model *rigidbody.Model, solver milp.Solver, opts driverOptions, viz VizPublisher, logger logging.Logger) (milp.Result, []historyEntry, *incumbentState, error) {
	if viz == nil {
		viz = NoopVizPublisher{}
	}

	seeds := &seedStack{}
	heuristics := &heuristicQueue{}
	incumbent := &incumbentState{}

	var history []historyEntry
	var historyMu sync.Mutex

	start := time.Now()
	var lastNodeViz, lastNodeHistory time.Time

	workers := utils.NewStoppableWorkers(func(workerCtx context.Context) {
		runICPWorker(workerCtx, form, model, opts.ICP, seeds, heuristics, logger)
	})
	defer workers.Stop()

	nodeFunc := milp.NodeFunc(func(_ context.Context, _ *milp.Program, info milp.NodeInfo) *milp.Hint {
		q, poses, err := reconstructCoordinates(form, model, info.Values, opts.WorldToBody)
		if err == nil && coordinatesAreSane(q, opts.MagnitudeThreshold) {
			if time.Since(lastNodeViz) >= 100*time.Millisecond {
				viz.Publish(VizUpdate{Kind: "node", Poses: poses})
				lastNodeViz = time.Now()
			}
			if opts.UseICPHeuristic && seeds.empty() {
				seeds.push(icpSeed{q: q})
			}
		}

		var hint *milp.Hint
		if h, ok := heuristics.pop(); ok {
			hint = &h.hint
		}

		if time.Since(lastNodeHistory) >= 100*time.Millisecond {
			historyMu.Lock()
			history = append(history, historyEntry{
				WallTime:      time.Since(start),
				BestBound:     info.Bound,
				ExploredNodes: info.ExploredNodes,
			})
			historyMu.Unlock()
			lastNodeHistory = time.Now()
		}
		return hint
	})

	solutionFunc := milp.SolutionFunc(func(_ context.Context, _ *milp.Program, info milp.SolutionInfo) {
		q, poses, err := reconstructCoordinates(form, model, info.Values, opts.WorldToBody)
		improved := err == nil && incumbent.considerUpdate(info.Objective, q, info.Values)

		if improved {
			errorCloud := buildErrorCloud(form, poses)
			viz.Publish(VizUpdate{Kind: "incumbent", Poses: poses, ErrorCloud: errorCloud, Objective: info.Objective})
		}
		if opts.UseICPHeuristic && err == nil {
			seeds.push(icpSeed{q: q})
		}

		historyMu.Lock()
		history = append(history, historyEntry{
			WallTime:          time.Since(start),
			BestObjective:     info.Objective,
			ExploredNodes:     info.ExploredNodes,
			FeasibleSolutions: info.FeasibleSolutions,
		})
		historyMu.Unlock()
	})

	solveOpts := opts.SolverOptions
	solveOpts.NodeFunc = nodeFunc
	solveOpts.SolutionFunc = solutionFunc

	result, err := solver.Solve(ctx, form.Prog, solveOpts)
	return result, history, incumbent, err
}

// coordinatesAreSane reports whether every value in q is finite and within magnitudeThreshold.
func coordinatesAreSane(q []gencoord.Input, magnitudeThreshold float64) bool {
	if magnitudeThreshold <= 0 {
		magnitudeThreshold = math.Inf(1)
	}
	for _, v := range q {
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) || math.Abs(v.Value) > magnitudeThreshold {
			return false
		}
	}
	return true
}

// buildErrorCloud computes, for every scene point, its L1 distance to the closest face under poses,
// clamped for coloring by ErrorColoredPoint.Color.
func buildErrorCloud(form *Formulation, poses map[int]spatialmath.Pose) []ErrorColoredPoint {
	poseSlice := make([]spatialmath.Pose, form.Geom.numBodies)
	for b, p := range poses {
		if b-1 >= 0 && b-1 < len(poseSlice) {
			poseSlice[b-1] = p
		}
	}
	faces := worldFaces(form.Geom, poseSlice)
	assignments := spatialmath.ExactCollisionDetect(form.Scene, faces)
	cloud := make([]ErrorColoredPoint, len(form.Scene))
	for i, a := range assignments {
		cloud[i] = ErrorColoredPoint{Point: form.Scene[i], Distance: a.Phi}
	}
	return cloud
}
