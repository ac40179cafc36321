package estimator

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/meshpose/estimator/gencoord"
	"github.com/meshpose/estimator/logging"
	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/rigidbody"
	"github.com/meshpose/estimator/spatialmath"
)

// icpOptions configures the bounded damped Gauss-Newton point-to-plane loop run per seed, per §4.7.
type icpOptions struct {
	MaxIters            int
	PriorWeight         float64
	RejectionProportion float64 // <= 0 disables the per-body outlier gate
	PhiMax              float64
	// WorldToBody is true when the formulation's R/T variables are parameterized world->body
	// (formulations A/B); false for formulation C's body->world parameterization.
	WorldToBody bool
}

// icpSeed is one warm-start candidate, a full generalized-coordinate vector, pushed by the solve
// driver's callbacks and consumed by the ICP worker.
type icpSeed struct {
	q []gencoord.Input
}

// icpHeuristic is a converged ICP result packaged as a milp.Hint plus the objective it achieved, so
// the node callback can judge freshness before forwarding it to the solver.
type icpHeuristic struct {
	hint      milp.Hint
	objective float64
}

// seedStack is the LIFO queue of ICP warm starts (§5's shared state (a)).
type seedStack struct {
	mu   sync.Mutex
	data []icpSeed
}

func (s *seedStack) push(seed icpSeed) {
	s.mu.Lock()
	s.data = append(s.data, seed)
	s.mu.Unlock()
}

func (s *seedStack) pop() (icpSeed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return icpSeed{}, false
	}
	last := len(s.data) - 1
	seed := s.data[last]
	s.data = s.data[:last]
	return seed, true
}

func (s *seedStack) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data) == 0
}

// heuristicQueue is the FIFO queue of converged ICP results (§5's shared state (b)).
type heuristicQueue struct {
	mu   sync.Mutex
	data []icpHeuristic
}

func (q *heuristicQueue) push(h icpHeuristic) {
	q.mu.Lock()
	q.data = append(q.data, h)
	q.mu.Unlock()
}

func (q *heuristicQueue) pop() (icpHeuristic, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return icpHeuristic{}, false
	}
	h := q.data[0]
	q.data = q.data[1:]
	return h, true
}

// runICPWorker loops until ctx is done, popping seeds and, on convergence within 10% of the best
// heuristic objective observed so far, pushing a warm-start hint onto heuristics. It sleeps 1ms
// between empty polls of the seed stack, per §4.7/§5's idle-poll rule. ctx cancellation (driven by
// utils.StoppableWorkers.Stop()) is this module's atomic "done" flag: §9 asks for an owned flag
// rather than a global mutable boolean, and context cancellation is the idiomatic Go way to own and
// signal that per-call lifecycle without a bespoke atomic type.
func runICPWorker(ctx context.Context, form *Formulation, model *rigidbody.Model, opts icpOptions, seeds *seedStack, heuristics *heuristicQueue, logger logging.Logger) {
	bestObjective := math.Inf(1)
	for ctx.Err() == nil {
		seed, ok := seeds.pop()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		q, objective, ok := icpRefine(model, form.Geom, form.Scene, seed.q, opts)
		if !ok {
			continue
		}
		if math.IsInf(bestObjective, 1) || objective <= bestObjective*1.1 {
			if objective < bestObjective {
				bestObjective = objective
			}
			hint, err := packHeuristic(form, model, q, opts.WorldToBody)
			if err != nil {
				logger.Debugw("icp worker could not pack heuristic", "error", err)
				continue
			}
			heuristics.push(icpHeuristic{hint: hint, objective: objective})
		}
	}
}

// packHeuristic reconstructs every body's world pose from q and converts it to the direction the
// formulation's R/T variables are parameterized in, producing a milp.Hint spanning every body's
// transform variables.
func packHeuristic(form *Formulation, model *rigidbody.Model, q []gencoord.Input, worldToBody bool) (milp.Hint, error) {
	var hint milp.Hint
	for b := 1; b < model.NumBodies(); b++ {
		pose, err := model.Transform(b, q)
		if err != nil {
			return milp.Hint{}, err
		}
		if worldToBody {
			pose = spatialmath.PoseInverse(pose)
		}
		tv, ok := form.Transform[b]
		if !ok {
			continue
		}
		data := pose.Orientation().Data()
		for e := 0; e < 9; e++ {
			hint.Vars = append(hint.Vars, tv.R[e])
			hint.Values = append(hint.Values, data[e])
		}
		point := pose.Point()
		hint.Vars = append(hint.Vars, tv.T[0], tv.T[1], tv.T[2])
		hint.Values = append(hint.Values, point.X, point.Y, point.Z)
	}
	return hint, nil
}

// worldFaces transforms every geometry-kernel face into the world frame under poses (indexed
// 0..B-1, body b at poses[b-1]), ready for spatialmath.ExactCollisionDetect.
func worldFaces(geom *modelGeometry, poses []spatialmath.Pose) []spatialmath.WorldFace {
	faces := make([]spatialmath.WorldFace, geom.numFaces())
	for f := range faces {
		body := geom.faceBody[f]
		pose := poses[body-1]
		faces[f] = spatialmath.WorldFace{Triangle: geom.triangleAt(f).Transform(pose), Pose: pose, BodyIdx: body}
	}
	return faces
}

// icpRefine runs up to opts.MaxIters damped Gauss-Newton point-to-plane iterations starting from
// q0, returning the refined coordinates and the exact-collision objective (§4.7's Σ min(phiMax,
// L1 distance)) at convergence. ok is false only if the model itself rejects q0/q.
func icpRefine(model *rigidbody.Model, geom *modelGeometry, scene []r3.Vector, q0 []gencoord.Input, opts icpOptions) ([]gencoord.Input, float64, bool) {
	q := append([]gencoord.Input(nil), q0...)
	maxIters := opts.MaxIters
	if maxIters <= 0 {
		maxIters = 1
	}
	n := model.NumBodies()*rigidbody.DOF - rigidbody.DOF

	prevError := math.Inf(1)
	stallCount := 0

	for iter := 0; iter < maxIters; iter++ {
		poses, err := model.TransformAll(q)
		if err != nil {
			return nil, 0, false
		}
		faces := worldFaces(geom, poses)
		assignments := spatialmath.ExactCollisionDetect(scene, faces)

		totalError := 0.0
		for _, a := range assignments {
			totalError += a.Phi
		}
		if totalError == 0 {
			break
		}
		if prevError-totalError < 1e-4 {
			stallCount++
			if stallCount >= 10 {
				break
			}
		} else {
			stallCount = 0
		}
		prevError = totalError

		kept := rejectOutliers(assignments, opts.RejectionProportion)
		numKept := countTrue(kept)
		if numKept == 0 {
			break
		}

		Q := mat.NewDense(n, n, nil)
		f := mat.NewVecDense(n, nil)
		weight := 2.0 / float64(numKept)

		for i, keep := range kept {
			if !keep || assignments[i].BodyIdx == 0 {
				continue
			}
			a := assignments[i]
			jac, err := model.PointJacobian(a.BodyIdx, q, a.BodyX)
			if err != nil {
				continue
			}
			normal := mat.NewVecDense(3, []float64{a.Normal.X, a.Normal.Y, a.Normal.Z})
			resid := scene[i].Sub(a.X)
			k := normal.AtVec(0)*resid.X + normal.AtVec(1)*resid.Y + normal.AtVec(2)*resid.Z

			// jac (and so jn) is body-local, w.r.t. only body a.BodyIdx's own 6 coordinates
			// (rigidbody.Model.PointJacobian's contract); it must land in that body's own
			// [start, start+DOF) block of the global system, not [0, DOF).
			var jn mat.VecDense
			jn.MulVec(jac.T(), normal)
			start := (a.BodyIdx - 1) * rigidbody.DOF

			for r := 0; r < rigidbody.DOF; r++ {
				for c := 0; c < rigidbody.DOF; c++ {
					Q.Set(start+r, start+c, Q.At(start+r, start+c)+weight*jn.AtVec(r)*jn.AtVec(c))
				}
				f.SetVec(start+r, f.AtVec(start+r)-weight*k*jn.AtVec(r))
			}
		}

		if opts.PriorWeight > 0 {
			qFloats := gencoord.InputsToFloats(q)
			for r := 0; r < n; r++ {
				Q.Set(r, r, Q.At(r, r)+opts.PriorWeight)
				f.SetVec(r, f.AtVec(r)-opts.PriorWeight*qFloats[r])
			}
		}

		delta, ok := solveReduced(Q, f)
		if !ok {
			break
		}
		bad := false
		for r := 0; r < n; r++ {
			if math.IsNaN(delta.AtVec(r)) || math.IsInf(delta.AtVec(r), 0) {
				bad = true
				break
			}
		}
		if bad {
			break
		}
		for r := 0; r < n; r++ {
			q[r].Value += delta.AtVec(r)
		}
	}

	poses, err := model.TransformAll(q)
	if err != nil {
		return q, prevError, false
	}
	faces := worldFaces(geom, poses)
	assignments := spatialmath.ExactCollisionDetect(scene, faces)
	objective := 0.0
	for _, a := range assignments {
		d := a.Phi
		if d > opts.PhiMax {
			d = opts.PhiMax
		}
		objective += d
	}
	return q, objective, true
}

// rejectOutliers discards, per hosting body, any scene point whose L1 distance to its assigned
// face exceeds prop times that body's mean assigned distance. prop <= 0 disables the gate.
func rejectOutliers(assignments []spatialmath.CollisionResult, prop float64) []bool {
	keep := make([]bool, len(assignments))
	for i := range keep {
		keep[i] = true
	}
	if prop <= 0 {
		return keep
	}

	sums := map[int]float64{}
	counts := map[int]int{}
	for _, a := range assignments {
		sums[a.BodyIdx] += a.Phi
		counts[a.BodyIdx]++
	}
	means := map[int]float64{}
	for b, s := range sums {
		if counts[b] > 0 {
			means[b] = s / float64(counts[b])
		}
	}
	for i, a := range assignments {
		if a.Phi > prop*means[a.BodyIdx] {
			keep[i] = false
		}
	}
	return keep
}

func countTrue(vals []bool) int {
	n := 0
	for _, v := range vals {
		if v {
			n++
		}
	}
	return n
}

// solveReduced drops numerically-zero rows/columns of Q (and the matching entries of f), solves
// the reduced system via column-pivoted QR, and reinjects the solution into a full-length vector
// with zeros at the dropped indices. ok is false if the QR solve itself fails.
func solveReduced(Q *mat.Dense, f *mat.VecDense) (*mat.VecDense, bool) {
	n, _ := Q.Dims()
	var keepIdx []int
	for i := 0; i < n; i++ {
		rowZero := true
		for j := 0; j < n; j++ {
			if Q.At(i, j) != 0 {
				rowZero = false
				break
			}
		}
		if !rowZero || f.AtVec(i) != 0 {
			keepIdx = append(keepIdx, i)
		}
	}
	if len(keepIdx) == 0 {
		return mat.NewVecDense(n, nil), true
	}

	m := len(keepIdx)
	qr := mat.NewDense(m, m, nil)
	fr := mat.NewVecDense(m, nil)
	for r, ri := range keepIdx {
		fr.SetVec(r, f.AtVec(ri))
		for c, ci := range keepIdx {
			qr.Set(r, c, Q.At(ri, ci))
		}
	}

	var decomp mat.QR
	decomp.Factorize(qr)
	var xr mat.VecDense
	if err := decomp.SolveVecTo(&xr, false, fr); err != nil {
		return nil, false
	}

	full := mat.NewVecDense(n, nil)
	for r, ri := range keepIdx {
		full.SetVec(ri, xr.AtVec(r))
	}
	return full, true
}
