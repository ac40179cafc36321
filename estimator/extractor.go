package estimator

import (
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/rigidbody"
	"github.com/meshpose/estimator/spatialmath"
)

// Correspondence is one matched (scene point, model face) pair recovered from a feasible solution's
// assignment variables, per §4.8.
type Correspondence struct {
	SceneInd    int
	ScenePt     r3.Vector
	FaceInd     int
	ModelVerts  [3]r3.Vector
	VertInds    [3]int
	VertWeights [3]float64
}

// PoseEstimate is one body's fitted rigid transform plus the correspondences that produced it.
type PoseEstimate struct {
	ObjInd          int
	RFit            *spatialmath.RotationMatrix
	TFit            r3.Vector
	EstTF           spatialmath.Pose
	Correspondences []Correspondence
}

// Solution is the runtime output of one call to (*Estimator).Solve (§6).
type Solution struct {
	Objective     float64
	LowerBound    float64
	SolveTime     time.Duration
	PoseEstimates []PoseEstimate
}

const assignmentThreshold = 0.5

// extractSolution builds a Solution from the solver's final result, falling back to the incumbent
// (§7) when the solver did not itself reach a feasible point. worldToBody selects whether the
// reconstructed pose must be inverted to report a body-in-world transform.
func extractSolution(form *Formulation, model *rigidbody.Model, result milp.Result, incumbent *incumbentState, solveTime time.Duration, worldToBody bool) (Solution, error) {
	values := result.Values
	objective := result.Objective
	haveValues := result.Status == milp.StatusOptimal || result.Status == milp.StatusFeasible

	if !haveValues {
		have, incObjective, _, incValues := incumbent.snapshot()
		if !have {
			return Solution{Objective: math.Inf(1), LowerBound: result.Bound, SolveTime: solveTime}, nil
		}
		values = incValues
		objective = incObjective
	}

	_, poses, err := reconstructCoordinates(form, model, values, worldToBody)
	if err != nil {
		return Solution{}, err
	}

	estimates := make([]PoseEstimate, 0, len(form.Transform))
	for b := 1; b < model.NumBodies(); b++ {
		pose, ok := poses[b]
		if !ok {
			continue
		}
		estimates = append(estimates, PoseEstimate{
			ObjInd:          b,
			RFit:            pose.Orientation(),
			TFit:            pose.Point(),
			EstTF:           pose,
			Correspondences: extractCorrespondences(form, values, b),
		})
	}

	return Solution{
		Objective:     objective,
		LowerBound:    result.Bound,
		SolveTime:     solveTime,
		PoseEstimates: estimates,
	}, nil
}

// extractCorrespondences recovers every correspondence whose assignment variable is on (>
// assignmentThreshold) and whose face/model point belongs to body. Formulation A carries an
// explicit F (face) assignment, matching §4.8's `f > 0.5 ∧ Bm[b, face] > 0.5` definition directly.
// Formulations B and C instead assign sampled model points via C; a model point's owning body is
// already fixed by geometry (ModelBody), so the gate there is membership rather than a face lookup.
func extractCorrespondences(form *Formulation, values []float64, body int) []Correspondence {
	if form.F != nil {
		return extractFaceCorrespondences(form, values, body)
	}
	if form.CRowsAreScenePoints {
		return extractScenePointRowCorrespondences(form, values, body)
	}
	return extractModelPointRowCorrespondences(form, values, body)
}

func extractFaceCorrespondences(form *Formulation, values []float64, body int) []Correspondence {
	var out []Correspondence
	for i := range form.F {
		for f := range form.F[i] {
			if form.Geom.faceBody[f] != body || !onAt(values, form.F[i][f]) {
				continue
			}
			vertInds := form.Geom.faces[f]
			out = append(out, Correspondence{
				SceneInd:    i,
				ScenePt:     form.Scene[i],
				FaceInd:     f,
				ModelVerts:  form.Geom.faceVertices(f),
				VertInds:    vertInds,
				VertWeights: vertexWeights(form.C[i], vertInds, values),
			})
		}
	}
	return out
}

// vertexWeights reads the solved affine coefficients C[i,v] for a face's three vertices directly,
// rather than assuming a uniform split.
func vertexWeights(row []milp.Var, vertInds [3]int, values []float64) [3]float64 {
	var weights [3]float64
	for k, v := range vertInds {
		idx := row[v].Index()
		if idx < 0 || idx >= len(values) {
			continue
		}
		weights[k] = values[idx]
	}
	return weights
}

// extractScenePointRowCorrespondences handles formulation B's C (rows are scene points, columns are
// sampled model points).
func extractScenePointRowCorrespondences(form *Formulation, values []float64, body int) []Correspondence {
	var out []Correspondence
	for i := range form.C {
		for m := range form.C[i] {
			if form.ModelBody[m] != body || !onAt(values, form.C[i][m]) {
				continue
			}
			out = append(out, Correspondence{
				SceneInd:   i,
				ScenePt:    form.Scene[i],
				ModelVerts: [3]r3.Vector{form.ModelPts[m], form.ModelPts[m], form.ModelPts[m]},
			})
		}
	}
	return out
}

// extractModelPointRowCorrespondences handles formulation C's C (rows are sampled model points,
// columns are scene points).
func extractModelPointRowCorrespondences(form *Formulation, values []float64, body int) []Correspondence {
	var out []Correspondence
	for m := range form.C {
		if form.ModelBody[m] != body {
			continue
		}
		for j := range form.C[m] {
			if !onAt(values, form.C[m][j]) {
				continue
			}
			out = append(out, Correspondence{
				SceneInd:   j,
				ScenePt:    form.Scene[j],
				ModelVerts: [3]r3.Vector{form.ModelPts[m], form.ModelPts[m], form.ModelPts[m]},
			})
		}
	}
	return out
}

func onAt(values []float64, v milp.Var) bool {
	idx := v.Index()
	if idx < 0 || idx >= len(values) {
		return false
	}
	return values[idx] > assignmentThreshold
}
