package estimator

import (
	"fmt"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/spatialmath"
)

// BuildFormulationC assembles the body-to-world formulation: every sampled model point is assigned
// to exactly one scene point (the inverse correspondence direction of A/B), per §4.5 formulation C.
// The spec's cost is the squared residual on the transformed model points; milp.Program exposes
// only a linear objective, so (as recorded in the design ledger) this is linearized with the same
// big-M L1 residual wiring formulations A and B use rather than adding a quadratic-objective path
// to the solver abstraction for a single caller. Each sampled model point's hosting body is fixed by
// geometry, so unlike A/B the gate here is a constant, not a summed assignment variable.
func BuildFormulationC(geom *modelGeometry, scene []r3.Vector, groundTruth map[int]spatialmath.Pose, numSamples int, rng *rand.Rand, opts FormulationOptions) (*Formulation, error) {
	prog := milp.NewProgram()
	form := &Formulation{Prog: prog, Geom: geom, Scene: scene, Transform: map[int]*TransformVars{}}

	for b := 1; b <= geom.numBodies; b++ {
		tv, err := addTransformVars(prog, b, groundTruth[b], opts.RotationMode, opts.RotationOpts)
		if err != nil {
			return nil, err
		}
		form.Transform[b] = tv
	}

	faces := make([]spatialmath.WorldFace, geom.numFaces())
	for f := range faces {
		faces[f] = spatialmath.WorldFace{Triangle: geom.triangleAt(f), Pose: nil, BodyIdx: geom.faceBody[f]}
	}
	modelPts, oneHot := spatialmath.SurfaceAreaWeightedSample(faces, geom.numBodies, numSamples, rng)
	bodyOf := make([]int, numSamples)
	for m := 0; m < numSamples; m++ {
		for b := 0; b < geom.numBodies; b++ {
			if oneHot[b][m] != 0 {
				bodyOf[m] = b + 1
			}
		}
	}

	ns := len(scene)
	nm := numSamples

	form.ModelPts = modelPts
	form.ModelBody = bodyOf
	form.CRowsAreScenePoints = false
	// C is Nm x Ns here: row i is model point i's assignment over scene points.
	form.C = make([][]milp.Var, nm)
	form.FOutlier = make([]milp.Var, nm)
	form.Phi = make([]milp.Var, nm)

	for i := 0; i < nm; i++ {
		form.C[i] = prog.AddVars(ns, milp.Binary, 0, 1, fmt.Sprintf("C[%d]", i))
		form.FOutlier[i] = prog.AddVar(milp.Binary, 0, 1, fmt.Sprintf("fout[%d]", i))
		form.Phi[i] = prog.AddVar(milp.Continuous, 0, opts.PhiMax, fmt.Sprintf("phi[%d]", i))

		// Σ_j C[i,j] (+ f_outlier[i] when outliers are allowed) = 1: every model point is assigned.
		rowSum := []milp.Term{{Coeff: 1, Var: form.FOutlier[i]}}
		for _, c := range form.C[i] {
			rowSum = append(rowSum, milp.Term{Coeff: 1, Var: c})
		}
		prog.AddEq(rowSum, 1, fmt.Sprintf("C_rowsum[%d]", i))

		if !opts.AllowOutliers {
			prog.AddEq([]milp.Term{{Coeff: 1, Var: form.FOutlier[i]}}, 0, fmt.Sprintf("fout_disabled[%d]", i))
		}

		b := bodyOf[i]
		tv := form.Transform[b]

		scenePointTerms := [3][]milp.Term{}
		for k := 0; k < 3; k++ {
			for j := 0; j < ns; j++ {
				scenePointTerms[k] = append(scenePointTerms[k], milp.Term{Coeff: -vecCoord(scene[j], k), Var: form.C[i][j]})
			}
		}

		var residual [3][]milp.Term
		for k := 0; k < 3; k++ {
			residual[k] = append(rotatedPointResidualTerms(tv, modelPts[i], k), scenePointTerms[k]...)
		}
		label := fmt.Sprintf("resid[%d]", i)
		alpha := addL1ResidualWiring(prog, tv, modelPts[i], residual, nil, 1, opts.BigM, label)

		phiTerms := []milp.Term{
			{Coeff: 1, Var: alpha[0]}, {Coeff: 1, Var: alpha[1]}, {Coeff: 1, Var: alpha[2]},
			{Coeff: opts.PhiMax, Var: form.FOutlier[i]},
			{Coeff: -1, Var: form.Phi[i]},
		}
		prog.AddEq(phiTerms, 0, fmt.Sprintf("phi_def[%d]", i))
	}

	objective := make([]milp.Term, nm)
	for i := 0; i < nm; i++ {
		objective[i] = milp.Term{Coeff: 1.0 / float64(nm), Var: form.Phi[i]}
	}
	prog.SetObjective(objective)

	return form, nil
}
