package estimator

import (
	"fmt"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/spatialmath"
)

// BuildFormulationB assembles the sampled-model-point variant of the world-to-body formulation:
// the model is represented by numSamples points drawn surface-area-weighted from its mesh (§4.1's
// sampler) instead of by face/vertex correspondence, per §4.5 formulation B. Each scene point picks
// one sampled model point (or the outlier slot) directly, and an optional histogram-of-distances
// term rewards scene/model points whose local neighborhood distance profile matches.
func BuildFormulationB(geom *modelGeometry, scene []r3.Vector, groundTruth map[int]spatialmath.Pose, numSamples int, rng *rand.Rand, opts FormulationOptions) (*Formulation, error) {
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

	var sceneHist, modelHist [][]float64
	useHOD := opts.HODWeight > 0 && opts.HODBins > 0 && opts.HODDist > 0
	if useHOD {
		var err error
		sceneHist, err = histogramsOfDistances(scene, opts.HODBins, opts.HODDist)
		if err != nil {
			return nil, err
		}
		modelHist, err = histogramsOfDistances(modelPts, opts.HODBins, opts.HODDist)
		if err != nil {
			return nil, err
		}
	}

	form.ModelPts = modelPts
	form.ModelBody = bodyOf
	form.CRowsAreScenePoints = true
	form.C = make([][]milp.Var, ns)
	form.FOutlier = make([]milp.Var, ns)
	form.Phi = make([]milp.Var, ns)

	var hodObjective []milp.Term

	for i := 0; i < ns; i++ {
		form.C[i] = prog.AddVars(nm, milp.Binary, 0, 1, fmt.Sprintf("C[%d]", i))
		form.FOutlier[i] = prog.AddVar(milp.Binary, 0, 1, fmt.Sprintf("fout[%d]", i))
		form.Phi[i] = prog.AddVar(milp.Continuous, 0, opts.PhiMax, fmt.Sprintf("phi[%d]", i))

		// Σ_m C[i,m] + f_outlier[i] = 1
		rowSum := []milp.Term{{Coeff: 1, Var: form.FOutlier[i]}}
		for _, c := range form.C[i] {
			rowSum = append(rowSum, milp.Term{Coeff: 1, Var: c})
		}
		prog.AddEq(rowSum, 1, fmt.Sprintf("C_rowsum[%d]", i))

		if !opts.AllowOutliers {
			prog.AddEq([]milp.Term{{Coeff: 1, Var: form.FOutlier[i]}}, 0, fmt.Sprintf("fout_disabled[%d]", i))
		}

		modelPointTerms := [3][]milp.Term{}
		for k := 0; k < 3; k++ {
			for m := 0; m < nm; m++ {
				modelPointTerms[k] = append(modelPointTerms[k], milp.Term{Coeff: -vecCoord(modelPts[m], k), Var: form.C[i][m]})
			}
		}

		var phiTerms []milp.Term
		for b := 1; b <= geom.numBodies; b++ {
			tv := form.Transform[b]
			var gate []milp.Term
			for m := 0; m < nm; m++ {
				if bodyOf[m] == b {
					gate = append(gate, milp.Term{Coeff: 1, Var: form.C[i][m]})
				}
			}
			var residual [3][]milp.Term
			for k := 0; k < 3; k++ {
				residual[k] = append(rotatedPointResidualTerms(tv, scene[i], k), modelPointTerms[k]...)
			}
			label := fmt.Sprintf("resid[%d][%d]", i, b)
			alpha := addL1ResidualWiring(prog, tv, scene[i], residual, gate, 0, opts.BigM, label)
			for k := 0; k < 3; k++ {
				phiTerms = append(phiTerms, milp.Term{Coeff: 1, Var: alpha[k]})
			}
		}
		phiTerms = append(phiTerms, milp.Term{Coeff: opts.PhiMax, Var: form.FOutlier[i]}, milp.Term{Coeff: -1, Var: form.Phi[i]})
		prog.AddEq(phiTerms, 0, fmt.Sprintf("phi_def[%d]", i))

		if useHOD {
			for m := 0; m < nm; m++ {
				cost := opts.HODWeight * histogramL1(sceneHist[i], modelHist[m])
				if cost == 0 {
					continue
				}
				hodObjective = append(hodObjective, milp.Term{Coeff: cost / float64(ns), Var: form.C[i][m]})
			}
		}
	}

	objective := make([]milp.Term, 0, ns+len(hodObjective))
	for i := 0; i < ns; i++ {
		objective = append(objective, milp.Term{Coeff: 1.0 / float64(ns), Var: form.Phi[i]})
	}
	objective = append(objective, hodObjective...)
	prog.SetObjective(objective)

	return form, nil
}
