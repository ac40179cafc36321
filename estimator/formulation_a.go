package estimator

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/spatialmath"
)

// BuildFormulationA assembles the default world-to-body formulation: each scene point selects a
// single face (via the binary assignment f) and an affine combination of that face's three
// vertices (via the continuous C row), per §4.5 formulation A. groundTruth supplies the reference
// rotation rotation modes 1, 2, 5, and 6 need; it may be nil for modes 0, 3, 4.
func BuildFormulationA(geom *modelGeometry, scene []r3.Vector, groundTruth map[int]spatialmath.Pose, opts FormulationOptions) (*Formulation, error) {
	prog := milp.NewProgram()
	form := &Formulation{Prog: prog, Geom: geom, Scene: scene, Transform: map[int]*TransformVars{}}

	for b := 1; b <= geom.numBodies; b++ {
		tv, err := addTransformVars(prog, b, groundTruth[b], opts.RotationMode, opts.RotationOpts)
		if err != nil {
			return nil, err
		}
		form.Transform[b] = tv
	}

	ns := len(scene)
	nf := geom.numFaces()
	nv := geom.numVertices()

	form.F = make([][]milp.Var, ns)
	form.C = make([][]milp.Var, ns)
	form.FOutlier = make([]milp.Var, ns)
	form.Phi = make([]milp.Var, ns)

	dMax := opts.MaxDistToSameFace
	if dMax == 0 {
		dMax = defaultSameFaceDistance(geom, opts.PhiMax)
	}

	for i := 0; i < ns; i++ {
		form.F[i] = prog.AddVars(nf, milp.Binary, 0, 1, fmt.Sprintf("f[%d]", i))
		form.C[i] = prog.AddVars(nv, milp.Continuous, 0, 1, fmt.Sprintf("C[%d]", i))
		form.FOutlier[i] = prog.AddVar(milp.Binary, 0, 1, fmt.Sprintf("fout[%d]", i))
		form.Phi[i] = prog.AddVar(milp.Continuous, 0, opts.PhiMax, fmt.Sprintf("phi[%d]", i))

		// Σ_j f[i,j] + f_outlier[i] = 1
		rowSumF := []milp.Term{{Coeff: 1, Var: form.FOutlier[i]}}
		for _, f := range form.F[i] {
			rowSumF = append(rowSumF, milp.Term{Coeff: 1, Var: f})
		}
		prog.AddEq(rowSumF, 1, fmt.Sprintf("f_rowsum[%d]", i))

		// Σ_v C[i,v] + f_outlier[i] = 1
		rowSumC := []milp.Term{{Coeff: 1, Var: form.FOutlier[i]}}
		for _, c := range form.C[i] {
			rowSumC = append(rowSumC, milp.Term{Coeff: 1, Var: c})
		}
		prog.AddEq(rowSumC, 1, fmt.Sprintf("C_rowsum[%d]", i))

		if !opts.AllowOutliers {
			prog.AddEq([]milp.Term{{Coeff: 1, Var: form.FOutlier[i]}}, 0, fmt.Sprintf("fout_disabled[%d]", i))
		}

		// C[i,v] <= f[i, faceOf(v)]
		for v := 0; v < nv; v++ {
			faceOfV := v / 3
			prog.AddLeq([]milp.Term{{Coeff: 1, Var: form.C[i][v]}, {Coeff: -1, Var: form.F[i][faceOfV]}}, 0,
				fmt.Sprintf("C_face_gate[%d][%d]", i, v))
		}

		// Same-face spatial gate against every earlier scene point.
		for j := 0; j < i; j++ {
			if sameFaceGate(scene[i], scene[j], dMax) {
				for f := 0; f < nf; f++ {
					prog.AddLeq([]milp.Term{{Coeff: 1, Var: form.F[i][f]}, {Coeff: 1, Var: form.F[j][f]}}, 1,
						fmt.Sprintf("same_face_gate[%d][%d][%d]", i, j, f))
				}
			}
		}

		modelPointTerms := [3][]milp.Term{}
		for k := 0; k < 3; k++ {
			for v := 0; v < nv; v++ {
				modelPointTerms[k] = append(modelPointTerms[k], milp.Term{Coeff: -vecCoord(geom.vertices[v], k), Var: form.C[i][v]})
			}
		}

		var phiTerms []milp.Term
		for b := 1; b <= geom.numBodies; b++ {
			tv := form.Transform[b]
			var gate []milp.Term
			for f := 0; f < nf; f++ {
				if geom.faceBody[f] == b {
					gate = append(gate, milp.Term{Coeff: 1, Var: form.F[i][f]})
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
	}

	// C column sums capped at Nrows-10, unconditionally whenever the same-face gate is active
	// (even when ns <= 10 makes the cap degenerate and zeroing), per §4.5's edge-case policy.
	if dMax > 0 {
		for v := 0; v < nv; v++ {
			var terms []milp.Term
			for i := 0; i < ns; i++ {
				terms = append(terms, milp.Term{Coeff: 1, Var: form.C[i][v]})
			}
			prog.AddLeq(terms, float64(ns-10), fmt.Sprintf("C_colcap[%d]", v))
		}
	}

	objective := make([]milp.Term, ns)
	for i := 0; i < ns; i++ {
		objective[i] = milp.Term{Coeff: 1.0 / float64(ns), Var: form.Phi[i]}
	}
	prog.SetObjective(objective)

	return form, nil
}

// vecCoord returns axis k (0=X, 1=Y, 2=Z) of v.
func vecCoord(v r3.Vector, k int) float64 {
	switch k {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
