package estimator

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/milp"
)

// addL1ResidualWiring adds the per-axis absolute-value slacks alpha[0..2] for scene point i and
// body b, big-M-gated by gate (expected to equal 1 exactly when scene point i is assigned to one
// of body b's faces/vertices, 0 otherwise), and returns the three slack variables so the caller can
// fold them into phi_i.
//
// residual[k] is the linear expression (in terms of R_b, T_b, and the assignment-weighted model
// point) for axis k of `R_b*s_i + T_b - modelPoint`; bigM deactivates the bound when gate == 0.
func addL1ResidualWiring(prog *milp.Program, tv *TransformVars, scenePoint r3.Vector, residual [3][]milp.Term, gateTerms []milp.Term, gateConst float64, bigM float64, label string) [3]milp.Var {
	var alpha [3]milp.Var
	for k := 0; k < 3; k++ {
		alpha[k] = prog.AddVar(milp.Continuous, 0, bigM, fmt.Sprintf("%s.alpha[%d]", label, k))

		// alpha[k] >= residual[k] - bigM*(1 - gate)  ==  alpha[k] - residual[k] - bigM*gateTerms >= bigM*(gateConst-1) (gateConst folds in any constant part of the gate expression)
		posTerms := append(append([]milp.Term{{Coeff: 1, Var: alpha[k]}}, negate(residual[k])...), scaleTerms(gateTerms, -bigM)...)
		prog.AddGeq(posTerms, bigM*(gateConst-1), fmt.Sprintf("%s.resid_pos[%d]", label, k))

		// alpha[k] >= -residual[k] - bigM*(1 - gate)
		negTerms := append(append([]milp.Term{{Coeff: 1, Var: alpha[k]}}, residual[k]...), scaleTerms(gateTerms, -bigM)...)
		prog.AddGeq(negTerms, bigM*(gateConst-1), fmt.Sprintf("%s.resid_neg[%d]", label, k))
	}
	return alpha
}

func negate(terms []milp.Term) []milp.Term {
	out := make([]milp.Term, len(terms))
	for i, t := range terms {
		out[i] = milp.Term{Coeff: -t.Coeff, Var: t.Var}
	}
	return out
}

func scaleTerms(terms []milp.Term, scale float64) []milp.Term {
	out := make([]milp.Term, len(terms))
	for i, t := range terms {
		out[i] = milp.Term{Coeff: t.Coeff * scale, Var: t.Var}
	}
	return out
}

// rotatedPointResidualTerms builds the linear terms (in R_b's 9 entries and T_b's 3 entries) for
// one axis of `R_b*point + T_b`, given point in the body's local frame.
func rotatedPointResidualTerms(tv *TransformVars, point r3.Vector, axis int) []milp.Term {
	return []milp.Term{
		{Coeff: point.X, Var: tv.R[axis*3+0]},
		{Coeff: point.Y, Var: tv.R[axis*3+1]},
		{Coeff: point.Z, Var: tv.R[axis*3+2]},
		{Coeff: 1, Var: tv.T[axis]},
	}
}

// sameFaceGate returns true if scene points si and sj are too far apart (by L2 distance)
// to plausibly share a face, per the spec's same-face spatial gate. dMax <= 0 disables the gate.
func sameFaceGate(si, sj r3.Vector, dMax float64) bool {
	if dMax <= 0 {
		return false
	}
	return si.Sub(sj).Norm() >= dMax
}

// defaultSameFaceDistance returns widestFaceEdge(geom) + 2*phiMax, or 0 (disabling the gate) when
// the mesh has no faces, per the widest-face-detection-yields-0 edge case.
func defaultSameFaceDistance(geom *modelGeometry, phiMax float64) float64 {
	widest := widestFaceEdge(geom)
	if widest <= 0 {
		return 0
	}
	return widest + 2*phiMax
}
