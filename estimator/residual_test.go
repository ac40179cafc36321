package estimator

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/meshpose/estimator/milp"
)

func TestRotatedPointResidualTerms(t *testing.T) {
	prog := milp.NewProgram()
	tv, err := addTransformVars(prog, 1, nil, RotationUnconstrained, RotationModeOptions{BigM: 10})
	test.That(t, err, test.ShouldBeNil)

	point := r3.Vector{X: 1, Y: 2, Z: 3}
	terms := rotatedPointResidualTerms(tv, point, 0)
	test.That(t, len(terms), test.ShouldEqual, 4)
	test.That(t, terms[0].Coeff, test.ShouldEqual, 1.0)
	test.That(t, terms[0].Var, test.ShouldEqual, tv.R[0])
	test.That(t, terms[3].Var, test.ShouldEqual, tv.T[0])
	test.That(t, terms[3].Coeff, test.ShouldEqual, 1.0)
}

func TestSameFaceGateDisabledBySentinel(t *testing.T) {
	a := r3.Vector{X: 0, Y: 0, Z: 0}
	b := r3.Vector{X: 100, Y: 100, Z: 100}
	test.That(t, sameFaceGate(a, b, 0), test.ShouldBeFalse)
	test.That(t, sameFaceGate(a, b, -1), test.ShouldBeFalse)
}

func TestSameFaceGateDistanceThreshold(t *testing.T) {
	a := r3.Vector{X: 0, Y: 0, Z: 0}
	near := r3.Vector{X: 0.1, Y: 0, Z: 0}
	far := r3.Vector{X: 10, Y: 0, Z: 0}
	test.That(t, sameFaceGate(a, near, 1.0), test.ShouldBeFalse)
	test.That(t, sameFaceGate(a, far, 1.0), test.ShouldBeTrue)
}

func TestDefaultSameFaceDistanceNoFaces(t *testing.T) {
	geom := &modelGeometry{}
	test.That(t, defaultSameFaceDistance(geom, 5), test.ShouldEqual, 0.0)
}

func TestDefaultSameFaceDistanceWithFaces(t *testing.T) {
	geom := &modelGeometry{
		vertices: []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 0, Y: 4, Z: 0}},
		faces:    [][3]int{{0, 1, 2}},
		faceBody: []int{1},
	}
	test.That(t, defaultSameFaceDistance(geom, 0.5), test.ShouldAlmostEqual, 6.0, 1e-9)
}

func TestNegateAndScaleTerms(t *testing.T) {
	prog := milp.NewProgram()
	v := prog.AddVar(milp.Continuous, -1, 1, "v")
	terms := []milp.Term{{Coeff: 2, Var: v}}

	neg := negate(terms)
	test.That(t, neg[0].Coeff, test.ShouldEqual, -2.0)
	test.That(t, neg[0].Var, test.ShouldEqual, v)

	scaled := scaleTerms(terms, 3)
	test.That(t, scaled[0].Coeff, test.ShouldEqual, 6.0)
}

func TestAddL1ResidualWiringAllocatesThreeSlacks(t *testing.T) {
	prog := milp.NewProgram()
	tv, err := addTransformVars(prog, 1, nil, RotationUnconstrained, RotationModeOptions{BigM: 10})
	test.That(t, err, test.ShouldBeNil)

	point := r3.Vector{X: 1, Y: 0, Z: 0}
	var residual [3][]milp.Term
	for k := 0; k < 3; k++ {
		residual[k] = rotatedPointResidualTerms(tv, point, k)
	}
	alpha := addL1ResidualWiring(prog, tv, point, residual, nil, 1, 10, "test")
	test.That(t, alpha[0].Index(), test.ShouldNotEqual, alpha[1].Index())
	lo, hi := prog.Bounds(alpha[0])
	test.That(t, lo, test.ShouldEqual, 0.0)
	test.That(t, hi, test.ShouldEqual, 10.0)
}
