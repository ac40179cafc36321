package estimator

import (
	"testing"

	"go.viam.com/test"

	"github.com/golang/geo/r3"
	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/spatialmath"
)

func TestAddTransformVarsUnconstrained(t *testing.T) {
	prog := milp.NewProgram()
	tv, err := addTransformVars(prog, 1, nil, RotationUnconstrained, RotationModeOptions{BigM: 10})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tv.Body, test.ShouldEqual, 1)
	lo, hi := prog.Bounds(tv.R[0])
	test.That(t, lo, test.ShouldEqual, -1.0)
	test.That(t, hi, test.ShouldEqual, 1.0)
	tlo, thi := prog.Bounds(tv.T[0])
	test.That(t, tlo, test.ShouldEqual, -10.0)
	test.That(t, thi, test.ShouldEqual, 10.0)
	// Only the 9 R and 3 T entries, no extra variables, for the unconstrained mode.
	test.That(t, prog.NumVars(), test.ShouldEqual, 12)
}

func TestAddTransformVarsRequiresGroundTruth(t *testing.T) {
	prog := milp.NewProgram()
	_, err := addTransformVars(prog, 1, nil, RotationL1BallAroundGroundTruth, RotationModeOptions{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = addTransformVars(prog, 1, nil, RotationMcCormickQuaternion, RotationModeOptions{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = addTransformVars(prog, 1, nil, RotationLogMcCormick2D, RotationModeOptions{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = addTransformVars(prog, 1, nil, RotationFallbackGroundTruth, RotationModeOptions{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAddTransformVarsUnrecognizedMode(t *testing.T) {
	prog := milp.NewProgram()
	_, err := addTransformVars(prog, 1, nil, RotationMode(99), RotationModeOptions{})
	test.That(t, err, test.ShouldNotBeNil)
}

func identityPose() spatialmath.Pose {
	return spatialmath.NewPose(r3.Vector{}, spatialmath.Identity())
}

func TestAddTransformVarsFallbackGroundTruth(t *testing.T) {
	prog := milp.NewProgram()
	ref := identityPose()
	tv, err := addTransformVars(prog, 1, ref, RotationFallbackGroundTruth, RotationModeOptions{BigM: 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tv.Mode, test.ShouldEqual, RotationFallbackGroundTruth)
	// No new variables are allocated beyond the 9 R and 3 T entries; the mode only pins equalities.
	test.That(t, prog.NumVars(), test.ShouldEqual, 12)
}

func TestAddTransformVarsMcCormickQuaternion(t *testing.T) {
	prog := milp.NewProgram()
	ref := identityPose()
	tv, err := addTransformVars(prog, 1, ref, RotationMcCormickQuaternion, RotationModeOptions{BigM: 2})
	test.That(t, err, test.ShouldBeNil)
	// 12 R/T + 4 quaternion components + 10 distinct bilinear products.
	test.That(t, prog.NumVars(), test.ShouldEqual, 26)
	test.That(t, tv.Mode, test.ShouldEqual, RotationMcCormickQuaternion)
}

func TestAddTransformVarsMcCormickMILPBins(t *testing.T) {
	prog := milp.NewProgram()
	tv, err := addTransformVars(prog, 1, nil, RotationMcCormickMILP, RotationModeOptions{BigM: 2, NumBins: 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(tv.BPos), test.ShouldEqual, 4)
	test.That(t, len(tv.BNeg), test.ShouldEqual, 4)
	test.That(t, prog.Kind(tv.BPos[0][0]), test.ShouldEqual, milp.Binary)
}

func TestAddTransformVarsMcCormickMILPBinsDefaultsBins(t *testing.T) {
	prog := milp.NewProgram()
	tv, err := addTransformVars(prog, 1, nil, RotationMcCormickMILP, RotationModeOptions{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(tv.BPos), test.ShouldEqual, 1)
}

func TestAddTransformVarsRPYBox(t *testing.T) {
	prog := milp.NewProgram()
	tv, err := addTransformVars(prog, 1, nil, RotationRPYBox, RotationModeOptions{BigM: 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tv.R[0].Index(), test.ShouldBeGreaterThanOrEqualTo, 0)
	test.That(t, prog.NumVars(), test.ShouldEqual, 12)
}

func TestAddTransformVarsLogMcCormick2D(t *testing.T) {
	prog := milp.NewProgram()
	ref := identityPose()
	tv, err := addTransformVars(prog, 1, ref, RotationLogMcCormick2D, RotationModeOptions{L1Bound: 0.2})
	test.That(t, err, test.ShouldBeNil)
	// 12 R/T + 4 bounded sin/cos vars + 4 McCormick product vars.
	test.That(t, prog.NumVars(), test.ShouldEqual, 20)
	test.That(t, tv.Mode, test.ShouldEqual, RotationLogMcCormick2D)
}

func TestAddMcCormickEnvelopeAddsNoNewVars(t *testing.T) {
	prog := milp.NewProgram()
	a := prog.AddVar(milp.Continuous, -1, 1, "a")
	b := prog.AddVar(milp.Continuous, -1, 1, "b")
	p := prog.AddVar(milp.Continuous, -1, 1, "p")
	before := prog.NumVars()
	addMcCormickEnvelope(prog, p, a, b, -1, 1, -1, 1, "test")
	test.That(t, prog.NumVars(), test.ShouldEqual, before)
}

func TestTransformVarsAt(t *testing.T) {
	prog := milp.NewProgram()
	tv, err := addTransformVars(prog, 1, nil, RotationUnconstrained, RotationModeOptions{BigM: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tv.At(1, 2), test.ShouldEqual, tv.R[5])
}
