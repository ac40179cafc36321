package estimator

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/meshpose/estimator/milp"
)

func TestExtractSolutionInfeasibleNoIncumbent(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: true, PhiMax: 10, BigM: 10}
	form, err := BuildFormulationA(geom, scene, nil, opts)
	test.That(t, err, test.ShouldBeNil)

	model := singleBodyModel()
	result := milp.Result{Status: milp.StatusInfeasible}
	incumbent := &incumbentState{}

	solution, err := extractSolution(form, model, result, incumbent, time.Second, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsInf(solution.Objective, 1), test.ShouldBeTrue)
	test.That(t, len(solution.PoseEstimates), test.ShouldEqual, 0)
}

func TestExtractSolutionFallsBackToIncumbent(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: true, PhiMax: 10, BigM: 10}
	form, err := BuildFormulationA(geom, scene, nil, opts)
	test.That(t, err, test.ShouldBeNil)

	model := singleBodyModel()
	values := identityValues(form)
	incumbent := &incumbentState{}
	q, _, err := reconstructCoordinates(form, model, values, false)
	test.That(t, err, test.ShouldBeNil)
	incumbent.considerUpdate(0.5, q, values)

	result := milp.Result{Status: milp.StatusInfeasible}
	solution, err := extractSolution(form, model, result, incumbent, time.Second, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solution.Objective, test.ShouldEqual, 0.5)
	test.That(t, len(solution.PoseEstimates), test.ShouldEqual, 1)
}

func TestExtractSolutionOptimalUsesResultValues(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: true, PhiMax: 10, BigM: 10}
	form, err := BuildFormulationA(geom, scene, nil, opts)
	test.That(t, err, test.ShouldBeNil)

	model := singleBodyModel()
	values := identityValues(form)
	result := milp.Result{Status: milp.StatusOptimal, Values: values, Objective: 0.1, Bound: 0.1}
	incumbent := &incumbentState{}

	solution, err := extractSolution(form, model, result, incumbent, time.Second, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solution.Objective, test.ShouldEqual, 0.1)
	test.That(t, len(solution.PoseEstimates), test.ShouldEqual, 1)
	test.That(t, solution.PoseEstimates[0].ObjInd, test.ShouldEqual, 1)
}

func TestOnAtOutOfRange(t *testing.T) {
	test.That(t, onAt(nil, milp.Var{}), test.ShouldBeFalse)
}
