package estimator

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/meshpose/estimator/spatialmath"
)

func singleFaceGeometry() *modelGeometry {
	return &modelGeometry{
		vertices: []r3.Vector{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		},
		faces:     [][3]int{{0, 1, 2}},
		faceBody:  []int{1},
		numBodies: 1,
	}
}

func TestBuildFormulationAShapesVariables(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}, {X: 0.5, Y: 0.2, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: true, PhiMax: 10, BigM: 10}

	form, err := BuildFormulationA(geom, scene, nil, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(form.F), test.ShouldEqual, len(scene))
	test.That(t, len(form.F[0]), test.ShouldEqual, geom.numFaces())
	test.That(t, len(form.C[0]), test.ShouldEqual, geom.numVertices())
	test.That(t, len(form.Phi), test.ShouldEqual, len(scene))
	test.That(t, len(form.Transform), test.ShouldEqual, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, form.Prog.Validate(), test.ShouldBeNil)
}

func TestBuildFormulationADisallowsOutliers(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: false, PhiMax: 10, BigM: 10}

	form, err := BuildFormulationA(geom, scene, nil, opts)
	test.That(t, err, test.ShouldBeNil)
	lo, hi := form.Prog.Bounds(form.FOutlier[0])
	test.That(t, lo, test.ShouldEqual, 0.0)
	test.That(t, hi, test.ShouldEqual, 1.0)
}

func TestBuildFormulationARequiresGroundTruthForConstrainedRotation(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationFallbackGroundTruth, PhiMax: 10, BigM: 10}

	_, err := BuildFormulationA(geom, scene, nil, opts)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBuildFormulationAWithGroundTruth(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationFallbackGroundTruth, PhiMax: 10, BigM: 10}
	gt := map[int]spatialmath.Pose{1: identityPose()}

	form, err := BuildFormulationA(geom, scene, gt, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, form.Prog.Validate(), test.ShouldBeNil)
}
