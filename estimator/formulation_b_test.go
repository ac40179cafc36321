package estimator

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBuildFormulationBShapesVariables(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}, {X: 0.5, Y: 0.2, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: true, PhiMax: 10, BigM: 10}
	rng := rand.New(rand.NewSource(1))

	form, err := BuildFormulationB(geom, scene, nil, 5, rng, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(form.C), test.ShouldEqual, len(scene))
	test.That(t, len(form.C[0]), test.ShouldEqual, 5)
	test.That(t, form.F, test.ShouldBeNil)
	test.That(t, form.Prog.Validate(), test.ShouldBeNil)
}

func TestBuildFormulationBWithHODCost(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}, {X: 0.5, Y: 0.2, Z: 0}}
	opts := FormulationOptions{
		RotationMode: RotationUnconstrained, AllowOutliers: true, PhiMax: 10, BigM: 10,
		HODBins: 3, HODDist: 2, HODWeight: 1,
	}
	rng := rand.New(rand.NewSource(1))

	form, err := BuildFormulationB(geom, scene, nil, 5, rng, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, form.Prog.Validate(), test.ShouldBeNil)
}

func TestBuildFormulationBDisallowsOutliers(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: false, PhiMax: 10, BigM: 10}
	rng := rand.New(rand.NewSource(1))

	form, err := BuildFormulationB(geom, scene, nil, 3, rng, opts)
	test.That(t, err, test.ShouldBeNil)
	lo, hi := form.Prog.Bounds(form.FOutlier[0])
	test.That(t, lo, test.ShouldEqual, 0.0)
	test.That(t, hi, test.ShouldEqual, 1.0)
}
