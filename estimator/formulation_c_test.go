package estimator

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBuildFormulationCShapesVariables(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}, {X: 0.5, Y: 0.2, Z: 0}, {X: 0.2, Y: 0.6, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: true, PhiMax: 10, BigM: 10}
	rng := rand.New(rand.NewSource(1))

	form, err := BuildFormulationC(geom, scene, nil, 4, rng, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(form.C), test.ShouldEqual, 4)
	test.That(t, len(form.C[0]), test.ShouldEqual, len(scene))
	test.That(t, form.Prog.Validate(), test.ShouldBeNil)
}

func TestBuildFormulationCDisallowsOutliers(t *testing.T) {
	geom := singleFaceGeometry()
	scene := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0}}
	opts := FormulationOptions{RotationMode: RotationUnconstrained, AllowOutliers: false, PhiMax: 10, BigM: 10}
	rng := rand.New(rand.NewSource(1))

	form, err := BuildFormulationC(geom, scene, nil, 2, rng, opts)
	test.That(t, err, test.ShouldBeNil)
	lo, hi := form.Prog.Bounds(form.FOutlier[0])
	test.That(t, lo, test.ShouldEqual, 0.0)
	test.That(t, hi, test.ShouldEqual, 1.0)
}
