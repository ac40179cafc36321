package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeClouds(t *testing.T) []PointCloud {
	t.Helper()

	cloud0 := New()
	test.That(t, cloud0.Set(r3.Vector{X: 0, Y: 0, Z: 0}, nil), test.ShouldBeNil)
	test.That(t, cloud0.Set(r3.Vector{X: 0, Y: 0, Z: 1}, nil), test.ShouldBeNil)
	test.That(t, cloud0.Set(r3.Vector{X: 0, Y: 1, Z: 0}, nil), test.ShouldBeNil)
	test.That(t, cloud0.Set(r3.Vector{X: 0, Y: 1, Z: 1}, nil), test.ShouldBeNil)

	cloud1 := New()
	test.That(t, cloud1.Set(r3.Vector{X: 30, Y: 0, Z: 0}, nil), test.ShouldBeNil)
	test.That(t, cloud1.Set(r3.Vector{X: 30, Y: 0, Z: 1}, nil), test.ShouldBeNil)
	test.That(t, cloud1.Set(r3.Vector{X: 30, Y: 1, Z: 0}, nil), test.ShouldBeNil)
	test.That(t, cloud1.Set(r3.Vector{X: 30, Y: 1, Z: 1}, nil), test.ShouldBeNil)
	test.That(t, cloud1.Set(r3.Vector{X: 30, Y: 0.5, Z: 0.5}, nil), test.ShouldBeNil)

	return []PointCloud{cloud0, cloud1}
}

func TestCalculateMean(t *testing.T) {
	clouds := makeClouds(t)
	mean0 := CalculateMeanOfPointCloud(clouds[0])
	test.That(t, mean0, test.ShouldResemble, Vec3{X: 0, Y: 0.5, Z: 0.5})
	mean1 := CalculateMeanOfPointCloud(clouds[1])
	test.That(t, mean1, test.ShouldResemble, Vec3{X: 30, Y: 0.5, Z: 0.5})
}

func TestMergePointsWithColor(t *testing.T) {
	clouds := makeClouds(t)
	mergedCloud, err := MergePointCloudsWithColor(clouds)
	test.That(t, err, test.ShouldBeNil)

	d000, ok := mergedCloud.At(0, 0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	d001, ok := mergedCloud.At(0, 0, 1)
	test.That(t, ok, test.ShouldBeTrue)
	d300, ok := mergedCloud.At(30, 0, 0)
	test.That(t, ok, test.ShouldBeTrue)

	test.That(t, d000.Color(), test.ShouldResemble, d001.Color())
	test.That(t, d000.Color(), test.ShouldNotResemble, d300.Color())
}

func TestPrune(t *testing.T) {
	clouds := makeClouds(t)
	test.That(t, len(clouds), test.ShouldEqual, 2)
	test.That(t, clouds[0].Size(), test.ShouldEqual, 4)
	test.That(t, clouds[1].Size(), test.ShouldEqual, 5)

	clouds = PrunePointClouds(clouds, 5)
	test.That(t, len(clouds), test.ShouldEqual, 1)
	test.That(t, clouds[0].Size(), test.ShouldEqual, 5)
}
