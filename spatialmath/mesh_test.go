package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeSimpleTriangleMesh() *Mesh {
	tri1 := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	tri2 := NewTriangle(
		r3.Vector{X: 0.6, Y: 0.6, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	tri3 := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 10},
		r3.Vector{X: 1, Y: 0, Z: 10},
		r3.Vector{X: 0, Y: 1, Z: 10},
	)
	return NewMesh(NewZeroPose(), []*Triangle{tri1, tri2, tri3}, "test_mesh")
}

func TestNewMesh(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	pose := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})

	mesh := NewMesh(pose, []*Triangle{tri}, "test_mesh")

	test.That(t, mesh.Label(), test.ShouldEqual, "test_mesh")
	test.That(t, PoseAlmostEqual(mesh.Pose(), pose), test.ShouldBeTrue)
	test.That(t, len(mesh.Triangles()), test.ShouldEqual, 1)
}

func TestMeshTransform(t *testing.T) {
	mesh := makeSimpleTriangleMesh()

	newPose := NewPoseFromPoint(r3.Vector{X: 1, Y: 0, Z: 0})
	transformed := mesh.Transform(newPose)

	test.That(t, transformed.Pose().Point().X, test.ShouldEqual, 1)
	// original mesh is unchanged
	test.That(t, mesh.Pose().Point().X, test.ShouldEqual, 0)
}

func TestMeshWorldTriangles(t *testing.T) {
	mesh := makeSimpleTriangleMesh().Transform(NewPoseFromPoint(r3.Vector{X: 2, Y: 0, Z: 0}))

	world := mesh.WorldTriangles()
	test.That(t, len(world), test.ShouldEqual, 3)
	test.That(t, world[0].Points()[0].X, test.ShouldEqual, 2)
}
