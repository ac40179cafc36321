package estimator

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/meshpose/estimator/rigidbody"
	"github.com/meshpose/estimator/spatialmath"
)

func singleTriangleMesh() *spatialmath.Mesh {
	tri := spatialmath.NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	return spatialmath.NewMesh(spatialmath.NewZeroPose(), []*spatialmath.Triangle{tri}, "box")
}

func TestBuildModelGeometrySingleBody(t *testing.T) {
	body := rigidbody.NewBody("box", singleTriangleMesh(), nil)
	model := rigidbody.NewModel([]*rigidbody.Body{body})

	geom, err := buildModelGeometry(model)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, geom.numBodies, test.ShouldEqual, 1)
	test.That(t, geom.numFaces(), test.ShouldEqual, 1)
	test.That(t, geom.numVertices(), test.ShouldEqual, 3)
	test.That(t, geom.faceBody[0], test.ShouldEqual, 1)
	test.That(t, geom.vertexBody(0), test.ShouldEqual, 1)
}

func TestBuildModelGeometrySkipsMeshlessBody(t *testing.T) {
	withMesh := rigidbody.NewBody("box", singleTriangleMesh(), nil)
	withoutMesh := rigidbody.NewBody("ghost", nil, nil)
	model := rigidbody.NewModel([]*rigidbody.Body{withMesh, withoutMesh})

	geom, err := buildModelGeometry(model)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, geom.numBodies, test.ShouldEqual, 2)
	test.That(t, geom.numFaces(), test.ShouldEqual, 1)
	test.That(t, geom.faceBody[0], test.ShouldEqual, 1)
}

func TestWidestFaceEdge(t *testing.T) {
	geom := &modelGeometry{
		vertices: []r3.Vector{
			{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 0, Y: 4, Z: 0},
		},
		faces:    [][3]int{{0, 1, 2}},
		faceBody: []int{1},
	}
	// Edges are 3, 5, 4; widest is the hypotenuse at 5.
	test.That(t, widestFaceEdge(geom), test.ShouldAlmostEqual, 5.0, 1e-9)
}

func TestWidestFaceEdgeNoFaces(t *testing.T) {
	geom := &modelGeometry{}
	test.That(t, widestFaceEdge(geom), test.ShouldEqual, 0.0)
}

func TestVecCoord(t *testing.T) {
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, vecCoord(v, 0), test.ShouldEqual, 1.0)
	test.That(t, vecCoord(v, 1), test.ShouldEqual, 2.0)
	test.That(t, vecCoord(v, 2), test.ShouldEqual, 3.0)
}
