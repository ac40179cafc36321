package estimator

import (
	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/rigidbody"
	"github.com/meshpose/estimator/spatialmath"
)

// modelGeometry is the flattened face/vertex view the formulation assembler needs: every face
// contributes its own three vertices (vertices are never shared across faces, which keeps the
// face-membership matrix F a trivial block-identity and needs no explicit representation), tagged
// with the 1-based id of the body that owns it.
type modelGeometry struct {
	// vertices are in the owning body's local frame.
	vertices []r3.Vector
	// faces holds, per face, the three indices into vertices that make it up.
	faces [][3]int
	// faceBody is the 1-based owning body id per face (the Bm incidence column for face f is the
	// one-hot vector with a 1 at faceBody[f]-1; no dense matrix is built since each face belongs to
	// exactly one body).
	faceBody []int
	numBodies int
}

// buildModelGeometry flattens every body's local-frame mesh triangles into a single face list.
func buildModelGeometry(model *rigidbody.Model) (*modelGeometry, error) {
	geom := &modelGeometry{numBodies: model.NumBodies() - 1}
	for bodyIdx := 1; bodyIdx <= geom.numBodies; bodyIdx++ {
		body, err := model.Body(bodyIdx)
		if err != nil {
			return nil, err
		}
		mesh := body.Mesh()
		if mesh == nil {
			continue
		}
		for _, tri := range mesh.Triangles() {
			pts := tri.Points()
			start := len(geom.vertices)
			geom.vertices = append(geom.vertices, pts[0], pts[1], pts[2])
			geom.faces = append(geom.faces, [3]int{start, start + 1, start + 2})
			geom.faceBody = append(geom.faceBody, bodyIdx)
		}
	}
	return geom, nil
}

// vertexBody returns the 1-based owning body id of vertex v.
func (g *modelGeometry) vertexBody(v int) int {
	return g.faceBody[v/3]
}

// faceVertices returns the three local-frame vertex positions of face f.
func (g *modelGeometry) faceVertices(f int) [3]r3.Vector {
	idx := g.faces[f]
	return [3]r3.Vector{g.vertices[idx[0]], g.vertices[idx[1]], g.vertices[idx[2]]}
}

// widestFaceEdge returns the longest edge length across every face, used as the default same-face
// gate distance (plus 2*phiMax). Returns 0 if there are no faces, per the disabled-gate edge case.
func widestFaceEdge(geom *modelGeometry) float64 {
	widest := 0.0
	for f := range geom.faces {
		v := geom.faceVertices(f)
		edges := []float64{
			v[0].Sub(v[1]).Norm(),
			v[1].Sub(v[2]).Norm(),
			v[2].Sub(v[0]).Norm(),
		}
		for _, e := range edges {
			if e > widest {
				widest = e
			}
		}
	}
	return widest
}

// numVertices returns the total number of flattened vertices across all faces.
func (g *modelGeometry) numVertices() int { return len(g.vertices) }

// numFaces returns the total number of faces across all bodies.
func (g *modelGeometry) numFaces() int { return len(g.faces) }

// triangleAt returns face f as a *spatialmath.Triangle in its body's local frame.
func (g *modelGeometry) triangleAt(f int) *spatialmath.Triangle {
	v := g.faceVertices(f)
	return spatialmath.NewTriangle(v[0], v[1], v[2])
}
