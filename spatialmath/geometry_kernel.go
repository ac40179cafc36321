package spatialmath

import (
	"math/rand"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// WorldFace is one mesh triangle already expressed in the world frame, tagged with the pose and
// 1-based index of the body that hosts it. Callers assemble these by transforming each body's
// local-frame Mesh with its current pose (Mesh.Transform, Model.TransformAll) before calling into
// this file's kernel functions, keeping this package free of any dependency on a kinematic model.
type WorldFace struct {
	Triangle *Triangle
	Pose     Pose
	BodyIdx  int
}

// CollisionResult is one scene point's nearest-face correspondence.
type CollisionResult struct {
	Phi     float64  // L1 distance from the scene point to X
	Normal  r3.Vector
	X       r3.Vector // closest point, world frame
	BodyX   r3.Vector // closest point, hosting body's local frame
	BodyIdx int       // 1-based hosting body id
}

// l1Distance is the L1 (Manhattan) distance between two points.
func l1Distance(a, b r3.Vector) float64 {
	return absf(a.X-b.X) + absf(a.Y-b.Y) + absf(a.Z-b.Z)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ExactCollisionDetect finds, for every point in scene, the closest point among all world-frame
// faces by L1 distance, breaking ties in favor of the first face encountered.
func ExactCollisionDetect(scene []r3.Vector, faces []WorldFace) []CollisionResult {
	results := make([]CollisionResult, len(scene))
	for i, s := range scene {
		var best CollisionResult
		haveBest := false
		for _, f := range faces {
			pts := f.Triangle.Points()
			x := f.Triangle.ClosestPointToPoint(s)
			phi := l1Distance(s, x)
			if haveBest && phi >= best.Phi {
				continue
			}
			normal := pts[2].Sub(pts[0]).Cross(pts[1].Sub(pts[0]))
			if n := normal.Norm(); n > floatEpsilon {
				normal = normal.Mul(1.0 / n)
			}
			bodyX := x
			if f.Pose != nil {
				inv := PoseInverse(f.Pose)
				bodyX = inv.Point().Add(inv.Orientation().MulVec(x))
			}
			best = CollisionResult{Phi: phi, Normal: normal, X: x, BodyX: bodyX, BodyIdx: f.BodyIdx}
			haveBest = true
		}
		results[i] = best
	}
	return results
}

// SurfaceAreaWeightedSample draws numSamples points from the surface described by faces,
// weighted by each face's area, and returns each sample's point plus a one-hot row indicating
// which of numBodies bodies produced it. rng is used for every random draw so callers can seed it
// for reproducible sampling.
func SurfaceAreaWeightedSample(faces []WorldFace, numBodies, numSamples int, rng *rand.Rand) ([]r3.Vector, [][]float64) {
	pts := make([]r3.Vector, numSamples)
	oneHot := make([][]float64, numBodies)
	for b := range oneHot {
		oneHot[b] = make([]float64, numSamples)
	}
	if len(faces) == 0 || numSamples == 0 {
		return pts, oneHot
	}

	cdf := make([]float64, len(faces))
	total := 0.0
	for i, f := range faces {
		total += f.Triangle.Area()
		cdf[i] = total
	}

	uniform := distuv.Uniform{Min: 0, Max: 1, Src: rng}
	for k := 0; k < numSamples; k++ {
		u := uniform.Rand() * total
		faceIdx := sort.Search(len(cdf), func(i int) bool { return cdf[i] >= u })
		if faceIdx >= len(cdf) {
			faceIdx = len(cdf) - 1
		}
		face := faces[faceIdx]

		var s1, s2 float64
		for {
			s1 = uniform.Rand()
			s2 = uniform.Rand()
			if s1+s2 < 1 {
				break
			}
		}

		verts := face.Triangle.Points()
		pts[k] = verts[0].Add(verts[1].Sub(verts[0]).Mul(s1)).Add(verts[2].Sub(verts[0]).Mul(s2))
		oneHot[face.BodyIdx-1][k] = 1
	}
	return pts, oneHot
}
