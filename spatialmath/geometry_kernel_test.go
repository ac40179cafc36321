package spatialmath

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestExactCollisionDetectSingleFaceCentroid(t *testing.T) {
	tri := NewTriangle(r3.Vector{0, 0, 0}, r3.Vector{1, 0, 0}, r3.Vector{0, 1, 0})
	faces := []WorldFace{{Triangle: tri, Pose: NewZeroPose(), BodyIdx: 1}}

	results := ExactCollisionDetect([]r3.Vector{tri.Centroid()}, faces)
	test.That(t, len(results), test.ShouldEqual, 1)
	test.That(t, results[0].Phi, test.ShouldBeLessThan, 1e-9)
	test.That(t, results[0].BodyIdx, test.ShouldEqual, 1)
}

func TestExactCollisionDetectPicksNearestFace(t *testing.T) {
	near := NewTriangle(r3.Vector{0, 0, 0}, r3.Vector{1, 0, 0}, r3.Vector{0, 1, 0})
	far := NewTriangle(r3.Vector{10, 0, 0}, r3.Vector{11, 0, 0}, r3.Vector{10, 1, 0})
	faces := []WorldFace{
		{Triangle: far, Pose: NewZeroPose(), BodyIdx: 2},
		{Triangle: near, Pose: NewZeroPose(), BodyIdx: 1},
	}

	results := ExactCollisionDetect([]r3.Vector{{0.1, 0.1, 0}}, faces)
	test.That(t, results[0].BodyIdx, test.ShouldEqual, 1)
}

func TestExactCollisionDetectBodyFrameClosestPoint(t *testing.T) {
	tri := NewTriangle(r3.Vector{0, 0, 0}, r3.Vector{1, 0, 0}, r3.Vector{0, 1, 0})
	bodyPose := NewPose(r3.Vector{5, 0, 0}, Identity())
	worldTri := tri.Transform(bodyPose)
	faces := []WorldFace{{Triangle: worldTri, Pose: bodyPose, BodyIdx: 1}}

	results := ExactCollisionDetect([]r3.Vector{worldTri.Centroid()}, faces)
	test.That(t, R3VectorAlmostEqual(results[0].BodyX, tri.Centroid(), 1e-9), test.ShouldBeTrue)
}

func TestSurfaceAreaWeightedSampleDistribution(t *testing.T) {
	small := NewTriangle(r3.Vector{0, 0, 0}, r3.Vector{1, 0, 0}, r3.Vector{0, 1, 0})
	big := NewTriangle(r3.Vector{10, 0, 0}, r3.Vector{13, 0, 0}, r3.Vector{10, 3, 0})
	test.That(t, big.Area(), test.ShouldAlmostEqual, 3*small.Area())

	faces := []WorldFace{
		{Triangle: small, Pose: NewZeroPose(), BodyIdx: 1},
		{Triangle: big, Pose: NewZeroPose(), BodyIdx: 2},
	}

	const k = 10000
	rng := rand.New(rand.NewSource(1))
	_, oneHot := SurfaceAreaWeightedSample(faces, 2, k, rng)

	var body1, body2 int
	for i := 0; i < k; i++ {
		body1 += int(oneHot[0][i])
		body2 += int(oneHot[1][i])
	}
	test.That(t, body1+body2, test.ShouldEqual, k)

	fraction := float64(body2) / float64(k)
	test.That(t, fraction, test.ShouldBeGreaterThan, 0.73)
	test.That(t, fraction, test.ShouldBeLessThan, 0.77)
}

func TestClosestPointOnTriangleIdempotent(t *testing.T) {
	tri := NewTriangle(r3.Vector{0, 0, 0}, r3.Vector{2, 0, 0}, r3.Vector{0, 2, 0})
	p := r3.Vector{5, 5, 5}
	once := tri.ClosestPointToPoint(p)
	twice := tri.ClosestPointToPoint(once)
	test.That(t, R3VectorAlmostEqual(once, twice, 1e-9), test.ShouldBeTrue)
}
