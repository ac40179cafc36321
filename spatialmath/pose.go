package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Pose represents a rigid transform: a translation plus a rotation.
type Pose interface {
	Point() r3.Vector
	Orientation() *RotationMatrix
}

type pose struct {
	point       r3.Vector
	orientation *RotationMatrix
}

// NewPose builds a Pose from a point and a rotation.
func NewPose(point r3.Vector, orientation *RotationMatrix) Pose {
	if orientation == nil {
		orientation = Identity()
	}
	return &pose{point: point, orientation: orientation}
}

// NewPoseFromPoint builds a Pose with zero rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &pose{point: point, orientation: Identity()}
}

// NewPoseFromOrientation builds a Pose from a point and orientation, alias of NewPose kept for
// call-site symmetry with NewPoseFromPoint.
func NewPoseFromOrientation(point r3.Vector, orientation *RotationMatrix) Pose {
	return NewPose(point, orientation)
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return &pose{point: r3.Vector{}, orientation: Identity()}
}

func (p *pose) Point() r3.Vector            { return p.point }
func (p *pose) Orientation() *RotationMatrix { return p.orientation }

// Compose returns the pose that results from applying "second" in the frame established by "first":
// the returned orientation is first.Orientation * second.Orientation, and the returned point is
// first applied to second's point, then translated by first's point.
func Compose(first, second Pose) Pose {
	rotated := first.Orientation().MulVec(second.Point())
	return &pose{
		point:       first.Point().Add(rotated),
		orientation: second.Orientation().Mul(first.Orientation()),
	}
}

// PoseInverse returns the pose that undoes p.
func PoseInverse(p Pose) Pose {
	invOrient := p.Orientation().Transpose()
	return &pose{
		point:       invOrient.MulVec(p.Point()).Mul(-1),
		orientation: invOrient,
	}
}

// HashPose produces a coarse, deterministic hash of a pose's translation and rotation, suitable
// for deduplicating near-identical seed states.
func HashPose(p Pose) int {
	const scale = 1e4
	h := 0
	round := func(v float64) int { return int(math.Round(v * scale)) }
	pt := p.Point()
	h = h*31 + round(pt.X)
	h = h*31 + round(pt.Y)
	h = h*31 + round(pt.Z)
	for _, v := range p.Orientation().Data() {
		h = h*31 + round(v)
	}
	return h
}

// PoseAlmostEqual reports whether two poses are equal within 1e-6 per component.
func PoseAlmostEqual(a, b Pose) bool {
	if R3VectorAlmostEqual(a.Point(), b.Point(), 1e-6) == false {
		return false
	}
	ad, bd := a.Orientation().Data(), b.Orientation().Data()
	for i := range ad {
		if math.Abs(ad[i]-bd[i]) > 1e-6 {
			return false
		}
	}
	return true
}

// R3VectorAlmostEqual reports whether two vectors are within tol of each other componentwise.
func R3VectorAlmostEqual(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
