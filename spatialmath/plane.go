package spatialmath

import "github.com/golang/geo/r3"

// floatEpsilon is the tolerance used for coplanarity and degeneracy checks throughout the package.
const floatEpsilon = 1e-8

// PlaneNormal returns the outward normal of the plane through p0, p1, p2, oriented by the
// right-hand rule on (p1-p0) x (p2-p0), normalized to unit length.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	norm := n.Norm()
	if norm < floatEpsilon {
		return r3.Vector{}
	}
	return n.Mul(1 / norm)
}

// ClosestPointSegmentPoint returns the closest point on the segment [a,b] to pt.
func ClosestPointSegmentPoint(a, b, pt r3.Vector) r3.Vector {
	ab := b.Sub(a)
	denom := ab.Norm2()
	if denom < floatEpsilon {
		return a
	}
	t := pt.Sub(a).Dot(ab) / denom
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Mul(t))
}
