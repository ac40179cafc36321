package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a row-major 3x3 rotation matrix.
type RotationMatrix struct {
	data [9]float64
}

// NewRotationMatrix builds a RotationMatrix from nine row-major entries.
func NewRotationMatrix(data [9]float64) *RotationMatrix {
	return &RotationMatrix{data: data}
}

// Identity returns the 3x3 identity rotation.
func Identity() *RotationMatrix {
	return &RotationMatrix{data: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// At returns the (row, col) entry, 0-indexed.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.data[row*3+col]
}

// Data returns the nine row-major entries.
func (rm *RotationMatrix) Data() [9]float64 {
	return rm.data
}

// MulVec rotates a vector by this rotation matrix.
func (rm *RotationMatrix) MulVec(v r3.Vector) r3.Vector {
	d := rm.data
	return r3.Vector{
		X: d[0]*v.X + d[1]*v.Y + d[2]*v.Z,
		Y: d[3]*v.X + d[4]*v.Y + d[5]*v.Z,
		Z: d[6]*v.X + d[7]*v.Y + d[8]*v.Z,
	}
}

// Mul composes two rotations: rm followed by applying other on the result (other * rm).
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	a, b := other.data, rm.data
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[i*3+k] * b[k*3+j]
			}
			out[i*3+j] = sum
		}
	}
	return &RotationMatrix{data: out}
}

// Transpose returns the transpose (equivalently, inverse, for a valid rotation).
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	d := rm.data
	return &RotationMatrix{data: [9]float64{d[0], d[3], d[6], d[1], d[4], d[7], d[2], d[5], d[8]}}
}

// EulerAngles holds roll, pitch, yaw in radians, applied intrinsically Z-Y-X (yaw, then pitch, then roll).
type EulerAngles struct {
	Roll, Pitch, Yaw float64
}

// RPYToRotationMatrix builds the rotation matrix R = Rz(yaw) * Ry(pitch) * Rx(roll).
func RPYToRotationMatrix(roll, pitch, yaw float64) *RotationMatrix {
	sr, cr := math.Sin(roll), math.Cos(roll)
	sp, cp := math.Sin(pitch), math.Cos(pitch)
	sy, cy := math.Sin(yaw), math.Cos(yaw)

	return &RotationMatrix{data: [9]float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	}}
}

// RotationMatrixToRPY extracts roll, pitch, yaw from a rotation matrix built as Rz(yaw)*Ry(pitch)*Rx(roll).
// Grounded on the standard atan2-based extraction used by the rotmat-to-rpy conversion in the originating
// rigid-body toolchain; gimbal-locked inputs (|R[2,0]| ~= 1) fall back to a zero-yaw convention.
func RotationMatrixToRPY(rm *RotationMatrix) *EulerAngles {
	r20 := rm.At(2, 0)
	if math.Abs(r20) > 1-1e-9 {
		yaw := 0.0
		pitch := -math.Asin(clamp(r20, -1, 1))
		roll := math.Atan2(-math.Copysign(1, r20)*rm.At(0, 1), rm.At(1, 1))
		return &EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw}
	}
	pitch := -math.Asin(clamp(r20, -1, 1))
	cp := math.Cos(pitch)
	roll := math.Atan2(rm.At(2, 1)/cp, rm.At(2, 2)/cp)
	yaw := math.Atan2(rm.At(1, 0)/cp, rm.At(0, 0)/cp)
	return &EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// QuaternionToRotationMatrix converts a unit quaternion (w,x,y,z) to a rotation matrix.
func QuaternionToRotationMatrix(q quat.Number) *RotationMatrix {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n < floatEpsilon {
		return Identity()
	}
	w, x, y, z := q.Real/n, q.Imag/n, q.Jmag/n, q.Kmag/n

	return &RotationMatrix{data: [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}}
}

// QuaternionToRPY converts a unit quaternion directly to roll/pitch/yaw, as used when loading a
// model's initial pose specified as a quaternion rather than Euler angles.
func QuaternionToRPY(q quat.Number) *EulerAngles {
	return RotationMatrixToRPY(QuaternionToRotationMatrix(q))
}

// RotationMatrixToQuaternion converts a rotation matrix to a unit quaternion using Shepperd's method.
func RotationMatrixToQuaternion(rm *RotationMatrix) quat.Number {
	d := rm.data
	tr := d[0] + d[4] + d[8]
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		return quat.Number{
			Real: s / 4,
			Imag: (d[7] - d[5]) / s,
			Jmag: (d[2] - d[6]) / s,
			Kmag: (d[3] - d[1]) / s,
		}
	case d[0] > d[4] && d[0] > d[8]:
		s := math.Sqrt(1+d[0]-d[4]-d[8]) * 2
		return quat.Number{
			Real: (d[7] - d[5]) / s,
			Imag: s / 4,
			Jmag: (d[1] + d[3]) / s,
			Kmag: (d[2] + d[6]) / s,
		}
	case d[4] > d[8]:
		s := math.Sqrt(1+d[4]-d[0]-d[8]) * 2
		return quat.Number{
			Real: (d[2] - d[6]) / s,
			Imag: (d[1] + d[3]) / s,
			Jmag: s / 4,
			Kmag: (d[5] + d[7]) / s,
		}
	default:
		s := math.Sqrt(1+d[8]-d[0]-d[4]) * 2
		return quat.Number{
			Real: (d[3] - d[1]) / s,
			Imag: (d[2] + d[6]) / s,
			Jmag: (d[5] + d[7]) / s,
			Kmag: s / 4,
		}
	}
}
