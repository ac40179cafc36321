package estimator

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/spatialmath"
)

// RotationMode selects one of the seven rotation-envelope strategies the transform-variable
// factory attaches to a body's 3x3 rotation variables, mirroring the detector config's
// rotation_constraint key (0..6).
type RotationMode int

const (
	// RotationUnconstrained leaves R free within the box [-1,1]^9.
	RotationUnconstrained RotationMode = iota
	// RotationL1BallAroundGroundTruth bounds the columnwise and rowwise L1 distance to a reference
	// rotation within a fixed epsilon.
	RotationL1BallAroundGroundTruth
	// RotationMcCormickQuaternion parameterizes R through a unit quaternion and bounds its bilinear
	// products with a continuous McCormick envelope.
	RotationMcCormickQuaternion
	// RotationMcCormickMILP allocates per-bin binary indicators bracketing every R(i,j) entry.
	RotationMcCormickMILP
	// RotationRPYBox bounds R by the numeric range swept by roll/pitch/yaw over [0, pi/2].
	RotationRPYBox
	// RotationLogMcCormick2D is a two-axis (roll, pitch) McCormick envelope with yaw pinned to the
	// reference rotation's yaw.
	RotationLogMcCormick2D
	// RotationFallbackGroundTruth equality-constrains R to a reference rotation.
	RotationFallbackGroundTruth
)

// RotationModeOptions configures the rotation envelope a mode builds.
type RotationModeOptions struct {
	// BigM bounds every translation component and every big-M-gated constraint.
	BigM float64
	// L1Bound is the epsilon used by RotationL1BallAroundGroundTruth.
	L1Bound float64
	// NumBins is the per-element bin count K used by RotationMcCormickMILP.
	NumBins int
}

// TransformVars is one body's allocated rotation/translation decision variables.
type TransformVars struct {
	Body int
	// R holds the 9 row-major entries of the body's 3x3 rotation variable.
	R [9]milp.Var
	// T holds the 3 translation variable components.
	T [3]milp.Var
	// BPos/BNeg are the mode-3 per-bin indicator tensors, present only when Mode ==
	// RotationMcCormickMILP; BPos[k][e] / BNeg[k][e] index bin k then row-major entry e.
	BPos [][9]milp.Var
	BNeg [][9]milp.Var
	Mode RotationMode
}

// At returns the variable for rotation entry (row, col), 0-indexed.
func (tv *TransformVars) At(row, col int) milp.Var { return tv.R[row*3+col] }

// addTransformVars allocates body bodyIdx's R/T variables on prog and attaches the constraints
// mode requires. groundTruth is the body's reference pose, required by every mode except
// RotationUnconstrained, RotationMcCormickMILP, and RotationRPYBox.
func addTransformVars(prog *milp.Program, bodyIdx int, groundTruth spatialmath.Pose, mode RotationMode, opts RotationModeOptions) (*TransformVars, error) {
	prefix := fmt.Sprintf("body%d", bodyIdx)
	tv := &TransformVars{Body: bodyIdx, Mode: mode}

	for i := 0; i < 9; i++ {
		tv.R[i] = prog.AddVar(milp.Continuous, -1, 1, fmt.Sprintf("%s.R[%d]", prefix, i))
	}
	for i := 0; i < 3; i++ {
		tv.T[i] = prog.AddVar(milp.Continuous, -opts.BigM, opts.BigM, fmt.Sprintf("%s.T[%d]", prefix, i))
	}

	switch mode {
	case RotationUnconstrained:
		// No additional constraints; the [-1,1]^9 box is already the full relaxation.
	case RotationL1BallAroundGroundTruth:
		if groundTruth == nil {
			return nil, errors.Errorf("rotation mode %d requires a ground-truth pose for body %d", mode, bodyIdx)
		}
		if err := addL1BallConstraints(prog, tv, groundTruth, opts.L1Bound, prefix); err != nil {
			return nil, err
		}
	case RotationMcCormickQuaternion:
		if groundTruth == nil {
			return nil, errors.Errorf("rotation mode %d requires a ground-truth pose for body %d", mode, bodyIdx)
		}
		addQuaternionMcCormick(prog, tv, prefix)
	case RotationMcCormickMILP:
		addMcCormickMILPBins(prog, tv, opts, prefix)
	case RotationRPYBox:
		addRPYBoundingBox(prog, tv)
	case RotationLogMcCormick2D:
		if groundTruth == nil {
			return nil, errors.Errorf("rotation mode %d requires a ground-truth pose for body %d", mode, bodyIdx)
		}
		addLogMcCormick2D(prog, tv, groundTruth, opts)
	case RotationFallbackGroundTruth:
		if groundTruth == nil {
			return nil, errors.Errorf("rotation mode %d requires a ground-truth pose for body %d", mode, bodyIdx)
		}
		addEqualsGroundTruth(prog, tv, groundTruth)
	default:
		return nil, errors.Errorf("unrecognized rotation mode %d", mode)
	}

	return tv, nil
}

// addL1BallConstraints bounds both the columnwise and rowwise L1 distance between R and a
// reference rotation within bound, via one shared elementwise absolute-value slack matrix.
func addL1BallConstraints(prog *milp.Program, tv *TransformVars, ref spatialmath.Pose, bound float64, prefix string) error {
	if ref.Orientation() == nil {
		return errors.New("reference pose has no orientation")
	}
	refData := ref.Orientation().Data()

	abs := make([]milp.Var, 9)
	for e := 0; e < 9; e++ {
		abs[e] = prog.AddVar(milp.Continuous, 0, 2, fmt.Sprintf("%s.l1abs[%d]", prefix, e))
		// abs[e] >= R[e] - refData[e]
		prog.AddGeq([]milp.Term{{Coeff: 1, Var: abs[e]}, {Coeff: -1, Var: tv.R[e]}}, -refData[e],
			fmt.Sprintf("%s.l1abs_pos[%d]", prefix, e))
		// abs[e] >= refData[e] - R[e]
		prog.AddGeq([]milp.Term{{Coeff: 1, Var: abs[e]}, {Coeff: 1, Var: tv.R[e]}}, refData[e],
			fmt.Sprintf("%s.l1abs_neg[%d]", prefix, e))
	}
	for col := 0; col < 3; col++ {
		terms := []milp.Term{{Coeff: 1, Var: abs[col]}, {Coeff: 1, Var: abs[3+col]}, {Coeff: 1, Var: abs[6+col]}}
		prog.AddLeq(terms, bound, fmt.Sprintf("%s.l1col[%d]", prefix, col))
	}
	for row := 0; row < 3; row++ {
		terms := []milp.Term{{Coeff: 1, Var: abs[row*3]}, {Coeff: 1, Var: abs[row*3+1]}, {Coeff: 1, Var: abs[row*3+2]}}
		prog.AddLeq(terms, bound, fmt.Sprintf("%s.l1row[%d]", prefix, row))
	}
	return nil
}

// addQuaternionMcCormick parameterizes R through a unit quaternion (qw,qx,qy,qz), each bounded to
// [-1,1], and McCormick-envelopes the 10 distinct bilinear products the quaternion-to-rotation
// formula needs. R's entries are then pinned equal to the corresponding linear combination of
// those product variables, giving the MI program a continuous relaxation of SO(3) instead of R's
// bare [-1,1]^9 box.
func addQuaternionMcCormick(prog *milp.Program, tv *TransformVars, prefix string) {
	q := [4]milp.Var{
		prog.AddVar(milp.Continuous, -1, 1, prefix+".q.w"),
		prog.AddVar(milp.Continuous, -1, 1, prefix+".q.x"),
		prog.AddVar(milp.Continuous, -1, 1, prefix+".q.y"),
		prog.AddVar(milp.Continuous, -1, 1, prefix+".q.z"),
	}

	prod := func(a, b int) milp.Var {
		name := fmt.Sprintf("%s.q.p[%d,%d]", prefix, a, b)
		p := prog.AddVar(milp.Continuous, -1, 1, name)
		addMcCormickEnvelope(prog, p, q[a], q[b], -1, 1, -1, 1, name)
		return p
	}

	ww, xx, yy, zz := prod(0, 0), prod(1, 1), prod(2, 2), prod(3, 3)
	wx, wy, wz := prod(0, 1), prod(0, 2), prod(0, 3)
	xy, xz, yz := prod(1, 2), prod(1, 3), prod(2, 3)

	// R = quaternion-to-rotation-matrix formula, linear in the product variables above.
	pin := func(entry int, terms []milp.Term, rhs float64) {
		full := append(append([]milp.Term{}, terms...), milp.Term{Coeff: -1, Var: tv.R[entry]})
		prog.AddEq(full, -rhs, fmt.Sprintf("%s.q.pin[%d]", prefix, entry))
	}
	one := func(v milp.Var, coeff float64) milp.Term { return milp.Term{Coeff: coeff, Var: v} }

	pin(0, []milp.Term{one(ww, 1), one(xx, 1), one(yy, -1), one(zz, -1)}, 0)
	pin(1, []milp.Term{one(xy, 2), one(wz, -2)}, 0)
	pin(2, []milp.Term{one(xz, 2), one(wy, 2)}, 0)
	pin(3, []milp.Term{one(xy, 2), one(wz, 2)}, 0)
	pin(4, []milp.Term{one(ww, 1), one(xx, -1), one(yy, 1), one(zz, -1)}, 0)
	pin(5, []milp.Term{one(yz, 2), one(wx, -2)}, 0)
	pin(6, []milp.Term{one(xz, 2), one(wy, -2)}, 0)
	pin(7, []milp.Term{one(yz, 2), one(wx, 2)}, 0)
	pin(8, []milp.Term{one(ww, 1), one(xx, -1), one(yy, -1), one(zz, 1)}, 0)
}

// addMcCormickEnvelope adds the four standard McCormick inequalities bounding a continuous
// variable p standing in for the bilinear product a*b, given the box bounds of a and b.
func addMcCormickEnvelope(prog *milp.Program, p, a, b milp.Var, aLo, aHi, bLo, bHi float64, label string) {
	// p >= aLo*b + bLo*a - aLo*bLo
	prog.AddGeq([]milp.Term{{Coeff: 1, Var: p}, {Coeff: -bLo, Var: a}, {Coeff: -aLo, Var: b}}, -aLo*bLo, label+".mc1")
	// p >= aHi*b + bHi*a - aHi*bHi
	prog.AddGeq([]milp.Term{{Coeff: 1, Var: p}, {Coeff: -bHi, Var: a}, {Coeff: -aHi, Var: b}}, -aHi*bHi, label+".mc2")
	// p <= aLo*b + bHi*a - aLo*bHi
	prog.AddLeq([]milp.Term{{Coeff: 1, Var: p}, {Coeff: -bHi, Var: a}, {Coeff: -aLo, Var: b}}, -aLo*bHi, label+".mc3")
	// p <= aHi*b + bLo*a - aHi*bLo
	prog.AddLeq([]milp.Term{{Coeff: 1, Var: p}, {Coeff: -bLo, Var: a}, {Coeff: -aHi, Var: b}}, -aHi*bLo, label+".mc4")
}

// addMcCormickMILPBins allocates the per-bin threshold indicators B_pos[k]/B_neg[k] for every R
// entry and big-M-links each one to R, per §4.4 mode 4's semantics. R itself is left as the
// ordinary [-1,1] continuous variable; the indicators are returned on TransformVars for the
// initial-guess routine to read, not used to redefine R.
func addMcCormickMILPBins(prog *milp.Program, tv *TransformVars, opts RotationModeOptions, prefix string) {
	k := opts.NumBins
	if k <= 0 {
		k = 1
	}
	bigM := opts.BigM
	if bigM <= 0 {
		bigM = 2
	}
	tv.BPos = make([][9]milp.Var, k)
	tv.BNeg = make([][9]milp.Var, k)
	for bin := 0; bin < k; bin++ {
		thresh := float64(bin) / float64(k)
		for e := 0; e < 9; e++ {
			bpos := prog.AddVar(milp.Binary, 0, 1, fmt.Sprintf("%s.Bpos[%d][%d]", prefix, bin, e))
			bneg := prog.AddVar(milp.Binary, 0, 1, fmt.Sprintf("%s.Bneg[%d][%d]", prefix, bin, e))
			tv.BPos[bin][e] = bpos
			tv.BNeg[bin][e] = bneg

			// bpos=1 => R[e] >= thresh (i.e. R[e] - bigM*bpos >= thresh - bigM)
			prog.AddGeq([]milp.Term{{Coeff: 1, Var: tv.R[e]}, {Coeff: -bigM, Var: bpos}}, thresh-bigM,
				fmt.Sprintf("%s.bpos_on[%d][%d]", prefix, bin, e))
			// bpos=0 => R[e] <= thresh (i.e. R[e] - bigM*bpos <= thresh)
			prog.AddLeq([]milp.Term{{Coeff: 1, Var: tv.R[e]}, {Coeff: -bigM, Var: bpos}}, thresh,
				fmt.Sprintf("%s.bpos_off[%d][%d]", prefix, bin, e))
			// bneg=1 => R[e] <= -thresh (i.e. R[e] + bigM*bneg <= -thresh + bigM)
			prog.AddLeq([]milp.Term{{Coeff: 1, Var: tv.R[e]}, {Coeff: bigM, Var: bneg}}, -thresh+bigM,
				fmt.Sprintf("%s.bneg_on[%d][%d]", prefix, bin, e))
			// bneg=0 => R[e] >= -thresh
			prog.AddGeq([]milp.Term{{Coeff: 1, Var: tv.R[e]}, {Coeff: bigM, Var: bneg}}, -thresh,
				fmt.Sprintf("%s.bneg_off[%d][%d]", prefix, bin, e))
		}
	}
}

// addRPYBoundingBox tightens R's per-entry bounds to the numeric range swept by
// spatialmath.RPYToRotationMatrix as roll, pitch, yaw range over the corners of [0, pi/2]^3. This
// gives a linear (bound-only) relaxation of the nonlinear RPY parameterization.
func addRPYBoundingBox(prog *milp.Program, tv *TransformVars) {
	const halfPi = 1.5707963267948966
	var lo, hi [9]float64
	for e := 0; e < 9; e++ {
		lo[e], hi[e] = 1, -1
	}
	for _, roll := range []float64{0, halfPi} {
		for _, pitch := range []float64{0, halfPi} {
			for _, yaw := range []float64{0, halfPi} {
				rm := spatialmath.RPYToRotationMatrix(roll, pitch, yaw)
				data := rm.Data()
				for e := 0; e < 9; e++ {
					if data[e] < lo[e] {
						lo[e] = data[e]
					}
					if data[e] > hi[e] {
						hi[e] = data[e]
					}
				}
			}
		}
	}
	for e := 0; e < 9; e++ {
		// Re-bound by adding tight redundant box constraints rather than mutating Program's stored
		// bounds (Program exposes no bound-mutation method post-AddVar by design).
		prog.AddLeq([]milp.Term{{Coeff: 1, Var: tv.R[e]}}, hi[e], fmt.Sprintf("rpybox.hi[%d]", e))
		prog.AddGeq([]milp.Term{{Coeff: 1, Var: tv.R[e]}}, lo[e], fmt.Sprintf("rpybox.lo[%d]", e))
	}
}

// addLogMcCormick2D envelopes R using only two of the reference rotation's three RPY degrees of
// freedom (roll, pitch) — "log" names this mode's working domain, the angle domain, in contrast to
// mode 2's quaternion domain. sin(roll), cos(roll), sin(pitch), cos(pitch) are each free continuous
// variables bounded within L1Bound of the reference rotation's own values (rather than pinned
// equal, which would collapse to mode 6); their bilinear cross terms are McCormick-enveloped, and
// yaw is pinned numerically to the reference's yaw.
func addLogMcCormick2D(prog *milp.Program, tv *TransformVars, ref spatialmath.Pose, opts RotationModeOptions) {
	rpy := spatialmath.RotationMatrixToRPY(ref.Orientation())
	tol := opts.L1Bound
	if tol <= 0 {
		tol = 0.1
	}

	bound := func(name string, center float64) milp.Var {
		v := prog.AddVar(milp.Continuous, -1, 1, name)
		lo, hi := center-tol, center+tol
		if lo < -1 {
			lo = -1
		}
		if hi > 1 {
			hi = 1
		}
		prog.AddLeq([]milp.Term{{Coeff: 1, Var: v}}, hi, name+".hi")
		prog.AddGeq([]milp.Term{{Coeff: 1, Var: v}}, lo, name+".lo")
		return v
	}

	sr := bound("logmc.sr", math.Sin(rpy.Roll))
	cr := bound("logmc.cr", math.Cos(rpy.Roll))
	sp := bound("logmc.sp", math.Sin(rpy.Pitch))
	cp := bound("logmc.cp", math.Cos(rpy.Pitch))

	crsp := prog.AddVar(milp.Continuous, -1, 1, "logmc.cr_sp")
	addMcCormickEnvelope(prog, crsp, cr, sp, -1, 1, -1, 1, "logmc.cr_sp")
	srsp := prog.AddVar(milp.Continuous, -1, 1, "logmc.sr_sp")
	addMcCormickEnvelope(prog, srsp, sr, sp, -1, 1, -1, 1, "logmc.sr_sp")
	cpsr := prog.AddVar(milp.Continuous, -1, 1, "logmc.cp_sr")
	addMcCormickEnvelope(prog, cpsr, cp, sr, -1, 1, -1, 1, "logmc.cp_sr")
	cpcr := prog.AddVar(milp.Continuous, -1, 1, "logmc.cp_cr")
	addMcCormickEnvelope(prog, cpcr, cp, cr, -1, 1, -1, 1, "logmc.cp_cr")

	cy, sy := math.Cos(rpy.Yaw), math.Sin(rpy.Yaw)
	one := func(v milp.Var, coeff float64) milp.Term { return milp.Term{Coeff: coeff, Var: v} }
	pin := func(entry int, terms []milp.Term) {
		full := append(append([]milp.Term{}, terms...), milp.Term{Coeff: -1, Var: tv.R[entry]})
		prog.AddEq(full, 0, fmt.Sprintf("logmc.pin[%d]", entry))
	}
	// R = Rz(yaw) * Ry(pitch) * Rx(roll), expanded with (roll,pitch) left symbolic, yaw numeric.
	// srsp stands in for sp*sr, crsp for sp*cr.
	pin(0, []milp.Term{one(cp, cy)})
	pin(1, []milp.Term{one(srsp, cy), one(cr, -sy)})
	pin(2, []milp.Term{one(crsp, cy), one(sr, sy)})
	pin(3, []milp.Term{one(cp, sy)})
	pin(4, []milp.Term{one(srsp, sy), one(cr, cy)})
	pin(5, []milp.Term{one(crsp, sy), one(sr, -cy)})
	pin(6, []milp.Term{one(sp, -1)})
	pin(7, []milp.Term{one(cpsr, 1)})
	pin(8, []milp.Term{one(cpcr, 1)})
}

// addEqualsGroundTruth pins every R entry equal to the reference rotation's entry.
func addEqualsGroundTruth(prog *milp.Program, tv *TransformVars, ref spatialmath.Pose) {
	data := ref.Orientation().Data()
	for e := 0; e < 9; e++ {
		prog.AddEq([]milp.Term{{Coeff: 1, Var: tv.R[e]}}, data[e], fmt.Sprintf("rotfallback[%d]", e))
	}
}
