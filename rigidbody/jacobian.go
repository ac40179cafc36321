package rigidbody

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/meshpose/estimator/gencoord"
)

// jacobianStep is the finite-difference step size used for every generalized coordinate. Grounded
// on the small-jump convention the teacher's kinematics package uses for its own finite-difference
// Jacobians (on the order of 1e-6 to 1e-8 for a unitless/metric mix of translation and angle terms).
const jacobianStep = 1e-6

// PointJacobian returns the 3x6 Jacobian of the world-frame position of localPoint (given in body
// idx's local frame) with respect to body idx's own 6 generalized coordinates, evaluated at q. Used
// by the ICP worker to linearize the point-to-plane residual.
func (m *Model) PointJacobian(idx int, q []gencoord.Input, localPoint r3.Vector) (*mat.Dense, error) {
	start := (idx - 1) * DOF
	jac := mat.NewDense(3, DOF, nil)

	qPerturbed := append([]gencoord.Input(nil), q...)
	for col := 0; col < DOF; col++ {
		orig := qPerturbed[start+col].Value

		qPerturbed[start+col].Value = orig + jacobianStep
		posePlus, err := m.Transform(idx, qPerturbed)
		if err != nil {
			return nil, err
		}
		worldPlus := posePlus.Point().Add(posePlus.Orientation().MulVec(localPoint))

		qPerturbed[start+col].Value = orig - jacobianStep
		poseMinus, err := m.Transform(idx, qPerturbed)
		if err != nil {
			return nil, err
		}
		worldMinus := poseMinus.Point().Add(poseMinus.Orientation().MulVec(localPoint))

		qPerturbed[start+col].Value = orig

		diff := worldPlus.Sub(worldMinus)
		jac.Set(0, col, diff.X/(2*jacobianStep))
		jac.Set(1, col, diff.Y/(2*jacobianStep))
		jac.Set(2, col, diff.Z/(2*jacobianStep))
	}

	return jac, nil
}
