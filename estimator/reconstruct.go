package estimator

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/meshpose/estimator/gencoord"
	"github.com/meshpose/estimator/rigidbody"
	"github.com/meshpose/estimator/spatialmath"
)

// reconstructCoordinates reads every body's R/T entries out of a solver's flat values vector and
// turns them into a generalized-coordinate vector plus a per-body world pose map. worldToBody
// selects the direction convention formulations A/B use (R,T map world into the body's local
// frame, so the body's own world pose is the inverse) versus formulation C's direct body->world
// parameterization.
func reconstructCoordinates(form *Formulation, model *rigidbody.Model, values []float64, worldToBody bool) ([]gencoord.Input, map[int]spatialmath.Pose, error) {
	q := model.ZeroCoordinates()
	poses := make(map[int]spatialmath.Pose, len(form.Transform))

	for b, tv := range form.Transform {
		var data [9]float64
		for e := 0; e < 9; e++ {
			idx := tv.R[e].Index()
			if idx < 0 || idx >= len(values) {
				return nil, nil, errors.Errorf("body %d rotation entry %d out of range", b, e)
			}
			data[e] = values[idx]
		}
		var t [3]float64
		for k := 0; k < 3; k++ {
			idx := tv.T[k].Index()
			if idx < 0 || idx >= len(values) {
				return nil, nil, errors.Errorf("body %d translation entry %d out of range", b, k)
			}
			t[k] = values[idx]
		}

		raw := spatialmath.NewPose(r3.Vector{X: t[0], Y: t[1], Z: t[2]}, spatialmath.NewRotationMatrix(data))
		pose := raw
		if worldToBody {
			pose = spatialmath.PoseInverse(raw)
		}
		poses[b] = pose

		rpy := spatialmath.RotationMatrixToRPY(pose.Orientation())
		point := pose.Point()
		start := (b - 1) * rigidbody.DOF
		if start+rigidbody.DOF > len(q) {
			return nil, nil, errors.Errorf("generalized coordinate vector too short for body %d", b)
		}
		q[start+0].Value = point.X
		q[start+1].Value = point.Y
		q[start+2].Value = point.Z
		q[start+3].Value = rpy.Roll
		q[start+4].Value = rpy.Pitch
		q[start+5].Value = rpy.Yaw
	}

	return q, poses, nil
}
