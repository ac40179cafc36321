// Package rigidbody provides a read-only, free-floating kinematic tree: a fixed set of bodies, each
// carrying a collision mesh and a home-frame offset, posed by a 6-DOF generalized-coordinate vector.
// There is no articulated joint chain: every body's parent is the world, consistent with this
// module's non-goal of articulated-joint recovery.
package rigidbody

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/meshpose/estimator/gencoord"
	"github.com/meshpose/estimator/spatialmath"
)

// DOF is the number of generalized coordinates per body: translation (x, y, z) then roll, pitch, yaw.
const DOF = 6

// Body is one rigid, mesh-described object in the model, indexed 1..B (0 is reserved for the world
// and carries no geometry).
type Body struct {
	name string
	mesh *spatialmath.Mesh
	home spatialmath.Pose
}

// NewBody constructs a Body from a name, a local-frame collision mesh, and its home-frame offset
// pose (the pose at which q == 0 for that body).
func NewBody(name string, mesh *spatialmath.Mesh, home spatialmath.Pose) *Body {
	if home == nil {
		home = spatialmath.NewZeroPose()
	}
	return &Body{name: name, mesh: mesh, home: home}
}

// Name returns the body's name, taken from its URDF link or constructor argument.
func (b *Body) Name() string { return b.name }

// Mesh returns the body's collision geometry in its own local frame.
func (b *Body) Mesh() *spatialmath.Mesh { return b.mesh }

// HomePose returns the body's offset pose at q = qHome (all zeros unless constructed otherwise).
func (b *Body) HomePose() spatialmath.Pose { return b.home }

// Model is a read-only view over B free-floating bodies (world excluded from B).
type Model struct {
	bodies []*Body
}

// NewModel builds a Model from an ordered list of bodies. Body indices in the public API
// (1-based, per §3's `face_body`/`body_idx` convention) correspond to this slice's order plus one.
func NewModel(bodies []*Body) *Model {
	return &Model{bodies: bodies}
}

// NumBodies returns B+1 (0 = world), matching §4.3's external contract.
func (m *Model) NumBodies() int { return len(m.bodies) + 1 }

// Body returns the body at 1-based index idx. idx == 0 (world) is invalid and returns an error.
func (m *Model) Body(idx int) (*Body, error) {
	if idx <= 0 || idx > len(m.bodies) {
		return nil, errors.Errorf("body index %d out of range [1,%d]", idx, len(m.bodies))
	}
	return m.bodies[idx-1], nil
}

// Bodies returns all bodies (1-based indices 1..B in order).
func (m *Model) Bodies() []*Body { return m.bodies }

// Transform returns body idx's pose in the world frame given generalized coordinates q, a flat
// vector of length (NumBodies()-1)*DOF (one block per body, world excluded), laid out per body as
// [tx,ty,tz,roll,pitch,yaw].
func (m *Model) Transform(idx int, q []gencoord.Input) (spatialmath.Pose, error) {
	body, err := m.Body(idx)
	if err != nil {
		return nil, err
	}
	offset, err := bodyOffset(q, idx-1)
	if err != nil {
		return nil, err
	}
	return spatialmath.Compose(offset, body.home), nil
}

// TransformAll returns every body's world-frame pose for generalized coordinates q, indexed 0..B-1
// (body 1 at index 0).
func (m *Model) TransformAll(q []gencoord.Input) ([]spatialmath.Pose, error) {
	poses := make([]spatialmath.Pose, len(m.bodies))
	for i := range m.bodies {
		p, err := m.Transform(i+1, q)
		if err != nil {
			return nil, err
		}
		poses[i] = p
	}
	return poses, nil
}

// bodyOffset extracts the 6 generalized coordinates for bodyIdx (0-based) out of the flat vector q
// and builds the corresponding pose.
func bodyOffset(q []gencoord.Input, bodyIdx int) (spatialmath.Pose, error) {
	start := bodyIdx * DOF
	if start+DOF > len(q) {
		return nil, errors.Errorf("generalized coordinate vector too short for body %d: need %d values, have %d",
			bodyIdx+1, start+DOF, len(q))
	}
	vals := gencoord.InputsToFloats(q[start : start+DOF])
	point := r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}
	rot := spatialmath.RPYToRotationMatrix(vals[3], vals[4], vals[5])
	return spatialmath.NewPose(point, rot), nil
}

// ZeroCoordinates returns a generalized-coordinate vector of zeros sized for this model.
func (m *Model) ZeroCoordinates() []gencoord.Input {
	return make([]gencoord.Input, m.NumBodies()*DOF-DOF)
}
