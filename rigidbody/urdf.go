package rigidbody

import (
	"encoding/xml"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/meshpose/estimator/spatialmath"
)

// No URDF parsing library appears anywhere in the retrieved reference pack, so this file decodes
// the minimal subset of URDF needed by this module (link names and joint origins) with the standard
// library's encoding/xml rather than fabricating a third-party dependency.

type urdfRobot struct {
	XMLName xml.Name    `xml:"robot"`
	Links   []urdfLink  `xml:"link"`
	Joints  []urdfJoint `xml:"joint"`
}

type urdfLink struct {
	Name string `xml:"name,attr"`
}

type urdfJoint struct {
	Name   string    `xml:"name,attr"`
	Parent urdfLinkRef `xml:"parent"`
	Child  urdfLinkRef `xml:"child"`
	Origin urdfOrigin  `xml:"origin"`
}

type urdfLinkRef struct {
	Link string `xml:"link,attr"`
}

type urdfOrigin struct {
	XYZ string `xml:"xyz,attr"`
	RPY string `xml:"rpy,attr"`
}

// MeshLoader resolves a link's collision mesh given its name. Mesh file parsing (STL/DAE/OBJ) is an
// external collaborator per this module's scope; callers supply their own loader.
type MeshLoader func(linkName string) (*spatialmath.Mesh, error)

// LoadModel parses a URDF file's link/joint structure and builds a free-floating Model: each link
// becomes a body whose home pose is the composition of the joint origins on the path from the root.
// Only fixed-offset origins are honored, consistent with this module's free-floating, non-articulated
// body set.
func LoadModel(urdfPath string, loadMesh MeshLoader) (*Model, error) {
	data, err := os.ReadFile(urdfPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading urdf file %q", urdfPath)
	}

	var robot urdfRobot
	if err := xml.Unmarshal(data, &robot); err != nil {
		return nil, errors.Wrapf(err, "parsing urdf file %q", urdfPath)
	}

	originByChild := make(map[string]spatialmath.Pose, len(robot.Joints))
	parentOf := make(map[string]string, len(robot.Joints))
	for _, j := range robot.Joints {
		pose, err := parseOrigin(j.Origin)
		if err != nil {
			return nil, errors.Wrapf(err, "joint %q", j.Name)
		}
		originByChild[j.Child.Link] = pose
		parentOf[j.Child.Link] = j.Parent.Link
	}

	// A link with no parent joint is the root/world link; skip it, it carries no pose of its own.
	isRoot := func(name string) bool {
		_, ok := parentOf[name]
		return !ok
	}

	bodies := make([]*Body, 0, len(robot.Links))
	for _, link := range robot.Links {
		if isRoot(link.Name) {
			continue
		}
		home, err := composeToRoot(link.Name, originByChild, parentOf)
		if err != nil {
			return nil, err
		}
		var mesh *spatialmath.Mesh
		if loadMesh != nil {
			mesh, err = loadMesh(link.Name)
			if err != nil {
				return nil, errors.Wrapf(err, "loading mesh for link %q", link.Name)
			}
		}
		bodies = append(bodies, NewBody(link.Name, mesh, home))
	}

	return NewModel(bodies), nil
}

// composeToRoot walks the joint chain from name up to the root, composing origins along the way.
// Guards against cycles with a bounded hop count since URDF well-formedness is not otherwise
// enforced here.
func composeToRoot(name string, originByChild map[string]spatialmath.Pose, parentOf map[string]string) (spatialmath.Pose, error) {
	const maxHops = 1000
	pose := spatialmath.NewZeroPose()
	cur := name
	for hops := 0; ; hops++ {
		if hops > maxHops {
			return nil, errors.Errorf("urdf joint chain for link %q exceeds %d hops, likely cyclic", name, maxHops)
		}
		origin, ok := originByChild[cur]
		if !ok {
			break
		}
		pose = spatialmath.Compose(origin, pose)
		cur = parentOf[cur]
	}
	return pose, nil
}

func parseOrigin(o urdfOrigin) (spatialmath.Pose, error) {
	xyz, err := parseVec3(o.XYZ, r3.Vector{})
	if err != nil {
		return nil, errors.Wrap(err, "parsing xyz")
	}
	rpy, err := parseVec3(o.RPY, r3.Vector{})
	if err != nil {
		return nil, errors.Wrap(err, "parsing rpy")
	}
	return spatialmath.NewPose(xyz, spatialmath.RPYToRotationMatrix(rpy.X, rpy.Y, rpy.Z)), nil
}

// parseVec3 parses a space-delimited "x y z" attribute, defaulting to def when the attribute is empty.
func parseVec3(s string, def r3.Vector) (r3.Vector, error) {
	if s == "" {
		return def, nil
	}
	vals, err := spaceDelimitedStringToFloats(s)
	if err != nil {
		return r3.Vector{}, err
	}
	if len(vals) != 3 {
		return r3.Vector{}, errors.Errorf("expected 3 values, got %d in %q", len(vals), s)
	}
	return r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// spaceDelimitedStringToFloats parses a space-delimited numeric attribute, as used throughout URDF
// for xyz/rpy fields.
func spaceDelimitedStringToFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing float %q", f)
		}
		out[i] = v
	}
	return out, nil
}
