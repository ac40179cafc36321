package spatialmath

// This file incorporates work covered by the Brax project -- https://github.com/google/brax/blob/main/LICENSE.
// Copyright 2021 The Brax Authors, which is licensed under the Apache License Version 2.0 (the “License”).
// You may obtain a copy of the license at http://www.apache.org/licenses/LICENSE-2.0.

// Mesh is a collision geometry made up of a set of triangles, carried in the frame given by pose.
type Mesh struct {
	pose      Pose
	triangles []*Triangle
	label     string
}

// NewMesh builds a Mesh from a pose, a set of triangles given in the mesh's local frame, and a label.
func NewMesh(pose Pose, triangles []*Triangle, label string) *Mesh {
	return &Mesh{
		pose:      pose,
		triangles: triangles,
		label:     label,
	}
}

func (m *Mesh) Pose() Pose {
	return m.pose
}

func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

func (m *Mesh) Label() string {
	return m.label
}

// Transform returns a new Mesh whose pose is the composition of pose with the mesh's own pose.
// Triangle vertices are in the mesh's local frame and are left untouched; only the carried pose moves.
func (m *Mesh) Transform(pose Pose) *Mesh {
	return &Mesh{
		pose:      Compose(pose, m.pose),
		triangles: m.triangles,
		label:     m.label,
	}
}

// WorldTriangles returns the mesh's triangles with vertices transformed into the world frame.
func (m *Mesh) WorldTriangles() []*Triangle {
	out := make([]*Triangle, len(m.triangles))
	for i, t := range m.triangles {
		out[i] = t.Transform(m.pose)
	}
	return out
}
