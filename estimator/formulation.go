package estimator

import (
	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/milp"
)

// Formulation is the shared output of building any of the three MI programs (§4.5): the backing
// milp.Program, the per-body transform variables, and enough assignment-variable handles for the
// solve driver and solution extractor to read back an incumbent.
type Formulation struct {
	Prog      *milp.Program
	Transform map[int]*TransformVars
	Geom      *modelGeometry
	Scene     []r3.Vector

	// Phi is the per-scene-point residual slack (length len(Scene)).
	Phi []milp.Var
	// FOutlier is the per-scene-point outlier indicator (length len(Scene)).
	FOutlier []milp.Var
	// F is the per-scene-point face assignment, Ns x Nf (formulations A, nil in B/C).
	F [][]milp.Var
	// C is the sampled-model-point assignment matrix used by formulations B and C (nil in A). Rows
	// are scene points in B (Ns x Nm) and model points in C (Nm x Ns); CRowsAreScenePoints
	// disambiguates which.
	C                   [][]milp.Var
	CRowsAreScenePoints bool
	// ModelPts and ModelBody are the sampled model points (and their 1-based owning body) B and C
	// both draw from; nil in A, which uses the flattened face/vertex geometry directly instead.
	ModelPts  []r3.Vector
	ModelBody []int
}

// FormulationOptions carries the shared knobs every formulation reads from the detector config.
type FormulationOptions struct {
	RotationMode      RotationMode
	RotationOpts      RotationModeOptions
	AllowOutliers     bool
	PhiMax            float64
	BigM              float64
	MaxDistToSameFace float64 // 0 or negative disables the same-face gate (§9 sentinel decision)
	HODBins           int
	HODDist           float64
	HODWeight         float64
}
