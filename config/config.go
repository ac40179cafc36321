// Package config decodes the two YAML configuration trees the estimator is constructed from: the
// detector config (search strategy, corruption/noise knobs, solver passthrough options) and the
// model config (the list of URDF models and their initial-guess generalized coordinates).
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"gonum.org/v1/gonum/num/quat"

	"github.com/meshpose/estimator/spatialmath"
)

// DetectorType selects which of the three MI formulations (§4.5) the estimator builds.
type DetectorType string

const (
	// WorldToBodyTransforms is formulation A: world-to-body pose variables, exact collision terms.
	WorldToBodyTransforms DetectorType = "world_to_body_transforms"
	// WorldToBodyTransformsWithSampledModelPoints is formulation B: adds surface-area-weighted
	// sampled model points to the correspondence search.
	WorldToBodyTransformsWithSampledModelPoints DetectorType = "world_to_body_transforms_with_sampled_model_points"
	// BodyToWorldTransforms is formulation C: body-to-world pose variables.
	BodyToWorldTransforms DetectorType = "body_to_world_transforms"
)

func (t DetectorType) valid() bool {
	switch t {
	case WorldToBodyTransforms, WorldToBodyTransformsWithSampledModelPoints, BodyToWorldTransforms:
		return true
	default:
		return false
	}
}

// SolverOptions carries the commercial-solver passthrough knobs untouched from YAML to the milp
// Solver backend in use.
type SolverOptions struct {
	GurobiIntOptions   map[string]int     `yaml:"gurobi_int_options"`
	GurobiFloatOptions map[string]float64 `yaml:"gurobi_float_options"`
	MosekIntOptions    map[string]int     `yaml:"mosek_int_options"`
	MosekFloatOptions  map[string]float64 `yaml:"mosek_float_options"`
}

// Vec3 is a YAML-decodable [x, y, z] triple.
type Vec3 struct {
	X, Y, Z float64
}

// UnmarshalYAML decodes a 3-element sequence node into a Vec3.
func (v *Vec3) UnmarshalYAML(value *yaml.Node) error {
	var floats [3]float64
	if err := value.Decode(&floats); err != nil {
		return errors.Wrap(err, "decoding float[3]")
	}
	v.X, v.Y, v.Z = floats[0], floats[1], floats[2]
	return nil
}

// DetectorConfig is the full set of recognized detector_options keys (§6).
type DetectorConfig struct {
	DetectorType DetectorType `yaml:"detector_type"`

	RotationConstraint         int     `yaml:"rotation_constraint"`
	RotationConstraintNumFaces int     `yaml:"rotation_constraint_num_faces"`
	RotationConstraintL1Bound  float64 `yaml:"rotation_constraint_l1_bound"`

	AllowOutliers   bool    `yaml:"allow_outliers"`
	PhiMax          float64 `yaml:"phi_max"`
	UseInitialGuess bool    `yaml:"use_initial_guess"`

	CorruptionAmount            float64 `yaml:"corruption_amount"`
	DownsampleToThisManyPoints  int     `yaml:"downsample_to_this_many_points"`
	ModelSampleRays             int     `yaml:"model_sample_rays"`
	AddThisManyOutliers         int     `yaml:"add_this_many_outliers"`
	OutlierMin                  Vec3    `yaml:"outlier_min"`
	OutlierMax                  Vec3    `yaml:"outlier_max"`
	ScenePointAdditiveNoise     float64 `yaml:"scene_point_additive_noise"`

	BigM float64 `yaml:"big_M"`

	ICPPriorWeight                float64 `yaml:"ICP_prior_weight"`
	ICPMaxIters                    int     `yaml:"ICP_max_iters"`
	ICPOutlierRejectionProportion float64 `yaml:"ICP_outlier_rejection_proportion"`
	ICPUseAsHeuristic              bool    `yaml:"ICP_use_as_heuristic"`

	MaxDistToSameFace float64 `yaml:"max_dist_to_same_face"`

	ModelPointRandSeed int64 `yaml:"model_point_rand_seed"`
	ScenePointRandSeed int64 `yaml:"scene_point_rand_seed"`
	InitGuessRandSeed  int64 `yaml:"init_guess_rand_seed"`

	HODBins   int     `yaml:"HOD_bins"`
	HODDist   float64 `yaml:"HOD_dist"`
	HODWeight float64 `yaml:"HOD_weight"`

	SolverOptions SolverOptions `yaml:",inline"`
}

// ModelEntry is one body's URDF source and initial-guess generalized coordinates.
type ModelEntry struct {
	URDF string    `yaml:"urdf"`
	Q0   []float64 `yaml:"q0"`
}

// ModelConfig is the models: [...] tree (§6).
type ModelConfig struct {
	Models []ModelEntry `yaml:"models"`
}

// detectorDoc and modelDoc mirror the upstream YAML's outer key ("detector_options"/"models") so
// both configs can be decoded from the same file when present, or from separate files.
type detectorDoc struct {
	DetectorOptions *DetectorConfig `yaml:"detector_options"`
}

type modelDoc struct {
	Models []ModelEntry `yaml:"models"`
}

// LoadDetectorConfig reads and validates a detector config YAML file. Missing detector_options or
// an unrecognized detector_type fail fast, per §7's configuration-error handling.
func LoadDetectorConfig(path string) (*DetectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading detector config %q", path)
	}
	return ParseDetectorConfig(data)
}

// ParseDetectorConfig validates and decodes raw detector config YAML.
func ParseDetectorConfig(data []byte) (*DetectorConfig, error) {
	var doc detectorDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing detector config")
	}
	if doc.DetectorOptions == nil {
		return nil, errors.New("detector config missing required \"detector_options\" key")
	}
	cfg := doc.DetectorOptions
	if !cfg.DetectorType.valid() {
		return nil, errors.Errorf("unrecognized detector_type %q", cfg.DetectorType)
	}
	if cfg.RotationConstraint < 0 || cfg.RotationConstraint > 6 {
		return nil, errors.Errorf("rotation_constraint must be in [0,6], got %d", cfg.RotationConstraint)
	}
	return cfg, nil
}

// LoadModelConfig reads and validates a model config YAML file. A missing or empty "models" list
// fails fast, as does any model entry whose q0 is not length 6 or 7.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading model config %q", path)
	}
	return ParseModelConfig(data)
}

// ParseModelConfig validates and decodes raw model config YAML.
func ParseModelConfig(data []byte) (*ModelConfig, error) {
	var doc modelDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing model config")
	}
	if len(doc.Models) == 0 {
		return nil, errors.New("model config missing required non-empty \"models\" key")
	}
	for i, m := range doc.Models {
		if m.URDF == "" {
			return nil, errors.Errorf("models[%d] missing required \"urdf\" key", i)
		}
		if len(m.Q0) != 0 && len(m.Q0) != 6 && len(m.Q0) != 7 {
			return nil, errors.Errorf("models[%d].q0 must have length 6 or 7, got %d", i, len(m.Q0))
		}
	}
	return &ModelConfig{Models: doc.Models}, nil
}

// RPYQ0 converts a model entry's q0 into the 6-value [tx,ty,tz,roll,pitch,yaw] form the rigid-body
// model expects, auto-converting a length-7 [tx,ty,tz,qw,qx,qy,qz] quaternion form via
// spatialmath.QuaternionToRotationMatrix. A nil/empty q0 yields all zeros.
func (m ModelEntry) RPYQ0() ([]float64, error) {
	switch len(m.Q0) {
	case 0:
		return make([]float64, 6), nil
	case 6:
		out := make([]float64, 6)
		copy(out, m.Q0)
		return out, nil
	case 7:
		q := quat.Number{Real: m.Q0[3], Imag: m.Q0[4], Jmag: m.Q0[5], Kmag: m.Q0[6]}
		rpy := spatialmath.QuaternionToRPY(q)
		return []float64{m.Q0[0], m.Q0[1], m.Q0[2], rpy.Roll, rpy.Pitch, rpy.Yaw}, nil
	default:
		return nil, errors.Errorf("q0 must have length 6 or 7, got %d", len(m.Q0))
	}
}
