// Package estimator builds and drives a 6-DOF mixed-integer pose-estimation program from a scene
// point cloud and a rigid-body model, warm-started by an auxiliary ICP worker.
package estimator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/meshpose/estimator/config"
	"github.com/meshpose/estimator/gencoord"
	"github.com/meshpose/estimator/logging"
	"github.com/meshpose/estimator/milp"
	"github.com/meshpose/estimator/pointcloud"
	"github.com/meshpose/estimator/rigidbody"
	"github.com/meshpose/estimator/sceneprep"
	"github.com/meshpose/estimator/spatialmath"
)

// Estimator is constructed once from a detector config and a model config, then solves any number
// of scenes against the same rigid-body model.
type Estimator struct {
	detectorCfg *config.DetectorConfig
	model       *rigidbody.Model
	geom        *modelGeometry
	groundQ     []gencoord.Input
	viz         VizPublisher
	logger      logging.Logger
	solver      milp.Solver

	historyMu    sync.Mutex
	solveHistory []historyEntry
}

// New builds an Estimator from a detector config and model config. meshLoader resolves each URDF
// link's collision mesh (mesh-file parsing is an external collaborator, per rigidbody.LoadModel);
// viz defaults to NoopVizPublisher when nil, and logger to a package-named logger when nil.
func New(detectorCfg *config.DetectorConfig, modelCfg *config.ModelConfig, meshLoader rigidbody.MeshLoader, viz VizPublisher, logger logging.Logger) (*Estimator, error) {
	if detectorCfg == nil {
		return nil, errors.New("detector config is required")
	}
	if modelCfg == nil || len(modelCfg.Models) == 0 {
		return nil, errors.New("model config must list at least one model")
	}
	if viz == nil {
		viz = NoopVizPublisher{}
	}
	if logger == nil {
		logger = logging.NewLogger("estimator")
	}

	bodies := make([]*rigidbody.Body, 0, len(modelCfg.Models))
	var groundQ []gencoord.Input
	for _, entry := range modelCfg.Models {
		m, err := rigidbody.LoadModel(entry.URDF, meshLoader)
		if err != nil {
			return nil, errors.Wrapf(err, "loading model %q", entry.URDF)
		}
		q0, err := entry.RPYQ0()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing q0 for model %q", entry.URDF)
		}
		// q0 is the whole entry's rigid offset from its URDF-authored home frame; every body the
		// entry contributes shares it, since rigidbody.Model composes offset before body.home
		// (fixed joints already fold each link's own placement into that home pose).
		for range m.Bodies() {
			for _, v := range q0 {
				groundQ = append(groundQ, gencoord.Input{Value: v})
			}
		}
		bodies = append(bodies, m.Bodies()...)
	}
	model := rigidbody.NewModel(bodies)

	geom, err := buildModelGeometry(model)
	if err != nil {
		return nil, errors.Wrap(err, "building model geometry")
	}

	return &Estimator{
		detectorCfg: detectorCfg,
		model:       model,
		geom:        geom,
		groundQ:     groundQ,
		viz:         viz,
		logger:      logger,
		solver:      milp.NewReferenceSolver(),
	}, nil
}

// SolveHistory returns the append-only sequence of history entries recorded across every Solve
// call made on this Estimator so far.
func (e *Estimator) SolveHistory() []historyEntry {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	return append([]historyEntry(nil), e.solveHistory...)
}

// Solve preprocesses scene, builds the configured formulation, drives it with the MI solver and ICP
// worker, and returns one Solution per body grouping (currently always a single Solution spanning
// every body, since the formulations are built jointly across the whole model).
func (e *Estimator) Solve(ctx context.Context, scene pointcloud.PointCloud) ([]Solution, error) {
	cfg := e.detectorCfg

	prepped, err := sceneprep.Preprocess(scene, cfg.ScenePointRandSeed, sceneprep.Options{
		DownsampleTo: cfg.DownsampleToThisManyPoints,
		NumOutliers:  cfg.AddThisManyOutliers,
		OutlierMin:   vec3ToR3(cfg.OutlierMin),
		OutlierMax:   vec3ToR3(cfg.OutlierMax),
		NoiseSigma:   cfg.ScenePointAdditiveNoise,
	})
	if err != nil {
		return nil, errors.Wrap(err, "preprocessing scene")
	}
	scenePts := pointsOf(prepped)

	groundTruth, err := e.initialGuessPoses()
	if err != nil {
		return nil, errors.Wrap(err, "building initial guess")
	}

	rotationOpts := RotationModeOptions{
		BigM:    cfg.BigM,
		L1Bound: cfg.RotationConstraintL1Bound,
		NumBins: cfg.RotationConstraintNumFaces,
	}
	formOpts := FormulationOptions{
		RotationMode:      RotationMode(cfg.RotationConstraint),
		RotationOpts:      rotationOpts,
		AllowOutliers:     cfg.AllowOutliers,
		PhiMax:            cfg.PhiMax,
		BigM:              cfg.BigM,
		MaxDistToSameFace: cfg.MaxDistToSameFace,
		HODBins:           cfg.HODBins,
		HODDist:           cfg.HODDist,
		HODWeight:         cfg.HODWeight,
	}

	modelRand := rand.New(rand.NewSource(cfg.ModelPointRandSeed))

	var form *Formulation
	worldToBody := cfg.DetectorType != config.BodyToWorldTransforms
	switch cfg.DetectorType {
	case config.WorldToBodyTransforms:
		form, err = BuildFormulationA(e.geom, scenePts, groundTruth, formOpts)
	case config.WorldToBodyTransformsWithSampledModelPoints:
		form, err = BuildFormulationB(e.geom, scenePts, groundTruth, cfg.ModelSampleRays, modelRand, formOpts)
	case config.BodyToWorldTransforms:
		form, err = BuildFormulationC(e.geom, scenePts, groundTruth, cfg.ModelSampleRays, modelRand, formOpts)
	default:
		return nil, errors.Errorf("unrecognized detector_type %q", cfg.DetectorType)
	}
	if err != nil {
		return nil, errors.Wrap(err, "building formulation")
	}

	driverOpts := driverOptions{
		SolverOptions: milp.Options{
			Passthrough: milp.PassthroughOptions(cfg.SolverOptions),
		},
		UseICPHeuristic:    cfg.ICPUseAsHeuristic,
		WorldToBody:        worldToBody,
		MagnitudeThreshold: cfg.BigM,
		ICP: icpOptions{
			MaxIters:            cfg.ICPMaxIters,
			PriorWeight:         cfg.ICPPriorWeight,
			RejectionProportion: cfg.ICPOutlierRejectionProportion,
			PhiMax:              cfg.PhiMax,
			WorldToBody:         worldToBody,
		},
	}

	start := time.Now()
	result, history, incumbent, err := runSolve(ctx, form, e.model, e.solver, driverOpts, e.viz, e.logger)
	solveTime := time.Since(start)
	if err != nil {
		return nil, errors.Wrap(err, "solving")
	}

	e.historyMu.Lock()
	e.solveHistory = append(e.solveHistory, history...)
	e.historyMu.Unlock()

	solution, err := extractSolution(form, e.model, result, incumbent, solveTime, worldToBody)
	if err != nil {
		return nil, errors.Wrap(err, "extracting solution")
	}
	return []Solution{solution}, nil
}

// initialGuessPoses computes each body's pose under the model config's q0, the ground-truth reference
// the rotation modes that require one (RotationConstraint 1,2,5,6 per addTransformVars) are built
// against. groundQ falls back to all zeros when no model entry carries a q0.
func (e *Estimator) initialGuessPoses() (map[int]spatialmath.Pose, error) {
	q := e.groundQ
	poses := make(map[int]spatialmath.Pose, e.model.NumBodies()-1)
	for b := 1; b < e.model.NumBodies(); b++ {
		pose, err := e.model.Transform(b, q)
		if err != nil {
			return nil, err
		}
		poses[b] = pose
	}
	return poses, nil
}

func vec3ToR3(v config.Vec3) r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// pointsOf flattens a pointcloud.PointCloud into its constituent points, discarding per-point data.
func pointsOf(cloud pointcloud.PointCloud) []r3.Vector {
	pts := make([]r3.Vector, 0, cloud.Size())
	cloud.Iterate(0, 0, func(p r3.Vector, _ pointcloud.Data) bool {
		pts = append(pts, p)
		return true
	})
	return pts
}
