package estimator

import (
	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/logging"
	"github.com/meshpose/estimator/spatialmath"
)

// maxErrorDist caps the error-color gradient (red=far, green=near) at 0.02m, per §6.
const maxErrorDist = 0.02

// ErrorColoredPoint pairs a scene point with its residual distance to the current pose estimate,
// for a viewer to color red (far, >= maxErrorDist) to green (near, 0).
type ErrorColoredPoint struct {
	Point    r3.Vector
	Distance float64
}

// Color returns an (r,g,b) triple in [0,1] for this point's residual distance.
func (p ErrorColoredPoint) Color() (r, g, b float64) {
	t := p.Distance / maxErrorDist
	if t > 1 {
		t = 1
	}
	if t < 0 {
		t = 0
	}
	return t, 1 - t, 0
}

// VizUpdate is one rate-limited observability event (§6): a node pose, an incumbent pose, the
// final pose, or an error-colored scene cloud.
type VizUpdate struct {
	Kind       string
	Poses      map[int]spatialmath.Pose
	ErrorCloud []ErrorColoredPoint
	Objective  float64
}

// VizPublisher receives rate-limited observability events during a solve. A real renderer is out
// of scope; this hook exists so one can be attached without touching solve-driver code.
type VizPublisher interface {
	Publish(update VizUpdate)
}

// NoopVizPublisher discards every update; the default when no renderer is attached.
type NoopVizPublisher struct{}

// Publish implements VizPublisher.
func (NoopVizPublisher) Publish(VizUpdate) {}

// LogVizPublisher logs a one-line summary of every update at Debug level.
type LogVizPublisher struct {
	Logger logging.Logger
}

// Publish implements VizPublisher.
func (p LogVizPublisher) Publish(update VizUpdate) {
	if p.Logger == nil {
		return
	}
	p.Logger.Debugw("viz update",
		"kind", update.Kind,
		"objective", update.Objective,
		"num_error_points", len(update.ErrorCloud),
		"num_poses", len(update.Poses),
	)
}
