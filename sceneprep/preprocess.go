// Package sceneprep turns a raw scene point cloud into the corrupted, resampled cloud the
// estimator's correspondence search actually operates on: downsample, inject synthetic outliers,
// then add measurement noise, in that order.
package sceneprep

import (
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meshpose/estimator/pointcloud"
)

// Options controls the three preprocessing stages. Zero values disable outlier injection and
// noise; DownsampleTo defaults to "pass through" at any value < 0.
type Options struct {
	// DownsampleTo caps the cloud at this many points, chosen by uniform random selection without
	// replacement. A negative value passes the cloud through unchanged.
	DownsampleTo int

	// NumOutliers is how many of the (possibly downsampled) points are overwritten with synthetic
	// outliers drawn uniformly from the box [OutlierMin, OutlierMax].
	NumOutliers int
	OutlierMin  r3.Vector
	OutlierMax  r3.Vector

	// NoiseSigma is the standard deviation of the i.i.d. Gaussian noise added to every coordinate
	// of every point, applied after outlier injection.
	NoiseSigma float64
}

// Preprocess runs the downsample -> outlier-injection -> noise pipeline over cloud, seeded by
// seed for reproducibility, and returns the resulting cloud. The input cloud is not modified.
func Preprocess(cloud pointcloud.PointCloud, seed int64, opts Options) (pointcloud.PointCloud, error) {
	if opts.NumOutliers < 0 {
		return nil, errors.Errorf("sceneprep: NumOutliers must be >= 0, got %d", opts.NumOutliers)
	}
	if opts.NoiseSigma < 0 {
		return nil, errors.Errorf("sceneprep: NoiseSigma must be >= 0, got %f", opts.NoiseSigma)
	}

	rng := rand.New(rand.NewSource(seed))

	points := make([]r3.Vector, 0, cloud.Size())
	datas := make([]pointcloud.Data, 0, cloud.Size())
	cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		points = append(points, p)
		datas = append(datas, d)
		return true
	})

	points, datas = downsample(points, datas, opts.DownsampleTo, rng)
	injectOutliers(points, opts.NumOutliers, opts.OutlierMin, opts.OutlierMax, rng)
	addNoise(points, opts.NoiseSigma, rng)

	out := pointcloud.NewWithPrealloc(len(points))
	for i, p := range points {
		if err := out.Set(p, datas[i]); err != nil {
			return nil, errors.Wrapf(err, "sceneprep: setting point %d", i)
		}
	}
	return out, nil
}

// downsample selects m points uniformly at random without replacement, preserving each point's
// paired data. m < 0 passes the input through unchanged; m >= len(points) is also a pass through.
func downsample(points []r3.Vector, datas []pointcloud.Data, m int, rng *rand.Rand) ([]r3.Vector, []pointcloud.Data) {
	if m < 0 || m >= len(points) {
		return points, datas
	}
	perm := rng.Perm(len(points))
	keptPoints := make([]r3.Vector, m)
	keptData := make([]pointcloud.Data, m)
	for i := 0; i < m; i++ {
		keptPoints[i] = points[perm[i]]
		keptData[i] = datas[perm[i]]
	}
	return keptPoints, keptData
}

// injectOutliers overwrites the first numOutliers points in place with uniform draws from the
// axis-aligned box [lo, hi]. numOutliers beyond len(points) is clamped.
func injectOutliers(points []r3.Vector, numOutliers int, lo, hi r3.Vector, rng *rand.Rand) {
	n := numOutliers
	if n > len(points) {
		n = len(points)
	}
	ux := distuv.Uniform{Min: lo.X, Max: hi.X, Src: rng}
	uy := distuv.Uniform{Min: lo.Y, Max: hi.Y, Src: rng}
	uz := distuv.Uniform{Min: lo.Z, Max: hi.Z, Src: rng}
	for i := 0; i < n; i++ {
		points[i] = r3.Vector{X: ux.Rand(), Y: uy.Rand(), Z: uz.Rand()}
	}
}

// addNoise perturbs every coordinate of every point in place with i.i.d. N(0, sigma^2) noise.
// sigma == 0 is a no-op.
func addNoise(points []r3.Vector, sigma float64, rng *rand.Rand) {
	if sigma == 0 {
		return
	}
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	for i, p := range points {
		points[i] = r3.Vector{
			X: p.X + noise.Rand(),
			Y: p.Y + noise.Rand(),
			Z: p.Z + noise.Rand(),
		}
	}
}
