package estimator

import (
	"github.com/golang/geo/r3"

	"github.com/meshpose/estimator/utils"
)

// histogramsOfDistances bins every point's pairwise distance to every other point in pts into
// bins buckets over [0, maxDist), producing formulation B's histogram-of-distances feature per
// point. Grounded on the teacher's utils.PairwiseDistance/EuclideanDistance helpers.
func histogramsOfDistances(pts []r3.Vector, bins int, maxDist float64) ([][]float64, error) {
	flat := make([][]float64, len(pts))
	for i, p := range pts {
		flat[i] = []float64{p.X, p.Y, p.Z}
	}
	dm, err := utils.PairwiseDistance(flat, flat, utils.Euclidean)
	if err != nil {
		return nil, err
	}

	binWidth := maxDist / float64(bins)
	hists := make([][]float64, len(pts))
	for i := range pts {
		h := make([]float64, bins)
		for j := range pts {
			if i == j {
				continue
			}
			d := dm.At(i, j)
			if d >= maxDist {
				continue
			}
			bin := int(d / binWidth)
			if bin >= bins {
				bin = bins - 1
			}
			h[bin]++
		}
		hists[i] = h
	}
	return hists, nil
}

// histogramL1 is the L1 distance between two equal-length histograms.
func histogramL1(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total
}
