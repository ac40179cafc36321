package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CloudContains reports whether the cloud has a point at exactly (x, y, z).
func CloudContains(cloud PointCloud, x, y, z float64) bool {
	_, ok := cloud.At(x, y, z)
	return ok
}

// CloudCentroid returns the arithmetic mean position of every point in the cloud. An empty
// cloud returns the zero vector.
func CloudCentroid(cloud PointCloud) r3.Vector {
	if cloud.Size() == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		sum = sum.Add(p)
		return true
	})
	return sum.Mul(1.0 / float64(cloud.Size()))
}

// CalculateMeanOfPointCloud is an alias of CloudCentroid, named to match the convention used by
// the scene-alignment callers that average a cloud down to a single representative point.
func CalculateMeanOfPointCloud(cloud PointCloud) r3.Vector {
	return CloudCentroid(cloud)
}

// CloudMatrixCol identifies one column of the matrix CloudMatrix produces.
type CloudMatrixCol int

const (
	// CloudMatrixColX is the point's X coordinate.
	CloudMatrixColX CloudMatrixCol = iota
	// CloudMatrixColY is the point's Y coordinate.
	CloudMatrixColY
	// CloudMatrixColZ is the point's Z coordinate.
	CloudMatrixColZ
	// CloudMatrixColR is the point's red color channel.
	CloudMatrixColR
	// CloudMatrixColG is the point's green color channel.
	CloudMatrixColG
	// CloudMatrixColB is the point's blue color channel.
	CloudMatrixColB
	// CloudMatrixColV is the point's scalar value.
	CloudMatrixColV
)

// CloudMatrix flattens a cloud into a dense row-per-point matrix, with columns chosen from the
// cloud's metadata: position is always present, color and/or value columns are appended only if
// the cloud actually carries that kind of data. Returns (nil, nil) for an empty cloud.
func CloudMatrix(cloud PointCloud) (*mat.Dense, []CloudMatrixCol) {
	if cloud.Size() == 0 {
		return nil, nil
	}

	meta := cloud.MetaData()
	cols := []CloudMatrixCol{CloudMatrixColX, CloudMatrixColY, CloudMatrixColZ}
	if meta.HasColor {
		cols = append(cols, CloudMatrixColR, CloudMatrixColG, CloudMatrixColB)
	}
	if meta.HasValue {
		cols = append(cols, CloudMatrixColV)
	}

	rows := make([]float64, 0, cloud.Size()*len(cols))
	n := 0
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		rows = append(rows, p.X, p.Y, p.Z)
		if meta.HasColor {
			var r, g, b uint8
			if d != nil && d.HasColor() {
				r, g, b = d.RGB255()
			}
			rows = append(rows, float64(r), float64(g), float64(b))
		}
		if meta.HasValue {
			var v int
			if d != nil && d.HasValue() {
				v = d.Value()
			}
			rows = append(rows, float64(v))
		}
		n++
		return true
	})

	return mat.NewDense(n, len(cols), rows), cols
}

// MergePointCloudsWithColor combines several clouds into one, tagging every point from the same
// source cloud with the same color so the provenance of a merged point remains visible.
func MergePointCloudsWithColor(clouds []PointCloud) (PointCloud, error) {
	palette := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 0, 255},
		{0, 255, 255, 255},
		{255, 0, 255, 255},
	}

	merged := New()
	for i, cloud := range clouds {
		c := palette[i%len(palette)]
		var setErr error
		cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
			if setErr = merged.Set(p, NewColoredData(c)); setErr != nil {
				return false
			}
			return true
		})
		if setErr != nil {
			return nil, errors.Wrapf(setErr, "merging cloud %d", i)
		}
	}
	return merged, nil
}

// PrunePointClouds discards every cloud with fewer than minPoints points, preserving the
// remaining clouds' relative order.
func PrunePointClouds(clouds []PointCloud, minPoints int) []PointCloud {
	pruned := make([]PointCloud, 0, len(clouds))
	for _, cloud := range clouds {
		if cloud.Size() >= minPoints {
			pruned = append(pruned, cloud)
		}
	}
	return pruned
}
