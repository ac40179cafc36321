package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PointAndData pairs a position with the data stored at that position, used by storage
// implementations that keep points in insertion order.
type PointAndData struct {
	P r3.Vector
	D Data
}

// storage is the internal backing store for a basicPointCloud. It exists as an interface so that
// alternative layouts (ordered slice vs. hash map) can be swapped without touching PointCloud
// callers.
type storage interface {
	Size() int
	Set(p r3.Vector, d Data) error
	Unset(x, y, z float64)
	At(x, y, z float64) (Data, bool)
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
}

// mapStorage is an unordered storage backed by a Go map keyed on position.
type mapStorage struct {
	points map[r3.Vector]Data
}

// IsOrdered reports whether iteration order is meaningful. A Go map has none.
func (ms *mapStorage) IsOrdered() bool {
	return false
}

func (ms *mapStorage) Size() int {
	return len(ms.points)
}

func (ms *mapStorage) Set(p r3.Vector, d Data) error {
	ms.points[p] = d
	return nil
}

func (ms *mapStorage) At(x, y, z float64) (Data, bool) {
	d, ok := ms.points[r3.Vector{X: x, Y: y, Z: z}]
	return d, ok
}

func (ms *mapStorage) Unset(x, y, z float64) {
	delete(ms.points, r3.Vector{X: x, Y: y, Z: z})
}

func (ms *mapStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	batch := 0
	for p, d := range ms.points {
		if numBatches > 0 && batch%numBatches != myBatch {
			batch++
			continue
		}
		batch++
		if !fn(p, d) {
			return
		}
	}
}

// matrixStorage is an ordered storage backed by an append-only slice plus an index for lookups,
// used where insertion order matters (e.g. reproducing file read order on write).
type matrixStorage struct {
	points   []PointAndData
	indexMap map[r3.Vector]uint
}

// IsOrdered reports whether iteration order is meaningful. matrixStorage preserves insertion order.
func (ms *matrixStorage) IsOrdered() bool {
	return true
}

func (ms *matrixStorage) Size() int {
	return len(ms.points)
}

func (ms *matrixStorage) Set(p r3.Vector, d Data) error {
	if idx, ok := ms.indexMap[p]; ok {
		ms.points[idx].D = d
		return nil
	}
	ms.indexMap[p] = uint(len(ms.points))
	ms.points = append(ms.points, PointAndData{P: p, D: d})
	return nil
}

func (ms *matrixStorage) At(x, y, z float64) (Data, bool) {
	idx, ok := ms.indexMap[r3.Vector{X: x, Y: y, Z: z}]
	if !ok {
		return nil, false
	}
	return ms.points[idx].D, true
}

// Unset removes the point at (x,y,z) by swapping it with the last element, keeping the slice
// dense at the cost of insertion order for the swapped-in point.
func (ms *matrixStorage) Unset(x, y, z float64) {
	key := r3.Vector{X: x, Y: y, Z: z}
	idx, ok := ms.indexMap[key]
	if !ok {
		return
	}
	last := len(ms.points) - 1
	ms.points[idx] = ms.points[last]
	ms.indexMap[ms.points[idx].P] = idx
	ms.points = ms.points[:last]
	delete(ms.indexMap, key)
}

func (ms *matrixStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	for i, pd := range ms.points {
		if numBatches > 0 && i%numBatches != myBatch {
			continue
		}
		if !fn(pd.P, pd.D) {
			return
		}
	}
}

// minPreciseFloat64 and maxPreciseFloat64 bound the range within which every integer is exactly
// representable as a float64, matching the mantissa's 52 fractional bits. Points outside this
// range risk two distinct positions hashing to the same key.
const (
	maxPreciseFloat64 = float64(int64(1) << 52)
	minPreciseFloat64 = -maxPreciseFloat64
)

// validatePoint rejects coordinates outside the exactly-representable float64 range.
func validatePoint(p r3.Vector) error {
	switch {
	case p.X < minPreciseFloat64 || p.X > maxPreciseFloat64:
		return errors.Errorf("x component %v out of representable range [%v,%v]", p.X, minPreciseFloat64, maxPreciseFloat64)
	case p.Y < minPreciseFloat64 || p.Y > maxPreciseFloat64:
		return errors.Errorf("y component %v out of representable range [%v,%v]", p.Y, minPreciseFloat64, maxPreciseFloat64)
	case p.Z < minPreciseFloat64 || p.Z > maxPreciseFloat64:
		return errors.Errorf("z component %v out of representable range [%v,%v]", p.Z, minPreciseFloat64, maxPreciseFloat64)
	}
	return nil
}
