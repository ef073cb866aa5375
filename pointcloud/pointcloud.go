// Package pointcloud defines an ordered point cloud built from depth maps,
// along with PCD serialization.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	inited bool
}

// NewMetaData returns meta data with inverted bounds, ready to Merge into.
func NewMetaData() MetaData {
	return MetaData{
		MinX:   math.MaxFloat64,
		MinY:   math.MaxFloat64,
		MinZ:   math.MaxFloat64,
		MaxX:   -math.MaxFloat64,
		MaxY:   -math.MaxFloat64,
		MaxZ:   -math.MaxFloat64,
		inited: true,
	}
}

// Merge expands the bounds to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	if !meta.inited {
		*meta = NewMetaData()
	}
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// PointCloud is an ordered collection of points. Unlike a sparse cloud keyed
// by position, it keeps insertion order and allows duplicates.
type PointCloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns an empty point cloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty point cloud with room for size points.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// NewFromPoints returns a point cloud holding a copy of points.
func NewFromPoints(points []r3.Vector) *PointCloud {
	pc := NewWithPrealloc(len(points))
	for _, p := range points {
		pc.Append(p)
	}
	return pc
}

// Size returns the number of points in the cloud.
func (pc *PointCloud) Size() int {
	return len(pc.points)
}

// MetaData returns the bounds of the cloud.
func (pc *PointCloud) MetaData() MetaData {
	return pc.meta
}

// Append adds p to the end of the cloud.
func (pc *PointCloud) Append(p r3.Vector) {
	pc.points = append(pc.points, p)
	pc.meta.Merge(p)
}

// At returns the i-th point.
func (pc *PointCloud) At(i int) r3.Vector {
	return pc.points[i]
}

// Points returns the points in order. The slice must not be modified.
func (pc *PointCloud) Points() []r3.Vector {
	return pc.points
}

// Iterate calls fn for each point in order until fn returns false.
func (pc *PointCloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range pc.points {
		if !fn(i, p) {
			return
		}
	}
}
