package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Triangle is three points in space with the normal given by their winding.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle returns the triangle p0, p1, p2. The normal follows the right
// hand rule and is zero for degenerate triangles.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: planeNormal(p0, p1, p2),
	}
}

// planeNormal returns the unit normal of the plane through p0, p1, p2.
func planeNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}

// Points returns the corners in winding order.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the triangle's area.
func (t *Triangle) Area() float64 {
	return t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm() / 2
}

// Centroid returns the average of the corners.
func (t *Triangle) Centroid() r3.Vector {
	return t.p0.Add(t.p1).Add(t.p2).Mul(1. / 3)
}

// SignedDistance returns how far pt lies from the triangle's plane, positive
// on the side the normal points to.
func (t *Triangle) SignedDistance(pt r3.Vector) float64 {
	return t.normal.Dot(pt.Sub(t.p0))
}
