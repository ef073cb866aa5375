package spatialmath

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrDegenerateGeometry is returned when points do not span three dimensions.
var ErrDegenerateGeometry = errors.New("points do not span a volume")

// ConvexHull is the smallest convex polyhedron enclosing a set of points.
// Faces index into the input points and wind counter-clockwise when seen
// from outside.
type ConvexHull struct {
	points   []r3.Vector
	vertices []int
	faces    [][3]int
	eps      float64
}

// NewConvexHull computes the 3D convex hull of points with QuickHull. Only
// extreme points become vertices; points inside the hull or lying on a face
// are dropped. Fewer than four points, or points that are all collinear or
// coplanar, fail with ErrDegenerateGeometry.
func NewConvexHull(points []r3.Vector) (*ConvexHull, error) {
	if len(points) < 4 {
		return nil, errors.Wrapf(ErrDegenerateGeometry, "need at least 4 points, got %d", len(points))
	}
	qh := &quickHull{
		points: points,
		eps:    hullTolerance(points),
		edges:  map[[2]int]*hullFace{},
	}
	if err := qh.buildSimplex(); err != nil {
		return nil, err
	}
	qh.expand()
	return qh.result(), nil
}

// Points returns the points the hull was built from.
func (h *ConvexHull) Points() []r3.Vector {
	return h.points
}

// Vertices returns the indices of the hull's vertices in ascending order.
func (h *ConvexHull) Vertices() []int {
	return h.vertices
}

// Faces returns the hull's triangles as indices into Points.
func (h *ConvexHull) Faces() [][3]int {
	return h.faces
}

// Triangles returns the hull's faces as triangles.
func (h *ConvexHull) Triangles() []*Triangle {
	tris := make([]*Triangle, 0, len(h.faces))
	for _, f := range h.faces {
		tris = append(tris, NewTriangle(h.points[f[0]], h.points[f[1]], h.points[f[2]]))
	}
	return tris
}

// Volume returns the enclosed volume.
func (h *ConvexHull) Volume() float64 {
	vol := 0.
	for _, f := range h.faces {
		a, b, c := h.points[f[0]], h.points[f[1]], h.points[f[2]]
		vol += a.Dot(b.Cross(c))
	}
	return vol / 6
}

// hullTolerance scales the coplanarity tolerance with the magnitude of the
// coordinates.
func hullTolerance(points []r3.Vector) float64 {
	var maxX, maxY, maxZ float64
	for _, p := range points {
		maxX = math.Max(maxX, math.Abs(p.X))
		maxY = math.Max(maxY, math.Abs(p.Y))
		maxZ = math.Max(maxZ, math.Abs(p.Z))
	}
	const machineEpsilon = 2.220446049250313e-16
	return 3 * machineEpsilon * (maxX + maxY + maxZ)
}

type hullFace struct {
	v       [3]int
	normal  r3.Vector
	offset  float64
	outside []int
	visible bool
	dead    bool
}

func (f *hullFace) distance(p r3.Vector) float64 {
	return f.normal.Dot(p) - f.offset
}

type quickHull struct {
	points []r3.Vector
	eps    float64
	faces  []*hullFace
	edges  map[[2]int]*hullFace
}

// lexGreater orders points by X, then Y, then Z.
func lexGreater(a, b r3.Vector) bool {
	if a.X != b.X {
		return a.X > b.X
	}
	if a.Y != b.Y {
		return a.Y > b.Y
	}
	return a.Z > b.Z
}

// pickMax returns the candidate maximizing score, and the maximum. Scores
// within eps of the maximum tie and are broken by the larger secondary score,
// then lexicographically, so a vertex of the maximizing face is chosen.
func (qh *quickHull) pickMax(candidates []int, score, secondary func(int) float64) (int, float64) {
	maxScore := math.Inf(-1)
	for _, i := range candidates {
		maxScore = math.Max(maxScore, score(i))
	}
	best := -1
	for _, i := range candidates {
		if score(i) < maxScore-qh.eps {
			continue
		}
		if best < 0 || qh.breaksTie(i, best, secondary) {
			best = i
		}
	}
	return best, maxScore
}

func (qh *quickHull) breaksTie(i, best int, secondary func(int) float64) bool {
	if secondary != nil {
		if si, sb := secondary(i), secondary(best); si != sb {
			return si > sb
		}
	}
	return lexGreater(qh.points[i], qh.points[best])
}

func (qh *quickHull) buildSimplex() error {
	all := make([]int, len(qh.points))
	for i := range all {
		all[i] = i
	}

	// the lexicographic extremes are always hull vertices
	i0, i1 := 0, 0
	for i, p := range qh.points {
		if lexGreater(qh.points[i0], p) {
			i0 = i
		}
		if lexGreater(p, qh.points[i1]) {
			i1 = i
		}
	}
	p0, p1 := qh.points[i0], qh.points[i1]
	if p1.Sub(p0).Norm() <= qh.eps {
		return errors.Wrap(ErrDegenerateGeometry, "all points coincide")
	}

	dir := p1.Sub(p0).Normalize()
	i2, lineDist := qh.pickMax(all,
		func(i int) float64 { return qh.points[i].Sub(p0).Cross(dir).Norm() },
		func(i int) float64 { return qh.points[i].Dot(dir) })
	if lineDist <= qh.eps {
		return errors.Wrap(ErrDegenerateGeometry, "all points are collinear")
	}
	p2 := qh.points[i2]

	normal := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	i3, planeDist := qh.pickMax(all,
		func(i int) float64 { return math.Abs(normal.Dot(qh.points[i].Sub(p0))) }, nil)
	if planeDist <= qh.eps {
		return errors.Wrap(ErrDegenerateGeometry, "all points are coplanar")
	}

	simplex := [4]int{i0, i1, i2, i3}
	var centroid r3.Vector
	for _, i := range simplex {
		centroid = centroid.Add(qh.points[i])
	}
	centroid = centroid.Mul(0.25)

	for _, tri := range [4][3]int{{i0, i1, i2}, {i0, i1, i3}, {i0, i2, i3}, {i1, i2, i3}} {
		f := qh.newFace(tri[0], tri[1], tri[2])
		if f.distance(centroid) > 0 {
			f = qh.newFace(tri[0], tri[2], tri[1])
		}
		qh.addFace(f)
	}

	for i := range qh.points {
		if i == i0 || i == i1 || i == i2 || i == i3 {
			continue
		}
		qh.assign(i, qh.faces)
	}
	return nil
}

func (qh *quickHull) newFace(a, b, c int) *hullFace {
	pa := qh.points[a]
	normal := qh.points[b].Sub(pa).Cross(qh.points[c].Sub(pa)).Normalize()
	return &hullFace{v: [3]int{a, b, c}, normal: normal, offset: normal.Dot(pa)}
}

func (qh *quickHull) addFace(f *hullFace) {
	qh.faces = append(qh.faces, f)
	for e := 0; e < 3; e++ {
		qh.edges[[2]int{f.v[e], f.v[(e+1)%3]}] = f
	}
}

// assign puts point i in the outside set of the first face it is above.
// Points above no face are inside and dropped.
func (qh *quickHull) assign(i int, faces []*hullFace) {
	p := qh.points[i]
	for _, f := range faces {
		if f.dead {
			continue
		}
		if f.distance(p) > qh.eps {
			f.outside = append(f.outside, i)
			return
		}
	}
}

func (qh *quickHull) expand() {
	// faces are appended while iterating; each face is expanded at most once
	// since expanding it kills it.
	for i := 0; i < len(qh.faces); i++ {
		f := qh.faces[i]
		if f.dead || len(f.outside) == 0 {
			continue
		}
		qh.addPoint(f)
	}
}

func (qh *quickHull) addPoint(f *hullFace) {
	eye, _ := qh.pickMax(f.outside,
		func(i int) float64 { return f.distance(qh.points[i]) }, nil)
	eyePt := qh.points[eye]

	f.visible = true
	visible := []*hullFace{f}
	for k := 0; k < len(visible); k++ {
		vf := visible[k]
		for e := 0; e < 3; e++ {
			nb := qh.edges[[2]int{vf.v[(e+1)%3], vf.v[e]}]
			if nb == nil || nb.visible || nb.dead {
				continue
			}
			if nb.distance(eyePt) > qh.eps {
				nb.visible = true
				visible = append(visible, nb)
			}
		}
	}

	var horizon [][2]int
	var orphans []int
	for _, vf := range visible {
		for e := 0; e < 3; e++ {
			a, b := vf.v[e], vf.v[(e+1)%3]
			if nb := qh.edges[[2]int{b, a}]; nb == nil || !nb.visible {
				horizon = append(horizon, [2]int{a, b})
			}
		}
		for _, i := range vf.outside {
			if i != eye {
				orphans = append(orphans, i)
			}
		}
	}
	for _, vf := range visible {
		vf.dead = true
		vf.outside = nil
		for e := 0; e < 3; e++ {
			key := [2]int{vf.v[e], vf.v[(e+1)%3]}
			if qh.edges[key] == vf {
				delete(qh.edges, key)
			}
		}
	}

	created := make([]*hullFace, 0, len(horizon))
	for _, edge := range horizon {
		nf := qh.newFace(edge[0], edge[1], eye)
		qh.addFace(nf)
		created = append(created, nf)
	}
	for _, i := range orphans {
		qh.assign(i, created)
	}
}

func (qh *quickHull) result() *ConvexHull {
	h := &ConvexHull{points: qh.points, eps: qh.eps}
	seen := map[int]bool{}
	for _, f := range qh.faces {
		if f.dead {
			continue
		}
		h.faces = append(h.faces, f.v)
		for _, i := range f.v {
			if !seen[i] {
				seen[i] = true
				h.vertices = append(h.vertices, i)
			}
		}
	}
	sort.Ints(h.vertices)
	return h
}
