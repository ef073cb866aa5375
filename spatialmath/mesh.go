package spatialmath

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
)

// Mesh is a triangle surface over a list of vertices.
type Mesh struct {
	vertices []r3.Vector
	faces    [][3]int
}

// NewMeshFromHull keeps only the hull's vertices, in ascending input order,
// and remaps its faces onto them.
func NewMeshFromHull(hull *ConvexHull) *Mesh {
	remap := make(map[int]int, len(hull.Vertices()))
	vertices := make([]r3.Vector, 0, len(hull.Vertices()))
	for _, i := range hull.Vertices() {
		remap[i] = len(vertices)
		vertices = append(vertices, hull.Points()[i])
	}
	faces := make([][3]int, 0, len(hull.Faces()))
	for _, f := range hull.Faces() {
		faces = append(faces, [3]int{remap[f[0]], remap[f[1]], remap[f[2]]})
	}
	return &Mesh{vertices: vertices, faces: faces}
}

// Vertices returns the mesh's vertices.
func (m *Mesh) Vertices() []r3.Vector {
	return m.vertices
}

// Faces returns the mesh's faces as vertex indices.
func (m *Mesh) Faces() [][3]int {
	return m.faces
}

// Triangles returns the faces as triangles.
func (m *Mesh) Triangles() []*Triangle {
	tris := make([]*Triangle, 0, len(m.faces))
	for _, f := range m.faces {
		tris = append(tris, NewTriangle(m.vertices[f[0]], m.vertices[f[1]], m.vertices[f[2]]))
	}
	return tris
}

// Bounds returns the corners of the axis aligned box around the vertices.
func (m *Mesh) Bounds() (r3.Vector, r3.Vector) {
	if len(m.vertices) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	lo := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range m.vertices {
		lo = r3.Vector{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vector{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	area := 0.
	for _, t := range m.Triangles() {
		area += t.Area()
	}
	return area
}

// WriteOBJ writes the mesh in Wavefront OBJ format with 1-based face indices.
func (m *Mesh) WriteOBJ(out io.Writer) error {
	w := bufio.NewWriter(out)
	for _, v := range m.vertices {
		if _, err := fmt.Fprintf(w, "v %g %g %g\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	for _, f := range m.faces {
		if _, err := fmt.Fprintf(w, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1); err != nil {
			return err
		}
	}
	return w.Flush()
}
