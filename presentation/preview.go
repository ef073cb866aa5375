package presentation

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/spatialmath"
)

// PreviewOptions controls how a mesh preview is rendered.
type PreviewOptions struct {
	Width, Height int
	// Yaw turns the mesh about the vertical screen axis, in degrees.
	Yaw float64
	// Pitch tilts the mesh about the horizontal screen axis, in degrees.
	Pitch float64
	// DepthScale stretches the normalized depth axis to be comparable with
	// pixel coordinates.
	DepthScale float64
	Background color.Color
}

// DefaultPreviewOptions returns a three quarter view on a dark background.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{
		Width:      800,
		Height:     600,
		Yaw:        30,
		Pitch:      -20,
		DepthScale: 200,
		Background: color.NRGBA{R: 24, G: 24, B: 32, A: 255},
	}
}

// lightDir points from the surface toward the light, in view space.
var lightDir = r3.Vector{X: -0.3, Y: -0.5, Z: -1}.Normalize()

type projectedFace struct {
	pts   [3]r3.Vector
	depth float64
	color color.NRGBA
}

// MeshPreview renders mesh with flat Lambert shading under an orthographic
// camera looking along +Z from the image plane. Screen x follows the column,
// screen y the row, so an unrotated preview lines up with the source image.
func MeshPreview(mesh *spatialmath.Mesh, opts PreviewOptions) (image.Image, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Errorf("bad preview size %dx%d", opts.Width, opts.Height)
	}
	if len(mesh.Faces()) == 0 {
		return nil, errors.New("mesh has no faces")
	}
	if opts.DepthScale == 0 {
		opts.DepthScale = 1
	}

	lo, hi := mesh.Bounds()
	center := lo.Add(hi).Mul(0.5)
	yaw, pitch := opts.Yaw*math.Pi/180, opts.Pitch*math.Pi/180
	toView := func(v r3.Vector) r3.Vector {
		p := r3.Vector{X: v.Y - center.Y, Y: v.X - center.X, Z: (v.Z - center.Z) * opts.DepthScale}
		p = r3.Vector{X: p.X*math.Cos(yaw) - p.Z*math.Sin(yaw), Y: p.Y, Z: p.X*math.Sin(yaw) + p.Z*math.Cos(yaw)}
		return r3.Vector{X: p.X, Y: p.Y*math.Cos(pitch) - p.Z*math.Sin(pitch), Z: p.Y*math.Sin(pitch) + p.Z*math.Cos(pitch)}
	}

	verts := make([]r3.Vector, len(mesh.Vertices()))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, v := range mesh.Vertices() {
		verts[i] = toView(v)
		minX, maxX = math.Min(minX, verts[i].X), math.Max(maxX, verts[i].X)
		minY, maxY = math.Min(minY, verts[i].Y), math.Max(maxY, verts[i].Y)
	}
	const margin = 0.9
	scale := margin * math.Min(float64(opts.Width)/math.Max(maxX-minX, 1e-9), float64(opts.Height)/math.Max(maxY-minY, 1e-9))
	offX := float64(opts.Width)/2 - scale*(minX+maxX)/2
	offY := float64(opts.Height)/2 - scale*(minY+maxY)/2

	// swapping row and column mirrors the frame, so the view space triangle normal
	// points inward and a face toward the camera has a positive Z normal
	tris := mesh.Triangles()
	faces := make([]projectedFace, 0, len(tris))
	for i, f := range mesh.Faces() {
		a, b, c := verts[f[0]], verts[f[1]], verts[f[2]]
		view := spatialmath.NewTriangle(a, b, c)
		normal := view.Normal()
		if normal.Z < 0 {
			continue
		}
		intensity := 0.25 + 0.75*math.Max(0, normal.Mul(-1).Dot(lightDir))
		ratio := 0.
		if hi.Z > lo.Z {
			ratio = (tris[i].Centroid().Z - lo.Z) / (hi.Z - lo.Z)
		}
		var pts [3]r3.Vector
		for k, p := range []r3.Vector{a, b, c} {
			pts[k] = r3.Vector{X: p.X*scale + offX, Y: p.Y*scale + offY, Z: p.Z}
		}
		faces = append(faces, projectedFace{
			pts:   pts,
			depth: view.Centroid().Z,
			color: shade(rimage.Plasma(ratio), intensity),
		})
	}
	// far to near
	sort.Slice(faces, func(i, j int) bool { return faces[i].depth > faces[j].depth })

	dc := gg.NewContext(opts.Width, opts.Height)
	bg := opts.Background
	if bg == nil {
		bg = color.Black
	}
	dc.SetColor(bg)
	dc.Clear()
	dc.SetLineWidth(0.75)
	for _, f := range faces {
		dc.NewSubPath()
		dc.MoveTo(f.pts[0].X, f.pts[0].Y)
		dc.LineTo(f.pts[1].X, f.pts[1].Y)
		dc.LineTo(f.pts[2].X, f.pts[2].Y)
		dc.ClosePath()
		dc.SetColor(f.color)
		dc.FillPreserve()
		dc.Stroke()
	}
	return dc.Image(), nil
}

// SaveMeshPreview writes MeshPreview as a PNG.
func SaveMeshPreview(path string, mesh *spatialmath.Mesh, opts PreviewOptions) error {
	img, err := MeshPreview(mesh, opts)
	if err != nil {
		return &exportError{path: path, err: err}
	}
	return savePNG(path, img)
}
