package presentation

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/spatialmath"
)

func testMesh(t *testing.T) *spatialmath.Mesh {
	t.Helper()
	var pts []r3.Vector
	for row := 0; row < 8; row++ {
		for col := 0; col < 10; col++ {
			dr, dc := float64(row)-3.5, float64(col)-4.5
			pts = append(pts, r3.Vector{X: float64(row), Y: float64(col), Z: 1 - (dr*dr+dc*dc)/100})
		}
	}
	hull, err := spatialmath.NewConvexHull(pts)
	test.That(t, err, test.ShouldBeNil)
	return spatialmath.NewMeshFromHull(hull)
}

func testDepth(w, h int) *rimage.DepthMap {
	dm := rimage.NewEmptyDepthMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dm.Set(x, y, float64(1+x+y))
		}
	}
	return dm
}

func TestWithOBJExtension(t *testing.T) {
	test.That(t, WithOBJExtension("mesh"), test.ShouldEqual, "mesh.obj")
	test.That(t, WithOBJExtension("dir/mesh"), test.ShouldEqual, "dir/mesh.obj")
	test.That(t, WithOBJExtension("mesh.obj"), test.ShouldEqual, "mesh.obj")
	test.That(t, WithOBJExtension("mesh.txt"), test.ShouldEqual, "mesh.txt")
}

func TestSaveOBJ(t *testing.T) {
	mesh := testMesh(t)
	dir := t.TempDir()

	written, err := SaveOBJ(filepath.Join(dir, "mesh"), mesh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldEqual, filepath.Join(dir, "mesh.obj"))

	data, err := os.ReadFile(written)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.That(t, len(lines), test.ShouldEqual, len(mesh.Vertices())+len(mesh.Faces()))
	test.That(t, lines[0], test.ShouldStartWith, "v ")
	test.That(t, lines[len(lines)-1], test.ShouldStartWith, "f ")

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 1)
}

func TestSaveOBJUnwritable(t *testing.T) {
	mesh := testMesh(t)
	vertsBefore := append([]r3.Vector(nil), mesh.Vertices()...)
	facesBefore := append([][3]int(nil), mesh.Faces()...)

	_, err := SaveOBJ(filepath.Join(t.TempDir(), "missing", "mesh.obj"), mesh)
	test.That(t, errors.Is(err, ErrExport), test.ShouldBeTrue)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
	test.That(t, mesh.Vertices(), test.ShouldResemble, vertsBefore)
	test.That(t, mesh.Faces(), test.ShouldResemble, facesBefore)

	_, err = SaveOBJ(" ", mesh)
	test.That(t, errors.Is(err, ErrExport), test.ShouldBeTrue)
}

func TestSaveDepthFigure(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	dm := testDepth(40, 30)

	fig, err := DepthFigure(img, dm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fig.Bounds().Dx(), test.ShouldEqual, 2*40+3*figureMargin)
	test.That(t, fig.Bounds().Dy(), test.ShouldEqual, 30+figureCaptionRoom+2*figureMargin)

	// the depth panel runs from shallow at the top left to deep at the bottom right
	top := figureMargin + figureCaptionRoom
	left := 40 + 2*figureMargin
	shallow := color.NRGBAModel.Convert(fig.At(left+1, top+1))
	deep := color.NRGBAModel.Convert(fig.At(left+38, top+28))
	test.That(t, shallow, test.ShouldNotResemble, deep)
	test.That(t, shallow, test.ShouldNotResemble, color.NRGBAModel.Convert(color.White))

	fn := filepath.Join(t.TempDir(), "figure.png")
	test.That(t, SaveDepthFigure(fn, img, dm), test.ShouldBeNil)
	saved, err := imaging.Open(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, saved.Bounds(), test.ShouldResemble, fig.Bounds())

	err = SaveDepthFigure(fn, img, testDepth(10, 10))
	test.That(t, errors.Is(err, ErrExport), test.ShouldBeTrue)
}

func TestSaveDepthPlot(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "plot.png")
	test.That(t, SaveDepthPlot(fn, testDepth(24, 16)), test.ShouldBeNil)
	_, err := imaging.Open(fn)
	test.That(t, err, test.ShouldBeNil)

	// constant maps still plot
	test.That(t, SaveDepthPlot(fn, rimage.NewEmptyDepthMap(4, 4)), test.ShouldBeNil)
}

func TestMeshPreview(t *testing.T) {
	mesh := testMesh(t)
	opts := DefaultPreviewOptions()
	opts.Width, opts.Height = 160, 120

	img, err := MeshPreview(mesh, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Size(), test.ShouldResemble, image.Point{160, 120})

	// the mesh covers the center, the background the corner
	bg := color.NRGBAModel.Convert(opts.Background)
	test.That(t, color.NRGBAModel.Convert(img.At(0, 0)), test.ShouldResemble, bg)
	test.That(t, color.NRGBAModel.Convert(img.At(80, 60)), test.ShouldNotResemble, bg)

	fn := filepath.Join(t.TempDir(), "preview.png")
	test.That(t, SaveMeshPreview(fn, mesh, opts), test.ShouldBeNil)

	opts.Width = 0
	_, err = MeshPreview(mesh, opts)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = MeshPreview(&spatialmath.Mesh{}, DefaultPreviewOptions())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSavePCD(t *testing.T) {
	pc := pointcloud.NewFromPoints([]r3.Vector{{X: 1, Y: 2, Z: 0.5}})
	for _, pcdType := range []pointcloud.PCDType{pointcloud.PCDAscii, pointcloud.PCDBinary} {
		fn := filepath.Join(t.TempDir(), "cloud.pcd")
		test.That(t, SavePCD(fn, pc, pcdType), test.ShouldBeNil)
		read, err := pointcloud.NewFromPCDFile(fn)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Points(), test.ShouldResemble, pc.Points())
	}
}

func TestSavedFileMode(t *testing.T) {
	dir := t.TempDir()
	written, err := SaveOBJ(filepath.Join(dir, "mesh"), testMesh(t))
	test.That(t, err, test.ShouldBeNil)
	pcd := filepath.Join(dir, "cloud.pcd")
	test.That(t, SavePCD(pcd, pointcloud.NewFromPoints([]r3.Vector{{X: 1}}), pointcloud.PCDAscii), test.ShouldBeNil)
	png := filepath.Join(dir, "plot.png")
	test.That(t, SaveDepthPlot(png, testDepth(8, 8)), test.ShouldBeNil)

	for _, fn := range []string{written, pcd, png} {
		info, err := os.Stat(fn)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, info.Mode().Perm(), test.ShouldEqual, os.FileMode(0o644))
	}
}
