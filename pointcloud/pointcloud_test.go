package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/depthmesh/rimage"
)

func TestNewFromNormalizedDepthMap(t *testing.T) {
	dm, err := rimage.NewDepthMapFromData(3, 2, []float64{
		1, 2, 4,
		0, 8, 2,
	})
	test.That(t, err, test.ShouldBeNil)
	normalized, err := dm.Normalized()
	test.That(t, err, test.ShouldBeNil)

	pc := NewFromNormalizedDepthMap(normalized)
	test.That(t, pc.Size(), test.ShouldEqual, 5)
	test.That(t, pc.Points(), test.ShouldResemble, []r3.Vector{
		{X: 0, Y: 0, Z: 0.125},
		{X: 0, Y: 1, Z: 0.25},
		{X: 0, Y: 2, Z: 0.5},
		{X: 1, Y: 1, Z: 1},
		{X: 1, Y: 2, Z: 0.25},
	})

	meta := pc.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, 0)
	test.That(t, meta.MaxX, test.ShouldEqual, 1)
	test.That(t, meta.MaxY, test.ShouldEqual, 2)
	test.That(t, meta.MinZ, test.ShouldEqual, 0.125)
	test.That(t, meta.MaxZ, test.ShouldEqual, 1)
}

func TestNewFromNormalizedDepthMapFullGrid(t *testing.T) {
	dm := rimage.NewEmptyDepthMap(20, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			dm.Set(x, y, float64(1+x+y))
		}
	}
	normalized, err := dm.Normalized()
	test.That(t, err, test.ShouldBeNil)
	pc := NewFromNormalizedDepthMap(normalized)
	test.That(t, pc.Size(), test.ShouldEqual, 200)
	// row-major, X is the row
	test.That(t, pc.At(0), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1.0 / 29})
	test.That(t, pc.At(21), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 3.0 / 29})
	test.That(t, pc.At(199).Z, test.ShouldEqual, 1.0)
}

func TestIterateStops(t *testing.T) {
	pc := NewFromPoints([]r3.Vector{{X: 1, Y: 1, Z: 1}, {X: 2, Y: 2, Z: 2}, {X: 3, Y: 3, Z: 3}})
	seen := 0
	pc.Iterate(func(i int, p r3.Vector) bool {
		seen++
		return i < 1
	})
	test.That(t, seen, test.ShouldEqual, 2)
}

func TestPCDRoundTrip(t *testing.T) {
	pc := NewFromPoints([]r3.Vector{{X: 0, Y: 0, Z: 0.5}, {X: 1, Y: 2, Z: 0.25}, {X: 3, Y: 4, Z: 1}, {X: 5, Y: 6, Z: 1.0 / 3}, {X: 7, Y: 8, Z: 0.1}})
	// coordinates are stored as float32
	want := make([]r3.Vector, 0, pc.Size())
	for _, p := range pc.Points() {
		want = append(want, r3.Vector{
			X: float64(float32(p.X)),
			Y: float64(float32(p.Y)),
			Z: float64(float32(p.Z)),
		})
	}

	for _, pcdType := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, ToPCD(pc, &buf, pcdType), test.ShouldBeNil)
		read, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Points(), test.ShouldResemble, want)
	}

	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDAscii), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldStartWith, "VERSION .7\nFIELDS x y z\n")
	test.That(t, buf.String(), test.ShouldContainSubstring,
		"POINTS 5\nDATA ascii\n0 0 0.5\n1 2 0.25\n3 4 1\n5 6 0.33333334\n7 8 0.1\n")

	test.That(t, ToPCD(pc, &buf, PCDType(7)), test.ShouldNotBeNil)
}

func TestReadPCDErrors(t *testing.T) {
	_, err := ReadPCD(bytes.NewBufferString("VERSION .6\n"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadPCD(bytes.NewBufferString("VERSION .7\nFIELDS x y z rgb\n"))
	test.That(t, err, test.ShouldNotBeNil)

	header := func(width, height, points string) string {
		return "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n" +
			"WIDTH " + width + "\nHEIGHT " + height + "\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS " + points + "\nDATA ascii\n"
	}

	_, err = ReadPCD(bytes.NewBufferString(header("2", "1", "2") + "1 2 3\n"))
	test.That(t, err, test.ShouldNotBeNil)

	// a huge point count with no data is an error, not an allocation
	_, err = ReadPCD(bytes.NewBufferString(header("100000000000000", "1", "100000000000000")))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading point 0")

	_, err = ReadPCD(bytes.NewBufferString(header("18446744073709551615", "1", "18446744073709551615")))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "too large")

	_, err = ReadPCD(bytes.NewBufferString(header("4294967296", "4294967296", "0")))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewFromPCDFile(t *testing.T) {
	pc := NewFromPoints([]r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 0.5}})
	fn := filepath.Join(t.TempDir(), "cloud.pcd")
	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDBinary), test.ShouldBeNil)
	test.That(t, os.WriteFile(fn, buf.Bytes(), 0o600), test.ShouldBeNil)

	read, err := NewFromPCDFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Points(), test.ShouldResemble, pc.Points())

	_, err = NewFromPCDFile(filepath.Join(t.TempDir(), "missing.pcd"))
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)

	bad := filepath.Join(t.TempDir(), "bad.pcd")
	test.That(t, os.WriteFile(bad, []byte("VERSION .6\n"), 0o600), test.ShouldBeNil)
	_, err = NewFromPCDFile(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, bad)
}
