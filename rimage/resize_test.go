package rimage

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"pgregory.net/rapid"
)

func TestModelInputSize(t *testing.T) {
	opts := DefaultPreprocessOptions()
	for _, tc := range []struct {
		name          string
		width, height int
		expected      image.Point
	}{
		{"tall image clamps to cap", 384, 512, image.Point{352, 480}},
		{"small already aligned", 640, 320, image.Point{640, 320}},
		{"height rounds down", 100, 100, image.Point{96, 96}},
		{"width remainder 16 rounds up", 464, 480, image.Point{480, 480}},
		{"width remainder 15 rounds down", 463, 480, image.Point{448, 480}},
		{"wide image", 1920, 1080, image.Point{864, 480}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			size, err := ModelInputSize(tc.width, tc.height, opts)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, size, test.ShouldResemble, tc.expected)
		})
	}
}

func TestModelInputSizeTooSmall(t *testing.T) {
	opts := DefaultPreprocessOptions()
	for _, dims := range [][2]int{{31, 31}, {64, 20}, {10, 400}, {0, 100}, {100, -1}} {
		_, err := ModelInputSize(dims[0], dims[1], opts)
		test.That(t, errors.Is(err, ErrImageTooSmall), test.ShouldBeTrue)
	}
	_, err := ModelInputSize(100, 100, PreprocessOptions{MaxHeight: 480, Stride: 0})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestModelInputSizeProperties(t *testing.T) {
	opts := DefaultPreprocessOptions()
	rapid.Check(t, func(t *rapid.T) {
		width := rapid.IntRange(1, 4000).Draw(t, "width")
		height := rapid.IntRange(1, 4000).Draw(t, "height")

		size, err := ModelInputSize(width, height, opts)
		capped := height
		if capped > opts.MaxHeight {
			capped = opts.MaxHeight
		}
		wantHeight := capped - capped%opts.Stride
		rawWidth := wantHeight * width / height
		rem := rawWidth % opts.Stride
		wantWidth := rawWidth - rem
		if rem >= 16 {
			wantWidth = rawWidth + opts.Stride - rem
		}

		if wantHeight-2*opts.Border <= 0 || wantWidth-2*opts.Border <= 0 {
			if !errors.Is(err, ErrImageTooSmall) {
				t.Fatalf("expected too small error for %dx%d, got %v", width, height, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error for %dx%d: %v", width, height, err)
		}
		if size.Y != wantHeight || size.X != wantWidth {
			t.Fatalf("%dx%d: got %v want %dx%d", width, height, size, wantWidth, wantHeight)
		}
		if size.X%opts.Stride != 0 || size.Y%opts.Stride != 0 {
			t.Fatalf("%v is not stride aligned", size)
		}
		if height > opts.MaxHeight && size.Y != 480 {
			t.Fatalf("tall image should be capped at 480, got %d", size.Y)
		}
	})
}

func TestResizeAndCrop(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 384, 512))
	resized, err := ResizeForModel(img, DefaultPreprocessOptions())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resized.Bounds().Dx(), test.ShouldEqual, 352)
	test.That(t, resized.Bounds().Dy(), test.ShouldEqual, 480)

	cropped, err := CropBorder(resized, 16)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cropped.Bounds().Dx(), test.ShouldEqual, 320)
	test.That(t, cropped.Bounds().Dy(), test.ShouldEqual, 448)

	_, err = CropBorder(image.NewNRGBA(image.Rect(0, 0, 32, 40)), 16)
	test.That(t, errors.Is(err, ErrImageTooSmall), test.ShouldBeTrue)
	_, err = CropBorder(img, -1)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ResizeForModel(image.NewNRGBA(image.Rect(0, 0, 20, 20)), DefaultPreprocessOptions())
	test.That(t, errors.Is(err, ErrImageTooSmall), test.ShouldBeTrue)
}
