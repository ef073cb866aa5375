// Package rimage holds the image and depth map types plus the preprocessing
// that fits images to a depth model's stride.
package rimage

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// SupportedImageExtensions are the file extensions ReadImageFromFile accepts.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png"}

var (
	// ErrUnsupportedFormat is returned for files that are not JPEG or PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode is returned when a file cannot be read or decoded as an image.
	ErrDecode = errors.New("cannot decode image")
)

// IsSupportedImagePath reports whether fn has a JPEG or PNG extension.
func IsSupportedImagePath(fn string) bool {
	ext := strings.ToLower(filepath.Ext(fn))
	for _, supported := range SupportedImageExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ReadImageFromFile reads and decodes a JPEG or PNG, applying any EXIF orientation.
func ReadImageFromFile(fn string) (image.Image, error) {
	if !IsSupportedImagePath(fn) {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q (want one of %s)",
			fn, strings.Join(SupportedImageExtensions, ", "))
	}
	img, err := imaging.Open(fn, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%q: %v", fn, err)
	}
	return img, nil
}
