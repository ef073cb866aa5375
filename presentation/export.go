// Package presentation renders and saves pipeline results: depth figures,
// heat maps, shaded mesh previews and OBJ files.
package presentation

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/spatialmath"
)

// OBJExtension is added to OBJ paths given without an extension.
const OBJExtension = ".obj"

// ErrExport matches every failure to write an output file.
var ErrExport = errors.New("export failed")

// exportError keeps the underlying cause reachable while matching ErrExport.
type exportError struct {
	path string
	err  error
}

func (e *exportError) Error() string {
	return "cannot write " + e.path + ": " + e.err.Error()
}

func (e *exportError) Unwrap() error {
	return e.err
}

func (e *exportError) Is(target error) bool {
	return target == ErrExport
}

// WithOBJExtension returns path with ".obj" appended if it has no extension.
func WithOBJExtension(path string) string {
	if filepath.Ext(path) == "" {
		return path + OBJExtension
	}
	return path
}

// SaveOBJ writes mesh to path, adding ".obj" when path has no extension, and
// returns the path written. The file appears only once fully written.
func SaveOBJ(path string, mesh *spatialmath.Mesh) (string, error) {
	if strings.TrimSpace(path) == "" {
		return path, &exportError{path: `""`, err: errors.New("empty path")}
	}
	path = WithOBJExtension(path)
	return path, writeFileAtomic(path, mesh.WriteOBJ)
}

// SavePCD writes the cloud as a PCD of the given type.
func SavePCD(path string, pc *pointcloud.PointCloud, pcdType pointcloud.PCDType) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return pointcloud.ToPCD(pc, w, pcdType)
	})
}

// outputFileMode is the mode of every file written, as os.Create would leave
// it under the usual umask.
const outputFileMode = 0o644

// writeFileAtomic writes to a temporary file next to path and renames it into
// place, so a failed write never leaves a partial file behind.
func writeFileAtomic(path string, write func(w io.Writer) error) (err error) {
	if strings.TrimSpace(path) == "" {
		return &exportError{path: `""`, err: errors.New("empty path")}
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return &exportError{path: path, err: err}
	}
	defer func() {
		if err != nil {
			err = &exportError{path: path, err: multierr.Combine(err, os.Remove(f.Name()))}
		}
	}()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return multierr.Combine(err, f.Close())
	}
	if err := w.Flush(); err != nil {
		return multierr.Combine(err, f.Close())
	}
	if err := f.Chmod(outputFileMode); err != nil {
		return multierr.Combine(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
