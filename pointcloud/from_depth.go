package pointcloud

import (
	"github.com/golang/geo/r3"

	"go.viam.com/depthmesh/rimage"
)

// NewFromNormalizedDepthMap emits one point per cell of a normalized depth
// map in row-major order, with X the row, Y the column and Z the normalized
// depth. Cells whose normalized depth is exactly zero are left out.
func NewFromNormalizedDepthMap(normalized *rimage.DepthMap) *PointCloud {
	width, height := normalized.Width(), normalized.Height()
	pc := NewWithPrealloc(width * height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			z := normalized.GetDepth(col, row)
			if z == 0 {
				continue
			}
			pc.Append(r3.Vector{X: float64(row), Y: float64(col), Z: z})
		}
	}
	return pc
}
