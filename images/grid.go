// Package images groups the measurements of a dataset by pixel grid,
// names those grids, and reduces their valid pixels to a footprint
// geometry.
package images

import (
	"fmt"
	"math"

	"github.com/nci/eodatasets/model"
)

// GridSpec is a pixel grid: shape (rows, cols), the affine transform from
// pixel to world coordinates, and the CRS of the world coordinates.
//
// Two grids with the same shape and transform are the same grid: the CRS
// does not take part in Equal or Key.
type GridSpec struct {
	Shape     [2]int
	Transform model.Affine
	CRS       string
}

// GridKey identifies a grid ignoring its CRS. It is comparable and can be
// used as a map key.
type GridKey struct {
	Shape     [2]int
	Transform model.Affine
}

type Bounds struct {
	Left, Bottom, Right, Top float64
}

func NewGridSpec(rows, cols int, transform model.Affine, crs string) GridSpec {
	return GridSpec{Shape: [2]int{rows, cols}, Transform: transform, CRS: crs}
}

func (g GridSpec) Rows() int { return g.Shape[0] }
func (g GridSpec) Cols() int { return g.Shape[1] }

func (g GridSpec) Key() GridKey {
	return GridKey{Shape: g.Shape, Transform: g.Transform}
}

func (g GridSpec) Equal(o GridSpec) bool {
	return g.Key() == o.Key()
}

// Bounds is the bounding box in CRS units, from the transform of the
// pixel corners (0, rows) and (cols, 0).
func (g GridSpec) Bounds() Bounds {
	x0, y0 := g.Transform.Apply(0, float64(g.Rows()))
	x1, y1 := g.Transform.Apply(float64(g.Cols()), 0)
	return Bounds{
		Left:   math.Min(x0, x1),
		Bottom: math.Min(y0, y1),
		Right:  math.Max(x0, x1),
		Top:    math.Max(y0, y1),
	}
}

// ResolutionYX is the pixel size (y, x), always positive.
func (g GridSpec) ResolutionYX() (y, x float64) {
	return math.Abs(g.Transform.E), math.Abs(g.Transform.A)
}

func (g GridSpec) Doc() model.GridDoc {
	return model.GridDoc{Shape: g.Shape, Transform: g.Transform}
}

func (g GridSpec) String() string {
	return fmt.Sprintf("GridSpec(shape=%v, transform=%+v, crs=%q)", g.Shape, g.Transform, g.CRS)
}

// GeoBox is anything that knows its own pixel grid, such as an in-memory
// gridded array.
type GeoBox interface {
	Shape() (rows, cols int)
	Affine() model.Affine
	CRS() string
}

func FromGeoBox(b GeoBox) GridSpec {
	rows, cols := b.Shape()
	return NewGridSpec(rows, cols, b.Affine(), b.CRS())
}

// FromDatasetDoc reads a named grid out of an existing dataset document.
func FromDatasetDoc(doc *model.DatasetDoc, gridName string) (GridSpec, error) {
	if gridName == "" {
		gridName = model.DefaultGrid
	}
	grid, ok := doc.Grids[gridName]
	if !ok {
		return GridSpec{}, fmt.Errorf("dataset %s has no grid called %q (grids: %v)", doc.ID, gridName, doc.GridNames())
	}
	return GridSpec{Shape: grid.Shape, Transform: grid.Transform, CRS: doc.CRS}, nil
}
