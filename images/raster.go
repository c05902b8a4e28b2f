package images

import (
	"fmt"
	"math"
)

// Raster is one band of an image: its grid, nodata value and pixels.
// Pixels are row-major, len(Pixels) == rows*cols. They may be nil when
// only the grid was read.
type Raster struct {
	Grid   GridSpec
	Nodata *float64
	Pixels []float64
}

// RasterReader opens images on behalf of the assembler. Layer selects a
// band or a subdataset; "" means the first.
type RasterReader interface {
	ReadGrid(path, layer string) (*Raster, error)
	ReadRaster(path, layer string) (*Raster, error)
}

// ImageWriter writes a raster as a new file. Suffix is the file extension
// it writes, without the dot.
type ImageWriter interface {
	WriteImage(path string, r *Raster) error
	Suffix() string
}

// MemoryReader serves rasters held in memory, keyed by path.
type MemoryReader map[string]*Raster

func (m MemoryReader) ReadGrid(path, layer string) (*Raster, error) {
	r, err := m.ReadRaster(path, layer)
	if err != nil {
		return nil, err
	}
	return &Raster{Grid: r.Grid, Nodata: r.Nodata}, nil
}

func (m MemoryReader) ReadRaster(path, layer string) (*Raster, error) {
	r, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no raster at %s", path)
	}
	return r, nil
}

// Mask is a boolean raster.
type Mask struct {
	Rows, Cols int
	bits       []bool
}

func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, bits: make([]bool, rows*cols)}
}

// At is false outside the mask.
func (m *Mask) At(row, col int) bool {
	if row < 0 || col < 0 || row >= m.Rows || col >= m.Cols {
		return false
	}
	return m.bits[row*m.Cols+col]
}

func (m *Mask) Set(row, col int, v bool) {
	m.bits[row*m.Cols+col] = v
}

func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// OrValid marks every pixel that is not nodata. A nil nodata means 0.
// A NaN nodata matches NaN pixels.
func (m *Mask) OrValid(pixels []float64, nodata *float64) error {
	if len(pixels) != len(m.bits) {
		return fmt.Errorf("expected %d pixels for a %dx%d grid, got %d", len(m.bits), m.Rows, m.Cols, len(pixels))
	}
	nd := 0.0
	if nodata != nil {
		nd = *nodata
	}
	if math.IsNaN(nd) {
		for i, p := range pixels {
			if !math.IsNaN(p) {
				m.bits[i] = true
			}
		}
		return nil
	}
	for i, p := range pixels {
		if p != nd {
			m.bits[i] = true
		}
	}
	return nil
}
