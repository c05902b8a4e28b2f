package model

import "fmt"

// Affine is a 2D affine transform from pixel (col, row) coordinates to
// world coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// FromGDAL converts a GDAL geotransform ([C, A, B, F, D, E] order).
func FromGDAL(gt []float64) (Affine, error) {
	if len(gt) != 6 {
		return Affine{}, fmt.Errorf("expected a 6 element geotransform, got %d", len(gt))
	}
	return Affine{A: gt[1], B: gt[2], C: gt[0], D: gt[4], E: gt[5], F: gt[3]}, nil
}

// GDAL returns the transform in GDAL geotransform order.
func (t Affine) GDAL() [6]float64 {
	return [6]float64{t.C, t.A, t.B, t.F, t.D, t.E}
}

// FromCoefficients reads the 6 (or 9, with a trailing 0, 0, 1 row)
// coefficients stored in an EO3 grid document.
func FromCoefficients(c []float64) (Affine, error) {
	switch len(c) {
	case 9:
		if c[6] != 0 || c[7] != 0 || c[8] != 1 {
			return Affine{}, fmt.Errorf("not an affine transform, last row is %v", c[6:])
		}
	case 6:
	default:
		return Affine{}, fmt.Errorf("expected 6 or 9 transform coefficients, got %d", len(c))
	}
	return Affine{A: c[0], B: c[1], C: c[2], D: c[3], E: c[4], F: c[5]}, nil
}

// Coefficients returns the full 3x3 matrix in row order, as written to
// EO3 documents.
func (t Affine) Coefficients() []float64 {
	return []float64{t.A, t.B, t.C, t.D, t.E, t.F, 0, 0, 1}
}

func (t Affine) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

func (t Affine) IsRectilinear() bool {
	return t.B == 0 && t.D == 0
}
