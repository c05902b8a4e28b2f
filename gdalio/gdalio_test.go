package gdalio

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/nci/eodatasets/images"
	"github.com/nci/eodatasets/model"
)

func TestWriteRead(t *testing.T) {
	nodata := -999.0
	grid := images.NewGridSpec(3, 4, model.Affine{A: 30, C: 306285, E: -30, F: -3325785}, "epsg:32655")
	raster := &images.Raster{
		Grid:   grid,
		Nodata: &nodata,
		Pixels: []float64{
			-999, 1, 2, 3,
			4, 5, 6, -999,
			7, 8, 9, 10,
		},
	}

	path := filepath.Join(t.TempDir(), "band01.tif")
	w := NewGTiffWriter("Int16")
	if w.Suffix() != "tif" {
		t.Errorf("suffix = %s", w.Suffix())
	}
	if err := w.WriteImage(path, raster); err != nil {
		t.Fatal(err)
	}

	r := NewReader()
	got, err := r.ReadRaster(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Grid.Equal(grid) {
		t.Errorf("grid %v, want %v", got.Grid, grid)
	}
	if got.Grid.CRS != "epsg:32655" {
		t.Errorf("crs = %q", got.Grid.CRS)
	}
	if got.Nodata == nil || *got.Nodata != nodata {
		t.Errorf("nodata = %v", got.Nodata)
	}
	for i, p := range raster.Pixels {
		if got.Pixels[i] != p {
			t.Errorf("pixel %d = %v, want %v", i, got.Pixels[i], p)
		}
	}

	header, err := r.ReadGrid(path, "1")
	if err != nil {
		t.Fatal(err)
	}
	if header.Pixels != nil || !header.Grid.Equal(grid) {
		t.Errorf("unexpected grid read %+v", header)
	}

	if _, err := r.ReadGrid(path, "2"); err == nil {
		t.Error("expected an error for a missing band")
	}
	if _, err := r.ReadGrid(path, "lwir"); err == nil {
		t.Error("expected an error for a missing layer")
	}
}

func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()
	grid := images.NewGridSpec(2, 2, model.Affine{A: 10, E: -10}, "epsg:4326")

	if err := NewGTiffWriter("Int16").WriteImage(filepath.Join(dir, "short.tif"), &images.Raster{Grid: grid, Pixels: []float64{1}}); err == nil {
		t.Error("expected an error for too few pixels")
	}
	if err := NewGTiffWriter("Int12").WriteImage(filepath.Join(dir, "type.tif"), &images.Raster{Grid: grid, Pixels: []float64{1, 2, 3, 4}}); err == nil {
		t.Error("expected an error for an unknown data type")
	}
	if _, err := NewReader().ReadRaster(filepath.Join(dir, "missing.tif"), ""); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestDescribeCRS(t *testing.T) {
	projWKT, proj4, err := DescribeCRS("epsg:32655")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(projWKT, "UTM zone 55S") {
		t.Errorf("unexpected WKT %s", projWKT)
	}
	if !strings.Contains(proj4, "+zone=55") || !strings.Contains(proj4, "+south") {
		t.Errorf("unexpected proj4 %s", proj4)
	}

	if _, _, err := DescribeCRS("not a crs"); err == nil {
		t.Error("expected an error for an unknown CRS")
	}
}
