package gdalio

// #include <stdlib.h>
// #include "gdal.h"
// #include "cpl_conv.h"
// #include "cpl_string.h"
// #include "ogr_srs_api.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/nci/eodatasets/images"
)

var CgtiffDriver *C.char = C.CString("GTiff")

// DefaultCreationOptions make tiled, compressed GeoTIFFs.
var DefaultCreationOptions = []string{"TILED=YES", "COMPRESS=DEFLATE", "ZLEVEL=9", "BLOCKXSIZE=512", "BLOCKYSIZE=512"}

// GTiffWriter writes single band GeoTIFFs of one GDAL data type, such as
// "Int16" or "Float32".
type GTiffWriter struct {
	DataType string
	Options  []string
}

func NewGTiffWriter(dataType string) *GTiffWriter {
	InitGdal()
	return &GTiffWriter{DataType: dataType, Options: DefaultCreationOptions}
}

func (w *GTiffWriter) Suffix() string { return "tif" }

func (w *GTiffWriter) WriteImage(path string, r *images.Raster) error {
	rows, cols := r.Grid.Rows(), r.Grid.Cols()
	if len(r.Pixels) != rows*cols || rows == 0 {
		return fmt.Errorf("expected %d pixels for a %dx%d grid, got %d", rows*cols, rows, cols, len(r.Pixels))
	}

	cType := C.CString(w.DataType)
	dataType := C.GDALGetDataTypeByName(cType)
	C.free(unsafe.Pointer(cType))
	if dataType == C.GDT_Unknown {
		return fmt.Errorf("unknown GDAL data type %q", w.DataType)
	}

	hDriver := C.GDALGetDriverByName(CgtiffDriver)
	if hDriver == nil {
		return fmt.Errorf("GDAL has no GTiff driver")
	}

	var opts **C.char
	for _, o := range w.Options {
		cOpt := C.CString(o)
		opts = C.CSLAddString(opts, cOpt)
		C.free(unsafe.Pointer(cOpt))
	}
	defer C.CSLDestroy(opts)

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	hDstDS := C.GDALCreate(hDriver, cPath, C.int(cols), C.int(rows), 1, dataType, opts)
	if hDstDS == nil {
		return fmt.Errorf("GDAL could not create %s: %s", path, C.GoString(C.CPLGetLastErrorMsg()))
	}
	// Closing flushes the file, so it must happen before the caller
	// checksums it.
	defer C.GDALClose(hDstDS)

	gt := r.Grid.Transform.GDAL()
	dArr := [6]C.double{}
	for i, v := range gt {
		dArr[i] = C.double(v)
	}
	C.GDALSetGeoTransform(hDstDS, &dArr[0])

	if r.Grid.CRS != "" {
		projWKT, err := crsWKT(r.Grid.CRS)
		if err != nil {
			return err
		}
		cProjWKT := C.CString(projWKT)
		C.GDALSetProjection(hDstDS, cProjWKT)
		C.free(unsafe.Pointer(cProjWKT))
	}

	hBand := C.GDALGetRasterBand(hDstDS, 1)
	if r.Nodata != nil {
		C.GDALSetRasterNoDataValue(hBand, C.double(*r.Nodata))
	}

	gerr := C.GDALRasterIO(hBand, C.GF_Write, 0, 0, C.int(cols), C.int(rows), unsafe.Pointer(&r.Pixels[0]), C.int(cols), C.int(rows), C.GDT_Float64, 0, 0)
	if gerr != C.CE_None {
		return fmt.Errorf("writing %s: %s", path, C.GoString(C.CPLGetLastErrorMsg()))
	}
	return nil
}
