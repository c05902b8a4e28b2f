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
	"strconv"
	"strings"
	"unsafe"

	"github.com/nci/eodatasets/images"
	"github.com/nci/eodatasets/model"
)

var CsubDS *C.char = C.CString("SUBDATASETS")

// Reader opens rasters with GDAL. The layer of a measurement is either a
// band number or the variable name of a subdataset, such as a NetCDF
// variable.
type Reader struct{}

func NewReader() *Reader {
	InitGdal()
	return &Reader{}
}

func (r *Reader) ReadGrid(path, layer string) (*images.Raster, error) {
	return readRaster(path, layer, false)
}

func (r *Reader) ReadRaster(path, layer string) (*images.Raster, error) {
	return readRaster(path, layer, true)
}

func readRaster(path, layer string, withPixels bool) (*images.Raster, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	hDataset := C.GDALOpen(cPath, C.GA_ReadOnly)
	if hDataset == nil {
		err := C.CPLGetLastErrorMsg()
		return nil, fmt.Errorf("GDAL could not open %v: %s", path, C.GoString(err))
	}
	defer C.GDALClose(hDataset)

	bandNum := 1
	if layer != "" {
		if n, err := strconv.Atoi(layer); err == nil {
			bandNum = n
		} else {
			subDS, err := openSubdataset(hDataset, layer)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", path, err)
			}
			defer C.GDALClose(subDS)
			hDataset = subDS
		}
	}

	if bandNum < 1 || bandNum > int(C.GDALGetRasterCount(hDataset)) {
		return nil, fmt.Errorf("%s has no band %d", path, bandNum)
	}
	hBand := C.GDALGetRasterBand(hDataset, C.int(bandNum))

	grid, err := datasetGrid(hDataset)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	raster := &images.Raster{Grid: grid}

	var hasNodata C.int
	nodata := float64(C.GDALGetRasterNoDataValue(hBand, &hasNodata))
	if hasNodata != 0 {
		raster.Nodata = &nodata
	}

	if !withPixels {
		return raster, nil
	}
	rows, cols := grid.Rows(), grid.Cols()
	pixels := make([]float64, rows*cols)
	if len(pixels) > 0 {
		gerr := C.GDALRasterIO(hBand, C.GF_Read, 0, 0, C.int(cols), C.int(rows), unsafe.Pointer(&pixels[0]), C.int(cols), C.int(rows), C.GDT_Float64, 0, 0)
		if gerr != C.CE_None {
			return nil, fmt.Errorf("reading %s band %d: %s", path, bandNum, C.GoString(C.CPLGetLastErrorMsg()))
		}
	}
	raster.Pixels = pixels
	return raster, nil
}

// openSubdataset opens the subdataset whose name ends with ":<variable>".
func openSubdataset(hDataset C.GDALDatasetH, variable string) (C.GDALDatasetH, error) {
	metadata := C.GDALGetMetadata(C.GDALMajorObjectH(hDataset), CsubDS)
	nsubds := int(C.CSLCount(metadata) / C.int(2))

	var available []string
	for i := 1; i <= nsubds; i++ {
		subDSId := C.CString(fmt.Sprintf("SUBDATASET_%d_NAME", i))
		pszSubdatasetName := C.CSLFetchNameValue(metadata, subDSId)
		C.free(unsafe.Pointer(subDSId))
		if pszSubdatasetName == nil {
			continue
		}
		name := C.GoString(pszSubdatasetName)
		if strings.HasSuffix(name, ":"+variable) {
			hSubdataset := C.GDALOpen(pszSubdatasetName, C.GA_ReadOnly)
			if hSubdataset == nil {
				return nil, fmt.Errorf("GDAL could not open subdataset: %s", name)
			}
			return hSubdataset, nil
		}
		available = append(available, name)
	}
	return nil, fmt.Errorf("no layer %q, subdatasets are %v", variable, available)
}

func datasetGrid(hDataset C.GDALDatasetH) (images.GridSpec, error) {
	dArr := [6]C.double{}
	if C.GDALGetGeoTransform(hDataset, &dArr[0]) != C.CE_None {
		return images.GridSpec{}, fmt.Errorf("no geotransform")
	}
	geot := make([]float64, 6)
	for i, v := range dArr {
		geot[i] = float64(v)
	}
	transform, err := model.FromGDAL(geot)
	if err != nil {
		return images.GridSpec{}, err
	}

	crs := crsName(C.GoString(C.GDALGetProjectionRef(hDataset)))
	rows := int(C.GDALGetRasterYSize(hDataset))
	cols := int(C.GDALGetRasterXSize(hDataset))
	return images.NewGridSpec(rows, cols, transform, crs), nil
}

// crsName returns "epsg:<code>" when the projection has an EPSG code, and
// the WKT otherwise.
func crsName(projWkt string) string {
	if projWkt == "" {
		return ""
	}
	cProjWKT := C.CString(projWkt)
	defer C.free(unsafe.Pointer(cProjWKT))

	hSRS := C.OSRNewSpatialReference(cProjWKT)
	if hSRS == nil {
		return projWkt
	}
	defer C.OSRDestroySpatialReference(hSRS)
	C.OSRAutoIdentifyEPSG(hSRS)

	authority := C.OSRGetAuthorityName(hSRS, nil)
	code := C.OSRGetAuthorityCode(hSRS, nil)
	if authority == nil || code == nil || !strings.EqualFold(C.GoString(authority), "EPSG") {
		return projWkt
	}
	return "epsg:" + C.GoString(code)
}
