package gdalio

// #include <stdlib.h>
// #include "gdal.h"
// #include "ogr_srs_api.h" /* for SRS calls */
// #include "cpl_conv.h"
// #cgo pkg-config: gdal
//char *exportSRS(char *userInput, int mode)
//{
//	char *pszOut;
//	char *result;
//	OGRSpatialReferenceH hSRS;
//
//	hSRS = OSRNewSpatialReference(NULL);
//	OGRErr err = OSRSetFromUserInput(hSRS, userInput);
//	if(err != OGRERR_NONE) {
//		OSRDestroySpatialReference(hSRS);
//		return NULL;
//	}
//
//	if(mode == 0) {
//		err = OSRExportToWkt(hSRS, &pszOut);
//	} else {
//		err = OSRExportToProj4(hSRS, &pszOut);
//	}
//
//	if(err != OGRERR_NONE) {
//		OSRDestroySpatialReference(hSRS);
//		return NULL;
//	}
//
//	result = strdup(pszOut);
//
//	OSRDestroySpatialReference(hSRS);
//	CPLFree(pszOut);
//
//	return result;
//}
import "C"

import (
	"fmt"
	"unsafe"
)

func exportSRS(crs string, mode int) (string, error) {
	cCRS := C.CString(crs)
	defer C.free(unsafe.Pointer(cCRS))

	cOut := C.exportSRS(cCRS, C.int(mode))
	if cOut == nil {
		return "", fmt.Errorf("unrecognised CRS %q", crs)
	}
	defer C.free(unsafe.Pointer(cOut))
	return C.GoString(cOut), nil
}

// crsWKT accepts anything GDAL does as a CRS: "epsg:32655", WKT or proj4.
func crsWKT(crs string) (string, error) {
	return exportSRS(crs, 0)
}

// DescribeCRS returns the WKT and proj4 forms of a CRS.
func DescribeCRS(crs string) (string, string, error) {
	InitGdal()
	projWKT, err := exportSRS(crs, 0)
	if err != nil {
		return "", "", err
	}
	proj4, err := exportSRS(crs, 1)
	if err != nil {
		return "", "", err
	}
	return projWKT, proj4, nil
}
