// Package gdalio reads and writes the rasters of a dataset with GDAL.
package gdalio

// #include "gdal.h"
// #include "gdal_frmts.h"
// #cgo pkg-config: gdal
import "C"

import (
	"os"
	"sync"
)

var initOnce sync.Once

// InitGdal sets the GDAL defaults and registers the drivers once.
func InitGdal() {
	initOnce.Do(func() {
		setDefaultEnv("GDAL_NETCDF_VERIFY_DIMS", "NO")
		// No .aux.xml side files in packages.
		setDefaultEnv("GDAL_PAM_ENABLED", "NO")
		setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
		setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "10")

		registerGDALDrivers()
	})
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}

func registerGDALDrivers() {
	// Drivers are interrogated in a linear scan when opening files, so
	// the common ones are registered ahead of the rest. Work out which
	// are present, drop them all, then put them back in our order.
	var haveNetCDF, haveHDF5, haveJP2OpenJPEG, haveGTiff bool

	C.GDALAllRegister()
	for i := 0; i < int(C.GDALGetDriverCount()); i++ {
		driver := C.GDALGetDriver(C.int(i))
		switch C.GoString(C.GDALGetDriverShortName(driver)) {
		case "netCDF":
			haveNetCDF = true
		case "HDF5":
			haveHDF5 = true
		case "JP2OpenJPEG":
			haveJP2OpenJPEG = true
		case "GTiff":
			haveGTiff = true
		}
	}

	for C.GDALGetDriverCount() > 0 {
		C.GDALDeregisterDriver(C.GDALGetDriver(0))
	}

	if haveGTiff {
		C.GDALRegister_GTiff()
	}
	if haveJP2OpenJPEG {
		C.GDALRegister_JP2OpenJPEG()
	}
	if haveNetCDF {
		C.GDALRegister_netCDF()
	}
	if haveHDF5 {
		C.GDALRegister_HDF5()
	}
	C.GDALAllRegister()
}
