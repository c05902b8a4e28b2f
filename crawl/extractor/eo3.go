package extractor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/names"
	"github.com/nci/eodatasets/serialise"
	geo "github.com/nci/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CRSDescriber turns a CRS such as "epsg:32655" into its WKT and proj4
// forms. gdalio.DescribeCRS is one.
type CRSDescriber func(crs string) (string, string, error)

var drivers = map[string]string{
	"GeoTIFF": "GTiff",
	"NetCDF":  "netCDF",
}

// ExtractEO3 reads an EO3 dataset document and returns the record the MAS
// index keeps of it: one GeoMetaData per measurement, with absolute paths.
// Without a describer the CRS is kept as written in the document.
func ExtractEO3(filename string, describe CRSDescriber) (*GeoFile, error) {
	fn, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	doc, err := serialise.FromPath(fn)
	if err != nil {
		return nil, err
	}

	geoFile, err := FromDataset(doc, fn, describe)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}

	fStat, fErr := os.Lstat(fn)
	if fErr != nil {
		geoFile.PosixInfo = &PosixInfo{}
	} else {
		geoFile.PosixInfo = GetPosixInfo(fn, fStat)
		geoFile.PosixInfo.FilePath = ""
	}
	return geoFile, nil
}

// FromDataset builds the index record of a document read from
// metadataPath. Relative measurement paths are resolved against its folder.
func FromDataset(doc *model.DatasetDoc, metadataPath string, describe CRSDescriber) (*GeoFile, error) {
	geoFile := &GeoFile{
		FileName:  metadataPath,
		Driver:    drivers[doc.Properties.String("odc:file_format")],
		DatasetID: doc.ID.String(),
		Product:   doc.Product.Name,
		Label:     doc.Label,
	}

	projWKT, proj4 := doc.CRS, ""
	if describe != nil && doc.CRS != "" {
		var err error
		if projWKT, proj4, err = describe(doc.CRS); err != nil {
			return nil, err
		}
	}

	polygon, err := FootprintWKT(doc.Geometry)
	if err != nil {
		return nil, err
	}

	var timestamps []time.Time
	if t, ok := doc.Properties.Datetime(); ok {
		timestamps = []time.Time{t.UTC()}
	} else if start, end, ok := doc.Properties.DatetimeRange(); ok {
		timestamps = []time.Time{start.UTC(), end.UTC()}
	}

	dir := filepath.Dir(metadataPath)
	for _, name := range doc.MeasurementNames() {
		m := doc.Measurements[name]
		gridName := m.Grid
		if gridName == "" {
			gridName = model.DefaultGrid
		}
		grid, ok := doc.Grids[gridName]
		if !ok {
			return nil, fmt.Errorf("measurement %q refers to unknown grid %q", name, gridName)
		}
		gt := grid.Transform.GDAL()

		dsName := m.Path
		if !names.HasScheme(dsName) && !filepath.IsAbs(dsName) {
			dsName = filepath.Join(dir, filepath.FromSlash(dsName))
		}
		layer := m.Layer
		if m.Band != 0 {
			layer = strconv.Itoa(m.Band)
		}

		geoFile.DataSets = append(geoFile.DataSets, &GeoMetaData{
			DataSetName:  dsName,
			NameSpace:    name,
			RasterCount:  1,
			TimeStamps:   timestamps,
			XSize:        int32(grid.Shape[1]),
			YSize:        int32(grid.Shape[0]),
			GeoTransform: gt[:],
			Polygon:      polygon,
			ProjWKT:      projWKT,
			Proj4:        proj4,
			Grid:         gridName,
			Layer:        layer,
		})
	}
	return geoFile, nil
}

// FootprintWKT writes a dataset footprint as WKT, or "" for none.
func FootprintWKT(g orb.Geometry) (string, error) {
	if g == nil {
		return "", nil
	}
	data, err := json.Marshal(geojson.NewFeature(g))
	if err != nil {
		return "", err
	}
	var feat geo.Feature
	if err := json.Unmarshal(data, &feat); err != nil {
		return "", fmt.Errorf("Problem unmarshalling GeoJSON object: %v", err)
	}
	if feat.Geometry == nil {
		return "", fmt.Errorf("footprint has no geometry")
	}
	return feat.Geometry.MarshalWKT(), nil
}
