package extractor

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/serialise"
	"github.com/paulmach/orb"
)

func TestNormaliseBandName(t *testing.T) {
	for in, want := range map[string]string{
		"4":                "band04",
		"8a":               "band08a",
		"8A":               "band08a",
		"11":               "band11",
		"QUALITY":          "quality",
		"Azimuthal-Angles": "azimuthal_angles",
	} {
		if got := NormaliseBandName(in); got != want {
			t.Errorf("NormaliseBandName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBandFromFilename(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"/data/LC08_L1TP_091075_20161213_20170316_01_T2_B4.TIF", "band04"},
		{"T55HFA_20200101T000000_B8A.jp2", "band08a"},
		{"B01.tif", "band01"},
		{"ga_ls8c_nbart_3-0-0_091075_2016-12-13_final_nbart-blue.tif", "nbart_blue"},
		{"lwir.nc", "lwir"},
	} {
		if got := BandFromFilename(tc.in); got != tc.want {
			t.Errorf("BandFromFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFindMeasurements(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"scene/LC08_T2_B1.TIF",
		"scene/LC08_T2_B2.TIF",
		"scene/sub/LC08_T2_B10.TIF",
		"scene/LC08_T2_MTL.txt",
		".work/LC08_T2_B3.TIF",
	} {
		touch(t, filepath.Join(root, filepath.FromSlash(name)))
	}

	found, err := FindMeasurements(root, "**/*_B*.TIF", "")
	if err != nil {
		t.Fatal(err)
	}
	var bands []string
	for _, f := range found {
		bands = append(bands, f.Band)
		if !filepath.IsAbs(f.Path) {
			t.Errorf("expected an absolute path, got %s", f.Path)
		}
	}
	if got := strings.Join(bands, ","); got != "band01,band02,band10" {
		t.Errorf("bands %s", got)
	}

	found, err = FindMeasurements(root, "**/*.TIF", `band != "band10" && name =~ "B[0-9][.]TIF$"`)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 || found[0].Band != "band01" || found[1].Band != "band02" {
		t.Errorf("filtered %v", found)
	}

	if _, err := FindMeasurements(root, "**/*.TIF", `size > 10`); err == nil {
		t.Error("expected an error for an unknown filter variable")
	}
	if _, err := FindMeasurements(root, "[", ""); err == nil {
		t.Error("expected an error for a bad glob")
	}

	touch(t, filepath.Join(root, "copy", "LC08_T2_B1.TIF"))
	if _, err := FindMeasurements(root, "**/*_B*.TIF", ""); err == nil {
		t.Error("expected an error for two files of one band")
	}
}

func testDocument(t *testing.T, dir string) (*model.DatasetDoc, string) {
	t.Helper()
	doc := model.NewDatasetDoc()
	doc.ID = uuid.New()
	doc.Label = "ga_ls8c_nbart_3-0-0_091075_2016-12-13_final"
	doc.Product.Name = "ga_ls8c_nbart_3"
	doc.CRS = "epsg:32655"
	doc.Geometry = orb.Polygon{{{306285, -3325785}, {306405, -3325785}, {306405, -3325875}, {306285, -3325875}, {306285, -3325785}}}
	doc.Grids[model.DefaultGrid] = model.GridDoc{Shape: [2]int{3, 4}, Transform: model.Affine{A: 30, C: 306285, E: -30, F: -3325785}}
	doc.Grids["lwir"] = model.GridDoc{Shape: [2]int{1, 2}, Transform: model.Affine{A: 60, C: 306285, E: -60, F: -3325785}}
	doc.Measurements["blue"] = model.MeasurementDoc{Path: "bands/blue.tif"}
	doc.Measurements["lwir"] = model.MeasurementDoc{Path: "/data/thermal.nc", Layer: "lwir", Grid: "lwir"}
	if err := doc.Properties.Set("datetime", time.Date(2016, 12, 13, 0, 5, 18, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if err := doc.Properties.Set("odc:file_format", "GeoTIFF"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "dataset.odc-metadata.yaml")
	if err := serialise.ToPath(path, doc); err != nil {
		t.Fatal(err)
	}
	return doc, path
}

func TestExtractEO3(t *testing.T) {
	dir := t.TempDir()
	doc, path := testDocument(t, dir)

	geoFile, err := ExtractEO3(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if geoFile.FileName != path || geoFile.Driver != "GTiff" || geoFile.DatasetID != doc.ID.String() {
		t.Errorf("GeoFile %+v", geoFile)
	}
	if geoFile.PosixInfo == nil || geoFile.PosixInfo.ID == "" || geoFile.PosixInfo.Size == 0 {
		t.Errorf("PosixInfo %+v", geoFile.PosixInfo)
	}
	if len(geoFile.DataSets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(geoFile.DataSets))
	}

	blue, lwir := geoFile.DataSets[0], geoFile.DataSets[1]
	if blue.NameSpace != "blue" || blue.DataSetName != filepath.Join(dir, "bands", "blue.tif") {
		t.Errorf("blue %+v", blue)
	}
	if blue.XSize != 4 || blue.YSize != 3 || blue.Grid != model.DefaultGrid {
		t.Errorf("blue size %dx%d on %s", blue.XSize, blue.YSize, blue.Grid)
	}
	wantGT := []float64{306285, 30, 0, -3325785, 0, -30}
	for i := range wantGT {
		if blue.GeoTransform[i] != wantGT[i] {
			t.Errorf("geotransform %v, want %v", blue.GeoTransform, wantGT)
			break
		}
	}
	if lwir.DataSetName != "/data/thermal.nc" || lwir.Layer != "lwir" || lwir.Grid != "lwir" || lwir.XSize != 2 {
		t.Errorf("lwir %+v", lwir)
	}
	if !strings.HasPrefix(strings.ToUpper(blue.Polygon), "POLYGON") {
		t.Errorf("polygon %q", blue.Polygon)
	}
	if blue.ProjWKT != "epsg:32655" || blue.Proj4 != "" {
		t.Errorf("projection %q %q", blue.ProjWKT, blue.Proj4)
	}
	if len(blue.TimeStamps) != 1 || !blue.TimeStamps[0].Equal(time.Date(2016, 12, 13, 0, 5, 18, 0, time.UTC)) {
		t.Errorf("timestamps %v", blue.TimeStamps)
	}

	describe := func(crs string) (string, string, error) {
		return "WKT[" + crs + "]", "+init=" + crs, nil
	}
	geoFile, err = ExtractEO3(path, describe)
	if err != nil {
		t.Fatal(err)
	}
	if ds := geoFile.DataSets[0]; ds.ProjWKT != "WKT[epsg:32655]" || ds.Proj4 != "+init=epsg:32655" {
		t.Errorf("projection %q %q", ds.ProjWKT, ds.Proj4)
	}
}

func TestFromDatasetUnknownGrid(t *testing.T) {
	doc := model.NewDatasetDoc()
	doc.Measurements["blue"] = model.MeasurementDoc{Path: "blue.tif", Grid: "missing"}
	if _, err := FromDataset(doc, "/data/a.yaml", nil); err == nil {
		t.Error("expected an error for an unknown grid")
	}
}

func TestFootprintWKT(t *testing.T) {
	wkt, err := FootprintWKT(nil)
	if err != nil || wkt != "" {
		t.Errorf("FootprintWKT(nil) = %q, %v", wkt, err)
	}
	wkt, err = FootprintWKT(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.ToUpper(wkt), "POLYGON") {
		t.Errorf("wkt %q", wkt)
	}
}
