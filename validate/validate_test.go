package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/properties"
	"github.com/paulmach/orb"
)

func validDoc() *model.DatasetDoc {
	doc := model.NewDatasetDoc()
	doc.ID = uuid.New()
	doc.Product = model.ProductDoc{Name: "ga_ls8c_ard_3", Href: "https://collections.dea.ga.gov.au/product/ga_ls8c_ard_3"}
	doc.CRS = "epsg:32655"
	doc.Geometry = orb.Polygon{{{0, 0}, {30, 0}, {30, 30}, {0, 30}, {0, 0}}}
	doc.Grids[model.DefaultGrid] = model.GridDoc{Shape: [2]int{1, 1}, Transform: model.Affine{A: 30, E: -30, F: 30}}
	doc.Measurements["blue"] = model.MeasurementDoc{Path: "blue.tif"}

	props := properties.NewWithFields(properties.KnownFields(), nil)
	props.Set("datetime", time.Date(2019, 7, 4, 13, 7, 5, 0, time.UTC))
	props.Set("odc:producer", "ga.gov.au")
	props.Set("odc:file_format", "GeoTIFF")
	doc.Properties = props
	return doc
}

func codes(msgs []Message) map[string]Level {
	out := make(map[string]Level)
	for _, m := range msgs {
		out[m.Code] = m.Level
	}
	return out
}

func TestValidDocument(t *testing.T) {
	if msgs := Dataset(validDoc(), Options{}); len(msgs) != 0 {
		t.Errorf("expected no messages, got %v", msgs)
	}
}

func TestProblems(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*model.DatasetDoc)
		code  string
		level Level
	}{
		{"missing product", func(d *model.DatasetDoc) { d.Product = model.ProductDoc{} }, "missing_product", Error},
		{"no href", func(d *model.DatasetDoc) { d.Product.Href = "" }, "product_href", Info},
		{"no measurements", func(d *model.DatasetDoc) { d.Measurements = map[string]model.MeasurementDoc{} }, "no_measurements", Warning},
		{"unknown grid", func(d *model.DatasetDoc) {
			d.Measurements["pan"] = model.MeasurementDoc{Path: "pan.tif", Grid: "panchromatic"}
		}, "invalid_grid_ref", Error},
		{"no grids", func(d *model.DatasetDoc) { d.Grids = map[string]model.GridDoc{} }, "incomplete_grids", Error},
		{"empty grid", func(d *model.DatasetDoc) { d.Grids["default"] = model.GridDoc{} }, "incomplete_grids", Error},
		{"no crs", func(d *model.DatasetDoc) { d.CRS = "" }, "incomplete_crs", Error},
		{"upper crs", func(d *model.DatasetDoc) { d.CRS = "EPSG:32655" }, "mixed_crs_case", Warning},
		{"bad epsg", func(d *model.DatasetDoc) { d.CRS = "epsg:abc" }, "invalid_crs_epsg", Error},
		{"no geometry", func(d *model.DatasetDoc) { d.Geometry = nil }, "incomplete_geo", Info},
		{"open ring", func(d *model.DatasetDoc) {
			d.Geometry = orb.Polygon{{{0, 0}, {30, 0}, {30, 30}, {0, 30}}}
		}, "bad_geometry", Error},
		{"flat ring", func(d *model.DatasetDoc) {
			d.Geometry = orb.Polygon{{{0, 0}, {30, 0}, {60, 0}, {0, 0}}}
		}, "bad_geometry", Error},
		{"point", func(d *model.DatasetDoc) { d.Geometry = orb.Point{1, 2} }, "bad_geometry", Error},
		{"absolute path", func(d *model.DatasetDoc) {
			d.Measurements["blue"] = model.MeasurementDoc{Path: "/data/blue.tif"}
		}, "absolute_path", Warning},
		{"remote path", func(d *model.DatasetDoc) {
			d.Measurements["blue"] = model.MeasurementDoc{Path: "s3://bucket/blue.tif"}
		}, "absolute_path", Warning},
		{"unknown property", func(d *model.DatasetDoc) { d.Properties.Set("custom:thing", 1) }, "unknown_property", Warning},
		{"invalid property", func(d *model.DatasetDoc) {
			d.Properties = properties.FromMap(map[string]interface{}{"datetime": "2019-07-04", "eo:cloud_cover": 140.0})
		}, "invalid_property", Error},
		{"producer", func(d *model.DatasetDoc) { d.Properties.Set("odc:producer", "ga") }, "producer_domain", Warning},
		{"file format", func(d *model.DatasetDoc) { d.Properties.Delete("odc:file_format") }, "global_file_format", Info},
		{"no datetime", func(d *model.DatasetDoc) { d.Properties.Delete("datetime") }, "missing_datetime", Error},
		{"no properties", func(d *model.DatasetDoc) { d.Properties = nil }, "missing_datetime", Error},
	}
	for _, c := range cases {
		doc := validDoc()
		c.edit(doc)
		got := codes(Dataset(doc, Options{}))
		level, ok := got[c.code]
		if !ok {
			t.Errorf("%s: expected %s, got %v", c.name, c.code, got)
			continue
		}
		if level != c.level {
			t.Errorf("%s: %s is %s, want %s", c.name, c.code, level, c.level)
		}
	}
}

func TestOptions(t *testing.T) {
	doc := validDoc()
	doc.Measurements["blue"] = model.MeasurementDoc{Path: "/data/blue.tif"}
	if msgs := Dataset(doc, Options{AllowAbsolutePaths: true}); len(msgs) != 0 {
		t.Errorf("expected absolute paths to be allowed, got %v", msgs)
	}

	doc = validDoc()
	doc.Geometry, doc.CRS, doc.Grids = nil, "", map[string]model.GridDoc{}
	got := codes(Dataset(doc, Options{}))
	if level, ok := got["non_geo"]; !ok || level != Info {
		t.Errorf("expected non_geo info, got %v", got)
	}
	if got = codes(Dataset(doc, Options{NoGeometry: true})); len(got) != 0 {
		t.Errorf("expected nothing for a dataset without geometry, got %v", got)
	}
}

func TestDatetimeRange(t *testing.T) {
	doc := validDoc()
	doc.Properties.Delete("datetime")
	doc.Properties.Set("dtr:start_datetime", "2019-07-04T00:00:00Z")
	doc.Properties.Set("dtr:end_datetime", "2019-07-05T00:00:00Z")
	if errs := Errors(Dataset(doc, Options{})); len(errs) != 0 {
		t.Errorf("expected a datetime range to be enough, got %v", errs)
	}
}

func TestMessageString(t *testing.T) {
	doc := validDoc()
	doc.Properties.Delete("datetime")
	errs := Errors(Dataset(doc, Options{}))
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	if s := errs[0].String(); !strings.HasPrefix(s, "missing_datetime: ") || !strings.Contains(s, "(Hint: ") {
		t.Errorf("unexpected message %q", s)
	}
}
