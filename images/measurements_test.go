package images

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nci/eodatasets/model"
)

var (
	grid30 = NewGridSpec(100, 100, model.Affine{A: 30, C: 241485, E: -30, F: -2281485}, "EPSG:32655")
	grid15 = NewGridSpec(200, 200, model.Affine{A: 15, C: 241485, E: -15, F: -2281485}, "EPSG:32655")
)

func record(t *testing.T, m *MeasurementRecord, grid GridSpec, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := m.RecordImage(n, grid, Location{Path: n + ".tif"}, nil, nil, false); err != nil {
			t.Fatalf("RecordImage(%q): %v", n, err)
		}
	}
}

func gridNames(t *testing.T, m *MeasurementRecord) map[string]string {
	t.Helper()
	_, _, measurements, err := m.AsGeoDocs()
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]string)
	for name, doc := range measurements {
		out[name] = doc.Grid
	}
	return out
}

func TestDuplicateMeasurementName(t *testing.T) {
	m := NewMeasurementRecord()
	if err := m.RecordImage("blue", grid30, Location{Path: "a.tif"}, nil, nil, false); err != nil {
		t.Fatal(err)
	}

	err := m.RecordImage("blue", grid15, Location{Path: "b.tif"}, nil, nil, false)
	var dup *DuplicateMeasurementError
	if !errors.As(err, &dup) {
		t.Fatalf("expected a duplicate error, got %v", err)
	}
	if !strings.Contains(err.Error(), "a.tif") || !strings.Contains(err.Error(), "b.tif") {
		t.Errorf("error should name both locations: %v", err)
	}

	// Identical grid and path are still rejected.
	if err := m.RecordImage("blue", grid30, Location{Path: "a.tif"}, nil, nil, false); err == nil {
		t.Error("expected an error re-adding an identical measurement")
	}
	if m.Len() != 1 {
		t.Errorf("expected one measurement, got %d", m.Len())
	}
}

func TestSingleGridIsDefault(t *testing.T) {
	m := NewMeasurementRecord()
	record(t, m, grid30, "blue", "green", "nbar:red")

	crs, grids, measurements, err := m.AsGeoDocs()
	if err != nil {
		t.Fatal(err)
	}
	if crs != "EPSG:32655" {
		t.Errorf("unexpected crs %q", crs)
	}
	if len(grids) != 1 || grids["default"].Shape != grid30.Shape {
		t.Errorf("unexpected grids %v", grids)
	}
	for name, doc := range measurements {
		if doc.Grid != "" {
			t.Errorf("measurement %s should not reference a grid, got %q", name, doc.Grid)
		}
	}
	if _, ok := measurements["nbar_red"]; !ok {
		t.Errorf("colons should be replaced in measurement names: %v", measurements)
	}
}

func TestCommonName(t *testing.T) {
	cases := []struct {
		group, all []string
		want       string
	}{
		{[]string{"nbar_blue", "nbar_red"}, nil, "nbar"},
		{[]string{"nbar_band08", "nbart_band08"}, nil, "band08"},
		{[]string{"nbar:band08", "nbart:band08"}, nil, "band08"},
		{[]string{"nbar_blue", "nbar_red", "qa"}, []string{"nbar_blue", "nbar_red", "qa", "x"}, ""},
		{[]string{"a", "b"}, []string{"a", "b", "c"}, ""},
		{[]string{"nbar_blue", "nbar_red"}, []string{"nbar_blue", "nbar_red", "nbar_green"}, ""},
		{[]string{"nbar_blue", "nbar_red"}, []string{"nbar_blue", "nbar_red", "nbart_green"}, "nbar"},
	}
	for _, c := range cases {
		all := c.all
		if all == nil {
			all = c.group
		}
		if got := commonName(c.group, all); got != c.want {
			t.Errorf("commonName(%v, %v) = %q, want %q", c.group, all, got, c.want)
		}
	}
}

func TestAffixNaming(t *testing.T) {
	m := NewMeasurementRecord()
	record(t, m, grid30, "nbar_blue", "nbar_red", "nbar_green")
	record(t, m, grid15, "nbart_blue", "nbart_red")

	names := gridNames(t, m)
	if names["nbart_blue"] != "nbart" || names["nbart_red"] != "nbart" {
		t.Errorf("expected the second grid to be named nbart, got %v", names)
	}
	if names["nbar_blue"] != "" {
		t.Errorf("default grid measurements should have no grid, got %v", names)
	}
}

func TestSingleMemberGridNamedAfterMember(t *testing.T) {
	m := NewMeasurementRecord()
	record(t, m, grid30, "blue", "green", "red")
	record(t, m, grid15, "panchromatic")

	names := gridNames(t, m)
	if names["panchromatic"] != "panchromatic" {
		t.Errorf("unexpected grid names %v", names)
	}

	m = NewMeasurementRecord()
	record(t, m, grid30, "nbar_blue", "nbar_red", "nbar_green")
	record(t, m, grid15, "nbart_blue")
	if names := gridNames(t, m); names["nbart_blue"] != "nbart_blue" {
		t.Errorf("expected a lone measurement to name its grid, got %v", names)
	}
}

func TestResolutionNaming(t *testing.T) {
	m := NewMeasurementRecord()
	record(t, m, grid30, "blue", "green", "red")
	record(t, m, grid15, "b1", "a2")

	names := gridNames(t, m)
	if names["b1"] != "15" || names["a2"] != "15" {
		t.Errorf("expected resolution naming, got %v", names)
	}
}

func TestLetterNaming(t *testing.T) {
	other15 := NewGridSpec(10, 10, model.Affine{A: 15, E: -15}, "EPSG:32655")

	m := NewMeasurementRecord()
	record(t, m, grid30, "blue", "green", "red")
	record(t, m, grid15, "x1", "y2")
	record(t, m, other15, "q")

	names := gridNames(t, m)
	if names["x1"] != "a" || names["y2"] != "a" || names["q"] != "b" {
		t.Errorf("expected letter naming, got %v", names)
	}
}

func TestTooManyGrids(t *testing.T) {
	m := NewMeasurementRecord()
	record(t, m, grid30, "blue", "green", "red")
	for i := 0; i < 53; i++ {
		g := NewGridSpec(10, 10, model.Affine{A: 30, C: float64(i + 1), E: -30}, "EPSG:32655")
		record(t, m, g, fmt.Sprintf("a%d", i), fmt.Sprintf("b%dx", i))
	}
	_, _, _, err := m.AsGeoDocs()
	if !errors.Is(err, ErrTooManyGrids) {
		t.Errorf("expected ErrTooManyGrids, got %v", err)
	}
}

func TestResolutionName(t *testing.T) {
	for res, want := range map[float64]string{30: "30", 15.5: "15", 0.5: "0.5", 1: "1.0"} {
		if got := resolutionName(res); got != want {
			t.Errorf("resolutionName(%v) = %q, want %q", res, got, want)
		}
	}
}

func TestMixedCRS(t *testing.T) {
	other := grid15
	other.CRS = "EPSG:32656"

	m := NewMeasurementRecord()
	record(t, m, grid30, "blue", "green")
	record(t, m, other, "panchromatic")

	_, _, _, err := m.AsGeoDocs()
	var mixed *MixedCRSError
	if !errors.As(err, &mixed) {
		t.Fatalf("expected a mixed CRS error, got %v", err)
	}
	if !strings.Contains(err.Error(), "EPSG:32655") || !strings.Contains(err.Error(), "EPSG:32656") {
		t.Errorf("error should name both CRSes: %v", err)
	}
}

func TestDefaultGridTieBreak(t *testing.T) {
	m := NewMeasurementRecord()
	record(t, m, grid30, "blue")
	record(t, m, grid15, "panchromatic")

	names := gridNames(t, m)
	if names["panchromatic"] != "" || names["blue"] != "blue" {
		t.Errorf("the grid with more pixels should be the default: %v", names)
	}
}

func TestNoMeasurements(t *testing.T) {
	if _, _, _, err := NewMeasurementRecord().AsGeoDocs(); err != ErrNoMeasurements {
		t.Errorf("expected ErrNoMeasurements, got %v", err)
	}
}
