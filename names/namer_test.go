package names

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nci/eodatasets/properties"
)

func newProps(t *testing.T, values map[string]interface{}) *properties.Store {
	t.Helper()
	p := properties.NewWithFields(properties.KnownFields(), nil)
	for k, v := range values {
		if err := p.Set(k, v); err != nil {
			t.Fatalf("setting %s: %v", k, err)
		}
	}
	return p
}

func newNamer(t *testing.T, conventions string, values map[string]interface{}) *Namer {
	t.Helper()
	n, err := ForConventions(conventions, newProps(t, values))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func mustGet(t *testing.T, n *Namer, f Field) string {
	t.Helper()
	v, err := n.Get(f)
	if err != nil {
		t.Fatalf("%s: %v", f, err)
	}
	return v
}

// metadataOffset is the metadata file inside its dataset folder.
func metadataOffset(t *testing.T, n *Namer) string {
	t.Helper()
	return mustGet(t, n, DatasetFolder) + "/" + mustGet(t, n, MetadataFile)
}

func TestConventionExamples(t *testing.T) {
	cases := []struct {
		name        string
		conventions string
		props       map[string]interface{}
		label       string
		metadata    string
	}{
		{
			name:        "minimal sentinel-1",
			conventions: "default",
			props: map[string]interface{}{
				"eo:platform":             "sentinel-1a",
				"eo:instrument":           "c-sar",
				"datetime":                time.Date(2018, 11, 4, 0, 0, 0, 0, time.UTC),
				"odc:product_family":      "bck",
				"odc:processing_datetime": "2018-11-05T12:23:23",
			},
			label:    "s1ac_bck_2018-11-04",
			metadata: "s1ac_bck/2018/11/04/s1ac_bck_2018-11-04.odc-metadata.yaml",
		},
		{
			name:        "sentinel-2 derivative",
			conventions: "dea_s2_derivative",
			props: map[string]interface{}{
				"eo:platform":               "sentinel-2a",
				"datetime":                  time.Date(2018, 11, 4, 5, 23, 3, 0, time.UTC),
				"odc:product_family":        "eucalyptus",
				"odc:processing_datetime":   "2018-11-05T12:23:23",
				"odc:collection_number":     3,
				"dea:dataset_maturity":      "final",
				"odc:dataset_version":       "1.2.3",
				"odc:producer":              "esa.int",
				"odc:region_code":           "55HFA",
				"sentinel:sentinel_tile_id": "S2B_OPER_MSI_L1C_TL_EPAE_20201011T011446_A018789_T55HFA_N02.09",
			},
			label: "esa_s2_eucalyptus_3_55HFA_2018-11-04_final",
			metadata: "esa_s2_eucalyptus_3/1-2-3/55/HFA/2018/11/04/20201011T011446/" +
				"esa_s2_eucalyptus_3_55HFA_2018-11-04_final.odc-metadata.yaml",
		},
		{
			name:        "provisional dea",
			conventions: "dea",
			props: map[string]interface{}{
				"eo:platform":              "landsat-8",
				"eo:instrument":            "OLI_TIRS",
				"datetime":                 time.Date(2020, 5, 26, 0, 0, 0, 0, time.UTC),
				"odc:product_family":       "ufo-observations",
				"odc:processing_datetime":  "2018-11-05T12:23:23",
				"odc:dataset_version":      "1.0.0",
				"odc:producer":             "ga.gov.au",
				"odc:region_code":          "088080",
				"landsat:landsat_scene_id": "LC80880802020146LGN00",
				"odc:product_maturity":     "provisional",
			},
			label: "ga_ls8c_ufo_observations_provisional_1-0-0_088080_2020-05-26",
			metadata: "ga_ls8c_ufo_observations_provisional_1/088/080/2020/05/26/" +
				"ga_ls8c_ufo_observations_provisional_1-0-0_088080_2020-05-26.odc-metadata.yaml",
		},
		{
			name:        "interim dea",
			conventions: "dea",
			props: map[string]interface{}{
				"eo:platform":              "landsat-7",
				"odc:product_maturity":     "stable",
				"eo:instrument":            "ETM+",
				"datetime":                 time.Date(1998, 7, 30, 0, 0, 0, 0, time.UTC),
				"odc:product_family":       "frogs",
				"odc:processing_datetime":  "1999-11-20 00:00:53.152462Z",
				"dea:dataset_maturity":     "interim",
				"odc:producer":             "ga.gov.au",
				"landsat:landsat_scene_id": "LE70930821999324EDC00",
				"odc:dataset_version":      "1.2.3",
				"odc:region_code":          "093082",
			},
			label:    "ga_ls7e_frogs_1-2-3_093082_1998-07-30_interim",
			metadata: "ga_ls7e_frogs_1/093/082/1998/07/30_interim/ga_ls7e_frogs_1-2-3_093082_1998-07-30_interim.odc-metadata.yaml",
		},
		{
			name:        "collection 3 derivative",
			conventions: "dea_c3",
			props: map[string]interface{}{
				"eo:platform":             "landsat-7",
				"datetime":                time.Date(1998, 7, 30, 0, 0, 0, 0, time.UTC),
				"odc:product_family":      "wo",
				"odc:processing_datetime": "1998-07-30T12:23:23",
				"dea:dataset_maturity":    "interim",
				"odc:producer":            "ga.gov.au",
				"odc:region_code":         "090081",
				"odc:dataset_version":     "1.6.0",
				"odc:collection_number":   "3",
			},
			label:    "ga_ls_wo_3_090081_1998-07-30_interim",
			metadata: "ga_ls_wo_3/1-6-0/090/081/1998/07/30/ga_ls_wo_3_090081_1998-07-30_interim.odc-metadata.yaml",
		},
		{
			name:        "africa",
			conventions: "deafrica",
			props: map[string]interface{}{
				"odc:producer":            "digitalearthafrica.org",
				"datetime":                time.Date(1998, 7, 30, 0, 0, 0, 0, time.UTC),
				"odc:region_code":         "090081",
				"odc:product_family":      "wofs",
				"eo:platform":             "LANDSAT_8",
				"odc:processing_datetime": "1998-07-30T12:23:23",
				"odc:dataset_version":     "0.1.2",
			},
			label:    "wofs_ls_090081_1998-07-30",
			metadata: "wofs_ls/0-1-2/090/081/1998/07/30/wofs_ls_090081_1998-07-30.odc-metadata.yaml",
		},
		{
			name:        "mixed platforms",
			conventions: "default",
			props: map[string]interface{}{
				"eo:platform":        []string{"Sentinel_2a", "landsat_7"},
				"datetime":           time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
				"odc:product_family": "peanuts",
			},
			label:    "peanuts_2019-01-01",
			metadata: "peanuts/2019/01/01/peanuts_2019-01-01.odc-metadata.yaml",
		},
		{
			name:        "grouped platforms",
			conventions: "default",
			props: map[string]interface{}{
				"eo:platform":        []string{"Sentinel_2a", "sentinel_2b"},
				"datetime":           time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
				"odc:product_family": "peanuts",
			},
			label:    "s2_peanuts_2019-01-01",
			metadata: "s2_peanuts/2019/01/01/s2_peanuts_2019-01-01.odc-metadata.yaml",
		},
	}

	for _, c := range cases {
		n := newNamer(t, c.conventions, c.props)
		if got, err := n.DatasetLabel(); err != nil || got != c.label {
			t.Errorf("%s: label %q (%v), want %q", c.name, got, err, c.label)
		}
		if got := metadataOffset(t, n); got != c.metadata {
			t.Errorf("%s: metadata path\n  got  %s\n  want %s", c.name, got, c.metadata)
		}
	}
}

func TestEndToEndProductName(t *testing.T) {
	n := newNamer(t, "default", map[string]interface{}{
		"eo:platform":        "landsat-5",
		"eo:instrument":      "TM",
		"odc:product_family": "nbar",
	})
	if got := mustGet(t, n, ProductName); got != "ls5t_nbar" {
		t.Errorf("got %q, want ls5t_nbar", got)
	}
}

func TestOverrides(t *testing.T) {
	n := newNamer(t, "default", map[string]interface{}{
		"eo:platform":        "landsat-7",
		"odc:product_family": "nbar",
	})
	n.Set(InstrumentAbbreviated, "t")
	if got := mustGet(t, n, ProductName); got != "ls7t_nbar" {
		t.Errorf("got %q", got)
	}

	n.Set(PlatformAbbreviated, "ls")
	n.Set(InstrumentAbbreviated, "")
	if got := mustGet(t, n, ProductName); got != "ls_nbar" {
		t.Errorf("got %q", got)
	}

	n.Set(ProductName, "custom_nbar_albers")
	if got := mustGet(t, n, ProductName); got != "custom_nbar_albers" {
		t.Errorf("got %q", got)
	}
	n.Unset(ProductName)
	if got := mustGet(t, n, ProductName); got != "ls_nbar" {
		t.Errorf("got %q after unset", got)
	}
}

func TestNamesFollowProperties(t *testing.T) {
	n := newNamer(t, "default", map[string]interface{}{"odc:product_family": "nbar"})
	if got := mustGet(t, n, ProductName); got != "nbar" {
		t.Errorf("got %q", got)
	}
	n.Properties.SetPlatform("landsat-8")
	n.Properties.Set("landsat:landsat_product_id", "LC08_L1TP_091075_20161213_20170316_01_T2")
	if got := mustGet(t, n, ProductName); got != "ls8c_nbar" {
		t.Errorf("got %q after setting the platform", got)
	}
}

func TestMissingRequiredFieldsListsAll(t *testing.T) {
	n := newNamer(t, "dea", nil)
	_, err := n.DatasetLabel()
	var missing *MissingRequiredFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing fields, got %v", err)
	}
	for _, key := range append(deaRequired, "datetime") {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
	if !strings.Contains(err.Error(), "Need more properties to fulfill naming conventions.") {
		t.Errorf("unexpected message: %v", err)
	}

	// Default conventions only need a date and a family.
	n = newNamer(t, "default", map[string]interface{}{"datetime": "2019-07-04T13:07:05"})
	_, err = n.MetadataFile()
	if !errors.As(err, &missing) || len(missing.Missing) != 1 || missing.Missing[0] != "odc:product_family" {
		t.Errorf("expected only odc:product_family to be missing, got %v", err)
	}
}

func TestMissingCollectionNumber(t *testing.T) {
	n := newNamer(t, "dea_c3", map[string]interface{}{
		"eo:platform":             "landsat-7",
		"datetime":                "1998-07-30",
		"odc:product_family":      "wo",
		"odc:processing_datetime": "1998-07-30T12:23:23",
		"dea:dataset_maturity":    "interim",
		"odc:producer":            "ga.gov.au",
		"odc:region_code":         "090081",
	})
	err := n.Check()
	var missing *MissingRequiredFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing fields, got %v", err)
	}
	if strings.Join(missing.Missing, ",") != "odc:collection_number,odc:dataset_version" {
		t.Errorf("unexpected missing fields %v", missing.Missing)
	}
}

func TestUnknownAbbreviations(t *testing.T) {
	n := newNamer(t, "dea", map[string]interface{}{"odc:producer": "example.com"})
	if _, err := producerAbbreviation(n); !errors.Is(err, ErrUnknownAbbreviation) {
		t.Errorf("expected an unknown producer error, got %v", err)
	}

	n = newNamer(t, "dea", map[string]interface{}{"eo:platform": "spot-6"})
	if _, err := platformAbbreviation(n); !errors.Is(err, ErrUnknownAbbreviation) {
		t.Errorf("expected an unknown platform error, got %v", err)
	}

	n = newNamer(t, "default", map[string]interface{}{"eo:platform": "spot-6"})
	if got := mustGet(t, n, PlatformAbbreviated); got != "spot6" {
		t.Errorf("got %q", got)
	}
	if _, err := n.Get(InstrumentAbbreviated); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("expected an unsupported instrument error, got %v", err)
	}

	n = newNamer(t, "dea_c3", map[string]interface{}{"eo:platform": "landsat-8,sentinel-2a"})
	if _, err := platformAbbreviation(n); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("expected an unknown constellation error, got %v", err)
	}
	n.Properties.Set("constellation", "ls_s2")
	if got, err := platformAbbreviation(n); err != nil || got != "ls_s2" {
		t.Errorf("expected the constellation, got %q (%v)", got, err)
	}
}

func TestExtraAbbreviations(t *testing.T) {
	c, err := Lookup("dea")
	if err != nil {
		t.Fatal(err)
	}
	c.AddAbbreviations(map[string]string{"spot-6": "spt6"}, map[string]string{"example.com": "ex"})
	n := New(c, newProps(t, map[string]interface{}{"eo:platform": "spot-6", "odc:producer": "example.com"}))
	if got := mustGet(t, n, PlatformAbbreviated); got != "spt6" {
		t.Errorf("got %q", got)
	}
	if got := mustGet(t, n, ProducerAbbreviated); got != "ex" {
		t.Errorf("got %q", got)
	}

	// Other lookups are unaffected.
	fresh, _ := Lookup("dea")
	if _, ok := fresh.PlatformAbbreviations["spot-6"]; ok {
		t.Error("abbreviations leaked between conventions")
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Known() {
		c, err := Lookup(name)
		if err != nil || c.Name != name {
			t.Errorf("Lookup(%q) = %v, %v", name, c, err)
		}
	}
	_, err := Lookup("nasa")
	if err == nil || !strings.Contains(err.Error(), "deafrica") {
		t.Errorf("expected an error listing the known conventions, got %v", err)
	}
}

func TestSubfolderise(t *testing.T) {
	for code, want := range map[string]string{
		"089090":  "089/090",
		"12345":   "12/345",
		"123456":  "123/456",
		"1234567": "123/4567",
		"12":      "12",
	} {
		if got := strings.Join(subfolderise(code), "/"); got != want {
			t.Errorf("subfolderise(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestStripMajorVersion(t *testing.T) {
	for version, want := range map[string]string{"1.2.3": "2.3", "01.02.03": "02.03", "30.40": "40", "40": ""} {
		if got := stripMajorVersion(version); got != want {
			t.Errorf("stripMajorVersion(%q) = %q, want %q", version, got, want)
		}
	}
}

func TestCustomResolver(t *testing.T) {
	n := newNamer(t, "default", map[string]interface{}{
		"datetime":           "2019-07-04T13:07:05",
		"odc:product_family": "nbar",
	})
	n.SetResolver(TimeFolder, func(n *Namer) (string, error) { return "2019", nil })
	if got := mustGet(t, n, DatasetFolder); got != "nbar/2019" {
		t.Errorf("got %q", got)
	}
}
