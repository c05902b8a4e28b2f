package index

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/model"
	"github.com/paulmach/orb"
	"golang.org/x/net/context"
)

func TestTableNames(t *testing.T) {
	for _, table := range []string{"eo3_datasets", "_x1"} {
		if _, err := NewPublisher(nil, table); err != nil {
			t.Errorf("table %q: %v", table, err)
		}
	}
	for _, table := range []string{"", "Datasets", "eo3; drop table x", "1abc"} {
		if _, err := NewPublisher(nil, table); err == nil {
			t.Errorf("expected an error for table %q", table)
		}
	}
}

func testPublisher(t *testing.T) *Publisher {
	dsn := os.Getenv("EO3_TEST_DSN")
	if dsn == "" {
		t.Skip("EO3_TEST_DSN is not set. Skipping tests that require a Postgres connection")
	}
	table := fmt.Sprintf("eo3_test_%d", time.Now().UnixNano())
	p, err := Open(dsn, table)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.DB.Ping(); err != nil {
		p.Close()
		t.Skipf("Postgres is unavailable: %v", err)
	}
	t.Cleanup(func() {
		p.DB.Exec("drop table if exists " + p.table)
		p.Close()
	})
	if err := p.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPublishLookup(t *testing.T) {
	p := testPublisher(t)
	ctx := context.Background()

	doc := model.NewDatasetDoc()
	doc.ID = uuid.New()
	doc.Label = "s1ac_bck_2018-11-04"
	doc.Product.Name = "s1ac_bck"
	doc.CRS = "epsg:32755"
	doc.Geometry = orb.Bound{Min: orb.Point{500000, 5999960}, Max: orb.Point{500040, 6000000}}.ToPolygon()
	doc.Grids[model.DefaultGrid] = model.GridDoc{Shape: [2]int{4, 4}, Transform: model.Affine{A: 10, C: 500000, E: -10, F: 6000000}}
	doc.Measurements["vv"] = model.MeasurementDoc{Path: "s1ac_bck_2018-11-04_vv.tif"}
	if err := doc.Properties.Set("datetime", time.Date(2018, 11, 4, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	uri := "file:///data/s1ac_bck/2018/11/04/s1ac_bck_2018-11-04.odc-metadata.yaml"
	if err := p.Publish(ctx, doc, uri); err != nil {
		t.Fatal(err)
	}
	// Publishing again replaces the entry.
	doc.Label = "s1ac_bck_2018-11-04_v2"
	if err := p.Publish(ctx, doc, uri); err != nil {
		t.Fatal(err)
	}

	stored, err := p.Lookup(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(stored), doc.ID.String()) || !strings.Contains(string(stored), "s1ac_bck_2018-11-04_v2") {
		t.Errorf("unexpected document %s", stored)
	}

	records, err := p.Product(ctx, "s1ac_bck", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != doc.ID || records[0].URI != uri || len(records[0].Measurements) != 1 {
		t.Errorf("records %+v", records)
	}

	if _, err := p.Lookup(ctx, uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
