// Package model defines the EO3 dataset document.
package model

import (
	"sort"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/properties"
	"github.com/paulmach/orb"
)

const SchemaURL = "https://schemas.opendatacube.org/dataset"

// DefaultGrid is the name of the grid most measurements of a dataset
// share. Measurements on it carry no grid reference.
const DefaultGrid = "default"

type ProductDoc struct {
	Name string
	Href string
}

type GridDoc struct {
	Shape     [2]int // rows, cols
	Transform Affine
}

type MeasurementDoc struct {
	Path  string
	Band  int
	Layer string
	Grid  string
}

type AccessoryDoc struct {
	Path string
	Type string
	Name string
}

// DatasetDoc is an EO3 dataset document.
type DatasetDoc struct {
	ID         uuid.UUID
	Label      string
	Product    ProductDoc
	Locations  []string
	CRS        string
	Geometry   orb.Geometry
	Grids      map[string]GridDoc
	Properties *properties.Store

	Measurements map[string]MeasurementDoc
	Accessories  map[string]AccessoryDoc
	// Lineage maps a classifier such as "level1" to source dataset ids.
	Lineage map[string][]uuid.UUID
}

func NewDatasetDoc() *DatasetDoc {
	return &DatasetDoc{
		Properties:   properties.New(),
		Grids:        make(map[string]GridDoc),
		Measurements: make(map[string]MeasurementDoc),
		Accessories:  make(map[string]AccessoryDoc),
		Lineage:      make(map[string][]uuid.UUID),
	}
}

func (d *DatasetDoc) GridNames() []string {
	names := make([]string, 0, len(d.Grids))
	for k := range d.Grids {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (d *DatasetDoc) MeasurementNames() []string {
	names := make([]string, 0, len(d.Measurements))
	for k := range d.Measurements {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (d *DatasetDoc) AccessoryNames() []string {
	names := make([]string, 0, len(d.Accessories))
	for k := range d.Accessories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (d *DatasetDoc) LineageClassifiers() []string {
	names := make([]string, 0, len(d.Lineage))
	for k := range d.Lineage {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
