package images

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nci/eodatasets/model"
)

// Location is where a measurement's pixels live.
type Location struct {
	Path  string
	Layer string
}

type DuplicateMeasurementError struct {
	Name          string
	Existing, New Location
}

func (e *DuplicateMeasurementError) Error() string {
	return fmt.Sprintf("duplicate addition of band called %q. Original at %q and now %q", e.Name, e.Existing.Path, e.New.Path)
}

// MixedCRSError is returned when the grids of one dataset are not all in
// the same CRS.
type MixedCRSError struct {
	First, Second string
}

func (e *MixedCRSError) Error() string {
	return fmt.Sprintf("measurements have different CRSes in the same dataset:\n\t%s\n\t%s", e.First, e.Second)
}

type gridGroup struct {
	grid      GridSpec
	names     []string
	locations map[string]Location
	order     int
}

func (g *gridGroup) pixels() int {
	return g.grid.Rows() * g.grid.Cols()
}

// MeasurementRecord collects the measurements of one dataset, grouped by
// the grid they are on, along with a valid-data mask for each grid.
type MeasurementRecord struct {
	groups []*gridGroup
	byGrid map[GridKey]*gridGroup

	masks     map[GridKey]*Mask
	maskGrids map[GridKey]GridSpec
	maskOrder []GridKey
}

func NewMeasurementRecord() *MeasurementRecord {
	return &MeasurementRecord{
		byGrid:    make(map[GridKey]*gridGroup),
		masks:     make(map[GridKey]*Mask),
		maskGrids: make(map[GridKey]GridSpec),
	}
}

// RecordImage adds a measurement. If expandValidData is set and pixels are
// given, every pixel that is not nodata is added to the grid's valid-data
// mask. A nil nodata means 0.
func (m *MeasurementRecord) RecordImage(name string, grid GridSpec, loc Location, pixels []float64, nodata *float64, expandValidData bool) error {
	for _, g := range m.groups {
		if existing, ok := g.locations[name]; ok {
			return &DuplicateMeasurementError{Name: name, Existing: existing, New: loc}
		}
	}

	if expandValidData && pixels != nil {
		if err := m.expandValidData(grid, pixels, nodata); err != nil {
			return fmt.Errorf("measurement %q: %v", name, err)
		}
	}

	key := grid.Key()
	g, ok := m.byGrid[key]
	if !ok {
		g = &gridGroup{grid: grid, locations: make(map[string]Location), order: len(m.groups)}
		m.byGrid[key] = g
		m.groups = append(m.groups, g)
	}
	g.names = append(g.names, name)
	g.locations[name] = loc
	return nil
}

// RecordRaster adds a measurement read through a RasterReader.
func (m *MeasurementRecord) RecordRaster(name string, loc Location, r *Raster, expandValidData bool) error {
	return m.RecordImage(name, r.Grid, loc, r.Pixels, r.Nodata, expandValidData)
}

func (m *MeasurementRecord) expandValidData(grid GridSpec, pixels []float64, nodata *float64) error {
	key := grid.Key()
	mask, ok := m.masks[key]
	if !ok {
		mask = NewMask(grid.Rows(), grid.Cols())
	}
	if err := mask.OrValid(pixels, nodata); err != nil {
		return err
	}
	if !ok {
		m.masks[key] = mask
		m.maskGrids[key] = grid
		m.maskOrder = append(m.maskOrder, key)
	}
	return nil
}

func (m *MeasurementRecord) Len() int {
	n := 0
	for _, g := range m.groups {
		n += len(g.names)
	}
	return n
}

// Names returns measurement names in the order they were recorded,
// grid by grid.
func (m *MeasurementRecord) Names() []string {
	var names []string
	for _, g := range m.groups {
		names = append(names, g.names...)
	}
	return names
}

// Location returns where a recorded measurement lives.
func (m *MeasurementRecord) Location(name string) (Location, bool) {
	for _, g := range m.groups {
		if loc, ok := g.locations[name]; ok {
			return loc, true
		}
	}
	return Location{}, false
}

// Grid returns the grid a recorded measurement is on.
func (m *MeasurementRecord) Grid(name string) (GridSpec, bool) {
	for _, g := range m.groups {
		if _, ok := g.locations[name]; ok {
			return g.grid, true
		}
	}
	return GridSpec{}, false
}

// Relocate rewrites measurement paths, such as when a package is moved
// from its work directory into place.
func (m *MeasurementRecord) Relocate(rewrite func(Location) (Location, error)) error {
	for _, g := range m.groups {
		for _, name := range g.names {
			loc, err := rewrite(g.locations[name])
			if err != nil {
				return fmt.Errorf("measurement %q: %v", name, err)
			}
			g.locations[name] = loc
		}
	}
	return nil
}

// Grids returns the distinct grids in the order they were first seen.
func (m *MeasurementRecord) Grids() []GridSpec {
	grids := make([]GridSpec, len(m.groups))
	for i, g := range m.groups {
		grids[i] = g.grid
	}
	return grids
}

// byFrequency orders the groups from most to fewest measurements. Ties go
// to the grid with more pixels, then to the grid recorded first.
func (m *MeasurementRecord) byFrequency() []*gridGroup {
	groups := make([]*gridGroup, len(m.groups))
	copy(groups, m.groups)
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if len(a.names) != len(b.names) {
			return len(a.names) > len(b.names)
		}
		if a.pixels() != b.pixels() {
			return a.pixels() > b.pixels()
		}
		return a.order < b.order
	})
	return groups
}

var ErrNoMeasurements = errors.New("no measurements recorded")

// AsGeoDocs returns the shared CRS, the named grids and the measurement
// entries of a dataset document.
func (m *MeasurementRecord) AsGeoDocs() (string, map[string]model.GridDoc, map[string]model.MeasurementDoc, error) {
	if len(m.groups) == 0 {
		return "", nil, nil, ErrNoMeasurements
	}
	named, err := m.namedGrids()
	if err != nil {
		return "", nil, nil, err
	}

	crs := named[0].group.grid.CRS
	grids := make(map[string]model.GridDoc, len(named))
	measurements := make(map[string]model.MeasurementDoc, m.Len())
	for _, n := range named {
		g := n.group
		if g.grid.CRS != crs {
			return "", nil, nil, &MixedCRSError{First: crs, Second: g.grid.CRS}
		}
		grids[n.name] = g.grid.Doc()

		for _, name := range g.names {
			loc := g.locations[name]
			doc := model.MeasurementDoc{Path: loc.Path, Layer: loc.Layer}
			if n.name != model.DefaultGrid {
				doc.Grid = n.name
			}
			measurements[strings.ReplaceAll(name, ":", "_")] = doc
		}
	}
	return crs, grids, measurements, nil
}
