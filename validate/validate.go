// Package validate checks the structure of an EO3 dataset document.
package validate

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Message is one finding about a document. Code is a short stable
// identifier such as "incomplete_crs".
type Message struct {
	Level  Level
	Code   string
	Reason string
	Hint   string
}

func (m Message) String() string {
	if m.Hint != "" {
		return fmt.Sprintf("%s: %s (Hint: %s)", m.Code, m.Reason, m.Hint)
	}
	return fmt.Sprintf("%s: %s", m.Code, m.Reason)
}

type Options struct {
	// AllowAbsolutePaths silences warnings about measurements outside
	// the dataset location.
	AllowAbsolutePaths bool
	// NoGeometry is set for datasets that are not expected to have any
	// geo information, such as telemetry.
	NoGeometry bool
}

type checker struct {
	msgs []Message
}

func (c *checker) info(code, format string, args ...interface{}) {
	c.msgs = append(c.msgs, Message{Level: Info, Code: code, Reason: fmt.Sprintf(format, args...)})
}

func (c *checker) warning(code, format string, args ...interface{}) {
	c.msgs = append(c.msgs, Message{Level: Warning, Code: code, Reason: fmt.Sprintf(format, args...)})
}

func (c *checker) error(code, format string, args ...interface{}) {
	c.msgs = append(c.msgs, Message{Level: Error, Code: code, Reason: fmt.Sprintf(format, args...)})
}

func (c *checker) hint(h string) {
	c.msgs[len(c.msgs)-1].Hint = h
}

// Dataset returns every problem found in doc, in a stable order.
func Dataset(doc *model.DatasetDoc, opts Options) []Message {
	c := &checker{}

	if doc.Product.Name == "" {
		c.error("missing_product", "Dataset has no product name")
	} else if doc.Product.Href == "" {
		c.info("product_href", "A url (href) is recommended for products")
	}

	c.geo(doc, !opts.NoGeometry)

	if len(doc.Measurements) == 0 {
		c.warning("no_measurements", "Dataset has no measurements")
	}
	for _, name := range doc.MeasurementNames() {
		m := doc.Measurements[name]
		grid := m.Grid
		if grid == "" {
			grid = model.DefaultGrid
		}
		if grid != model.DefaultGrid || len(doc.Grids) > 0 {
			if _, ok := doc.Grids[grid]; !ok {
				c.error("invalid_grid_ref", "Measurement %q refers to unknown grid %q", name, grid)
			}
		}
		if !opts.AllowAbsolutePaths && isAbsolute(m.Path) {
			c.warning("absolute_path", "measurement %q has an absolute path: %q", name, m.Path)
		}
	}

	c.properties(doc.Properties)
	return c.msgs
}

func isAbsolute(path string) bool {
	return filepath.IsAbs(path) || strings.Contains(path, "://")
}

func (c *checker) geo(doc *model.DatasetDoc, expectGeometry bool) {
	hasSomeGeo := doc.Geometry != nil || len(doc.Grids) > 0 || doc.CRS != ""
	if !hasSomeGeo {
		if expectGeometry {
			c.info("non_geo", "No geo information in dataset")
		}
		return
	}

	if doc.Geometry == nil {
		if expectGeometry {
			c.info("incomplete_geo", "Dataset has some geo fields but no geometry")
		}
	} else if reason := invalidGeometry(doc.Geometry); reason != "" {
		c.error("bad_geometry", "Geometry is not a valid shape: %s", reason)
	}

	if len(doc.Grids) == 0 {
		c.error("incomplete_grids", "Dataset has some geo fields but no grids")
	}
	for _, name := range doc.GridNames() {
		g := doc.Grids[name]
		if g.Shape[0] <= 0 || g.Shape[1] <= 0 {
			c.error("incomplete_grids", "Grid %q has an empty shape %v", name, g.Shape)
		}
	}

	if doc.CRS == "" {
		c.error("incomplete_crs", "Dataset has some geo fields but no crs")
		return
	}
	if strings.HasPrefix(strings.ToLower(doc.CRS), "epsg:") {
		if _, err := strconv.Atoi(doc.CRS[len("epsg:"):]); err != nil {
			c.error("invalid_crs_epsg", "Invalid epsg code %q", doc.CRS)
		}
		if strings.ToLower(doc.CRS) != doc.CRS {
			c.warning("mixed_crs_case", "Recommend lowercase 'epsg:' prefix")
		}
	}
}

// invalidGeometry explains why a geometry is unusable, or returns "".
func invalidGeometry(g orb.Geometry) string {
	var polygons []orb.Polygon
	switch t := g.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{t}
	case orb.MultiPolygon:
		polygons = t
	default:
		return fmt.Sprintf("expected a polygon, got a %s", g.GeoJSONType())
	}
	if len(polygons) == 0 {
		return "empty multipolygon"
	}
	for _, p := range polygons {
		if len(p) == 0 {
			return "polygon has no rings"
		}
		for _, r := range p {
			if len(r) < 4 {
				return fmt.Sprintf("ring has %d points, at least 4 are needed", len(r))
			}
			if !r.Closed() {
				return "ring is not closed"
			}
			for _, pt := range r {
				if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
					return fmt.Sprintf("ring has a non-finite point %v", pt)
				}
			}
		}
		if planar.Area(p) == 0 {
			return "polygon has no area"
		}
	}
	return ""
}

func (c *checker) properties(props *properties.Store) {
	if props == nil || props.Len() == 0 {
		c.error("missing_datetime", "Dataset has no properties, and so no datetime")
		return
	}

	known := properties.NewWithFields(properties.KnownFields(), nil)
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		if !known.IsKnown(key) {
			c.warning("unknown_property", "Unknown stac property %q", key)
			continue
		}
		if _, err := known.Normalise(key, value); err != nil {
			c.error("invalid_property", "%q: %v", key, err)
		}
	}

	if _, ok := props.Datetime(); !ok {
		if _, _, ok := props.DatetimeRange(); !ok {
			c.error("missing_datetime", "Dataset has no 'datetime' property")
			c.hint("set 'datetime', or both 'dtr:start_datetime' and 'dtr:end_datetime'")
		}
	}

	if producer := props.String("odc:producer"); producer != "" && !strings.Contains(producer, ".") {
		c.warning("producer_domain", "Property 'odc:producer' should be the organisation's domain name. Eg. 'ga.gov.au'")
	}

	if props.String("odc:file_format") == "" {
		c.info("global_file_format", "Property 'odc:file_format' is empty")
		c.hint("Usually 'GeoTIFF'")
	}
}

// Errors returns the error level messages.
func Errors(msgs []Message) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Level == Error {
			out = append(out, m)
		}
	}
	return out
}
