// Package serialise writes EO3 dataset documents as YAML or JSON, with the
// keys in the conventional EO3 order, and reads them back.
package serialise

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nci/eodatasets/model"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v2"
)

type gridYAML struct {
	Shape     []int     `yaml:"shape,flow" json:"shape"`
	Transform []float64 `yaml:"transform,flow" json:"transform"`
}

type geometryYAML struct {
	Type        string      `yaml:"type" json:"type"`
	Coordinates interface{} `yaml:"coordinates,flow" json:"coordinates"`
}

// FormatDatetime writes UTC times as "2006-01-02 15:04:05Z", with
// microseconds only when there are any. Times ahead of UTC keep their
// offset.
func FormatDatetime(t time.Time) string {
	layout := "2006-01-02 15:04:05"
	if t.Nanosecond()/1000 != 0 {
		layout += ".000000"
	}
	if _, offset := t.Zone(); offset > 0 {
		return t.Format(layout + "-07:00")
	}
	return t.UTC().Format(layout) + "Z"
}

// propertyOrder sorts plain keys before namespaced ("eo:gsd") keys, each
// alphabetically.
func propertyOrder(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := strings.Contains(keys[i], ":"), strings.Contains(keys[j], ":")
		if pi != pj {
			return pj
		}
		return keys[i] < keys[j]
	})
}

func propertyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return FormatDatetime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return FormatDatetime(*t)
	}
	return v
}

func geometryDoc(doc *model.DatasetDoc) (*geometryYAML, error) {
	data, err := geojson.NewGeometry(doc.Geometry).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("geometry of %s: %v", doc.ID, err)
	}
	g := &geometryYAML{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Document lays out a dataset as an ordered map, ready for YAML or JSON.
// Empty sections are left out.
func Document(doc *model.DatasetDoc) (yaml.MapSlice, error) {
	out := yaml.MapSlice{
		{Key: "$schema", Value: model.SchemaURL},
		{Key: "id", Value: doc.ID.String()},
	}
	add := func(key string, value interface{}) {
		out = append(out, yaml.MapItem{Key: key, Value: value})
	}

	if doc.Label != "" {
		add("label", doc.Label)
	}
	if doc.Product.Name != "" || doc.Product.Href != "" {
		product := yaml.MapSlice{}
		if doc.Product.Name != "" {
			product = append(product, yaml.MapItem{Key: "name", Value: doc.Product.Name})
		}
		if doc.Product.Href != "" {
			product = append(product, yaml.MapItem{Key: "href", Value: doc.Product.Href})
		}
		add("product", product)
	}
	switch len(doc.Locations) {
	case 0:
	case 1:
		add("location", doc.Locations[0])
	default:
		add("locations", doc.Locations)
	}
	if doc.CRS != "" {
		add("crs", doc.CRS)
	}
	if doc.Geometry != nil {
		g, err := geometryDoc(doc)
		if err != nil {
			return nil, err
		}
		add("geometry", g)
	}

	if len(doc.Grids) > 0 {
		grids := yaml.MapSlice{}
		for _, name := range gridOrder(doc) {
			g := doc.Grids[name]
			grids = append(grids, yaml.MapItem{Key: name, Value: gridYAML{
				Shape:     []int{g.Shape[0], g.Shape[1]},
				Transform: g.Transform.Coefficients(),
			}})
		}
		add("grids", grids)
	}

	props := yaml.MapSlice{}
	if doc.Properties != nil {
		keys := doc.Properties.Keys()
		propertyOrder(keys)
		for _, k := range keys {
			v, _ := doc.Properties.Get(k)
			props = append(props, yaml.MapItem{Key: k, Value: propertyValue(v)})
		}
	}
	add("properties", props)

	if len(doc.Measurements) > 0 {
		measurements := yaml.MapSlice{}
		for _, name := range doc.MeasurementNames() {
			measurements = append(measurements, yaml.MapItem{Key: name, Value: measurementDoc(doc.Measurements[name])})
		}
		add("measurements", measurements)
	}

	if len(doc.Accessories) > 0 {
		accessories := yaml.MapSlice{}
		for _, name := range doc.AccessoryNames() {
			a := doc.Accessories[name]
			item := yaml.MapSlice{{Key: "path", Value: a.Path}}
			if a.Type != "" {
				item = append(item, yaml.MapItem{Key: "type", Value: a.Type})
			}
			if a.Name != "" {
				item = append(item, yaml.MapItem{Key: "name", Value: a.Name})
			}
			accessories = append(accessories, yaml.MapItem{Key: name, Value: item})
		}
		add("accessories", accessories)
	}

	if len(doc.Lineage) > 0 {
		lineage := yaml.MapSlice{}
		for _, classifier := range doc.LineageClassifiers() {
			ids := make([]string, len(doc.Lineage[classifier]))
			for i, id := range doc.Lineage[classifier] {
				ids[i] = id.String()
			}
			lineage = append(lineage, yaml.MapItem{Key: classifier, Value: ids})
		}
		add("lineage", lineage)
	}
	return out, nil
}

// gridOrder puts the default grid first.
func gridOrder(doc *model.DatasetDoc) []string {
	names := doc.GridNames()
	for i, name := range names {
		if name == model.DefaultGrid {
			copy(names[1:i+1], names[:i])
			names[0] = name
			break
		}
	}
	return names
}

func measurementDoc(m model.MeasurementDoc) yaml.MapSlice {
	item := yaml.MapSlice{{Key: "path", Value: m.Path}}
	if m.Band != 0 {
		item = append(item, yaml.MapItem{Key: "band", Value: m.Band})
	}
	if m.Layer != "" {
		item = append(item, yaml.MapItem{Key: "layer", Value: m.Layer})
	}
	if m.Grid != "" && m.Grid != model.DefaultGrid {
		item = append(item, yaml.MapItem{Key: "grid", Value: m.Grid})
	}
	return item
}

// ToYAML writes a dataset as a single YAML document, with explicit start
// and end markers.
func ToYAML(w io.Writer, doc *model.DatasetDoc) error {
	d, err := Document(doc)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "...\n")
	return err
}

// ToJSON writes a dataset as indented JSON in the same key order as
// ToYAML.
func ToJSON(w io.Writer, doc *model.DatasetDoc) error {
	d, err := Document(doc)
	if err != nil {
		return err
	}
	var compact bytes.Buffer
	if err := writeOrderedJSON(&compact, d); err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

// MarshalJSON returns the compact JSON form of a dataset.
func MarshalJSON(doc *model.DatasetDoc) ([]byte, error) {
	d, err := Document(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeOrderedJSON(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeOrderedJSON is json.Marshal, except that a yaml.MapSlice is written
// as an object in its own key order.
func writeOrderedJSON(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case yaml.MapSlice:
		buf.WriteByte('{')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(fmt.Sprint(item.Key))
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeOrderedJSON(buf, item.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeOrderedJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// ToPath writes a dataset to a .yaml, .yml or .json file.
func ToPath(path string, doc *model.DatasetDoc) error {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = ToYAML(&buf, doc)
	case ".json":
		err = ToJSON(&buf, doc)
	default:
		return fmt.Errorf("unexpected file type %q for %s, expected yaml or json", filepath.Ext(path), path)
	}
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, buf.Bytes(), 0644)
}
