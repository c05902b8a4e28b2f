package serialise

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/properties"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v2"
)

// clean turns the map[interface{}]interface{} values that yaml.v2 decodes
// into map[string]interface{}, recursively.
func clean(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = clean(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = clean(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = clean(val)
		}
		return out
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func floats(v interface{}) ([]float64, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list of numbers, got %T", v)
	}
	out := make([]float64, len(list))
	for i, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %v", item)
		}
		out[i] = f
	}
	return out, nil
}

func section(doc map[string]interface{}, key string) (map[string]interface{}, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a mapping, got %T", key, v)
	}
	return m, nil
}

func str(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// FromBytes reads a YAML or JSON dataset document.
func FromBytes(data []byte) (*model.DatasetDoc, error) {
	var raw map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("empty document")
	}
	return FromDoc(clean(raw).(map[string]interface{}))
}

// FromPath reads a dataset document from a .yaml, .yml or .json file.
func FromPath(path string) (*model.DatasetDoc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unexpected file type %q for %s, expected yaml or json", filepath.Ext(path), path)
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return doc, nil
}

// FromDoc builds a dataset from a decoded document. Properties are loaded
// as they are, without normalisation.
func FromDoc(raw map[string]interface{}) (*model.DatasetDoc, error) {
	doc := model.NewDatasetDoc()

	id, err := uuid.Parse(str(raw, "id"))
	if err != nil {
		return nil, fmt.Errorf("dataset id %q: %v", str(raw, "id"), err)
	}
	doc.ID = id
	doc.Label = str(raw, "label")
	doc.CRS = str(raw, "crs")

	product, err := section(raw, "product")
	if err != nil {
		return nil, err
	}
	doc.Product = model.ProductDoc{Name: str(product, "name"), Href: str(product, "href")}

	if location := str(raw, "location"); location != "" {
		doc.Locations = []string{location}
	}
	if locations, ok := raw["locations"].([]interface{}); ok {
		for _, l := range locations {
			doc.Locations = append(doc.Locations, fmt.Sprint(l))
		}
	}

	if g, ok := raw["geometry"]; ok && g != nil {
		data, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("geometry: %v", err)
		}
		geometry, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("geometry: %v", err)
		}
		doc.Geometry = geometry.Geometry()
	}

	grids, err := section(raw, "grids")
	if err != nil {
		return nil, err
	}
	for name := range grids {
		grid, err := readGrid(grids, name)
		if err != nil {
			return nil, err
		}
		doc.Grids[name] = grid
	}

	props, err := section(raw, "properties")
	if err != nil {
		return nil, err
	}
	doc.Properties = properties.FromMap(props)

	measurements, err := section(raw, "measurements")
	if err != nil {
		return nil, err
	}
	for name := range measurements {
		m, err := section(measurements, name)
		if err != nil {
			return nil, fmt.Errorf("measurements: %v", err)
		}
		md := model.MeasurementDoc{Path: str(m, "path"), Layer: str(m, "layer"), Grid: str(m, "grid")}
		if band, ok := toFloat(m["band"]); ok {
			md.Band = int(band)
		}
		doc.Measurements[name] = md
	}

	accessories, err := section(raw, "accessories")
	if err != nil {
		return nil, err
	}
	for name := range accessories {
		a, err := section(accessories, name)
		if err != nil {
			return nil, fmt.Errorf("accessories: %v", err)
		}
		doc.Accessories[name] = model.AccessoryDoc{Path: str(a, "path"), Type: str(a, "type"), Name: str(a, "name")}
	}

	lineage, err := section(raw, "lineage")
	if err != nil {
		return nil, err
	}
	for classifier, v := range lineage {
		list, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("lineage %q: expected a list of ids, got %T", classifier, v)
		}
		for _, item := range list {
			id, err := uuid.Parse(fmt.Sprint(item))
			if err != nil {
				return nil, fmt.Errorf("lineage %q: %v", classifier, err)
			}
			doc.Lineage[classifier] = append(doc.Lineage[classifier], id)
		}
	}
	return doc, nil
}

func readGrid(grids map[string]interface{}, name string) (model.GridDoc, error) {
	g, err := section(grids, name)
	if err != nil {
		return model.GridDoc{}, fmt.Errorf("grids: %v", err)
	}
	shape, err := floats(g["shape"])
	if err != nil || len(shape) != 2 {
		return model.GridDoc{}, fmt.Errorf("grid %q: invalid shape %v", name, g["shape"])
	}
	coefficients, err := floats(g["transform"])
	if err != nil {
		return model.GridDoc{}, fmt.Errorf("grid %q transform: %v", name, err)
	}
	transform, err := model.FromCoefficients(coefficients)
	if err != nil {
		return model.GridDoc{}, fmt.Errorf("grid %q: %v", name, err)
	}
	return model.GridDoc{Shape: [2]int{int(shape[0]), int(shape[1])}, Transform: transform}, nil
}
