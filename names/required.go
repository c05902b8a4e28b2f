package names

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownAbbreviation = errors.New("unknown abbreviation")
	ErrNotImplemented      = errors.New("not supported by these naming conventions")
)

// Shown to users alongside missing properties.
var requiredHints = map[string]string{
	"odc:product_family":      `eg. "wofs" or "level1"`,
	"odc:processing_datetime": "Time of processing, perhaps the current time",
	"odc:producer":            "Creator of data, eg 'usgs.gov' or 'ga.gov.au'",
	"odc:dataset_version":     "eg. 1.0.0",
	"datetime":                "Acquisition time of the data",
}

// MissingRequiredFieldsError lists every required property that is not
// set, so that users can add them all at once.
type MissingRequiredFieldsError struct {
	Missing []string
}

func (e *MissingRequiredFieldsError) Error() string {
	var b strings.Builder
	b.WriteString("Need more properties to fulfill naming conventions.")
	for _, key := range e.Missing {
		fmt.Fprintf(&b, "\n- '%s'", key)
		if hint := requiredHints[key]; hint != "" {
			fmt.Fprintf(&b, " (%s)", hint)
		}
	}
	return b.String()
}

// isSet is false for absent and empty values: nil, "", 0, false, the zero
// time and empty lists.
func isSet(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case time.Time:
		return !v.IsZero()
	case []interface{}:
		return len(v) > 0
	case []string:
		return len(v) > 0
	}
	return true
}

// Missing returns the required properties that are not set, sorted.
func (n *Namer) Missing() []string {
	var missing []string
	for key := range n.required {
		if v, _ := n.Properties.Get(key); !isSet(v) {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Check fails with a *MissingRequiredFieldsError if any required property
// is not set.
func (n *Namer) Check() error {
	if missing := n.Missing(); len(missing) > 0 {
		return &MissingRequiredFieldsError{Missing: missing}
	}
	return nil
}

// property reads a property for naming. Reading a required property that
// is not set fails with every missing property listed.
func (n *Namer) property(key string) (string, error) {
	v, _ := n.Properties.Get(key)
	if !isSet(v) && n.required[key] {
		return "", n.Check()
	}
	return n.Properties.String(key), nil
}

func (n *Namer) timeProperty(key string) (time.Time, error) {
	t, ok := n.Properties.Time(key)
	if !ok && n.required[key] {
		if err := n.Check(); err != nil {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("property %q is not a valid time", key)
	}
	return t, nil
}
