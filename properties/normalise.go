package properties

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Policy decides what a Store does with a rejected value.
type Policy int

const (
	// Strict rejections are returned to the caller as an *InvalidPropertyError.
	Strict Policy = iota
	// Warn rejections are reported through the store's Warner and the
	// original value is stored unchanged.
	Warn
)

// Outcome is the result of normalising one property value: either the
// accepted (possibly converted) value, or a rejection reason.
type Outcome struct {
	Value  interface{}
	Reason string
}

func Accept(value interface{}) Outcome {
	return Outcome{Value: value}
}

func Reject(value interface{}, format string, args ...interface{}) Outcome {
	return Outcome{Value: value, Reason: fmt.Sprintf(format, args...)}
}

func (o Outcome) Rejected() bool {
	return o.Reason != ""
}

// Normaliser converts a raw value into the canonical type for its key.
type Normaliser func(value interface{}) Outcome

// Field is a known property registration.
type Field struct {
	Normalise Normaliser
	Policy    Policy
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
}

// Layouts without a zone are interpreted as UTC.
var naiveDateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime reads the date formats that appear in EO3 documents and
// provider metadata. Values without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

func Datetime(value interface{}) Outcome {
	switch v := value.(type) {
	case time.Time:
		return Accept(v)
	case *time.Time:
		if v == nil {
			return Reject(value, "expected a datetime, got nil pointer")
		}
		return Accept(*v)
	case string:
		t, err := ParseTime(v)
		if err != nil {
			return Reject(value, "%v", err)
		}
		return Accept(t)
	}
	return Reject(value, "expected a datetime, got %T", value)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func Float(value interface{}) Outcome {
	f, ok := toFloat(value)
	if !ok {
		return Reject(value, "expected a number, got %T %v", value, value)
	}
	return Accept(f)
}

func Int(value interface{}) Outcome {
	if s, ok := value.(string); ok {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return Reject(value, "expected an integer, got %q", s)
		}
		return Accept(i)
	}
	f, ok := toFloat(value)
	if !ok || f != math.Trunc(f) {
		return Reject(value, "expected an integer, got %T %v", value, value)
	}
	return Accept(int(f))
}

func inRange(name string, min, max float64) Normaliser {
	return func(value interface{}) Outcome {
		f, ok := toFloat(value)
		if !ok {
			return Reject(value, "expected %s, got %T %v", name, value, value)
		}
		if math.IsNaN(f) || f < min || f > max {
			return Reject(value, "expected %s in [%g, %g], got %v", name, min, max, f)
		}
		return Accept(f)
	}
}

var (
	Percent = inRange("a percentage", 0, 100)
	Degrees = inRange("degrees", -360, 360)
)

// Enum returns a normaliser accepting one of the given values. Input is
// case-folded with fold (strings.ToLower, strings.ToUpper, or nil to leave
// it alone) before comparison.
func Enum(fold func(string) string, values ...string) Normaliser {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	return func(value interface{}) Outcome {
		s, ok := value.(string)
		if !ok {
			return Reject(value, "expected one of %v, got %T", values, value)
		}
		if fold != nil {
			s = fold(s)
		}
		if !allowed[s] {
			return Reject(value, "expected one of %v, got %q", values, s)
		}
		return Accept(s)
	}
}

var datatakePattern = regexp.MustCompile(`_(\d{8}T\d{6})_`)

// datatakeStart finds the start time embedded in a Sentinel tile or
// datastrip id, such as
// S2A_OPER_MSI_L1C_TL_SGS__20170822T015626_A011310_T54KYU_N02.05.
func datatakeStart(id string) (time.Time, bool) {
	m := datatakePattern.FindStringSubmatch(id)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102T150405", m[1])
	return t, err == nil
}

// NormalisePlatform lower-cases a platform name and uses dashes as
// separators: "LANDSAT_8" becomes "landsat-8".
func NormalisePlatform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

// Platforms accepts one platform or a comma separated list of them. The
// stored value is the sorted, de-duplicated, comma joined list.
func Platforms(value interface{}) Outcome {
	var raw []string
	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []interface{}:
		for _, p := range v {
			s, ok := p.(string)
			if !ok {
				return Reject(value, "expected platform names, got %T", p)
			}
			raw = append(raw, s)
		}
	default:
		return Reject(value, "expected a platform name, got %T", value)
	}

	seen := map[string]bool{}
	var platforms []string
	for _, p := range raw {
		p = NormalisePlatform(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return Accept(strings.Join(platforms, ","))
}

// Producer checks that the producer looks like an organisation domain.
func Producer(value interface{}) Outcome {
	s, ok := value.(string)
	if !ok {
		return Reject(value, "expected a producer domain name, got %T", value)
	}
	if !strings.Contains(s, ".") {
		return Reject(value, "property 'odc:producer' is expected to be a domain name, eg 'usgs.gov' or 'ga.gov.au'")
	}
	return Accept(s)
}

func String(value interface{}) Outcome {
	switch v := value.(type) {
	case string:
		return Accept(v)
	case fmt.Stringer:
		return Accept(v.String())
	}
	return Accept(fmt.Sprint(value))
}
