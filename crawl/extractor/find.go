package extractor

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	goeval "github.com/edisonguo/govaluate"
)

var numericBandName = regexp.MustCompile(`^(\d+)([a-zA-Z]?)`)

// NormaliseBandName gives numeric bands a "band" prefix and two digits,
// and lowercases the rest: "4" is "band04", "8A" is "band08a" and
// "Azimuthal-Angles" is "azimuthal_angles".
func NormaliseBandName(name string) string {
	if m := numericBandName.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		name = fmt.Sprintf("band%02d%s", n, m[2])
	}
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

var bandPrefix = regexp.MustCompile(`^[bB](\d.*)$`)

// BandFromFilename reads the band of a file named in the USGS or ESA
// manner, where the band is the last underscore separated part:
// "LC08_L1TP_091075_20161213_20170316_01_T2_B4.TIF" is "band04".
func BandFromFilename(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	if i := strings.LastIndex(base, "_"); i >= 0 {
		base = base[i+1:]
	}
	if m := bandPrefix.FindStringSubmatch(base); m != nil {
		base = m[1]
	}
	return NormaliseBandName(base)
}

var filterVariables = map[string]struct{}{"path": {}, "type": {}, "name": {}, "band": {}}

// parsePatternExpression checks a filter expression such as
// `band != "band08" && name =~ ".*[.]TIF$"`. Filters can use the
// variables path, type ("f" or "d"), name and band.
func parsePatternExpression(pattern string) (*goeval.EvaluableExpression, error) {
	if len(strings.TrimSpace(pattern)) == 0 {
		return nil, nil
	}

	expr, err := goeval.NewEvaluableExpression(pattern)
	if err != nil {
		return nil, err
	}

	for _, token := range expr.Tokens() {
		if token.Kind == goeval.VARIABLE {
			varName, ok := token.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
			}
			if _, found := filterVariables[varName]; !found {
				return nil, fmt.Errorf("variable %v is not supported. Valid variables are path, type, name and band", varName)
			}
		}
	}
	return expr, nil
}

func evaluatePatternExpression(expr *goeval.EvaluableExpression, parameters map[string]interface{}) (bool, error) {
	result, err := expr.Evaluate(parameters)
	if err != nil {
		return false, fmt.Errorf("pattern expression: %v", err)
	}
	val, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("pattern expression: result '%v' is not boolean", result)
	}
	return val, nil
}

// FindMeasurements lists the files under root whose slash separated path
// relative to root matches glob ("**/*_B*.TIF") and, if given, the filter
// expression. Hidden folders, such as unfinished packages, are skipped.
// Results are sorted by band.
func FindMeasurements(root, glob, filter string) ([]MeasurementFile, error) {
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid glob pattern %q", glob)
	}
	expr, err := parsePatternExpression(filter)
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var found []MeasurementFile
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(glob, filepath.ToSlash(rel))
		if err != nil || !ok {
			return err
		}

		band := BandFromFilename(path)
		if expr != nil {
			ok, err := evaluatePatternExpression(expr, map[string]interface{}{
				"path": path,
				"type": "f",
				"name": d.Name(),
				"band": band,
			})
			if err != nil || !ok {
				return err
			}
		}
		found = append(found, MeasurementFile{Path: path, Band: band})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Band != found[j].Band {
			return found[i].Band < found[j].Band
		}
		return found[i].Path < found[j].Path
	})
	for i := 1; i < len(found); i++ {
		if found[i].Band == found[i-1].Band {
			return nil, fmt.Errorf("two files for band %s: %s and %s", found[i].Band, found[i-1].Path, found[i].Path)
		}
	}
	return found, nil
}
