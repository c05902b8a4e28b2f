package images

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nci/eodatasets/model"
)

const gridLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var ErrTooManyGrids = errors.New("too many grids to name")

type namedGrid struct {
	name  string
	group *gridGroup
}

// namedGrids names every grid. The grid with the most measurements is
// "default". The others are named, in order of preference, by an affix
// shared by their measurement names, by their x resolution, or by a
// letter. Each strategy has to name all the grids without a clash or the
// next one is tried from scratch.
func (m *MeasurementRecord) namedGrids() ([]namedGrid, error) {
	groups := m.byFrequency()
	defaultGrid := namedGrid{name: model.DefaultGrid, group: groups[0]}
	rest := groups[1:]
	if len(rest) == 0 {
		return []namedGrid{defaultGrid}, nil
	}

	if named, ok := nameByAffix(defaultGrid, rest, m.Names()); ok {
		return named, nil
	}
	if named, ok := nameByResolution(defaultGrid, rest); ok {
		return named, nil
	}

	if len(rest) > len(gridLetters) {
		return nil, fmt.Errorf("%w: more than %d grids that cannot be named", ErrTooManyGrids, len(gridLetters))
	}
	named := []namedGrid{defaultGrid}
	for i, g := range rest {
		named = append(named, namedGrid{name: gridLetters[i : i+1], group: g})
	}
	return named, nil
}

func nameByAffix(defaultGrid namedGrid, rest []*gridGroup, allNames []string) ([]namedGrid, bool) {
	named := []namedGrid{defaultGrid}
	taken := map[string]bool{defaultGrid.name: true}
	for _, g := range rest {
		var name string
		if len(g.names) == 1 {
			name = strings.Trim(strings.ReplaceAll(g.names[0], ":", ""), "_:")
		} else {
			name = commonName(g.names, allNames)
		}
		if name == "" || taken[name] {
			return nil, false
		}
		taken[name] = true
		named = append(named, namedGrid{name: name, group: g})
	}
	return named, true
}

func nameByResolution(defaultGrid namedGrid, rest []*gridGroup) ([]namedGrid, bool) {
	named := []namedGrid{defaultGrid}
	taken := map[string]bool{defaultGrid.name: true}
	for _, g := range rest {
		_, resX := g.grid.ResolutionYX()
		name := resolutionName(resX)
		if taken[name] {
			return nil, false
		}
		taken[name] = true
		named = append(named, namedGrid{name: name, group: g})
	}
	return named, true
}

// resolutionName is the integer resolution above 1, otherwise the float
// written with at least one decimal place ("0.5", "1.0").
func resolutionName(res float64) string {
	if res > 1 {
		return strconv.Itoa(int(res))
	}
	s := strconv.FormatFloat(res, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// commonName finds a name for a group of measurements from the prefix or
// suffix their names share, such as "nbar" for nbar_blue and nbar_red.
// An affix that a measurement outside the group also has is not usable.
// Returns "" when nothing suitable exists.
func commonName(group, allNames []string) string {
	inGroup := make(map[string]bool, len(group))
	for _, n := range group {
		inGroup[n] = true
	}
	var others []string
	for _, n := range allNames {
		if !inGroup[n] {
			others = append(others, n)
		}
	}

	var options []string
	prefix := commonPrefix(group)
	if !anyMatch(others, func(n string) bool { return strings.HasPrefix(n, prefix) }) {
		options = append(options, prefix)
	}
	suffix := commonSuffix(group)
	if !anyMatch(others, func(n string) bool { return strings.HasSuffix(n, suffix) }) {
		options = append(options, suffix)
	}

	for i := range options {
		options[i] = strings.Trim(options[i], "_:")
	}
	sort.SliceStable(options, func(i, j int) bool { return len(options[i]) > len(options[j]) })
	if len(options) == 0 {
		return ""
	}
	return options[0]
}

func anyMatch(names []string, match func(string) bool) bool {
	for _, n := range names {
		if match(n) {
			return true
		}
	}
	return false
}

func commonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, n := range names[1:] {
		i := 0
		for i < len(prefix) && i < len(n) && prefix[i] == n[i] {
			i++
		}
		prefix = prefix[:i]
	}
	return prefix
}

func commonSuffix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	suffix := names[0]
	for _, n := range names[1:] {
		i := 0
		for i < len(suffix) && i < len(n) && suffix[len(suffix)-1-i] == n[len(n)-1-i] {
			i++
		}
		suffix = suffix[len(suffix)-i:]
	}
	return suffix
}
