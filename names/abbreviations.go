package names

import (
	"fmt"
	"sort"
	"strings"
)

func (n *Namer) platforms() ([]string, error) {
	if _, err := n.property("eo:platform"); err != nil {
		return nil, err
	}
	return n.Properties.Platforms(), nil
}

// platformAbbreviation abbreviates the platforms of a dataset, eg.
// "landsat-7" as "ls7". Mixed platforms are named by their group ("ls"),
// or by the constellation property.
func platformAbbreviation(n *Namer) (string, error) {
	platforms, err := n.platforms()
	if err != nil || len(platforms) == 0 {
		return "", err
	}
	c := n.Conventions

	if !c.AllowUnknownAbbreviations {
		var unknown []string
		for _, p := range platforms {
			if _, ok := c.PlatformAbbreviations[p]; !ok {
				unknown = append(unknown, p)
			}
		}
		if len(unknown) > 0 {
			return "", fmt.Errorf("%w: no %s abbreviation for platforms %q", ErrUnknownAbbreviation, c.Name, unknown)
		}
	}

	abbreviations := make([]string, len(platforms))
	for i, p := range platforms {
		if a, ok := c.PlatformAbbreviations[p]; ok {
			abbreviations[i] = a
		} else {
			abbreviations[i] = strings.ReplaceAll(p, "-", "")
		}
	}
	sort.Strings(abbreviations)

	if c.ShowSpecificPlatform && len(abbreviations) == 1 {
		return abbreviations[0], nil
	}

	for _, g := range c.PlatformGroupings {
		all := true
		for _, a := range abbreviations {
			if !g.Pattern.MatchString(a) {
				all = false
				break
			}
		}
		if all {
			return g.Name, nil
		}
	}

	if constellation := n.Properties.Constellation(); constellation != "" {
		return constellation, nil
	}
	if !c.AllowUnknownAbbreviations {
		return "", fmt.Errorf("%w: constellation abbreviation is not known for platforms %q", ErrNotImplemented, platforms)
	}
	// Unnamed mixes of platforms are left out of names.
	return "", nil
}

var landsatIDs = []string{
	"landsat:landsat_product_id",
	"landsat:landsat_scene_id",
	"landsat:scene_id",
}

// instrumentAbbreviation is a single letter for the instrument of a
// single platform dataset, eg. "c" for the OLI/TIRS combined instrument
// of Landsat 8 (from its LC08 scene id).
func instrumentAbbreviation(n *Namer) (string, error) {
	platforms, err := n.platforms()
	if err != nil || len(platforms) != 1 {
		return "", err
	}
	p := platforms[0]

	switch {
	case strings.HasPrefix(p, "sentinel-1"), strings.HasPrefix(p, "sentinel-2"):
		instrument, err := n.property("eo:instrument")
		if err != nil || instrument == "" {
			return "", err
		}
		return strings.ToLower(instrument[:1]), nil

	case strings.HasPrefix(p, "landsat"):
		// USGS ids, such as LC08_L1TP_091075_20161213_20170316_01_T2 or
		// LC80910752016348LGN01, have the sensor as their second letter.
		for _, key := range landsatIDs {
			if id := n.Properties.String(key); len(id) > 1 {
				return strings.ToLower(id[1:2]), nil
			}
		}
		instrument, err := n.property("eo:instrument")
		if err != nil {
			return "", err
		}
		if instrument != "" {
			return strings.ToLower(instrument[:1]), nil
		}
		return "", fmt.Errorf("%w: no landsat scene or product id: cannot abbreviate Landsat instrument", ErrNotImplemented)
	}
	return "", fmt.Errorf("%w: instrument abbreviations aren't supported for platform %q", ErrNotImplemented, p)
}

// producerAbbreviation abbreviates the producing organisation, eg.
// "ga.gov.au" as "ga". Unknown producers are always an error.
func producerAbbreviation(n *Namer) (string, error) {
	producer, err := n.property("odc:producer")
	if err != nil || producer == "" {
		return "", err
	}
	a, ok := n.Conventions.ProducerAbbreviations[producer]
	if !ok {
		return "", fmt.Errorf("%w: don't know how to abbreviate organisation domain name %q", ErrUnknownAbbreviation, producer)
	}
	return a, nil
}
