// Package names derives product names, dataset labels, folders, file
// names and locations of EO3 datasets from their properties, following
// the naming conventions of an organisation.
package names

import (
	"fmt"
	"regexp"
	"strings"
)

// ProductNameStyle selects how product names are put together.
type ProductNameStyle int

const (
	// Organisation names are {producer}_{platform}{instrument}_{family}...,
	// eg. "ga_ls8c_ard_3".
	Organisation ProductNameStyle = iota
	// FamilyPlatform names are {family}_{platform}, eg. "wo_ls".
	FamilyPlatform
)

// Grouping names a set of platforms whose abbreviations all match Pattern.
type Grouping struct {
	Name    string
	Pattern *regexp.Regexp
}

// Conventions holds everything that differs between the naming
// conventions of organisations.
type Conventions struct {
	Name string

	// RequiredFields must be set before any name can be derived.
	// "odc:product_family" and "datetime" are always required.
	RequiredFields []string
	BaseProductURI string

	// AllowUnknownAbbreviations falls back to the platform name without
	// dashes instead of failing.
	AllowUnknownAbbreviations bool
	// ShowSpecificPlatform uses "ls8" rather than the group "ls" for
	// single platform datasets.
	ShowSpecificPlatform bool
	IncludeInstrument    bool
	IncludeCollection    bool
	ProductNameStyle     ProductNameStyle

	LabelIncludeVersion    bool
	LabelStripMajorVersion bool

	FolderIncludeVersion          bool
	FolderIncludeNonFinalMaturity bool
	// DatasetSeparatorField adds a folder per value of this property,
	// such as one per Sentinel-2 datatake.
	DatasetSeparatorField string
	// TimeFolderLayout is a time.Format layout; slashes separate folders.
	TimeFolderLayout string

	PlatformAbbreviations map[string]string
	PlatformGroupings     []Grouping
	ProducerAbbreviations map[string]string
}

const (
	DEAProductURI      = "https://collections.dea.ga.gov.au"
	DEAfricaProductURI = "https://digitalearthafrica.org"
)

// DefaultPlatformAbbreviations are the abbreviations of the DEA naming
// conventions document.
func DefaultPlatformAbbreviations() map[string]string {
	return map[string]string{
		"landsat-5":   "ls5",
		"landsat-7":   "ls7",
		"landsat-8":   "ls8",
		"landsat-9":   "ls9",
		"sentinel-1a": "s1a",
		"sentinel-1b": "s1b",
		"sentinel-2a": "s2a",
		"sentinel-2b": "s2b",
		"aqua":        "aqu",
		"terra":       "ter",
	}
}

// DefaultPlatformGroupings name mixes of platforms, eg. "ls" instead of
// "ls5-ls7-ls8". They are tried in order.
func DefaultPlatformGroupings() []Grouping {
	return []Grouping{
		{Name: "ls", Pattern: regexp.MustCompile(`^ls\d+`)},
		{Name: "s1", Pattern: regexp.MustCompile(`^s1[a-z]+`)},
		{Name: "s2", Pattern: regexp.MustCompile(`^s2[a-z]+`)},
	}
}

func DefaultProducerAbbreviations() map[string]string {
	return map[string]string{
		"ga.gov.au":              "ga",
		"usgs.gov":               "usgs",
		"sinergise.com":          "sinergise",
		"digitalearthafrica.org": "deafrica",
		"esa.int":                "esa",
	}
}

var deaRequired = []string{
	"eo:platform",
	"eo:instrument",
	"odc:processing_datetime",
	"odc:producer",
	"odc:product_family",
	"odc:region_code",
	"odc:dataset_version",
}

var deaDerivativeRequired = []string{
	"eo:platform",
	"odc:dataset_version",
	"odc:collection_number",
	"odc:processing_datetime",
	"odc:producer",
	"odc:product_family",
	"odc:region_code",
	"dea:dataset_maturity",
}

func base(name string) *Conventions {
	return &Conventions{
		Name:                          name,
		AllowUnknownAbbreviations:     true,
		ShowSpecificPlatform:          true,
		IncludeInstrument:             true,
		IncludeCollection:             true,
		LabelIncludeVersion:           true,
		LabelStripMajorVersion:        true,
		FolderIncludeNonFinalMaturity: true,
		TimeFolderLayout:              "2006/01/02",
		PlatformAbbreviations:         DefaultPlatformAbbreviations(),
		PlatformGroupings:             DefaultPlatformGroupings(),
		ProducerAbbreviations:         DefaultProducerAbbreviations(),
	}
}

func dea(name string) *Conventions {
	c := base(name)
	c.RequiredFields = append([]string(nil), deaRequired...)
	c.BaseProductURI = DEAProductURI
	c.AllowUnknownAbbreviations = false
	return c
}

// deaDerivative conventions only name the constellation ("ls", "s2") and
// put the version in a folder rather than in the label:
//
//	ga_ls_wo_3/1-6-0/090/081/1998/07/30/ga_ls_wo_3_090081_1998-07-30_interim.odc-metadata.yaml
func deaDerivative(name string) *Conventions {
	c := dea(name)
	c.RequiredFields = append([]string(nil), deaDerivativeRequired...)
	c.ShowSpecificPlatform = false
	c.IncludeInstrument = false
	c.LabelIncludeVersion = false
	c.FolderIncludeVersion = true
	c.FolderIncludeNonFinalMaturity = false
	return c
}

func deafrica() *Conventions {
	c := base("deafrica")
	c.RequiredFields = []string{"eo:platform", "odc:producer", "odc:region_code", "odc:product_family", "odc:dataset_version"}
	c.BaseProductURI = DEAfricaProductURI
	c.AllowUnknownAbbreviations = false
	c.ShowSpecificPlatform = false
	c.ProductNameStyle = FamilyPlatform
	c.LabelIncludeVersion = false
	c.FolderIncludeVersion = true
	c.FolderIncludeNonFinalMaturity = false
	return c
}

// Known lists the built-in conventions.
func Known() []string {
	return []string{"default", "dea", "dea_c3", "dea_s2", "dea_s2_derivative", "deafrica"}
}

// Lookup returns a fresh copy of the named conventions. Callers may
// change the copy, such as adding abbreviations, without affecting others.
func Lookup(name string) (*Conventions, error) {
	const separator = "sentinel:datatake_start_datetime"
	switch name {
	case "", "default":
		return base("default"), nil
	case "dea":
		return dea(name), nil
	case "dea_s2":
		c := dea(name)
		c.DatasetSeparatorField = separator
		return c, nil
	case "dea_c3":
		return deaDerivative(name), nil
	case "dea_s2_derivative":
		c := deaDerivative(name)
		c.DatasetSeparatorField = separator
		return c, nil
	case "deafrica":
		return deafrica(), nil
	}
	return nil, fmt.Errorf("unknown naming conventions: %s. Possibilities: %s", name, strings.Join(Known(), ", "))
}

// AddAbbreviations extends the abbreviation tables.
func (c *Conventions) AddAbbreviations(platforms, producers map[string]string) {
	for k, v := range platforms {
		c.PlatformAbbreviations[k] = v
	}
	for k, v := range producers {
		c.ProducerAbbreviations[k] = v
	}
}

// required is the full set of required properties.
func (c *Conventions) required() map[string]bool {
	req := map[string]bool{
		"odc:product_family": true,
		"datetime":           true,
	}
	for _, f := range c.RequiredFields {
		req[f] = true
	}
	if c.DatasetSeparatorField != "" {
		req[c.DatasetSeparatorField] = true
	}
	return req
}
