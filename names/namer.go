package names

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/nci/eodatasets/properties"
)

// Field is a name that a Namer derives.
type Field string

const (
	ProductName           Field = "product_name"
	ProductURI            Field = "product_uri"
	PlatformAbbreviated   Field = "platform_abbreviated"
	InstrumentAbbreviated Field = "instrument_abbreviated"
	ProducerAbbreviated   Field = "producer_abbreviated"
	DatasetLabel          Field = "dataset_label"
	RegionFolder          Field = "region_folder"
	TimeFolder            Field = "time_folder"
	DatasetFolder         Field = "dataset_folder"
	DatasetLocation       Field = "dataset_location"
	MetadataFile          Field = "metadata_file"
	ChecksumFile          Field = "checksum_file"
	ProcInfoFile          Field = "proc_info_file"
)

// Fields lists every derived field, in dependency order.
func Fields() []Field {
	return []Field{
		PlatformAbbreviated, InstrumentAbbreviated, ProducerAbbreviated,
		ProductName, ProductURI, DatasetLabel,
		RegionFolder, TimeFolder, DatasetFolder, DatasetLocation,
		MetadataFile, ChecksumFile, ProcInfoFile,
	}
}

// Resolver derives one field. Resolvers are called on every read, so the
// result follows property changes.
type Resolver func(n *Namer) (string, error)

// Namer generates the names of one dataset.
//
// Fields are derived on read from the properties, unless they have been
// set explicitly:
//
//	n, _ := names.ForConventions("default", props)
//	n.Set(names.InstrumentAbbreviated, "t")
//	n.ProductName() // "ls7t_nbar"
//
// Every file name is relative to the dataset folder.
type Namer struct {
	Conventions *Conventions
	Properties  *properties.Store

	// CollectionPrefix is the base location that dataset folders are
	// placed under, as a URI.
	CollectionPrefix string

	required  map[string]bool
	resolvers map[Field]Resolver
	overrides map[Field]string
}

// New returns a namer over props. A namer is usable without a location
// for the names that don't need one; callers that will write files check
// Locatable once the collection prefix or metadata file is set, as the
// assembler does before accepting any measurement.
func New(c *Conventions, props *properties.Store) *Namer {
	if props == nil {
		props = properties.New()
	}
	return &Namer{
		Conventions: c,
		Properties:  props,
		required:    c.required(),
		resolvers: map[Field]Resolver{
			ProductName:           productName,
			ProductURI:            productURI,
			PlatformAbbreviated:   platformAbbreviation,
			InstrumentAbbreviated: instrumentAbbreviation,
			ProducerAbbreviated:   producerAbbreviation,
			DatasetLabel:          datasetLabel,
			RegionFolder:          regionFolder,
			TimeFolder:            timeFolder,
			DatasetFolder:         datasetFolder,
			DatasetLocation:       datasetLocation,
			MetadataFile:          func(n *Namer) (string, error) { return n.Filename("", "odc-metadata.yaml") },
			ChecksumFile:          func(n *Namer) (string, error) { return n.Filename("", "sha1") },
			ProcInfoFile:          func(n *Namer) (string, error) { return n.Filename("", "proc-info.yaml") },
		},
		overrides: make(map[Field]string),
	}
}

// ForConventions looks up conventions by name.
func ForConventions(name string, props *properties.Store) (*Namer, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return New(c, props), nil
}

// Get returns an explicitly set value if there is one, even "", or
// derives the field.
func (n *Namer) Get(f Field) (string, error) {
	if v, ok := n.overrides[f]; ok {
		return v, nil
	}
	resolve, ok := n.resolvers[f]
	if !ok {
		return "", fmt.Errorf("unknown name field %q", f)
	}
	v, err := resolve(n)
	if err != nil {
		return "", fmt.Errorf("%s: %w", f, err)
	}
	return v, nil
}

// Set fixes the value of a field. It is no longer derived.
func (n *Namer) Set(f Field, value string) {
	n.overrides[f] = value
}

// Unset returns a field to being derived.
func (n *Namer) Unset(f Field) {
	delete(n.overrides, f)
}

func (n *Namer) IsSet(f Field) bool {
	_, ok := n.overrides[f]
	return ok
}

// SetResolver replaces how a field is derived.
func (n *Namer) SetResolver(f Field, r Resolver) {
	n.resolvers[f] = r
}

func (n *Namer) ProductName() (string, error)     { return n.Get(ProductName) }
func (n *Namer) ProductURI() (string, error)      { return n.Get(ProductURI) }
func (n *Namer) DatasetLabel() (string, error)    { return n.Get(DatasetLabel) }
func (n *Namer) DatasetFolder() (string, error)   { return n.Get(DatasetFolder) }
func (n *Namer) DatasetLocation() (string, error) { return n.Get(DatasetLocation) }
func (n *Namer) MetadataFile() (string, error)    { return n.Get(MetadataFile) }
func (n *Namer) ChecksumFile() (string, error)    { return n.Get(ChecksumFile) }
func (n *Namer) ProcInfoFile() (string, error)    { return n.Get(ProcInfoFile) }

// All derives every field. Fields that cannot be derived are left out
// and the first error is returned alongside the others.
func (n *Namer) All() (map[Field]string, error) {
	out := make(map[Field]string)
	var first error
	for _, f := range Fields() {
		v, err := n.Get(f)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		out[f] = v
	}
	return out, first
}

func productName(n *Namer) (string, error) {
	if name := n.Properties.ProductName(); name != "" {
		return name, nil
	}
	family, err := n.property("odc:product_family")
	if err != nil {
		return "", err
	}
	family = strings.ReplaceAll(family, "-", "_")
	platform, err := n.Get(PlatformAbbreviated)
	if err != nil {
		return "", err
	}

	if n.Conventions.ProductNameStyle == FamilyPlatform {
		return joinNonEmpty("_", family, platform), nil
	}

	producer, err := n.Get(ProducerAbbreviated)
	if err != nil {
		return "", err
	}
	instrument := ""
	if n.Conventions.IncludeInstrument {
		if instrument, err = n.Get(InstrumentAbbreviated); err != nil {
			return "", err
		}
	}
	maturity := n.Properties.ProductMaturity()
	if maturity == "stable" {
		maturity = ""
	}
	collection := ""
	if n.Conventions.IncludeCollection {
		if collection, err = n.collectionNumber(); err != nil {
			return "", err
		}
	}
	return joinNonEmpty("_", producer, platform+instrument, family, maturity, collection), nil
}

// collectionNumber is odc:collection_number, or else the major part of
// the dataset version.
func (n *Namer) collectionNumber() (string, error) {
	if _, err := n.property("odc:collection_number"); err != nil {
		return "", err
	}
	if c, ok := n.Properties.CollectionNumber(); ok && c != 0 {
		return strconv.Itoa(c), nil
	}
	version, err := n.property("odc:dataset_version")
	if err != nil || version == "" {
		return "", err
	}
	major, err := strconv.Atoi(strings.SplitN(version, ".", 2)[0])
	if err != nil {
		// Not a numbered version.
		return "", nil
	}
	return strconv.Itoa(major), nil
}

func productURI(n *Namer) (string, error) {
	base := strings.TrimRight(n.Conventions.BaseProductURI, "/")
	if base == "" {
		return "", nil
	}
	name, err := n.Get(ProductName)
	if err != nil {
		return "", err
	}
	return base + "/product/" + url.PathEscape(name), nil
}

// stripMajorVersion drops the first part of a version: "1.2.3" becomes
// "2.3" and "40" becomes "".
func stripMajorVersion(version string) string {
	parts := strings.Split(version, ".")
	return strings.Join(parts[1:], ".")
}

func datasetLabel(n *Namer) (string, error) {
	product, err := n.Get(ProductName)
	if err != nil {
		return "", err
	}
	version, err := n.property("odc:dataset_version")
	if err != nil {
		return "", err
	}
	if version != "" && n.Conventions.LabelIncludeVersion {
		if n.Conventions.LabelStripMajorVersion {
			version = stripMajorVersion(version)
		}
		if version != "" {
			product += "-" + strings.ReplaceAll(version, ".", "-")
		}
	}
	region, err := n.property("odc:region_code")
	if err != nil {
		return "", err
	}
	t, err := n.timeProperty("datetime")
	if err != nil {
		return "", err
	}
	date := ""
	if !t.IsZero() {
		date = t.Format("2006-01-02")
	}
	maturity, err := n.property("dea:dataset_maturity")
	if err != nil {
		return "", err
	}
	return joinNonEmpty("_", product, region, date, maturity), nil
}

// subfolderise cuts a code into two folders if it is long, with the
// shorter half first: "12345" becomes "12/345".
func subfolderise(code string) []string {
	if len(code) > 2 {
		return []string{code[:len(code)/2], code[len(code)/2:]}
	}
	return []string{code}
}

func regionFolder(n *Namer) (string, error) {
	region, err := n.property("odc:region_code")
	if err != nil || region == "" {
		return "", err
	}
	return strings.Join(subfolderise(region), "/"), nil
}

func timeFolder(n *Namer) (string, error) {
	t, err := n.timeProperty("datetime")
	if err != nil || t.IsZero() {
		return "", err
	}
	return t.Format(n.Conventions.TimeFolderLayout), nil
}

func datasetFolder(n *Namer) (string, error) {
	product, err := n.Get(ProductName)
	if err != nil {
		return "", err
	}
	parts := []string{product}

	if n.Conventions.FolderIncludeVersion {
		version, err := n.property("odc:dataset_version")
		if err != nil {
			return "", err
		}
		if version != "" {
			parts = append(parts, strings.ReplaceAll(version, ".", "-"))
		}
	}
	for _, f := range []Field{RegionFolder, TimeFolder} {
		folder, err := n.Get(f)
		if err != nil {
			return "", err
		}
		if folder != "" {
			parts = append(parts, strings.Split(folder, "/")...)
		}
	}

	if n.Conventions.FolderIncludeNonFinalMaturity {
		maturity, err := n.property("dea:dataset_maturity")
		if err != nil {
			return "", err
		}
		if maturity != "" && maturity != "final" {
			parts[len(parts)-1] += "_" + maturity
		}
	}

	if field := n.Conventions.DatasetSeparatorField; field != "" {
		if t, ok := n.Properties.Time(field); ok {
			parts = append(parts, t.UTC().Format("20060102T150405"))
		} else {
			v, err := n.property(field)
			if err != nil {
				return "", err
			}
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "/"), nil
}

// datasetLocation is the collection prefix joined with the dataset
// folder, or the folder of an absolute metadata file.
func datasetLocation(n *Namer) (string, error) {
	if n.IsSet(MetadataFile) {
		if meta := n.overrides[MetadataFile]; HasScheme(meta) {
			return meta[:strings.LastIndex(meta, "/")+1], nil
		}
	}
	if n.CollectionPrefix == "" {
		return "", fmt.Errorf("no collection prefix or dataset location given")
	}
	folder, err := n.Get(DatasetFolder)
	if err != nil {
		return "", err
	}
	if HasScheme(folder) || path.IsAbs(folder) {
		return "", fmt.Errorf("dataset folder %q must be relative to the collection", folder)
	}
	folder = strings.Trim(folder, "/")
	return strings.TrimRight(n.CollectionPrefix, "/") + "/" + folder + "/", nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
