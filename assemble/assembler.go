// Package assemble builds EO3 dataset packages: measurements and other
// files are written into a hidden work folder inside the collection,
// named by the naming conventions, checksummed, validated and moved into
// place in one rename.
package assemble

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/images"
	"github.com/nci/eodatasets/metrics"
	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/names"
	"github.com/nci/eodatasets/properties"
	"github.com/nci/eodatasets/serialise"
	"github.com/nci/eodatasets/validate"
	"github.com/nci/eodatasets/verify"
	"github.com/paulmach/orb"
)

// IfExists selects what Done does when the dataset folder already exists.
type IfExists int

const (
	ThrowError IfExists = iota
	Skip
)

var (
	ErrAlreadyExists = errors.New("dataset already exists")
	ErrFinished      = errors.New("assembler has already finished")
	ErrNoCollection  = errors.New("no collection folder was given: cannot write new files")
)

// IncompleteDatasetError carries the validation errors that stopped a
// dataset from being written.
type IncompleteDatasetError struct {
	Messages []validate.Message
}

func (e *IncompleteDatasetError) Error() string {
	msgs := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		msgs[i] = m.String()
	}
	return "incomplete dataset: " + strings.Join(msgs, "; ")
}

// InheritableProperties are copied from source datasets by
// AddSourceDataset.
var InheritableProperties = []string{
	"datetime",
	"eo:cloud_cover",
	"eo:gsd",
	"eo:instrument",
	"eo:platform",
	"eo:sun_azimuth",
	"eo:sun_elevation",
	"landsat:collection_category",
	"landsat:collection_number",
	"landsat:landsat_product_id",
	"landsat:landsat_scene_id",
	"landsat:wrs_path",
	"landsat:wrs_row",
	"odc:region_code",
	"sentinel:sentinel_tile_id",
	"sentinel:datatake_start_datetime",
}

const (
	SoftwareName = "eodatasets"
	SoftwareURL  = "https://github.com/nci/eodatasets"
)

// Version is noted as a software version of every dataset.
var Version = "1.0.0"

type Options struct {
	// Collection is the local folder datasets are placed under. Files can
	// only be written into a package when it is given.
	Collection string
	// MetadataPath writes a lone metadata document at this path instead
	// of a package, for measurements that already exist.
	MetadataPath string
	// PathsRelativeTo resolves relative measurement paths. It defaults to
	// the folder of MetadataPath, or the working directory.
	PathsRelativeTo string

	DatasetID          uuid.UUID
	IfExists           IfExists
	AllowAbsolutePaths bool
	// EmbedLocation writes the final metadata URI as the document location.
	EmbedLocation bool

	// Conventions default to "default".
	Conventions     *names.Conventions
	ValidDataMethod images.ValidDataMethod
	Reader          images.RasterReader
	Warner          properties.Warner

	MetricsLogger metrics.Logger
	Collectors    *metrics.Collectors
}

type SoftwareVersion struct {
	Name    string
	URL     string
	Version string
}

// Assembler collects one dataset. Set Properties, record measurements,
// then call Done, or Cancel to throw it away.
type Assembler struct {
	ID         uuid.UUID
	Properties *properties.Store
	Names      *names.Namer

	opts        Options
	baseDir     string
	workDir     string
	record      *images.MeasurementRecord
	checksum    *verify.PackageChecksum
	written     int64
	warn        properties.Warner
	metrics     *metrics.MetricsCollector
	finished    bool
	lineage     map[string][]uuid.UUID
	software    []SoftwareVersion
	accessory   map[string]string
	userOrder   []string
	userMeta    map[string]interface{}
	geometry    orb.Geometry
	geometryCRS string
}

func New(opts Options) (*Assembler, error) {
	if opts.Collection == "" && opts.MetadataPath == "" {
		return nil, fmt.Errorf("either a collection folder or a metadata path is needed")
	}
	if opts.Collection != "" && opts.MetadataPath != "" {
		return nil, fmt.Errorf("give a collection folder or a metadata path, not both")
	}

	a := &Assembler{
		ID:        opts.DatasetID,
		opts:      opts,
		record:    images.NewMeasurementRecord(),
		checksum:  verify.NewPackageChecksum(),
		lineage:   make(map[string][]uuid.UUID),
		accessory: make(map[string]string),
		userMeta:  make(map[string]interface{}),
		metrics:   metrics.NewMetricsCollector(opts.MetricsLogger, opts.Collectors),
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	userWarn := opts.Warner
	if userWarn == nil {
		userWarn = properties.LogWarner
	}
	a.warn = func(format string, args ...interface{}) {
		a.metrics.Warn(format, args...)
		userWarn(format, args...)
	}
	a.Properties = properties.NewWithFields(properties.KnownFields(), a.warn)

	conventions := opts.Conventions
	if conventions == nil {
		var err error
		if conventions, err = names.Lookup("default"); err != nil {
			return nil, err
		}
	}
	a.Names = names.New(conventions, a.Properties)

	if opts.Collection != "" {
		collection, err := filepath.Abs(opts.Collection)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(collection)
		if err != nil {
			return nil, fmt.Errorf("collection folder: %v", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("collection %s is not a folder", collection)
		}
		if err := a.Names.SetCollection(collection + "/"); err != nil {
			return nil, err
		}
		a.baseDir = collection
	} else {
		metadataPath, err := filepath.Abs(opts.MetadataPath)
		if err != nil {
			return nil, err
		}
		uri, err := names.AsURI(metadataPath)
		if err != nil {
			return nil, err
		}
		a.Names.Set(names.MetadataFile, uri)
		a.baseDir = filepath.Dir(metadataPath)
	}
	if err := a.Names.Locatable(); err != nil {
		return nil, err
	}

	a.metrics.Info.DatasetID = a.ID.String()
	a.metrics.Info.Conventions = conventions.Name
	a.metrics.Info.ValidDataMethod = opts.ValidDataMethod.String()
	return a, nil
}

// SetLabel replaces the label derived by the naming conventions.
func (a *Assembler) SetLabel(label string) {
	a.Names.Set(names.DatasetLabel, label)
}

func (a *Assembler) Label() (string, error) {
	return a.Names.DatasetLabel()
}

// work returns the work folder, creating it on first use.
func (a *Assembler) work() (string, error) {
	if a.workDir != "" {
		return a.workDir, nil
	}
	if a.opts.Collection == "" {
		return "", ErrNoCollection
	}
	dir := filepath.Join(a.baseDir, "."+a.ID.String())
	if err := os.Mkdir(dir, 0700); err != nil {
		return "", err
	}
	a.workDir = dir
	return dir, nil
}

func (a *Assembler) checkOpen() error {
	if a.finished {
		return ErrFinished
	}
	return nil
}

// resolve makes a given path absolute against PathsRelativeTo.
func (a *Assembler) resolve(path string) (string, error) {
	if filepath.IsAbs(path) || names.HasScheme(path) {
		return path, nil
	}
	base := a.opts.PathsRelativeTo
	if base == "" && a.opts.MetadataPath != "" {
		base = a.baseDir
	}
	if base == "" {
		return filepath.Abs(path)
	}
	return filepath.Join(base, path), nil
}

func (a *Assembler) reader() (images.RasterReader, error) {
	if a.opts.Reader == nil {
		return nil, fmt.Errorf("no raster reader was given")
	}
	return a.opts.Reader, nil
}

// NoteMeasurement references an existing image without copying it. Its
// grid, and its pixels when expandValidData is set, are read through the
// raster reader.
func (a *Assembler) NoteMeasurement(name, path, layer string, expandValidData bool) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	r, err := a.reader()
	if err != nil {
		return err
	}
	abs, err := a.resolve(path)
	if err != nil {
		return err
	}

	var raster *images.Raster
	if expandValidData {
		raster, err = r.ReadRaster(abs, layer)
	} else {
		raster, err = r.ReadGrid(abs, layer)
	}
	if err != nil {
		return fmt.Errorf("measurement %q: %v", name, err)
	}
	return a.record.RecordRaster(name, images.Location{Path: abs, Layer: layer}, raster, expandValidData)
}

// WriteMeasurement writes a raster into the package as a new file, named
// by the naming conventions.
func (a *Assembler) WriteMeasurement(name string, raster *images.Raster, w images.ImageWriter, expandValidData bool) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	dir, err := a.work()
	if err != nil {
		return err
	}
	filename, err := a.Names.MeasurementFilename(name, w.Suffix(), "")
	if err != nil {
		return err
	}
	if err := a.noteFileFormat(w.Suffix()); err != nil {
		return err
	}

	out := filepath.Join(dir, filename)
	if err := w.WriteImage(out, raster); err != nil {
		return fmt.Errorf("writing measurement %q: %v", name, err)
	}
	if err := a.record.RecordRaster(name, images.Location{Path: out}, raster, expandValidData); err != nil {
		return err
	}
	// Checksummed straight away, while the file is likely still cached.
	return a.addFile(out)
}

// WriteMeasurementFrom copies an existing image into the package.
func (a *Assembler) WriteMeasurementFrom(name, path, layer string, w images.ImageWriter, expandValidData bool) error {
	r, err := a.reader()
	if err != nil {
		return err
	}
	abs, err := a.resolve(path)
	if err != nil {
		return err
	}
	raster, err := r.ReadRaster(abs, layer)
	if err != nil {
		return fmt.Errorf("measurement %q: %v", name, err)
	}
	return a.WriteMeasurement(name, raster, w, expandValidData)
}

var fileFormats = map[string]string{
	"tif":  "GeoTIFF",
	"tiff": "GeoTIFF",
	"nc":   "NetCDF",
}

// noteFileFormat keeps "odc:file_format" in step with what is written.
func (a *Assembler) noteFileFormat(suffix string) error {
	format, ok := fileFormats[strings.ToLower(suffix)]
	if !ok {
		return nil
	}
	existing := a.Properties.String("odc:file_format")
	if existing == "" {
		return a.Properties.Set("odc:file_format", format)
	}
	if existing != format {
		return fmt.Errorf("inconsistent file formats between bands. Was %q, now %q", existing, format)
	}
	return nil
}

func (a *Assembler) addFile(path string) error {
	if err := a.checksum.AddFile(path); err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		a.written += info.Size()
	}
	return nil
}

// ThumbnailWriter renders a thumbnail from three measurements of one grid.
type ThumbnailWriter interface {
	WriteThumbnail(out string, red, green, blue images.Location, grid images.GridSpec) error
	Suffix() string
}

// WriteThumbnail renders the named measurements as red, green and blue.
// Kind tells apart several thumbnails of one dataset, such as "nbart".
func (a *Assembler) WriteThumbnail(red, green, blue, kind string, w ThumbnailWriter) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	var missing []string
	locs := make([]images.Location, 3)
	var grid images.GridSpec
	for i, name := range []string{red, green, blue} {
		loc, ok := a.record.Location(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		locs[i] = loc
		g, _ := a.record.Grid(name)
		if i > 0 && len(missing) == 0 && !g.Equal(grid) {
			return fmt.Errorf("thumbnails can only be made from measurements of the same grid")
		}
		grid = g
	}
	if len(missing) > 0 {
		return &IncompleteDatasetError{Messages: []validate.Message{{
			Level:  validate.Error,
			Code:   "missing_thumb_measurements",
			Reason: fmt.Sprintf("Thumbnail measurements are missing: no measurements called %v", missing),
			Hint:   fmt.Sprintf("Available measurements: %s", strings.Join(a.record.Names(), ", ")),
		}}}
	}

	dir, err := a.work()
	if err != nil {
		return err
	}
	filename, err := a.Names.ThumbnailFilename(kind, w.Suffix())
	if err != nil {
		return err
	}
	out := filepath.Join(dir, filename)
	if err := w.WriteThumbnail(out, locs[0], locs[1], locs[2], grid); err != nil {
		return err
	}
	if err := a.addFile(out); err != nil {
		return err
	}

	name := "thumbnail"
	if kind != "" {
		name += ":" + kind
	}
	return a.AddAccessoryFile(name, out)
}

// AddAccessoryFile references a file that is not a measurement, such as
// native metadata. Names are prefixed by category by convention, eg.
// "metadata:mtl".
func (a *Assembler) AddAccessoryFile(name, path string) error {
	abs, err := a.resolve(path)
	if err != nil {
		return err
	}
	if existing, ok := a.accessory[name]; ok && existing != abs {
		return fmt.Errorf("duplicate accessory name %q. New: %q, previous: %q", name, abs, existing)
	}
	a.accessory[name] = abs
	return nil
}

// AddSourceDataset records a dataset this one was derived from. The
// classifier defaults to the source's product family. With
// inheritProperties, the InheritableProperties the source has are copied
// over; differing values already set are kept, with a warning.
func (a *Assembler) AddSourceDataset(doc *model.DatasetDoc, classifier string, inheritProperties bool) error {
	if classifier == "" {
		classifier = doc.Properties.ProductFamily()
		if classifier == "" {
			return fmt.Errorf("source dataset %s has no 'odc:product_family' property (eg. 'level1', 'fc'): a classifier is needed for the kind of source dataset", doc.ID)
		}
	}
	a.lineage[classifier] = append(a.lineage[classifier], doc.ID)
	if inheritProperties {
		return a.inheritProperties(doc)
	}
	return nil
}

// AddSourcePath reads the document of a source dataset and adds it.
func (a *Assembler) AddSourcePath(path, classifier string, inheritProperties bool) error {
	doc, err := serialise.FromPath(path)
	if err != nil {
		return fmt.Errorf("source dataset %s: %v", path, err)
	}
	return a.AddSourceDataset(doc, classifier, inheritProperties)
}

func (a *Assembler) inheritProperties(doc *model.DatasetDoc) error {
	for _, key := range InheritableProperties {
		v, ok := doc.Properties.Get(key)
		if !ok || v == nil {
			continue
		}
		existing, ok := a.Properties.Get(key)
		if !ok || existing == nil {
			if err := a.Properties.Set(key, v); err != nil {
				return err
			}
			continue
		}
		norm, err := a.Properties.Normalise(key, v)
		if err != nil {
			return err
		}
		if !equalValues(existing, norm) {
			a.warn("inheritable property %q is different from current value: %v != %v", key, existing, norm)
		}
	}
	return nil
}

func equalValues(a, b interface{}) bool {
	ta, ok1 := a.(time.Time)
	tb, ok2 := b.(time.Time)
	if ok1 && ok2 {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// InheritGeometry uses the footprint of a source dataset when no
// measurement gives any valid data. Valid data from the measurements
// replaces it, with a warning.
func (a *Assembler) InheritGeometry(doc *model.DatasetDoc) {
	a.geometry = doc.Geometry
	a.geometryCRS = doc.CRS
}

// NoteSoftwareVersion records software used to make the dataset. Software
// is identified by name and url; noting it again with another version is
// an error.
func (a *Assembler) NoteSoftwareVersion(name, url, version string) error {
	for _, v := range a.software {
		if v.Name == name && v.URL == url {
			if v.Version != version {
				return fmt.Errorf("duplicate setting of software %q with different value (%q != %q)", url, v.Version, version)
			}
			return nil
		}
	}
	a.software = append(a.software, SoftwareVersion{Name: name, URL: url, Version: version})
	return nil
}

// ExtendUserMetadata adds a section to the processing info document.
func (a *Assembler) ExtendUserMetadata(section string, value interface{}) error {
	if _, ok := a.userMeta[section]; ok {
		return fmt.Errorf("metadata section %s already exists", section)
	}
	a.userMeta[section] = value
	a.userOrder = append(a.userOrder, section)
	return nil
}

// Cancel throws the dataset away.
func (a *Assembler) Cancel() error {
	if !a.finished {
		a.finished = true
		a.metrics.Finish(metrics.StatusCancelled, nil)
	}
	return a.cleanup()
}

// Close removes the work folder. Closing an assembler that was neither
// done nor cancelled gives a warning.
func (a *Assembler) Close() error {
	if !a.finished {
		a.warn("closing assembler without finishing. Either call Done() or Cancel() before closing")
		a.finished = true
		a.metrics.Finish(metrics.StatusCancelled, nil)
	}
	return a.cleanup()
}

func (a *Assembler) cleanup() error {
	if a.workDir == "" {
		return nil
	}
	dir := a.workDir
	a.workDir = ""
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
