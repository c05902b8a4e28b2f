package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/images"
	"github.com/nci/eodatasets/metrics"
	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/names"
	"github.com/nci/eodatasets/serialise"
	"github.com/nci/eodatasets/validate"
	"gopkg.in/yaml.v2"
)

// Result is a finished dataset.
type Result struct {
	ID           uuid.UUID
	MetadataPath string
	// Skipped is set when the dataset already existed and IfExists is
	// Skip. Nothing was written.
	Skipped bool
	Doc     *model.DatasetDoc
}

// Done validates the dataset, writes its metadata and moves the package
// into place. The assembler cannot be used afterwards; after an error,
// Close removes the work folder.
func (a *Assembler) Done() (*Result, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	// Valid data masks are consumed on the way, so there is no second try.
	a.finished = true
	res, err := a.done()
	if err != nil {
		a.metrics.Finish("", err)
		return nil, err
	}
	if res.Skipped {
		a.metrics.Finish(metrics.StatusSkipped, nil)
	} else {
		a.metrics.Finish(metrics.StatusDone, nil)
	}
	return res, nil
}

func (a *Assembler) done() (*Result, error) {
	if err := a.NoteSoftwareVersion(SoftwareName, SoftwareURL, Version); err != nil {
		return nil, err
	}

	var destination string
	if a.opts.Collection != "" {
		var err error
		if destination, err = a.Names.DatasetPath(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(destination); err == nil {
			return a.exists(destination)
		}
	}

	var checksumPath, procInfoPath string
	packageDir := a.baseDir
	if a.opts.Collection != "" {
		var err error
		if packageDir, err = a.work(); err != nil {
			return nil, err
		}
		checksumFile, err := a.Names.ChecksumFile()
		if err != nil {
			return nil, err
		}
		procInfoFile, err := a.Names.ProcInfoFile()
		if err != nil {
			return nil, err
		}
		checksumPath = filepath.Join(packageDir, checksumFile)
		procInfoPath = filepath.Join(packageDir, procInfoFile)
		if err := a.AddAccessoryFile("checksum:sha1", checksumPath); err != nil {
			return nil, err
		}
		if err := a.AddAccessoryFile("metadata:processor", procInfoPath); err != nil {
			return nil, err
		}
	}

	doc, err := a.document(packageDir)
	if err != nil {
		return nil, err
	}

	msgs := validate.Dataset(doc, validate.Options{AllowAbsolutePaths: a.opts.AllowAbsolutePaths})
	if errs := validate.Errors(msgs); len(errs) > 0 {
		return nil, &IncompleteDatasetError{Messages: errs}
	}
	for _, m := range msgs {
		a.warn("%s: %s", m.Level, m)
	}

	if a.opts.Collection == "" {
		metadataPath, err := filepath.Abs(a.opts.MetadataPath)
		if err != nil {
			return nil, err
		}
		if err := serialise.ToPath(metadataPath, doc); err != nil {
			return nil, err
		}
		return &Result{ID: a.ID, MetadataPath: metadataPath, Doc: doc}, nil
	}

	metadataFile, err := a.Names.MetadataFile()
	if err != nil {
		return nil, err
	}
	if err := serialise.ToPath(filepath.Join(packageDir, metadataFile), doc); err != nil {
		return nil, err
	}
	if err := a.addFile(filepath.Join(packageDir, metadataFile)); err != nil {
		return nil, err
	}
	if err := a.writeProcInfo(procInfoPath); err != nil {
		return nil, err
	}
	if err := a.addFile(procInfoPath); err != nil {
		return nil, err
	}
	if err := a.checksum.Write(checksumPath); err != nil {
		return nil, err
	}
	a.metrics.Info.NumFiles = a.checksum.Len() + 1
	a.metrics.Info.BytesWritten = a.written

	if err := a.finishPackage(packageDir); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return nil, err
	}
	if err := os.Rename(packageDir, destination); err != nil {
		// Someone else may have made it while we worked.
		if _, statErr := os.Stat(destination); statErr == nil {
			return a.exists(destination)
		}
		return nil, err
	}
	a.workDir = ""
	return &Result{ID: a.ID, MetadataPath: filepath.Join(destination, metadataFile), Doc: doc}, nil
}

func (a *Assembler) exists(destination string) (*Result, error) {
	if a.opts.IfExists == Skip {
		a.warn("skipping, dataset exists: %s", destination)
		if err := a.cleanup(); err != nil {
			return nil, err
		}
		return &Result{ID: a.ID, Skipped: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, destination)
}

// finishPackage matches the permissions of the work folder to the
// collection, and removes any GDAL .aux.xml side files.
func (a *Assembler) finishPackage(dir string) error {
	info, err := os.Stat(a.baseDir)
	if err != nil {
		return err
	}
	if err := os.Chmod(dir, info.Mode().Perm()); err != nil {
		return err
	}
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".aux.xml") {
			a.warn("cleaning unexpected gdal aux file %s", path)
			return os.Remove(path)
		}
		return nil
	})
}

// document builds the dataset document with paths relative to dir.
func (a *Assembler) document(dir string) (*model.DatasetDoc, error) {
	doc := model.NewDatasetDoc()
	doc.ID = a.ID
	doc.Properties = a.Properties

	var err error
	if doc.Label, err = a.Names.DatasetLabel(); err != nil {
		return nil, err
	}
	if doc.Product.Name, err = a.Names.ProductName(); err != nil {
		return nil, err
	}
	if doc.Product.Href, err = a.Names.ProductURI(); err != nil {
		return nil, err
	}

	crs, grids, measurements, err := a.record.AsGeoDocs()
	if err != nil && !errors.Is(err, images.ErrNoMeasurements) {
		return nil, err
	}
	a.metrics.Info.NumMeasurements = len(measurements)
	a.metrics.Info.NumGrids = len(grids)

	if grids != nil {
		doc.Grids = grids
	}
	for name, m := range measurements {
		if m.Path, err = a.relative(dir, m.Path); err != nil {
			return nil, fmt.Errorf("measurement %q: %v", name, err)
		}
		doc.Measurements[name] = m
	}
	doc.CRS = crs

	doc.Geometry = a.record.ConsumeAndGetValidData(a.opts.ValidDataMethod)
	switch {
	case a.geometry == nil:
	case doc.Geometry == nil:
		doc.Geometry = a.geometry
		if doc.CRS == "" {
			doc.CRS = a.geometryCRS
		}
	default:
		a.warn("overriding the geometry inherited from a source dataset with the valid data of the measurements")
	}
	if doc.Geometry != nil {
		a.metrics.SetGeometry(doc.Geometry, doc.CRS)
	}

	for name, path := range a.accessory {
		rel, err := a.relative(dir, path)
		if err != nil {
			return nil, fmt.Errorf("accessory %q: %v", name, err)
		}
		doc.Accessories[name] = model.AccessoryDoc{Path: rel, Name: name}
	}
	for classifier, ids := range a.lineage {
		doc.Lineage[classifier] = append([]uuid.UUID(nil), ids...)
	}

	if a.opts.EmbedLocation {
		location, err := a.Names.MetadataPath()
		if err != nil {
			return nil, err
		}
		doc.Locations = []string{location}
	}

	a.metrics.Info.Label = doc.Label
	a.metrics.Info.Product = doc.Product.Name
	if location, err := a.Names.DatasetLocation(); err == nil {
		a.metrics.Info.Location = location
	}
	return doc, nil
}

// relative makes path relative to dir. Paths outside of dir are kept
// absolute if that is allowed.
func (a *Assembler) relative(dir, path string) (string, error) {
	if names.HasScheme(path) {
		if a.opts.AllowAbsolutePaths {
			return path, nil
		}
		return "", fmt.Errorf("%s is not inside %s", path, dir)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		if a.opts.AllowAbsolutePaths {
			return path, nil
		}
		return "", fmt.Errorf("path %s is outside %s (absolute paths are not allowed)", path, dir)
	}
	return filepath.ToSlash(rel), nil
}

func (a *Assembler) writeProcInfo(path string) error {
	doc := yaml.MapSlice{}
	for _, section := range a.userOrder {
		doc = append(doc, yaml.MapItem{Key: section, Value: a.userMeta[section]})
	}
	versions := make([]yaml.MapSlice, len(a.software))
	for i, v := range a.software {
		versions[i] = yaml.MapSlice{
			{Key: "name", Value: v.Name},
			{Key: "url", Value: v.URL},
			{Key: "version", Value: v.Version},
		}
	}
	doc = append(doc, yaml.MapItem{Key: "software_versions", Value: versions})

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(out)
	return ioutil.WriteFile(path, buf.Bytes(), 0644)
}
