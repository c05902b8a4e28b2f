package names

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// HasScheme reports whether location is a URI rather than a local path.
func HasScheme(location string) bool {
	return schemePattern.MatchString(location)
}

// AsURI turns a local path into a URI, leaving URIs unchanged. Tar and zip
// archives become "tar:" and "zip:" locations of the archive's contents.
func AsURI(location string) (string, error) {
	if location == "" || HasScheme(location) {
		return location, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", err
	}
	abs = filepath.ToSlash(abs)
	switch {
	case strings.HasSuffix(abs, ".tar"), strings.HasSuffix(abs, ".tar.gz"), strings.HasSuffix(abs, ".tgz"):
		return "tar:" + abs + "!/", nil
	case strings.HasSuffix(abs, ".zip"):
		return "zip:" + abs + "!/", nil
	}
	u := url.URL{Scheme: "file", Path: abs}
	if strings.HasSuffix(location, "/") {
		u.Path += "/"
	}
	return u.String(), nil
}

// ResolveFile joins a relative offset to a location. A location not
// ending in "/" is a file, and the offset is taken as its sibling.
// Absolute offsets are returned unchanged. The location's scheme is kept,
// so tar: and zip: locations resolve to files inside the archive.
func ResolveFile(location, offset string) (string, error) {
	if HasScheme(offset) {
		return offset, nil
	}
	if location == "" {
		return "", fmt.Errorf("cannot resolve %q without a location", offset)
	}
	if strings.HasPrefix(offset, "/") {
		return "", fmt.Errorf("offset %q is an absolute path, expected a path relative to %s", offset, location)
	}
	clean := path.Clean(offset)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("offset %q is outside of %s", offset, location)
	}
	base := location[:strings.LastIndex(location, "/")+1]
	if clean == "." {
		return base, nil
	}
	if strings.HasSuffix(offset, "/") {
		clean += "/"
	}
	return base + clean, nil
}

// LocalPath returns the filesystem path of a file:// location.
func LocalPath(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%s is not a local file:// location", location)
	}
	return filepath.FromSlash(u.Path), nil
}

// Relative returns the offset of uri inside the folder location, or false
// if it is not inside it.
func Relative(location, uri string) (string, bool) {
	base := location[:strings.LastIndex(location, "/")+1]
	if base == "" || !strings.HasPrefix(uri, base) || uri == base {
		return "", false
	}
	return uri[len(base):], true
}

// SetCollection sets the collection prefix from a URI or a local path.
func (n *Namer) SetCollection(location string) error {
	uri, err := AsURI(location)
	if err != nil {
		return err
	}
	n.CollectionPrefix = uri
	return nil
}

// SetDatasetLocation fixes where the dataset is, from a URI or a local
// path.
func (n *Namer) SetDatasetLocation(location string) error {
	uri, err := AsURI(location)
	if err != nil {
		return err
	}
	n.Set(DatasetLocation, uri)
	return nil
}

// ResolveFile is the URI of a file in the dataset.
func (n *Namer) ResolveFile(offset string) (string, error) {
	location, err := n.Get(DatasetLocation)
	if err != nil {
		return "", err
	}
	return ResolveFile(location, offset)
}

// ResolvePath is the local path of a file in the dataset. The dataset
// location must be a file:// URI.
func (n *Namer) ResolvePath(offset string) (string, error) {
	uri, err := n.ResolveFile(offset)
	if err != nil {
		return "", err
	}
	return LocalPath(uri)
}

// DatasetPath is the local folder of the dataset.
func (n *Namer) DatasetPath() (string, error) {
	location, err := n.Get(DatasetLocation)
	if err != nil {
		return "", err
	}
	p, err := LocalPath(location[:strings.LastIndex(location, "/")+1])
	if err != nil {
		return "", err
	}
	return filepath.Clean(p), nil
}

// CollectionPath is the local folder of the collection.
func (n *Namer) CollectionPath() (string, error) {
	if n.CollectionPrefix == "" {
		return "", fmt.Errorf("no collection prefix given")
	}
	p, err := LocalPath(n.CollectionPrefix)
	if err != nil {
		return "", err
	}
	return filepath.Clean(p), nil
}

// MetadataPath is the URI of the metadata file.
func (n *Namer) MetadataPath() (string, error) {
	meta, err := n.Get(MetadataFile)
	if err != nil {
		return "", err
	}
	return n.ResolveFile(meta)
}

// Locatable fails unless the dataset can be given a location: a collection
// prefix, a dataset location or an absolute metadata file must be set.
func (n *Namer) Locatable() error {
	if n.CollectionPrefix != "" || n.IsSet(DatasetLocation) {
		return nil
	}
	if n.IsSet(MetadataFile) && HasScheme(n.overrides[MetadataFile]) {
		return nil
	}
	return fmt.Errorf("a collection prefix, dataset location or absolute metadata file is needed to place the dataset")
}
