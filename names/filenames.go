package names

import "strings"

// fileID is the part of a filename between the label and the suffix.
func fileID(id string) string {
	if id == "" {
		return ""
	}
	return "_" + strings.ReplaceAll(id, "_", "-")
}

// Filename makes a file name from the dataset label:
// "{label}_{file id}.{suffix}", or "{label}.{suffix}" without an id.
// Underscores in the id become dashes, so every name is a sibling of the
// metadata file that can be parsed back.
func (n *Namer) Filename(id, suffix string) (string, error) {
	label, err := n.Get(DatasetLabel)
	if err != nil {
		return "", err
	}
	return label + fileID(id) + "." + suffix, nil
}

// MetadataFilename is the metadata file, or a sidecar metadata file of
// the given kind.
func (n *Namer) MetadataFilename(kind string) (string, error) {
	if kind == "" {
		return n.Get(MetadataFile)
	}
	return n.Filename(kind, "yaml")
}

// MeasurementFilename names the file of a measurement. The id, if given,
// replaces the measurement name in the file name (eg. "band01" rather
// than "red"). The suffix defaults to "tif".
func (n *Namer) MeasurementFilename(measurement, suffix, id string) (string, error) {
	if suffix == "" {
		suffix = "tif"
	}
	if id == "" {
		id = strings.ReplaceAll(measurement, ":", "_")
	}
	return n.Filename(id, suffix)
}

// ThumbnailFilename names a thumbnail, optionally of one kind such as
// "nbart". The suffix defaults to "jpg".
func (n *Namer) ThumbnailFilename(kind, suffix string) (string, error) {
	if suffix == "" {
		suffix = "jpg"
	}
	name := "thumbnail"
	if kind != "" {
		name = kind + ":thumbnail"
	}
	return n.MeasurementFilename(name, suffix, "")
}

// ParseFilename splits a file name made by Filename back into its id and
// suffix. Ids come back with dashes in place of underscores.
func ParseFilename(label, filename string) (id, suffix string, ok bool) {
	if !strings.HasPrefix(filename, label) {
		return "", "", false
	}
	rest := filename[len(label):]
	switch {
	case strings.HasPrefix(rest, "."):
		return "", rest[1:], len(rest) > 1
	case strings.HasPrefix(rest, "_"):
		dot := strings.Index(rest, ".")
		if dot < 2 || dot == len(rest)-1 {
			return "", "", false
		}
		return rest[1:dot], rest[dot+1:], true
	}
	return "", "", false
}
