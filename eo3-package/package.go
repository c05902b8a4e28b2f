package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/assemble"
	"github.com/nci/eodatasets/crawl/extractor"
	"github.com/nci/eodatasets/gdalio"
	"github.com/nci/eodatasets/images"
	"github.com/nci/eodatasets/mas/index"
	"github.com/nci/eodatasets/metrics"
	"github.com/nci/eodatasets/utils"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Assemble a dataset from its properties and measurements",
	Long: `Package assembles one dataset.

With --collection, measurements are copied into a new package folder under
the collection as tiled GeoTIFFs, and the package gets a metadata document,
a checksum file and a processing-info file.

With --metadata-path, only a metadata document is written, referencing
the measurements where they are.

Measurements are given as name=path, or name=path#layer for a layer of a
multi-variable file, or found with --find.

Examples:
  eo3-package package --properties props.yaml --collection /g/data/ard \
    --measurement blue=B2.TIF --measurement green=B3.TIF

  eo3-package package -p odc:product_family=fc -p datetime=2019-05-01 \
    -p eo:platform=landsat-8 --metadata-path /data/fc/fc.odc-metadata.yaml \
    --find /data/fc --glob '**/*_B*.TIF' --filter 'band != "qa"'`,
	Args: cobra.NoArgs,
	RunE: runPackage,
}

type packageFlagValues struct {
	properties   string
	assignments  []string
	collection   string
	metadataPath string
	measurements []string
	findRoot     string
	glob         string
	filter       string
	dataType     string
	datasetID    string
	label        string
	sources      []string
	conventions  string
	thorough     bool
	filled       bool
	skipExisting bool
	absolute     bool
	publish      bool
}

var packageFlags packageFlagValues

func init() {
	rootCmd.AddCommand(packageCmd)

	f := packageCmd.Flags()
	f.StringVar(&packageFlags.properties, "properties", "", "YAML file of dataset properties")
	f.StringArrayVarP(&packageFlags.assignments, "property", "p", nil,
		"a property as key=value (can be given multiple times)")
	f.StringVar(&packageFlags.collection, "collection", "",
		"collection folder to write the package under (default: from the config)")
	f.StringVar(&packageFlags.metadataPath, "metadata-path", "",
		"write only a metadata document at this path")
	f.StringArrayVarP(&packageFlags.measurements, "measurement", "m", nil,
		"a measurement as name=path or name=path#layer (can be given multiple times)")
	f.StringVar(&packageFlags.findRoot, "find", "", "folder to find measurement files in")
	f.StringVar(&packageFlags.glob, "glob", "**/*.tif", "pattern of the files --find picks up")
	f.StringVar(&packageFlags.filter, "filter", "",
		"expression over path, name and band that found files must satisfy")
	f.StringVar(&packageFlags.dataType, "dtype", "Int16", "GDAL data type of copied measurements")
	f.StringVar(&packageFlags.datasetID, "id", "", "dataset id (default: a new random id)")
	f.StringVar(&packageFlags.label, "label", "", "dataset label (default: from the naming conventions)")
	f.StringArrayVar(&packageFlags.sources, "source", nil,
		"a source dataset as classifier=metadata-path (can be given multiple times)")
	f.StringVar(&packageFlags.conventions, "conventions", "",
		"naming conventions (default: from the config, or \"default\")")
	f.BoolVar(&packageFlags.thorough, "thorough", false,
		"valid data is the simplified convex hull of the valid pixels (default: from the config)")
	f.BoolVar(&packageFlags.filled, "filled", false, "valid data is the exact outline of the valid pixels")
	f.BoolVar(&packageFlags.skipExisting, "skip-existing", false, "do nothing if the dataset already exists")
	f.BoolVar(&packageFlags.absolute, "allow-absolute-paths", false,
		"allow measurements outside the dataset folder")
	f.BoolVar(&packageFlags.publish, "index", false, "publish the finished dataset to the metadata index")
}

type measurementArg struct {
	name, path, layer string
}

// parseMeasurements reads name=path[#layer] arguments, sorted by name.
func parseMeasurements(args []string) ([]measurementArg, error) {
	values, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	out := make([]measurementArg, 0, len(values))
	for name, path := range values {
		m := measurementArg{name: name, path: path}
		if idx := strings.LastIndex(path, "#"); idx >= 0 {
			m.path, m.layer = path[:idx], path[idx+1:]
		}
		if m.path == "" {
			return nil, fmt.Errorf("measurement %q has no path", name)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

func findMeasurements(root, glob, filter string) ([]measurementArg, error) {
	files, err := extractor.FindMeasurements(root, glob, filter)
	if err != nil {
		return nil, err
	}
	out := make([]measurementArg, 0, len(files))
	for _, f := range files {
		out = append(out, measurementArg{name: f.Band, path: f.Path})
	}
	return out, nil
}

func validDataMethod(config *utils.Config, thorough, filled bool) (images.ValidDataMethod, error) {
	switch {
	case thorough && filled:
		return 0, fmt.Errorf("--thorough and --filled are exclusive")
	case thorough:
		return images.Thorough, nil
	case filled:
		return images.Filled, nil
	}
	return config.ValidData(), nil
}

func metricsLogger(config *utils.Config) (metrics.Logger, func()) {
	m := config.Metrics
	if m.Disabled {
		return nil, func() {}
	}
	if m.LogDir == "" {
		return metrics.NewStdoutLogger(), func() {}
	}
	l := metrics.NewFileLogger(m.LogDir, m.MaxLogFileSize, m.MaxLogFiles, m.Verbose)
	return l, l.Close
}

func runPackage(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	flags := packageFlags

	if flags.conventions != "" {
		config.Conventions = flags.conventions
	}
	conventions, err := config.NamingConventions()
	if err != nil {
		return err
	}
	method, err := validDataMethod(config, flags.thorough, flags.filled)
	if err != nil {
		return err
	}
	existing := assemble.ThrowError
	if flags.skipExisting || config.SkipExisting {
		existing = assemble.Skip
	}

	measurements, err := parseMeasurements(flags.measurements)
	if err != nil {
		return err
	}
	if flags.findRoot != "" {
		found, err := findMeasurements(flags.findRoot, flags.glob, flags.filter)
		if err != nil {
			return err
		}
		measurements = append(measurements, found...)
	}
	if len(measurements) == 0 {
		return fmt.Errorf("no measurements given: use --measurement or --find")
	}

	opts := assemble.Options{
		MetadataPath:       flags.metadataPath,
		IfExists:           existing,
		AllowAbsolutePaths: flags.absolute || config.AllowAbsolutePaths,
		Conventions:        conventions,
		ValidDataMethod:    method,
		Reader:             gdalio.NewReader(),
		Warner:             warner(cmd),
		Collectors:         metrics.NewCollectors(nil),
	}
	if flags.metadataPath == "" {
		opts.Collection = flags.collection
		if opts.Collection == "" {
			opts.Collection = config.Collection
		}
	}
	if flags.datasetID != "" {
		if opts.DatasetID, err = uuid.Parse(flags.datasetID); err != nil {
			return fmt.Errorf("dataset id: %v", err)
		}
	}
	logger, closeLogger := metricsLogger(config)
	defer closeLogger()
	opts.MetricsLogger = logger

	a, err := assemble.New(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fillDataset(a, flags, measurements, opts.Collection != ""); err != nil {
		a.Cancel()
		return err
	}

	result, err := a.Done()
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "skipped existing dataset %s\n", result.MetadataPath)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", result.ID, result.MetadataPath)

	if !flags.publish {
		return nil
	}
	return publish(cmd.Context(), config, result)
}

func fillDataset(a *assemble.Assembler, flags packageFlagValues, measurements []measurementArg, copyFiles bool) error {
	if err := setProperties(a.Properties, flags.properties, flags.assignments); err != nil {
		return err
	}
	if flags.label != "" {
		a.SetLabel(flags.label)
	}

	sources, err := parseAssignments(flags.sources)
	if err != nil {
		return err
	}
	classifiers := make([]string, 0, len(sources))
	for classifier := range sources {
		classifiers = append(classifiers, classifier)
	}
	sort.Strings(classifiers)
	for _, classifier := range classifiers {
		if err := a.AddSourcePath(sources[classifier], classifier, false); err != nil {
			return err
		}
	}

	// Lone metadata documents reference the files in place.
	var writer images.ImageWriter
	if copyFiles {
		writer = gdalio.NewGTiffWriter(flags.dataType)
	}
	for _, m := range measurements {
		if writer != nil {
			err = a.WriteMeasurementFrom(m.name, m.path, m.layer, writer, false)
		} else {
			err = a.NoteMeasurement(m.name, m.path, m.layer, false)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func publish(ctx context.Context, config *utils.Config, result *assemble.Result) error {
	if config.MAS.DSN == "" {
		return fmt.Errorf("no index database: set mas.dsn in the config file or %s", utils.EnvMASDSN)
	}
	publisher, err := index.Open(config.MAS.DSN, config.MAS.Table)
	if err != nil {
		return err
	}
	defer publisher.Close()
	if err := publisher.Init(ctx); err != nil {
		return err
	}
	return publishDocument(ctx, publisher, result.Doc, result.MetadataPath)
}
