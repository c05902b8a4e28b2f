package main

import (
	"fmt"
	"io"

	"github.com/nci/eodatasets/names"
	"github.com/nci/eodatasets/properties"
	"github.com/spf13/cobra"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Print the names a dataset would be given",
	Long: `Names prints every name derived for a dataset with the given properties:
product name, label, folders, file names and locations.

Examples:
  eo3-package names -p eo:platform=landsat-8 -p eo:instrument=OLI_TIRS \
    -p odc:product_family=ard -p datetime=2020-01-01T00:00:00Z \
    -p odc:region_code=090084 --conventions dea

  eo3-package names --properties props.yaml --collection s3://bucket/collection/`,
	Args: cobra.NoArgs,
	RunE: runNames,
}

type namesFlagValues struct {
	conventions string
	properties  string
	assignments []string
	collection  string
}

var namesFlags namesFlagValues

func init() {
	rootCmd.AddCommand(namesCmd)

	namesCmd.Flags().StringVar(&namesFlags.conventions, "conventions", "",
		"naming conventions (default: from the config, or \"default\")")
	namesCmd.Flags().StringVar(&namesFlags.properties, "properties", "",
		"YAML file of dataset properties")
	namesCmd.Flags().StringArrayVarP(&namesFlags.assignments, "property", "p", nil,
		"a property as key=value (can be given multiple times)")
	namesCmd.Flags().StringVar(&namesFlags.collection, "collection", "",
		"collection location, to print the dataset location and metadata URI")
}

func runNames(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	if namesFlags.conventions != "" {
		config.Conventions = namesFlags.conventions
	}
	conventions, err := config.NamingConventions()
	if err != nil {
		return err
	}

	props := properties.NewWithFields(properties.KnownFields(), warner(cmd))
	if err := setProperties(props, namesFlags.properties, namesFlags.assignments); err != nil {
		return err
	}

	n := names.New(conventions, props)
	collection := namesFlags.collection
	if collection == "" {
		collection = config.Collection
	}
	if collection != "" {
		if err := n.SetCollection(collection); err != nil {
			return err
		}
	}
	return printNames(cmd.OutOrStdout(), n)
}

// printNames writes every derivable name as "field: value". It fails
// with the first field that could not be derived, after printing the
// rest. Without a collection there is no location to print.
func printNames(w io.Writer, n *names.Namer) error {
	var first error
	for _, f := range names.Fields() {
		v, err := n.Get(f)
		if err != nil {
			if f == names.DatasetLocation && n.CollectionPrefix == "" {
				continue
			}
			if first == nil {
				first = fmt.Errorf("%s: %v", f, err)
			}
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", f, v)
	}
	return first
}
