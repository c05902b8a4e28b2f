package main

import (
	"fmt"

	"github.com/nci/eodatasets/mas/index"
	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/names"
	"github.com/nci/eodatasets/serialise"
	"github.com/nci/eodatasets/utils"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

var indexCmd = &cobra.Command{
	Use:   "index <metadata_file>...",
	Short: "Publish dataset documents to the metadata index",
	Long: `Index adds EO3 metadata documents to the metadata index database, replacing
earlier entries of the same dataset id. The table is created if needed.

Examples:
  eo3-package index --dsn "host=/var/run/postgresql dbname=mas" \
    /g/data/ard/ga_ls8c_ard_3/090/084/2020/01/01/*.odc-metadata.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

var indexFlags struct {
	dsn     string
	table   string
	workers int
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringVar(&indexFlags.dsn, "dsn", "",
		"Postgres connection string (default: mas.dsn from the config)")
	indexCmd.Flags().StringVar(&indexFlags.table, "table", "",
		"index table (default: mas.table from the config)")
	indexCmd.Flags().IntVar(&indexFlags.workers, "workers", 4,
		"documents published at once")
}

type documentPublisher interface {
	Publish(ctx context.Context, doc *model.DatasetDoc, uri string) error
}

// publishDocument publishes doc under the URI of its metadata file.
func publishDocument(ctx context.Context, p documentPublisher, doc *model.DatasetDoc, metadataPath string) error {
	uri, err := names.AsURI(metadataPath)
	if err != nil {
		return err
	}
	return p.Publish(ctx, doc, uri)
}

// indexFiles reads and publishes the documents at paths, workers at a
// time.
func indexFiles(ctx context.Context, p documentPublisher, paths []string, workers int) error {
	limiter := utils.NewConcLimiter(workers)
	for _, path := range paths {
		path := path
		limiter.Go(func() error {
			doc, err := serialise.FromPath(path)
			if err != nil {
				return fmt.Errorf("%s: %v", path, err)
			}
			return publishDocument(ctx, p, doc, path)
		})
	}
	return limiter.Wait()
}

func runIndex(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	if indexFlags.dsn != "" {
		config.MAS.DSN = indexFlags.dsn
	}
	if indexFlags.table != "" {
		config.MAS.Table = indexFlags.table
	}
	if config.MAS.DSN == "" {
		return fmt.Errorf("no index database: use --dsn, or set mas.dsn in the config file")
	}

	publisher, err := index.Open(config.MAS.DSN, config.MAS.Table)
	if err != nil {
		return err
	}
	defer publisher.Close()

	ctx := cmd.Context()
	if err := publisher.Init(ctx); err != nil {
		return err
	}
	publisher.DB.SetMaxOpenConns(indexFlags.workers)
	if err := indexFiles(ctx, publisher, args, indexFlags.workers); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d datasets\n", len(args))
	return nil
}
