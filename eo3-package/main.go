package main

import (
	"os"

	"github.com/nci/eodatasets/utils"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eo3-package",
	Short: "Assemble EO3 datasets",
	Long: `eo3-package assembles EO3 dataset packages: it names them following an
organisation's conventions, records their measurements and valid-data
geometry, writes their metadata documents and checksums, and publishes
finished datasets to the metadata index.

Settings are read from eo3.yaml (or eo3.json) on the --etc search path,
then from .env files, then from EO3_* environment variables.`,
	SilenceUsage: true,
}

var rootFlags struct {
	configFile string
	etcDir     string
	envFiles   []string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "",
		"config file (default: eo3.yaml on the etc dir)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.etcDir, "etc", ".",
		"colon separated config search path")
	rootCmd.PersistentFlags().StringSliceVar(&rootFlags.envFiles, "env-file", nil,
		".env files read before the process environment (default: .env)")
}

func loadConfig() (*utils.Config, error) {
	utils.EtcDir = rootFlags.etcDir
	configFile := rootFlags.configFile
	if configFile == "" {
		configFile = utils.FindConfigFile()
	}
	return utils.LoadConfig(configFile, rootFlags.envFiles...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
