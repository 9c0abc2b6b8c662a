package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voxelprep/pkg/config"
	"voxelprep/pkg/errors"
	"voxelprep/pkg/logging"
)

var (
	configPath   string
	verboseFlag  bool
	closeLogging = func() error { return nil }
	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "voxelprep",
	Short: "Lazy loading and augmentation of volumetric training subjects",
	Long: `voxelprep - Lazy subject loading for volumetric deep learning pipelines.

Subjects are described in a YAML manifest. Each subject points at one HDF5,
NetCDF or detached-header container and lists the channels to read from it.
Containers are only opened when a subject is materialized.

Examples:
  voxelprep init-config voxelprep.yaml           # Write a commented default config
  voxelprep inspect -c voxelprep.yaml            # Materialize and augment every subject
  voxelprep preview -c voxelprep.yaml -s 0 -k label --axis z --out slices/`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init-config" {
			return nil
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		if verboseFlag {
			cfg.Logging.Verbose = true
		}
		logger, closer, err := logging.New(cfg.Logging)
		if err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logging.Set(logger)
		closeLogging = closer
		loadedConfig = cfg
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "voxelprep.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
