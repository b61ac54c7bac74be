// Command forestnav decodes StanForD PRI harvester production files,
// keeps the decoded datasets in a local store and exports them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"forestnav/internal/config"
	"forestnav/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	configPath string
	verbose    bool

	// Shared state, set up before every command runs
	cfg    *config.Config
	logger *zap.Logger
	app    *App
)

var rootCmd = &cobra.Command{
	Use:   "forestnav",
	Short: "Decode and analyse StanForD PRI harvester files",
	Long: `forestnav reads StanForD PRI production files written by forest harvesters.

It decodes the variable stream into tree and log tables, resolves the
columns to their meaning, computes distributions and exports the tables
to SQL databases, MongoDB or CSV.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config %s: %w", configPath, err)
		}

		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}

		app = newApp(cfg, logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		parseCmd,
		rawCmd,
		showCmd,
		statsCmd,
		histCmd,
		speciesCmd,
		ingestCmd,
		datasetsCmd,
		exportCmd,
		watchCmd,
		mcpCmd,
	)
}

// execute runs the command line and releases what the command opened,
// whether it succeeded or not.
func execute() error {
	err := rootCmd.Execute()
	if app != nil {
		app.Close()
		app = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
	return err
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
