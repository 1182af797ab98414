package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
)

var (
	cfgFile string
	debug   bool
)

// NewRootCmd builds the leafletscan command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "leafletscan",
		Short:         "Scan store leaflets for a keyword",
		Long:          "leafletscan discovers current store leaflets, recognizes the text on each page image, caches results, and reports pages mentioning a keyword.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./leaflet.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(exportCmd())
	return rootCmd
}

// setupLogger installs the process-wide JSON logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func loadConfig() (common.Config, error) {
	return common.LoadConfig(cfgFile)
}
