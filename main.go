package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/pkg/logger"
	"github.com/spf13/cobra"
)

// Set by the linker
var (
	version = "dev"
	commit  = "none"
)

var configPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contractlens",
		Short: "Contract risk analysis front end",
		Long: `ContractLens serves the contract analysis screens: upload a PDF or DOCX,
follow the analysis, and review the risk dashboard and contract library.

Analysis itself is done by a separate HTTP service.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig reads the config file and initializes logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.Info("configuration loaded successfully", "path", configPath)
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "contractlens %s (%s)\n", displayVersion, commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	}
}
