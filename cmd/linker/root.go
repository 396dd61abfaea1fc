package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/wellness-api/internal/config"
	"github.com/jwalitptl/wellness-api/pkg/logger"
)

var (
	cfgDir string
)

var rootCmd = &cobra.Command{
	Use:   "linker",
	Short: "Staff tooling for the wellness admin API.",
	Long: `Links submitted intake forms to existing patients and issues staff tokens.
Run "preview" first to see what "apply" would link.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "directory containing config.yml")

	rootCmd.AddCommand(newLinkCommand("preview", "Show which intakes would be linked", false))
	rootCmd.AddCommand(newLinkCommand("apply", "Link every matched intake to its patient", true))
	rootCmd.AddCommand(newTokenCommand())
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	var paths []string
	if cfgDir != "" {
		paths = append(paths, cfgDir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewLogger(cfg.Log.ToLoggerConfig("wellness-linker")), nil
}
