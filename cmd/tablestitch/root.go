package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"table-stitcher/internal/config"
	"table-stitcher/internal/version"
)

var (
	cfgFile string

	loader = config.NewLoader()

	// Set by the root command before any subcommand runs
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tablestitch",
	Short: "Detect and merge tables split across page breaks",
	Long: `tablestitch finds tables that a page break has cut in two, using the
output of a page-layout detector and the rendered page images.

Candidate pairs (a table at the bottom of page p, a table at the top of
page p+1) are filtered on geometry, then validated by comparing the column
separators of both halves. Accepted pairs are stitched into one image.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loader.Load(cfgFile)
		if err != nil {
			return err
		}
		l, err := c.Log.NewLogger(os.Stderr)
		if err != nil {
			return err
		}
		cfg, logger = c, l
		slog.SetDefault(l)

		logger.Debug("starting", "version", version.String(), "config", loader.ConfigFileUsed())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./tablestitch.yaml or ~/.tablestitch/tablestitch.yaml)",
	)
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")

	mustBind("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBind("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(detectCmd, mergeCmd, configCmd, versionCmd)
}
