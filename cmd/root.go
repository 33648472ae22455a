// Package cmd implements the calpipe CLI: a thin wrapper that loads the
// configuration, builds a pipeline and invokes it over an input path.
package cmd

import (
	"github.com/spf13/cobra"

	errUtils "github.com/stellarops/calpipe/errors"
	"github.com/stellarops/calpipe/pkg/config"
	log "github.com/stellarops/calpipe/pkg/logger"
	"github.com/stellarops/calpipe/pkg/schema"
)

// pipelineConfig is loaded once in PersistentPreRunE and shared by subcommands.
var pipelineConfig *schema.Configuration

// RootCmd is the base command for the calpipe CLI.
var RootCmd = &cobra.Command{
	Use:           "calpipe",
	Short:         "Calibration pipeline for batches of astronomical exposures",
	Long:          `calpipe runs calibration steps over single exposures or associations of exposures, with exclusive per-member access, reference-data resolution and provenance stamping.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pipelineConfig = cfg

		level, err := log.ParseLevel(cfg.Logs.Level)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := RootCmd.Execute(); err != nil {
		errUtils.CheckErrorAndPrint(err)
		return errUtils.GetExitCode(err)
	}
	return 0
}
