package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	errUtils "github.com/stellarops/calpipe/errors"
	"github.com/stellarops/calpipe/pkg/crds"
	"github.com/stellarops/calpipe/pkg/flatfield"
	"github.com/stellarops/calpipe/pkg/flux"
	log "github.com/stellarops/calpipe/pkg/logger"
	"github.com/stellarops/calpipe/pkg/stpipe"
)

var stepNames string

// stepRegistry maps step names accepted on the command line to implementations.
var stepRegistry = map[string]stpipe.Step{
	"flux":      flux.Step{},
	"flatfield": flatfield.Step{},
}

var runCmd = &cobra.Command{
	Use:     "run <input>",
	Short:   "Run calibration steps over an exposure or association",
	Long:    `Runs the selected calibration steps, in order, over a single exposure file or an association manifest (.json). Modified members are persisted on completion; unmodified members are left untouched.`,
	Example: "calpipe run observation_asn.json --steps flux,flatfield",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := resolveSteps(stepNames)
		if err != nil {
			return err
		}

		client, err := crds.NewClient(pipelineConfig.CRDS)
		if err != nil {
			return err
		}

		runner := stpipe.NewRunner(client)
		pipeline := stpipe.NewPipeline("calpipe", steps...)

		target, err := runner.OpenInput(args[0])
		if err != nil {
			return err
		}
		defer func() {
			if cerr := target.Close(); cerr != nil {
				log.Error("failed to close input", "error", cerr)
			}
		}()

		result, err := runner.Call(pipeline, target)
		if err != nil {
			return err
		}

		if result.IsLibrary() {
			log.Info("pipeline complete", "members", result.Library.Len())
		} else {
			log.Info("pipeline complete", "file", result.Model.Meta.Filename)
		}
		return nil
	},
}

func resolveSteps(names string) ([]stpipe.Step, error) {
	var steps []stpipe.Step
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		step, ok := stepRegistry[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUtils.ErrUnknownStep, name)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func init() {
	runCmd.Flags().StringVar(&stepNames, "steps", "flux,flatfield", "Comma-separated calibration steps to run, in order")
	RootCmd.AddCommand(runCmd)
}
