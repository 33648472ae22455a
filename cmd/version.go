package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/stellarops/calpipe/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the calibration software version",
	Example: "calpipe version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("calpipe %s on %s/%s\n", version.Version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
