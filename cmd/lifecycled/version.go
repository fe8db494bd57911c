package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kodelet-systems/agentlifecycle/pkg/presenter"
	"github.com/kodelet-systems/agentlifecycle/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		out, err := info.JSON()
		if err != nil {
			presenter.Error(err, "failed to format version information")
			os.Exit(1)
		}
		fmt.Println(out)
	},
}
