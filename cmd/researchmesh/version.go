package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/researchmesh"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of researchmesh",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "researchmesh version %s\n", researchmesh.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
