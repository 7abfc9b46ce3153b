package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vivafolio/entsync"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of entsync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("entsync version %s\n", strings.TrimSpace(entsync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
