package main

import (
	"fmt"

	"github.com/go-stamper/stamper/pkg/stamper"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stamper",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stamper version %s\n", stamper.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
