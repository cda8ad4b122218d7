package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stamper",
	Short: "Stamper fills Word templates from comment expressions",
	Long: `Stamper processes .docx templates whose comments carry expressions:
a comment spanning a paragraph can replace, hide, remove or repeat it,
and inline ${...} placeholders are resolved against the supplied data.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
