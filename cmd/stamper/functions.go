package main

import (
	"fmt"

	"github.com/go-stamper/stamper/pkg/stamper"
	"github.com/spf13/cobra"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the operations available in comment expressions",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := stamper.New().Operations()
		if err != nil {
			return err
		}
		for _, name := range registry.Names() {
			for _, sig := range registry.Signatures(name) {
				fmt.Printf("%s%s\n", name, sig)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}
