package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "signage",
	Short:         "Digital signage screens, their controller and the display client",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(controllerCmd)
	rootCmd.AddCommand(displayCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}
