// Package cmd provides the command-line interface for running serial
// controller scenarios.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spisim",
	Short: "Spisim runs serial peripheral controller scenarios.",
	Long: `Spisim assembles a serial peripheral controller pipeline and ` +
		`drives it through its register interface. Scenarios can record ` +
		`every serial clock edge into a SQLite database and expose the ` +
		`running simulation over HTTP for inspection.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
